package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PESCAN_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "results"), cfg.ResultsDir)
	assert.DirExists(t, cfg.ResultsDir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, 1, cfg.ScanWorkers)
	assert.Equal(t, 14, cfg.ExactMaxQubits)
	assert.Equal(t, 7*24*time.Hour, cfg.HamiltonianCacheTTL)
	assert.False(t, cfg.Backup.Enabled)
	assert.Equal(t, filepath.Join(dir, "pescan.db"), cfg.DatabasePath())
}

func TestLoad_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PESCAN_DATA_DIR", dir)
	t.Setenv("RESULTS_DIR", filepath.Join(dir, "out"))
	t.Setenv("GO_PORT", "9100")
	t.Setenv("SCAN_WORKERS", "4")
	t.Setenv("HAMILTONIAN_CACHE_TTL", "2h")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "out"), cfg.ResultsDir)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 4, cfg.ScanWorkers)
	assert.Equal(t, 2*time.Hour, cfg.HamiltonianCacheTTL)
	assert.True(t, cfg.DevMode)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PESCAN_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "not-a-number")
	t.Setenv("HAMILTONIAN_CACHE_TTL", "forever")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.HamiltonianCacheTTL)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Port: 8001, ScanWorkers: 1, ExactMaxQubits: 14, Backup: &BackupConfig{}}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.ScanWorkers = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ExactMaxQubits = 30
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Backup.Enabled = true
	assert.Error(t, cfg.Validate(), "bucket missing")

	cfg.Backup.Bucket = "pes-results"
	assert.Error(t, cfg.Validate(), "credentials missing")

	cfg.Backup.AccessKeyID = "id"
	cfg.Backup.SecretAccessKey = "secret"
	assert.NoError(t, cfg.Validate())
}
