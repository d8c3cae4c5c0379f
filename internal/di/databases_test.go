package di

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/pescan/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	return &config.Config{
		DataDir:             tmpDir,
		ResultsDir:          filepath.Join(tmpDir, "results"),
		Port:                8001,
		ScanWorkers:         1,
		ExactMaxQubits:      14,
		HamiltonianCacheTTL: time.Hour,
		Backup:              &config.BackupConfig{Schedule: "0 0 3 * * *", RetentionDays: 30},
	}
}

func TestInitializeDatabases(t *testing.T) {
	cfg := testConfig(t)

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	require.NotNil(t, container.DB)
	assert.Equal(t, "pescan", container.DB.Name())
	assert.FileExists(t, filepath.Join(cfg.DataDir, "pescan.db"))

	var tables int
	err = container.DB.Conn().QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('scan_runs', 'hamiltonian_cache')`,
	).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 2, tables)
}

func TestInitializeDatabases_InvalidPath(t *testing.T) {
	cfg := testConfig(t)
	// A regular file where the data directory should be.
	blocker := filepath.Join(cfg.DataDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.DataDir = filepath.Join(blocker, "data")

	_, err := InitializeDatabases(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestContainerClose_Nil(t *testing.T) {
	var c *Container
	assert.NoError(t, c.Close())
	assert.NoError(t, (&Container{}).Close())
}
