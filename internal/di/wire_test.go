package di

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/pescan/internal/modules/pes"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.DB)
	assert.NotNil(t, container.RunRepo)
	assert.NotNil(t, container.HamiltonianCache)
	assert.NotNil(t, container.EventBus)
	assert.NotNil(t, container.EventManager)
	assert.NotNil(t, container.Runner)
	assert.NotNil(t, container.Scanner)
	assert.NotNil(t, container.ScanService)
	assert.NotNil(t, container.QueueManager)
	assert.NotNil(t, container.Scheduler)
	assert.Nil(t, container.BackupService)
	assert.Equal(t, 14, container.Solver.MaxQubits)
	assert.Equal(t, cfg.ResultsDir, container.Artifacts.Dir)
}

func TestWire_StaleRunsRecoveredOnStart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	// A run left behind by a previous process.
	first, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	stale := &pes.Run{
		Molecule:      "h2",
		Points:        []float64{0.7},
		Ansatz:        "RealAmplitudes",
		Reps:          1,
		MaxIterations: 10,
		Seed:          42,
		CreatedAt:     time.Now().Add(-time.Hour),
	}
	require.NoError(t, first.RunRepo.Create(ctx, stale))
	require.NoError(t, first.RunRepo.MarkRunning(ctx, stale.ID))
	require.NoError(t, first.Close())

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	runCtx, cancel := context.WithCancel(ctx)
	container.QueueManager.Start(runCtx)
	t.Cleanup(func() {
		cancel()
		container.QueueManager.Stop()
	})

	require.Eventually(t, func() bool {
		run, err := container.RunRepo.Get(ctx, stale.ID)
		return err == nil && run.Status == pes.StatusFailed
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWire_InvalidBackupConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup.Enabled = true

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "failed to initialize services")
}
