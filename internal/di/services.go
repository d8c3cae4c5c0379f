package di

import (
	"context"
	"fmt"

	"github.com/aristath/pescan/internal/config"
	"github.com/aristath/pescan/internal/events"
	"github.com/aristath/pescan/internal/hamcache"
	"github.com/aristath/pescan/internal/modules/exact"
	"github.com/aristath/pescan/internal/modules/pes"
	"github.com/aristath/pescan/internal/modules/plotting"
	"github.com/aristath/pescan/internal/modules/vqe"
	"github.com/aristath/pescan/internal/queue"
	"github.com/aristath/pescan/internal/reliability"
	"github.com/aristath/pescan/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices creates repositories, engines and services on top of
// an initialized database.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container database is not initialized")
	}

	// Repositories
	container.RunRepo = pes.NewRepository(container.DB.Conn(), log)
	container.HamiltonianCache = hamcache.NewRepository(container.DB.Conn(), cfg.HamiltonianCacheTTL)

	// Events
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	// Background work
	container.QueueManager = queue.NewManager(container.EventManager, queue.DefaultCapacity, log)
	container.Scheduler = scheduler.New(log)

	// Engines
	container.Solver = exact.NewSolver(cfg.ExactMaxQubits)
	container.Runner = vqe.NewRunner(nil, log)

	// Scan service
	container.Scanner = pes.NewScanner(container.Runner, container.Solver, log)
	container.Artifacts = plotting.NewArtifactWriter(cfg.ResultsDir)
	container.ScanService = pes.NewService(
		container.RunRepo,
		container.Scanner,
		container.QueueManager,
		container.EventManager,
		container.HamiltonianCache,
		container.Artifacts,
		cfg.ScanWorkers,
		log,
	)

	// Backups
	if cfg.Backup != nil && cfg.Backup.Enabled {
		client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			client,
			container.DB,
			cfg.ResultsDir,
			cfg.DataDir,
			container.EventManager,
			log,
		)
		log.Info().Str("bucket", client.Bucket()).Msg("Artifact backups enabled")
	}

	return nil
}
