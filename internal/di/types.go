// Package di wires the databases, repositories, services and jobs of the
// scan service into a single container.
package di

import (
	"github.com/aristath/pescan/internal/database"
	"github.com/aristath/pescan/internal/events"
	"github.com/aristath/pescan/internal/hamcache"
	"github.com/aristath/pescan/internal/modules/exact"
	"github.com/aristath/pescan/internal/modules/pes"
	"github.com/aristath/pescan/internal/modules/plotting"
	"github.com/aristath/pescan/internal/modules/vqe"
	"github.com/aristath/pescan/internal/queue"
	"github.com/aristath/pescan/internal/reliability"
	"github.com/aristath/pescan/internal/scheduler"
)

// Container holds all dependencies for the application.
type Container struct {
	// Scan runs and the Hamiltonian cache share one SQLite file.
	DB *database.DB

	// Repositories
	RunRepo          *pes.Repository
	HamiltonianCache *hamcache.Repository

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Engines
	Solver exact.Solver
	Runner *vqe.Runner

	// Services
	Scanner     *pes.Scanner
	Artifacts   *plotting.ArtifactWriter
	ScanService *pes.Service

	// BackupService is nil unless backups are enabled.
	BackupService *reliability.BackupService

	// Background work
	QueueManager *queue.Manager
	Scheduler    *scheduler.Scheduler
}

// JobInstances holds the maintenance jobs so they can be triggered by hand.
type JobInstances struct {
	CacheCleanup   scheduler.Job
	WALCheckpoint  scheduler.Job
	IntegrityCheck scheduler.Job
	Maintenance    scheduler.Job
	Backup         scheduler.Job // nil unless backups are enabled
}

// Close releases the database. Background workers must be stopped first.
func (c *Container) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
