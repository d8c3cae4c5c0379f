package di

import (
	"fmt"

	"github.com/aristath/pescan/internal/config"
	"github.com/aristath/pescan/internal/hamcache"
	"github.com/aristath/pescan/internal/queue"
	"github.com/aristath/pescan/internal/reliability"
	"github.com/aristath/pescan/internal/scheduler"
	"github.com/rs/zerolog"
)

// Cron schedules (with seconds field) for the maintenance jobs.
const (
	cacheCleanupSchedule   = "0 0 * * * *"    // hourly
	walCheckpointSchedule  = "0 */30 * * * *" // every 30 minutes
	maintenanceSchedule    = "0 30 3 * * *"   // daily at 03:30
	integrityCheckSchedule = "0 0 4 * * 0"    // Sundays at 04:00
)

type scheduledJob struct {
	jobType  queue.JobType
	job      scheduler.Job
	schedule string
}

// RegisterJobs registers every job handler with the queue and schedules the
// maintenance jobs. All jobs run on the queue worker, serialized with scans.
// Returns JobInstances for manual triggering via API.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.QueueManager == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("container services are not initialized")
	}

	q := container.QueueManager
	sched := container.Scheduler
	instances := &JobInstances{}

	// ==========================================
	// Scan jobs
	// ==========================================
	q.Register(queue.JobTypeScan, container.ScanService.Execute)
	q.Register(queue.JobTypeStaleRunRecovery, container.ScanService.RecoverStale)

	// ==========================================
	// Maintenance jobs
	// ==========================================
	instances.CacheCleanup = hamcache.NewCleanupJob(container.HamiltonianCache, container.EventManager, log)

	walJob := scheduler.NewCheckWALCheckpointsJob(container.DB)
	walJob.SetLogger(log.With().Str("job", "check_wal_checkpoints").Logger())
	instances.WALCheckpoint = walJob

	integrityJob := scheduler.NewCheckCoreDatabasesJob(container.DB)
	integrityJob.SetLogger(log.With().Str("job", "check_core_databases").Logger())
	instances.IntegrityCheck = integrityJob

	instances.Maintenance = reliability.NewDailyMaintenanceJob(container.DB, cfg.DataDir, log)

	scheduled := []scheduledJob{
		{queue.JobTypeCacheCleanup, instances.CacheCleanup, cacheCleanupSchedule},
		{queue.JobTypeWALCheckpoint, instances.WALCheckpoint, walCheckpointSchedule},
		{queue.JobTypeIntegrityCheck, instances.IntegrityCheck, integrityCheckSchedule},
		{queue.JobTypeMaintenance, instances.Maintenance, maintenanceSchedule},
	}

	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		scheduled = append(scheduled, scheduledJob{queue.JobTypeArtifactBackup, instances.Backup, cfg.Backup.Schedule})
	}

	for _, s := range scheduled {
		q.Register(s.jobType, scheduler.AsHandler(s.job))
		if err := sched.AddQueued(s.schedule, q, s.jobType); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", s.jobType, err)
		}
	}

	// Runs left pending or running by a previous process are failed before
	// the worker picks up anything else.
	if err := q.Enqueue(&queue.Job{Type: queue.JobTypeStaleRunRecovery}); err != nil {
		return nil, fmt.Errorf("failed to enqueue stale run recovery: %w", err)
	}

	log.Info().Int("scheduled", len(scheduled)).Msg("Jobs registered")
	return instances, nil
}
