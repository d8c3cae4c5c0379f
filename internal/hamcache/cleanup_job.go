package hamcache

import (
	"context"

	"github.com/aristath/pescan/internal/events"
	"github.com/rs/zerolog"
)

// CleanupJob removes expired Hamiltonians. It is scheduled daily.
type CleanupJob struct {
	repo   *Repository
	events *events.Manager
	log    zerolog.Logger
}

// NewCleanupJob creates a new cache cleanup job. em may be nil.
func NewCleanupJob(repo *Repository, em *events.Manager, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:   repo,
		events: em,
		log:    log.With().Str("job", "hamiltonian_cache_cleanup").Logger(),
	}
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	deleted, err := j.repo.DeleteExpired(context.Background())
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired hamiltonians")
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Cleaned up expired hamiltonians")
		if j.events != nil {
			j.events.EmitTyped(events.CacheCleaned, "hamcache", &events.CacheCleanedData{Deleted: deleted})
		}
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "hamiltonian_cache_cleanup"
}
