// Package scheduler triggers maintenance jobs on cron schedules.
package scheduler

import (
	"context"

	"github.com/aristath/pescan/internal/queue"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler. Schedules take a leading seconds field.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 0 3 * * *"        - 3 AM daily
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})

	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// AddQueued schedules jobType to be enqueued on q, so the job runs on the
// queue worker between scans instead of on the cron goroutine.
func (s *Scheduler) AddQueued(schedule string, q *queue.Manager, jobType queue.JobType) error {
	return s.AddJob(schedule, &enqueueJob{queue: q, jobType: jobType})
}

// Len returns the number of registered entries.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// AsHandler adapts a Job to a queue handler.
func AsHandler(job Job) queue.Handler {
	return func(_ context.Context, _ *queue.Job) error {
		return job.Run()
	}
}

type enqueueJob struct {
	queue   *queue.Manager
	jobType queue.JobType
}

func (j *enqueueJob) Name() string {
	return "enqueue_" + string(j.jobType)
}

func (j *enqueueJob) Run() error {
	return j.queue.Enqueue(&queue.Job{Type: j.jobType})
}
