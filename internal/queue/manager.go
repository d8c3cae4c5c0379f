// Package queue runs background jobs (scans and maintenance) one at a time on
// a single worker goroutine, reporting lifecycle and progress events.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/pescan/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrQueueFull is returned when the buffer has no room for another job.
	ErrQueueFull = errors.New("job queue is full")
	// ErrNoHandler is returned when enqueuing a job type nobody registered.
	ErrNoHandler = errors.New("no handler registered for job type")
	// ErrStopped is returned when enqueuing after Stop.
	ErrStopped = errors.New("job queue stopped")
)

// DefaultCapacity bounds the number of waiting jobs.
const DefaultCapacity = 64

// Manager owns the job buffer and the worker goroutine.
type Manager struct {
	jobs     chan *Job
	handlers map[JobType]Handler
	events   *events.Manager
	log      zerolog.Logger

	mu      sync.RWMutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool

	depth     atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	active    atomic.Value // string
}

// NewManager creates a queue. em may be nil; capacity <= 0 uses DefaultCapacity.
func NewManager(em *events.Manager, capacity int, log zerolog.Logger) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Manager{
		jobs:     make(chan *Job, capacity),
		handlers: make(map[JobType]Handler),
		events:   em,
		log:      log.With().Str("component", "queue").Logger(),
	}
	m.active.Store("")
	return m
}

// Register sets the handler for a job type, replacing any previous one.
func (m *Manager) Register(jobType JobType, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[jobType] = h
}

// Enqueue adds a job without blocking. Missing IDs and timestamps are filled in.
func (m *Manager) Enqueue(job *Job) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.stopped {
		return ErrStopped
	}
	if _, ok := m.handlers[job.Type]; !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, job.Type)
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	select {
	case m.jobs <- job:
		m.depth.Add(1)
		m.log.Debug().Str("job_id", job.ID).Str("job_type", string(job.Type)).Msg("Job enqueued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the worker. Jobs run with a context cancelled by Stop.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.log.Info().Msg("Job worker started")
		for {
			select {
			case <-ctx.Done():
				m.log.Info().Msg("Job worker stopped")
				return
			case job := <-m.jobs:
				m.depth.Add(-1)
				m.process(ctx, job)
			}
		}
	}()
}

// Stop cancels the running job and waits for the worker to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Stats is a snapshot of queue counters.
type Stats struct {
	Depth     int64  `json:"depth"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
	Active    string `json:"active,omitempty"`
}

// Stats returns the current counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Depth:     m.depth.Load(),
		Processed: m.processed.Load(),
		Failed:    m.failed.Load(),
		Active:    m.active.Load().(string),
	}
}

func (m *Manager) process(ctx context.Context, job *Job) {
	m.mu.RLock()
	h := m.handlers[job.Type]
	m.mu.RUnlock()

	job.progressReporter = NewProgressReporter(m.events, job.ID, job.Type)
	m.active.Store(string(job.Type))
	defer m.active.Store("")

	start := time.Now()
	m.emit(job, "started", "", 0)

	err := m.safeRun(ctx, h, job)
	duration := time.Since(start)
	defer m.processed.Add(1)

	if err != nil {
		m.failed.Add(1)
		m.log.Error().Err(err).
			Str("job_id", job.ID).
			Str("job_type", string(job.Type)).
			Dur("duration", duration).
			Msg("Job failed")
		m.emit(job, "failed", err.Error(), duration)
		return
	}

	m.log.Info().
		Str("job_id", job.ID).
		Str("job_type", string(job.Type)).
		Dur("duration", duration).
		Msg("Job completed")
	m.emit(job, "completed", "", duration)
}

func (m *Manager) safeRun(ctx context.Context, h Handler, job *Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, p)
		}
	}()
	return h(ctx, job)
}

func (m *Manager) emit(job *Job, status, errMsg string, duration time.Duration) {
	if m.events == nil {
		return
	}
	data := &events.JobStatusData{
		JobID:       job.ID,
		JobType:     string(job.Type),
		Status:      status,
		Description: GetJobDescription(job.Type),
		Error:       errMsg,
		Duration:    duration.Seconds(),
		Timestamp:   time.Now(),
	}
	m.events.EmitTyped(data.EventType(), "queue", data)
}
