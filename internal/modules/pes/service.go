package pes

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aristath/pescan/internal/events"
	"github.com/aristath/pescan/internal/modules/molecules"
	"github.com/aristath/pescan/internal/modules/quantum"
	"github.com/aristath/pescan/internal/queue"
	"github.com/rs/zerolog"
)

// ErrInvalidRequest wraps every validation failure of Submit.
var ErrInvalidRequest = errors.New("invalid scan request")

// SubmitRequest describes a scan to run in the background. Nil numeric
// fields take the scanner defaults.
type SubmitRequest struct {
	Molecule      string    `json:"molecule"`
	Points        []float64 `json:"points"`
	Ansatz        string    `json:"ansatz,omitempty"`
	Reps          *int      `json:"reps,omitempty"`
	MaxIterations *int      `json:"max_iterations,omitempty"`
	Seed          *int64    `json:"seed,omitempty"`
	Workers       int       `json:"workers,omitempty"`
}

// ArtifactWriter stores the files derived from a finished run.
type ArtifactWriter interface {
	WriteArtifacts(run *Run) ([]string, error)
}

// Service owns the lifecycle of persisted scan runs.
type Service struct {
	repo      *Repository
	scanner   *Scanner
	queue     *queue.Manager
	events    *events.Manager
	store     molecules.OperatorStore
	artifacts ArtifactWriter
	workers   int
	startedAt time.Time
	log       zerolog.Logger
}

// NewService creates the scan service. store and artifacts may be nil.
func NewService(
	repo *Repository,
	scanner *Scanner,
	q *queue.Manager,
	em *events.Manager,
	store molecules.OperatorStore,
	artifacts ArtifactWriter,
	workers int,
	log zerolog.Logger,
) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		repo:      repo,
		scanner:   scanner,
		queue:     q,
		events:    em,
		store:     store,
		artifacts: artifacts,
		workers:   workers,
		startedAt: time.Now(),
		log:       log.With().Str("service", "pes").Logger(),
	}
}

// Submit validates req, records a pending run and enqueues it.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Run, error) {
	run, err := s.newRun(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, run); err != nil {
		return nil, err
	}

	err = s.queue.Enqueue(&queue.Job{
		Type:    queue.JobTypeScan,
		Payload: map[string]interface{}{"run_id": run.ID},
	})
	if err != nil {
		if failErr := s.repo.Fail(ctx, run.ID, err); failErr != nil {
			s.log.Error().Err(failErr).Str("run_id", run.ID).Msg("Failed to mark unqueued run")
		}
		return nil, fmt.Errorf("failed to enqueue scan %s: %w", run.ID, err)
	}

	s.emit(events.ScanQueued, &events.ScanQueuedData{
		RunID:    run.ID,
		Molecule: run.Molecule,
		Points:   len(run.Points),
		Ansatz:   run.Ansatz,
	})
	s.log.Info().
		Str("run_id", run.ID).
		Str("molecule", run.Molecule).
		Int("points", len(run.Points)).
		Msg("Scan queued")
	return run, nil
}

func (s *Service) newRun(req SubmitRequest) (*Run, error) {
	tmpl, err := molecules.Lookup(req.Molecule)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(req.Points) == 0 {
		return nil, fmt.Errorf("%w: at least one point is required", ErrInvalidRequest)
	}

	opts := DefaultOptions()
	if req.Ansatz != "" {
		opts.Ansatz = req.Ansatz
	}
	kind, err := quantum.ParseAnsatzKind(opts.Ansatz)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Reps != nil {
		opts.Reps = *req.Reps
	}
	if req.MaxIterations != nil {
		opts.MaxIterations = *req.MaxIterations
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	if opts.Reps < 0 {
		return nil, fmt.Errorf("%w: reps must be non-negative, got %d", ErrInvalidRequest, opts.Reps)
	}
	if opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("%w: max_iterations must be positive, got %d", ErrInvalidRequest, opts.MaxIterations)
	}

	workers := req.Workers
	if workers <= 0 {
		workers = s.workers
	}

	return &Run{
		Molecule:      tmpl.Name(),
		Points:        append([]float64(nil), req.Points...),
		Ansatz:        string(kind),
		Reps:          opts.Reps,
		MaxIterations: opts.MaxIterations,
		Seed:          opts.Seed,
		Workers:       workers,
	}, nil
}

// Get returns one run.
func (s *Service) Get(ctx context.Context, id string) (*Run, error) {
	return s.repo.Get(ctx, id)
}

// List returns the most recent runs.
func (s *Service) List(ctx context.Context, limit int) ([]*Run, error) {
	return s.repo.List(ctx, limit)
}

// Counts returns run totals per status.
func (s *Service) Counts(ctx context.Context) (map[RunStatus]int, error) {
	return s.repo.CountByStatus(ctx)
}

// RecoverStale fails runs left pending or running by a previous process.
// Runs submitted since the service was created are not touched.
func (s *Service) RecoverStale(ctx context.Context, _ *queue.Job) error {
	n, err := s.repo.ResetStale(ctx, s.startedAt)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Warn().Int64("runs", n).Msg("Marked interrupted scans as failed")
	}
	return nil
}

// Execute is the queue handler for JobTypeScan.
func (s *Service) Execute(ctx context.Context, job *queue.Job) error {
	runID := job.PayloadString("run_id")
	if runID == "" {
		return fmt.Errorf("scan job %s has no run_id", job.ID)
	}

	run, err := s.repo.Get(ctx, runID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkRunning(ctx, runID); err != nil {
		return err
	}

	start := time.Now()
	result, err := s.scan(ctx, run, job.ProgressReporter())
	if err != nil {
		// The job context may already be cancelled; the failure must still be recorded.
		if failErr := s.repo.Fail(context.Background(), runID, err); failErr != nil {
			s.log.Error().Err(failErr).Str("run_id", runID).Msg("Failed to record scan failure")
		}
		s.emit(events.ScanFailed, &events.ScanFailedData{RunID: runID, Error: err.Error()})
		return err
	}

	if err := s.repo.Complete(ctx, runID, result); err != nil {
		return err
	}
	run.Result = result
	run.Status = StatusCompleted

	if s.artifacts != nil {
		paths, err := s.artifacts.WriteArtifacts(run)
		if err != nil {
			s.log.Warn().Err(err).Str("run_id", runID).Msg("Failed to write scan artifacts")
		} else {
			s.log.Debug().Strs("paths", paths).Str("run_id", runID).Msg("Scan artifacts written")
		}
	}

	duration := time.Since(start)
	s.emit(events.ScanCompleted, &events.ScanCompletedData{
		RunID:       runID,
		Points:      result.Len(),
		MaxErrorMHa: result.MaxError() * 1000,
		Duration:    duration.Seconds(),
	})
	s.log.Info().
		Str("run_id", runID).
		Int("points", result.Len()).
		Float64("max_error_mha", result.MaxError()*1000).
		Int("within_chemical_accuracy", result.WithinChemicalAccuracy()).
		Dur("duration", duration).
		Msg("Scan completed")
	return nil
}

func (s *Service) scan(ctx context.Context, run *Run, reporter *queue.ProgressReporter) (*Result, error) {
	tmpl, err := molecules.Lookup(run.Molecule)
	if err != nil {
		return nil, err
	}
	var builder molecules.Builder = tmpl
	if s.store != nil {
		builder = molecules.Cached(tmpl, s.store, s.log)
	}

	var done atomic.Int64
	scanner := s.scanner.WithProgress(ProgressFunc(func(p Point) {
		reporter.Emit(events.ScanPoint, &events.ScanPointData{
			RunID:            run.ID,
			Index:            p.Index,
			Total:            p.Total,
			Parameter:        p.Parameter,
			VQEEnergy:        p.VQEEnergy,
			ExactEnergy:      p.ExactEnergy,
			ErrorMilliHa:     p.ErrorMilliHartree(),
			NuclearRepulsion: p.NuclearRepulsion,
		})
		n := int(done.Add(1))
		reporter.Report(n, p.Total, fmt.Sprintf("%s %g", run.Molecule, p.Parameter))
	}))

	return scanner.Scan(ctx, builder, run.Points, run.Options())
}

func (s *Service) emit(eventType events.EventType, data events.EventData) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped(eventType, "pes", data)
}
