// Package pes sweeps a molecule's geometric parameter, running VQE and the
// exact solver at every point and collecting the energies into a result table.
package pes

import (
	"context"
	"fmt"
	"math"

	"github.com/aristath/pescan/internal/modules/exact"
	"github.com/aristath/pescan/internal/modules/molecules"
	"github.com/aristath/pescan/internal/modules/quantum"
	"github.com/aristath/pescan/internal/modules/vqe"
	"github.com/aristath/pescan/internal/qubit"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options configures a scan. Point i is optimized with seed Seed+i.
type Options struct {
	Ansatz        string
	Reps          int
	MaxIterations int
	Seed          int64

	// Workers > 1 evaluates points concurrently. The table is identical either way.
	Workers int
}

// DefaultOptions mirrors vqe.DefaultOptions with a single worker.
func DefaultOptions() Options {
	v := vqe.DefaultOptions()
	return Options{
		Ansatz:        v.Ansatz,
		Reps:          v.Reps,
		MaxIterations: v.MaxIterations,
		Seed:          v.Seed,
		Workers:       1,
	}
}

// Point is the outcome of one geometry of a scan.
type Point struct {
	Index            int     `json:"index"`
	Total            int     `json:"total"`
	Parameter        float64 `json:"parameter"`
	VQEEnergy        float64 `json:"vqe_energy"`
	ExactEnergy      float64 `json:"exact_energy"`
	Error            float64 `json:"error"`
	NuclearRepulsion float64 `json:"nuclear_repulsion"`
	Evaluations      int     `json:"evaluations"`
}

// ErrorMilliHartree returns the absolute error in mHa.
func (p Point) ErrorMilliHartree() float64 {
	return p.Error * 1000
}

// ProgressReporter receives each completed point. With several workers points
// arrive out of order and concurrently; Index identifies them.
type ProgressReporter interface {
	ReportPoint(p Point)
}

// ProgressFunc adapts a function to ProgressReporter.
type ProgressFunc func(p Point)

// ReportPoint implements ProgressReporter.
func (f ProgressFunc) ReportPoint(p Point) { f(p) }

// EigenSolver returns the smallest eigenvalue of a qubit operator.
type EigenSolver interface {
	Solve(op *qubit.Operator) (float64, error)
}

// Scanner composes a molecule builder with the VQE runner and the exact solver.
type Scanner struct {
	runner   *vqe.Runner
	solver   EigenSolver
	progress ProgressReporter
	log      zerolog.Logger
}

// NewScanner creates a scanner. A nil solver uses exact.Solver defaults.
func NewScanner(runner *vqe.Runner, solver EigenSolver, log zerolog.Logger) *Scanner {
	if runner == nil {
		runner = vqe.NewRunner(nil, log)
	}
	if solver == nil {
		solver = exact.Solver{}
	}
	return &Scanner{
		runner: runner,
		solver: solver,
		log:    log.With().Str("component", "pes_scanner").Logger(),
	}
}

// WithProgress returns a copy of the scanner that reports every point to p.
func (s *Scanner) WithProgress(p ProgressReporter) *Scanner {
	c := *s
	c.progress = p
	return &c
}

// Scan evaluates every point in order. The first failing point aborts the
// whole scan and no partial table is returned.
func (s *Scanner) Scan(ctx context.Context, builder molecules.Builder, points []float64, opts Options) (*Result, error) {
	if builder == nil {
		return nil, fmt.Errorf("%w: nil molecule builder", quantum.ErrInvalidArgument)
	}
	if _, err := quantum.ParseAnsatzKind(opts.Ansatz); err != nil {
		return nil, err
	}

	total := len(points)
	slots := make([]Point, total)

	s.log.Info().
		Str("molecule", builder.Name()).
		Str("ansatz", opts.Ansatz).
		Int("reps", opts.Reps).
		Int("points", total).
		Int("workers", opts.Workers).
		Msg("Starting PES scan")

	if opts.Workers <= 1 {
		for i, x := range points {
			p, err := s.evaluate(ctx, builder, i, total, x, opts)
			if err != nil {
				return nil, err
			}
			slots[i] = p
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i, x := range points {
			g.Go(func() error {
				p, err := s.evaluate(gctx, builder, i, total, x, opts)
				if err != nil {
					return err
				}
				slots[i] = p
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	res := NewResult(total)
	for _, p := range slots {
		res.Append(p)
	}

	s.log.Info().
		Str("molecule", builder.Name()).
		Float64("max_error_mha", res.MaxError()*1000).
		Msg("PES scan completed")

	return res, nil
}

func (s *Scanner) evaluate(ctx context.Context, builder molecules.Builder, i, total int, x float64, opts Options) (Point, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, err
	}

	op, meta, err := builder.Build(ctx, x)
	if err != nil {
		return Point{}, fmt.Errorf("point %d (%g): %w", i, x, err)
	}

	vres, err := s.runner.Run(ctx, op, vqe.Options{
		Ansatz:        opts.Ansatz,
		Reps:          opts.Reps,
		MaxIterations: opts.MaxIterations,
		Seed:          opts.Seed + int64(i),
	})
	if err != nil {
		return Point{}, fmt.Errorf("point %d (%g): VQE: %w", i, x, err)
	}

	eig, err := s.solver.Solve(op)
	if err != nil {
		return Point{}, fmt.Errorf("point %d (%g): exact solver: %w", i, x, err)
	}

	nuc := meta.NuclearRepulsion
	p := Point{
		Index:            i,
		Total:            total,
		Parameter:        x,
		VQEEnergy:        vres.Energy + nuc,
		ExactEnergy:      eig + nuc,
		NuclearRepulsion: nuc,
		Evaluations:      vres.Evaluations,
	}
	p.Error = math.Abs(p.VQEEnergy - p.ExactEnergy)

	s.log.Info().Msgf("[%d/%d] d=%.3f VQE=%.6f Exact=%.6f Error=%.2f mHa",
		i+1, total, x, p.VQEEnergy, p.ExactEnergy, p.ErrorMilliHartree())

	if s.progress != nil {
		s.progress.ReportPoint(p)
	}
	return p, nil
}
