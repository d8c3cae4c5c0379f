// Package vqe runs the variational quantum eigensolver loop: a parameterized
// ansatz, an expectation-value estimator and a derivative-free optimizer.
package vqe

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/aristath/pescan/internal/modules/quantum"
	"github.com/aristath/pescan/internal/qubit"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// Defaults used by the scan scripts.
const (
	DefaultReps          = 3
	DefaultMaxIterations = 200
	DefaultSeed          = 42
)

// pcgStream is the fixed second word of the PCG state; the seed supplies the first.
const pcgStream = 0x9e3779b97f4a7c15

// Callback observes every objective evaluation.
type Callback func(evalCount int, params []float64, value, stddev float64)

// Options configures one VQE run.
type Options struct {
	Ansatz        string
	Reps          int
	MaxIterations int
	Seed          int64

	// Callback is invoked after the history has been updated.
	Callback Callback
}

// DefaultOptions returns RealAmplitudes with the default budget.
func DefaultOptions() Options {
	return Options{
		Ansatz:        string(quantum.RealAmplitudes),
		Reps:          DefaultReps,
		MaxIterations: DefaultMaxIterations,
		Seed:          DefaultSeed,
	}
}

// Result is the outcome of a VQE run.
type Result struct {
	Energy            float64            `json:"energy"`
	OptimalParameters []float64          `json:"optimal_parameters"`
	History           []float64          `json:"history"`
	NumParameters     int                `json:"num_parameters"`
	Ansatz            quantum.AnsatzKind `json:"ansatz"`
	Evaluations       int                `json:"evaluations"`
	Status            string             `json:"status"`
}

// Runner executes VQE optimizations against an estimator.
type Runner struct {
	estimator quantum.Estimator
	log       zerolog.Logger
}

// NewRunner creates a runner. A nil estimator selects exact statevector simulation.
func NewRunner(estimator quantum.Estimator, log zerolog.Logger) *Runner {
	if estimator == nil {
		estimator = quantum.NewStatevectorEstimator()
	}
	return &Runner{
		estimator: estimator,
		log:       log.With().Str("component", "vqe").Logger(),
	}
}

// Run minimizes <psi(theta)|op|psi(theta)> over the ansatz parameters.
//
// The returned energy is the lowest value observed across all evaluations and
// OptimalParameters is the vector that produced it. Estimator failures and
// context cancellation abort the optimization and are returned unchanged.
func (r *Runner) Run(ctx context.Context, op *qubit.Operator, opts Options) (*Result, error) {
	kind, err := quantum.ParseAnsatzKind(opts.Ansatz)
	if err != nil {
		return nil, err
	}
	if opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("%w: max iterations must be positive, got %d", quantum.ErrInvalidArgument, opts.MaxIterations)
	}
	if opts.Reps < 0 {
		return nil, fmt.Errorf("%w: reps must be non-negative, got %d", quantum.ErrInvalidArgument, opts.Reps)
	}
	if op == nil {
		return nil, fmt.Errorf("%w: nil operator", quantum.ErrInvalidArgument)
	}

	circuit, err := quantum.NewAnsatz(kind, op.NumQubits(), opts.Reps)
	if err != nil {
		return nil, err
	}

	initial := InitialParameters(circuit.NumParameters, opts.Seed)

	result := &Result{
		Energy:            math.Inf(1),
		OptimalParameters: append([]float64(nil), initial...),
		History:           make([]float64, 0, opts.MaxIterations),
		NumParameters:     circuit.NumParameters,
		Ansatz:            kind,
	}

	var evalErr error
	evals := 0
	objective := func(x []float64) float64 {
		if evalErr != nil || evals >= opts.MaxIterations {
			return math.Inf(1)
		}
		est, err := r.estimator.Estimate(ctx, circuit, x, op)
		if err != nil {
			evalErr = err
			return math.Inf(1)
		}
		evals++
		result.History = append(result.History, est.Value)
		if est.Value < result.Energy {
			result.Energy = est.Value
			copy(result.OptimalParameters, x)
		}
		if opts.Callback != nil {
			opts.Callback(evals, x, est.Value, est.StdDev)
		}
		return est.Value
	}

	problem := optimize.Problem{
		Func: objective,
		Status: func() (optimize.Status, error) {
			if evalErr != nil {
				return optimize.Failure, evalErr
			}
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: opts.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: opts.MaxIterations,
		},
	}

	res, err := optimize.Minimize(problem, initial, settings, &optimize.NelderMead{SimplexSize: 0.5})
	if evalErr != nil {
		return nil, evalErr
	}
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	if evals == 0 {
		return nil, fmt.Errorf("optimization failed: no objective evaluations")
	}

	result.Evaluations = evals
	result.Status = res.Status.String()

	r.log.Debug().
		Str("ansatz", string(kind)).
		Int("reps", opts.Reps).
		Int("parameters", circuit.NumParameters).
		Int("evaluations", evals).
		Str("status", result.Status).
		Float64("energy", result.Energy).
		Msg("VQE finished")

	return result, nil
}

// InitialParameters draws n angles uniformly from [-pi, pi] using a PCG source
// seeded with seed. Equal seeds give equal vectors.
func InitialParameters(n int, seed int64) []float64 {
	dist := distuv.Uniform{
		Min: -math.Pi,
		Max: math.Pi,
		Src: rand.NewPCG(uint64(seed), pcgStream),
	}
	params := make([]float64, n)
	for i := range params {
		params[i] = dist.Rand()
	}
	return params
}
