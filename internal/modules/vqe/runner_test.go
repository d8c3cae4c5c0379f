package vqe

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/aristath/pescan/internal/modules/exact"
	"github.com/aristath/pescan/internal/modules/molecules"
	"github.com/aristath/pescan/internal/modules/quantum"
	"github.com/aristath/pescan/internal/qubit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEstimator struct {
	inner  quantum.Estimator
	calls  int
	failAt int
	err    error
}

func (c *countingEstimator) Estimate(ctx context.Context, circuit *quantum.Circuit, params []float64, op *qubit.Operator) (quantum.Estimate, error) {
	c.calls++
	if c.failAt > 0 && c.calls >= c.failAt {
		return quantum.Estimate{}, c.err
	}
	return c.inner.Estimate(ctx, circuit, params, op)
}

func newCounting() *countingEstimator {
	return &countingEstimator{inner: quantum.NewStatevectorEstimator()}
}

func pauliZ(t *testing.T) *qubit.Operator {
	t.Helper()
	op, err := qubit.FromLabels(map[string]complex128{"Z": 1})
	require.NoError(t, err)
	return op
}

func minOf(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		m = math.Min(m, v)
	}
	return m
}

func TestRun_UnsupportedAnsatzFailsBeforeEvaluation(t *testing.T) {
	est := newCounting()
	runner := NewRunner(est, zerolog.Nop())

	opts := DefaultOptions()
	opts.Ansatz = "bogus"
	_, err := runner.Run(context.Background(), pauliZ(t), opts)

	require.Error(t, err)
	assert.ErrorIs(t, err, quantum.ErrUnsupportedAnsatz)
	assert.ErrorIs(t, err, quantum.ErrInvalidArgument)
	assert.Zero(t, est.calls)
}

func TestRun_InvalidArguments(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"zero iterations", func(o *Options) { o.MaxIterations = 0 }},
		{"negative iterations", func(o *Options) { o.MaxIterations = -5 }},
		{"negative reps", func(o *Options) { o.Reps = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := newCounting()
			opts := DefaultOptions()
			tt.modify(&opts)

			_, err := NewRunner(est, zerolog.Nop()).Run(context.Background(), pauliZ(t), opts)
			assert.ErrorIs(t, err, quantum.ErrInvalidArgument)
			assert.Zero(t, est.calls)
		})
	}
}

func TestRun_SingleQubitMinimum(t *testing.T) {
	opts := Options{Ansatz: "RealAmplitudes", Reps: 0, MaxIterations: 200, Seed: 7}

	res, err := NewRunner(nil, zerolog.Nop()).Run(context.Background(), pauliZ(t), opts)
	require.NoError(t, err)

	assert.InDelta(t, -1.0, res.Energy, 1e-4)
	assert.Equal(t, 1, res.NumParameters)
	assert.Len(t, res.OptimalParameters, 1)
	assert.InDelta(t, -1.0, math.Cos(res.OptimalParameters[0]), 1e-4)
	assert.Equal(t, quantum.RealAmplitudes, res.Ansatz)
}

func TestRun_HistoryAndBudget(t *testing.T) {
	est := newCounting()
	var observed []int
	opts := Options{
		Ansatz:        "efficientsu2",
		Reps:          1,
		MaxIterations: 40,
		Seed:          3,
		Callback: func(evalCount int, params []float64, value, stddev float64) {
			observed = append(observed, evalCount)
			assert.Len(t, params, 4)
			assert.Zero(t, stddev)
		},
	}

	res, err := NewRunner(est, zerolog.Nop()).Run(context.Background(), pauliZ(t), opts)
	require.NoError(t, err)

	assert.Equal(t, quantum.EfficientSU2, res.Ansatz)
	assert.Equal(t, 4, res.NumParameters)
	assert.LessOrEqual(t, len(res.History), opts.MaxIterations)
	assert.Equal(t, res.Evaluations, len(res.History))
	assert.Equal(t, est.calls, len(res.History))
	require.Len(t, observed, len(res.History))
	for i, n := range observed {
		assert.Equal(t, i+1, n)
	}
	assert.Equal(t, minOf(res.History), res.Energy)
}

func TestRun_Reproducible(t *testing.T) {
	opts := Options{Ansatz: "RealAmplitudes", Reps: 1, MaxIterations: 60, Seed: 11}
	op, err := qubit.FromLabels(map[string]complex128{"ZZ": 0.5, "XI": 0.3, "IX": -0.2})
	require.NoError(t, err)

	a, err := NewRunner(nil, zerolog.Nop()).Run(context.Background(), op, opts)
	require.NoError(t, err)
	b, err := NewRunner(nil, zerolog.Nop()).Run(context.Background(), op, opts)
	require.NoError(t, err)

	assert.Equal(t, a.Energy, b.Energy)
	assert.Equal(t, a.OptimalParameters, b.OptimalParameters)
	assert.Equal(t, a.History, b.History)
}

func TestInitialParameters(t *testing.T) {
	a := InitialParameters(16, 42)
	b := InitialParameters(16, 42)
	c := InitialParameters(16, 43)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, v := range a {
		assert.GreaterOrEqual(t, v, -math.Pi)
		assert.LessOrEqual(t, v, math.Pi)
	}
}

func TestRun_EstimatorErrorPropagates(t *testing.T) {
	boom := errors.New("backend unavailable")
	est := newCounting()
	est.failAt = 3
	est.err = boom

	_, err := NewRunner(est, zerolog.Nop()).Run(context.Background(), pauliZ(t), DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, est.calls)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	est := newCounting()
	_, err := NewRunner(est, zerolog.Nop()).Run(ctx, pauliZ(t), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, est.calls)
}

func TestRun_H2IsVariational(t *testing.T) {
	op, _, err := molecules.BuildH2(context.Background(), 0.735)
	require.NoError(t, err)

	exactEnergy, err := exact.NewSolver(0).Solve(op)
	require.NoError(t, err)

	opts := Options{Ansatz: "RealAmplitudes", Reps: 1, MaxIterations: 150, Seed: 42}
	res, err := NewRunner(nil, zerolog.Nop()).Run(context.Background(), op, opts)
	require.NoError(t, err)

	assert.Equal(t, 8, res.NumParameters)
	assert.GreaterOrEqual(t, res.Energy, exactEnergy-1e-9)
	assert.LessOrEqual(t, res.Energy, res.History[0])
	assert.Len(t, res.History, res.Evaluations)
}
