package quantum

import (
	"context"
	"fmt"

	"github.com/aristath/pescan/internal/qubit"
)

// Estimate is an expectation value with its uncertainty (zero for exact simulation).
type Estimate struct {
	Value  float64
	StdDev float64
}

// Estimator evaluates <psi(params)|op|psi(params)> for a parameterized circuit.
type Estimator interface {
	Estimate(ctx context.Context, circuit *Circuit, params []float64, op *qubit.Operator) (Estimate, error)
}

// StatevectorEstimator computes exact expectation values by full simulation.
type StatevectorEstimator struct{}

// NewStatevectorEstimator returns the exact estimator.
func NewStatevectorEstimator() *StatevectorEstimator {
	return &StatevectorEstimator{}
}

// Estimate implements Estimator.
func (e *StatevectorEstimator) Estimate(ctx context.Context, circuit *Circuit, params []float64, op *qubit.Operator) (Estimate, error) {
	if err := ctx.Err(); err != nil {
		return Estimate{}, err
	}
	if circuit.NumQubits != op.NumQubits() {
		return Estimate{}, fmt.Errorf("%w: circuit has %d qubits, operator %d", ErrInvalidArgument, circuit.NumQubits, op.NumQubits())
	}

	sv, err := Simulate(circuit, params)
	if err != nil {
		return Estimate{}, err
	}
	v, err := op.Expectation(sv.Amplitudes)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Value: real(v)}, nil
}
