package exact

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pescan/internal/modules/molecules"
	"github.com/aristath/pescan/internal/qubit"
)

func TestSolve_DiagonalOperator(t *testing.T) {
	op, err := qubit.FromLabels(map[string]complex128{"ZI": 1, "IZ": 0.5, "II": 0.25})
	require.NoError(t, err)

	e, err := Solver{}.Solve(op)
	require.NoError(t, err)
	assert.InDelta(t, -1.25, e, 1e-12)
}

func TestSolve_ComplexHermitianOperator(t *testing.T) {
	op, err := qubit.FromLabels(map[string]complex128{"Y": 1, "Z": 1})
	require.NoError(t, err)

	vals, err := Solver{}.Eigenvalues(op)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.InDelta(t, -math.Sqrt2, vals[0], 1e-12)
	assert.InDelta(t, math.Sqrt2, vals[1], 1e-12)
}

func TestSolve_RejectsNonHermitian(t *testing.T) {
	op, err := qubit.FromLabels(map[string]complex128{"Z": 1i})
	require.NoError(t, err)

	_, err = Solver{}.Solve(op)
	assert.ErrorIs(t, err, ErrNotHermitian)
}

func TestSolve_QubitCeiling(t *testing.T) {
	op, err := qubit.FromLabels(map[string]complex128{"ZZZ": 1})
	require.NoError(t, err)

	_, err = NewSolver(2).Solve(op)
	assert.ErrorIs(t, err, qubit.ErrTooManyQubits)
}

func TestSolve_H2GroundState(t *testing.T) {
	op, meta, err := molecules.BuildH2(context.Background(), 0.735)
	require.NoError(t, err)

	s := NewSolver(DefaultMaxQubits)
	electronic, err := s.Solve(op)
	require.NoError(t, err)

	total := electronic + meta.NuclearRepulsion
	assert.InDelta(t, -1.8572750, electronic, 1e-5)
	assert.InDelta(t, -1.137, total, 1.6e-3, "within chemical accuracy of the STO-3G FCI energy")
	assert.Less(t, total, meta.HFEnergy, "correlation lowers the energy below Hartree-Fock")

	again, err := s.Solve(op)
	require.NoError(t, err)
	assert.InDelta(t, electronic, again, 1e-12)
}
