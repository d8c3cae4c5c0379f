package qubit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJordanWigner_NumberOperator(t *testing.T) {
	op := &FermionicOp{NumModes: 2, Terms: []FermionTerm{
		{Ops: []Ladder{{Mode: 1, Create: true}, {Mode: 1}}, Coeff: 1},
	}}

	q, err := JordanWignerMapper{}.Map(op)
	require.NoError(t, err)

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, complex128(0.5), q.Coefficient(mustPauli(t, "II")))
	assert.Equal(t, complex128(-0.5), q.Coefficient(mustPauli(t, "ZI")))
}

func TestJordanWigner_Anticommutation(t *testing.T) {
	// a_0 a†_1 + a†_1 a_0 = 0 and a_1 a†_1 + a†_1 a_1 = 1
	mixed := &FermionicOp{NumModes: 2, Terms: []FermionTerm{
		{Ops: []Ladder{{Mode: 0}, {Mode: 1, Create: true}}, Coeff: 1},
		{Ops: []Ladder{{Mode: 1, Create: true}, {Mode: 0}}, Coeff: 1},
	}}
	q, err := JordanWignerMapper{}.Map(mixed)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Len())

	same := &FermionicOp{NumModes: 2, Terms: []FermionTerm{
		{Ops: []Ladder{{Mode: 1}, {Mode: 1, Create: true}}, Coeff: 1},
		{Ops: []Ladder{{Mode: 1, Create: true}, {Mode: 1}}, Coeff: 1},
	}}
	q, err = JordanWignerMapper{}.Map(same)
	require.NoError(t, err)
	require.Equal(t, 1, q.Len())
	assert.Equal(t, complex128(1), q.Coefficient(Identity))
}

func TestJordanWigner_HoppingIsHermitian(t *testing.T) {
	op := &FermionicOp{NumModes: 3, Terms: []FermionTerm{
		{Ops: []Ladder{{Mode: 0, Create: true}, {Mode: 2}}, Coeff: 0.3},
		{Ops: []Ladder{{Mode: 2, Create: true}, {Mode: 0}}, Coeff: 0.3},
	}}
	q, err := JordanWignerMapper{}.Map(op)
	require.NoError(t, err)

	assert.True(t, q.IsHermitian(1e-12))
	assert.InDelta(t, 0.15, real(q.Coefficient(mustPauli(t, "XZX"))), 1e-12)
	assert.InDelta(t, 0.15, real(q.Coefficient(mustPauli(t, "YZY"))), 1e-12)
	assert.Equal(t, 2, q.Len())
}

func TestJordanWigner_Errors(t *testing.T) {
	_, err := JordanWignerMapper{}.Map(&FermionicOp{NumModes: 0})
	assert.ErrorIs(t, err, ErrTooManyQubits)

	_, err = JordanWignerMapper{}.Map(&FermionicOp{NumModes: 1, Terms: []FermionTerm{
		{Ops: []Ladder{{Mode: 3}}, Coeff: 1},
	}})
	assert.Error(t, err)
}

func TestElectronicHamiltonian_Validation(t *testing.T) {
	_, err := ElectronicHamiltonian(ElectronicIntegrals{NumSpatialOrbitals: 2, OneBody: make([]float64, 3)}, 1e-12)
	assert.ErrorIs(t, err, ErrInvalidIntegrals)
}

func TestElectronicHamiltonian_OneOrbital(t *testing.T) {
	// One spatial orbital, doubly occupied: E = 2h + (00|00) + c.
	ints := ElectronicIntegrals{
		NumSpatialOrbitals: 1,
		OneBody:            []float64{-1.25},
		TwoBody:            []float64{0.75},
		Constant:           0.5,
	}
	f, err := ElectronicHamiltonian(ints, 1e-12)
	require.NoError(t, err)
	assert.Equal(t, 2, f.NumModes)

	q, err := JordanWignerMapper{}.Map(f)
	require.NoError(t, err)

	m, err := q.Matrix(4)
	require.NoError(t, err)
	// Diagonal in the occupation basis |b1 b0>: 0, h, h, 2h+U.
	assert.InDelta(t, 0.5, real(m[0*4+0]), 1e-12)
	assert.InDelta(t, 0.5-1.25, real(m[1*4+1]), 1e-12)
	assert.InDelta(t, 0.5-1.25, real(m[2*4+2]), 1e-12)
	assert.InDelta(t, 0.5-2.5+0.75, real(m[3*4+3]), 1e-12)
}
