package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBasis_NameVariants(t *testing.T) {
	for _, name := range []string{"sto-3g", "STO-3G", "sto3g", " STO3G "} {
		b, err := LoadBasis(name)
		require.NoError(t, err, name)
		assert.Equal(t, "sto-3g", b.Name)
	}

	_, err := LoadBasis("cc-pvdz")
	assert.ErrorIs(t, err, ErrUnknownBasis)
}

func TestBasisSet_FunctionCounts(t *testing.T) {
	b, err := LoadBasis("sto-3g")
	require.NoError(t, err)

	testCases := []struct {
		geometry string
		expected int
	}{
		{"H 0 0 0; H 0 0 0.735", 2},
		{"Li 0 0 0; H 0 0 1.546", 6},
		{"Be 0 0 0; H 0 0 1.326; H 0 0 -1.326", 7},
	}

	for _, tc := range testCases {
		atoms, err := ParseGeometry(tc.geometry, Angstrom)
		require.NoError(t, err)
		funcs, err := b.Functions(atoms)
		require.NoError(t, err)
		assert.Len(t, funcs, tc.expected, tc.geometry)
	}
}

func TestBasisSet_UnknownElement(t *testing.T) {
	b, err := LoadBasis("sto-3g")
	require.NoError(t, err)

	atoms, err := ParseGeometry("C 0 0 0", Angstrom)
	require.NoError(t, err)
	_, err = b.Functions(atoms)
	assert.ErrorIs(t, err, ErrUnknownElement)
}

func TestContractedFunctionsAreNormalized(t *testing.T) {
	b, err := LoadBasis("sto-3g")
	require.NoError(t, err)

	atoms, err := ParseGeometry("Be 0 0 0; H 0 0.5 1.2", Angstrom)
	require.NoError(t, err)
	funcs, err := b.Functions(atoms)
	require.NoError(t, err)

	for i, f := range funcs {
		assert.InDelta(t, 1.0, Overlap(f, f), 1e-6, "function %d powers %v", i, f.Powers)
	}
}

func TestDoubleFactorial(t *testing.T) {
	assert.Equal(t, 1.0, doubleFactorial(-1))
	assert.Equal(t, 1.0, doubleFactorial(0))
	assert.Equal(t, 1.0, doubleFactorial(1))
	assert.Equal(t, 3.0, doubleFactorial(3))
	assert.Equal(t, 15.0, doubleFactorial(5))
	assert.Equal(t, 48.0, doubleFactorial(6))
}
