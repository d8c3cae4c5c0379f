package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeometry(t *testing.T) {
	atoms, err := ParseGeometry("H 0.0 0.0 0.0; li 0.0 0.0 1.0", Angstrom)
	require.NoError(t, err)
	require.Len(t, atoms, 2)

	assert.Equal(t, "H", atoms[0].Symbol)
	assert.Equal(t, 1, atoms[0].Z)
	assert.Equal(t, "Li", atoms[1].Symbol)
	assert.Equal(t, 3, atoms[1].Z)
	assert.InDelta(t, 1.8897261246, atoms[1].Position[2], 1e-9)
}

func TestParseGeometry_Bohr(t *testing.T) {
	atoms, err := ParseGeometry("H 0 0 0; H 0 0 1.4;", Bohr)
	require.NoError(t, err)
	require.Len(t, atoms, 2)
	assert.Equal(t, 1.4, atoms[1].Position[2])
}

func TestParseGeometry_Errors(t *testing.T) {
	testCases := map[string]string{
		"empty":        "",
		"missing z":    "H 0 0",
		"bad number":   "H 0 0 x",
		"unknown atom": "Xx 0 0 0",
	}

	for name, geom := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGeometry(geom, Angstrom)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}

	_, err := ParseGeometry("H 0 0 0", Unit("furlong"))
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestNuclearRepulsion_H2(t *testing.T) {
	atoms, err := ParseGeometry("H 0.0 0.0 0.0; H 0.0 0.0 0.735", Angstrom)
	require.NoError(t, err)

	assert.InDelta(t, 0.719968994, NuclearRepulsion(atoms), 1e-6)
	assert.Equal(t, 2, ElectronCount(atoms, 0))
	assert.Equal(t, 1, ElectronCount(atoms, 1))
}
