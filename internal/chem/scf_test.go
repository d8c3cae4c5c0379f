package chem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRHF_H2(t *testing.T) {
	ints := h2Integrals(t, 1.4)

	res, err := RunRHF(ints, 1, DefaultSCFOptions())
	require.NoError(t, err)

	// Szabo & Ostlund: E_elec = -1.8310, E_tot = -1.1167 at R = 1.4 bohr.
	assert.InDelta(t, -1.8310, res.ElectronicEnergy, 5e-4)
	assert.InDelta(t, -1.1167, res.ElectronicEnergy+1/1.4, 5e-4)
	require.Len(t, res.OrbitalEnergies, 2)
	assert.InDelta(t, -0.578, res.OrbitalEnergies[0], 1e-3)
	assert.InDelta(t, 0.670, res.OrbitalEnergies[1], 1e-3)
	assert.Less(t, res.OrbitalEnergies[0], res.OrbitalEnergies[1])
}

func TestRunRHF_RejectsTooManyOccupied(t *testing.T) {
	_, err := RunRHF(h2Integrals(t, 1.4), 3, DefaultSCFOptions())
	assert.Error(t, err)
}

func TestRunRHF_IterationBudget(t *testing.T) {
	b, err := LoadBasis("sto-3g")
	require.NoError(t, err)
	atoms, err := ParseGeometry("Li 0 0 0; H 0 0 1.546", Angstrom)
	require.NoError(t, err)
	funcs, err := b.Functions(atoms)
	require.NoError(t, err)

	opts := DefaultSCFOptions()
	opts.MaxIterations = 1
	_, err = RunRHF(ComputeAOIntegrals(funcs, atoms), 2, opts)
	assert.ErrorIs(t, err, ErrSCFNotConverged)
}

func TestDriver_Run_H2(t *testing.T) {
	p, err := NewDriver().Run(context.Background(), "H 0.0 0.0 0.0; H 0.0 0.0 0.735")
	require.NoError(t, err)

	assert.Equal(t, 2, p.NumSpatialOrbitals)
	assert.Equal(t, 2, p.NumParticles())
	assert.InDelta(t, 0.719968994, p.NuclearRepulsion, 1e-6)
	assert.InDelta(t, -1.11700, p.HFEnergy, 1e-3)
	assert.InDelta(t, p.HFEnergy, hfEnergyFromMO(p), 1e-8)
}

func TestDriver_Run_Errors(t *testing.T) {
	d := NewDriver()

	_, err := d.Run(context.Background(), "H 0 0 0")
	assert.ErrorIs(t, err, ErrOpenShell)

	d.Multiplicity = 3
	_, err = d.Run(context.Background(), "H 0 0 0; H 0 0 0.735")
	assert.ErrorIs(t, err, ErrOpenShell)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewDriver().Run(ctx, "H 0 0 0; H 0 0 0.735")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestActiveSpace_LiH(t *testing.T) {
	full, err := NewDriver().Run(context.Background(), "Li 0.0 0.0 0.0; H 0.0 0.0 1.546")
	require.NoError(t, err)
	require.Equal(t, 6, full.NumSpatialOrbitals)
	require.Equal(t, 4, full.NumParticles())
	assert.InDelta(t, full.HFEnergy, hfEnergyFromMO(full), 1e-8)

	reduced, err := ActiveSpace{NumElectrons: 2, NumSpatialOrbitals: 3}.Reduce(full)
	require.NoError(t, err)

	assert.Equal(t, 3, reduced.NumSpatialOrbitals)
	assert.Equal(t, 1, reduced.NumAlpha)
	assert.Equal(t, 1, reduced.NumBeta)
	assert.Len(t, reduced.OneBody, 9)
	assert.Len(t, reduced.TwoBody, 81)
	assert.Less(t, reduced.CoreEnergy, -7.0, "Li 1s core dominates the energy")
	assert.Equal(t, full.NuclearRepulsion, reduced.NuclearRepulsion)

	// The HF determinant expressed in the active space has the same energy.
	assert.InDelta(t, full.HFEnergy, hfEnergyFromMO(reduced), 1e-8)

	// The original problem is left untouched.
	assert.Equal(t, 6, full.NumSpatialOrbitals)
	assert.Zero(t, full.CoreEnergy)
}

func TestActiveSpace_Invalid(t *testing.T) {
	p := &Problem{NumSpatialOrbitals: 6, NumAlpha: 2, NumBeta: 2}

	for name, as := range map[string]ActiveSpace{
		"zero":             {NumElectrons: 0, NumSpatialOrbitals: 3},
		"too many e":       {NumElectrons: 6, NumSpatialOrbitals: 3},
		"odd core":         {NumElectrons: 3, NumSpatialOrbitals: 3},
		"too few orbitals": {NumElectrons: 4, NumSpatialOrbitals: 1},
		"too many orbs":    {NumElectrons: 2, NumSpatialOrbitals: 6},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := as.Reduce(p)
			assert.ErrorIs(t, err, ErrInvalidActiveSpace)
		})
	}
}

// hfEnergyFromMO evaluates the closed-shell determinant energy from MO integrals.
func hfEnergyFromMO(p *Problem) float64 {
	e := p.NuclearRepulsion + p.CoreEnergy
	for i := 0; i < p.NumAlpha; i++ {
		e += 2 * p.OneBodyAt(i, i)
		for j := 0; j < p.NumAlpha; j++ {
			e += 2*p.TwoBodyAt(i, i, j, j) - p.TwoBodyAt(i, j, j, i)
		}
	}
	return e
}
