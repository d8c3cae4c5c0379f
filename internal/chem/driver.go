package chem

import (
	"context"
	"errors"
	"fmt"
)

// ErrOpenShell is returned for systems the closed-shell driver cannot describe.
var ErrOpenShell = errors.New("only closed-shell singlets are supported")

// Driver turns a geometry string into an electronic-structure Problem.
type Driver struct {
	Basis        string
	Charge       int
	Multiplicity int // 2S+1
	Unit         Unit
	SCF          SCFOptions
}

// NewDriver returns a driver configured for STO-3G, neutral singlet, Ångström input.
func NewDriver() Driver {
	return Driver{
		Basis:        "sto-3g",
		Charge:       0,
		Multiplicity: 1,
		Unit:         Angstrom,
		SCF:          DefaultSCFOptions(),
	}
}

// Run parses the geometry, computes the integrals, converges RHF and returns
// the problem in the MO basis. ctx is checked between the expensive stages.
func (d Driver) Run(ctx context.Context, geometry string) (*Problem, error) {
	if d.Multiplicity != 1 {
		return nil, fmt.Errorf("%w: multiplicity %d", ErrOpenShell, d.Multiplicity)
	}

	atoms, err := ParseGeometry(geometry, d.Unit)
	if err != nil {
		return nil, err
	}

	nElec := ElectronCount(atoms, d.Charge)
	if nElec <= 0 || nElec%2 != 0 {
		return nil, fmt.Errorf("%w: %d electrons", ErrOpenShell, nElec)
	}

	basis, err := LoadBasis(d.Basis)
	if err != nil {
		return nil, err
	}
	funcs, err := basis.Functions(atoms)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ints := ComputeAOIntegrals(funcs, atoms)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scf, err := RunRHF(ints, nElec/2, d.SCF)
	if err != nil {
		return nil, fmt.Errorf("RHF for %q: %w", geometry, err)
	}

	enuc := NuclearRepulsion(atoms)
	one, two := toMOBasis(ints, scf.Coefficients)

	return &Problem{
		Geometry:           geometry,
		Atoms:              atoms,
		NumSpatialOrbitals: ints.N,
		NumAlpha:           nElec / 2,
		NumBeta:            nElec / 2,
		OneBody:            one,
		TwoBody:            two,
		NuclearRepulsion:   enuc,
		HFEnergy:           scf.ElectronicEnergy + enuc,
		OrbitalEnergies:    scf.OrbitalEnergies,
		SCFIterations:      scf.Iterations,
	}, nil
}
