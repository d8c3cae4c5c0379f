package chem

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidActiveSpace is returned when an active-space request does not fit the problem.
var ErrInvalidActiveSpace = errors.New("invalid active space")

// Problem is a closed-shell electronic-structure problem expressed in the
// molecular-orbital basis.
type Problem struct {
	Geometry           string
	Atoms              []Atom
	NumSpatialOrbitals int
	NumAlpha           int
	NumBeta            int

	OneBody []float64 // h_pq, n×n
	TwoBody []float64 // (pq|rs), n⁴ in chemists' order

	NuclearRepulsion float64
	CoreEnergy       float64 // energy of frozen inactive orbitals, zero without reduction
	HFEnergy         float64 // total RHF energy including nuclear repulsion
	OrbitalEnergies  []float64
	SCFIterations    int
}

// NumParticles returns the number of (active) electrons.
func (p *Problem) NumParticles() int {
	return p.NumAlpha + p.NumBeta
}

// OneBodyAt returns h_pq.
func (p *Problem) OneBodyAt(i, j int) float64 {
	return p.OneBody[i*p.NumSpatialOrbitals+j]
}

// TwoBodyAt returns (pq|rs).
func (p *Problem) TwoBodyAt(i, j, k, l int) float64 {
	n := p.NumSpatialOrbitals
	return p.TwoBody[((i*n+j)*n+k)*n+l]
}

// toMOBasis transforms AO integrals with the coefficient matrix C (AO × MO).
func toMOBasis(ints *AOIntegrals, C *mat.Dense) (oneBody, twoBody []float64) {
	n := ints.N

	H := mat.NewDense(n, n, append([]float64(nil), ints.Core...))
	hmo := mat.NewDense(n, n, nil)
	hmo.Mul(C.T(), H)
	hmo.Mul(hmo, C)
	oneBody = make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			oneBody[i*n+j] = hmo.At(i, j)
		}
	}

	// Four quarter transformations, each O(n⁵).
	idx := func(a, b, c, d int) int { return ((a*n+b)*n+c)*n + d }
	cur := append([]float64(nil), ints.ERI...)
	next := make([]float64, len(cur))
	for pass := 0; pass < 4; pass++ {
		for i := range next {
			next[i] = 0
		}
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				for c := 0; c < n; c++ {
					for d := 0; d < n; d++ {
						v := cur[idx(a, b, c, d)]
						if v == 0 {
							continue
						}
						// Contract the leading index and rotate it to the back, so after four
						// passes every index has been transformed and order is restored.
						for p := 0; p < n; p++ {
							next[idx(b, c, d, p)] += C.At(a, p) * v
						}
					}
				}
			}
		}
		cur, next = next, cur
	}
	return oneBody, cur
}

// ActiveSpace selects NumElectrons electrons in NumSpatialOrbitals orbitals around
// the Fermi level; lower doubly occupied orbitals are frozen into CoreEnergy.
type ActiveSpace struct {
	NumElectrons       int
	NumSpatialOrbitals int
}

// Reduce returns a new Problem restricted to the active orbitals.
func (a ActiveSpace) Reduce(p *Problem) (*Problem, error) {
	total := p.NumParticles()
	n := p.NumSpatialOrbitals

	switch {
	case a.NumElectrons <= 0 || a.NumSpatialOrbitals <= 0:
		return nil, fmt.Errorf("%w: need positive electron and orbital counts, got %d/%d", ErrInvalidActiveSpace, a.NumElectrons, a.NumSpatialOrbitals)
	case a.NumElectrons > total || (total-a.NumElectrons)%2 != 0:
		return nil, fmt.Errorf("%w: cannot keep %d of %d electrons", ErrInvalidActiveSpace, a.NumElectrons, total)
	case a.NumElectrons > 2*a.NumSpatialOrbitals:
		return nil, fmt.Errorf("%w: %d electrons do not fit in %d orbitals", ErrInvalidActiveSpace, a.NumElectrons, a.NumSpatialOrbitals)
	}

	nCore := (total - a.NumElectrons) / 2
	if nCore+a.NumSpatialOrbitals > n {
		return nil, fmt.Errorf("%w: %d core + %d active orbitals exceed %d", ErrInvalidActiveSpace, nCore, a.NumSpatialOrbitals, n)
	}

	core := 0.0
	for i := 0; i < nCore; i++ {
		core += 2 * p.OneBodyAt(i, i)
		for j := 0; j < nCore; j++ {
			core += 2*p.TwoBodyAt(i, i, j, j) - p.TwoBodyAt(i, j, j, i)
		}
	}

	m := a.NumSpatialOrbitals
	one := make([]float64, m*m)
	for t := 0; t < m; t++ {
		for u := 0; u < m; u++ {
			pt, pu := nCore+t, nCore+u
			h := p.OneBodyAt(pt, pu)
			for i := 0; i < nCore; i++ {
				h += 2*p.TwoBodyAt(pt, pu, i, i) - p.TwoBodyAt(pt, i, i, pu)
			}
			one[t*m+u] = h
		}
	}

	two := make([]float64, m*m*m*m)
	for t := 0; t < m; t++ {
		for u := 0; u < m; u++ {
			for v := 0; v < m; v++ {
				for w := 0; w < m; w++ {
					two[((t*m+u)*m+v)*m+w] = p.TwoBodyAt(nCore+t, nCore+u, nCore+v, nCore+w)
				}
			}
		}
	}

	reduced := *p
	reduced.NumSpatialOrbitals = m
	reduced.NumAlpha = a.NumElectrons / 2
	reduced.NumBeta = a.NumElectrons / 2
	reduced.OneBody = one
	reduced.TwoBody = two
	reduced.CoreEnergy = p.CoreEnergy + core
	reduced.OrbitalEnergies = append([]float64(nil), p.OrbitalEnergies[nCore:nCore+m]...)
	return &reduced, nil
}
