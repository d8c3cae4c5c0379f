package qubit

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidIntegrals is returned when integral tensors do not match the orbital count.
var ErrInvalidIntegrals = errors.New("invalid electronic integrals")

// Ladder is a single fermionic creation (Create=true) or annihilation operator.
type Ladder struct {
	Mode   int
	Create bool
}

func (l Ladder) String() string {
	if l.Create {
		return fmt.Sprintf("+_%d", l.Mode)
	}
	return fmt.Sprintf("-_%d", l.Mode)
}

// FermionTerm is a coefficient times an ordered product of ladder operators.
// An empty product is the identity.
type FermionTerm struct {
	Ops   []Ladder
	Coeff complex128
}

// FermionicOp is a second-quantized operator over NumModes spin orbitals.
type FermionicOp struct {
	NumModes int
	Terms    []FermionTerm
}

func (f *FermionicOp) String() string {
	parts := make([]string, len(f.Terms))
	for i, t := range f.Terms {
		ops := make([]string, len(t.Ops))
		for j, l := range t.Ops {
			ops[j] = l.String()
		}
		parts[i] = fmt.Sprintf("%v [%s]", t.Coeff, strings.Join(ops, " "))
	}
	return strings.Join(parts, "\n")
}

// ElectronicIntegrals are spatial-orbital integrals of a spin-restricted Hamiltonian.
type ElectronicIntegrals struct {
	NumSpatialOrbitals int
	OneBody            []float64 // h_pq, n×n
	TwoBody            []float64 // (pq|rs) chemists' order, n⁴
	Constant           float64   // added to the identity term
}

// SpinOrbital returns the mode index of spatial orbital p with the given spin,
// alpha orbitals first then beta orbitals.
func SpinOrbital(p int, beta bool, numSpatial int) int {
	if beta {
		return p + numSpatial
	}
	return p
}

// ElectronicHamiltonian builds
//
//	H = c + Σ_{pqσ} h_pq a†_pσ a_qσ + ½ Σ_{pqrsστ} (pq|rs) a†_pσ a†_rτ a_sτ a_qσ
//
// skipping integrals with magnitude at or below tol.
func ElectronicHamiltonian(ints ElectronicIntegrals, tol float64) (*FermionicOp, error) {
	n := ints.NumSpatialOrbitals
	if n <= 0 || len(ints.OneBody) != n*n || len(ints.TwoBody) != n*n*n*n {
		return nil, fmt.Errorf("%w: %d orbitals, %d one-body, %d two-body values",
			ErrInvalidIntegrals, n, len(ints.OneBody), len(ints.TwoBody))
	}

	op := &FermionicOp{NumModes: 2 * n}
	if ints.Constant != 0 {
		op.Terms = append(op.Terms, FermionTerm{Coeff: complex(ints.Constant, 0)})
	}

	spins := [2]bool{false, true}

	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			h := ints.OneBody[p*n+q]
			if math.Abs(h) <= tol {
				continue
			}
			for _, s := range spins {
				op.Terms = append(op.Terms, FermionTerm{
					Ops: []Ladder{
						{Mode: SpinOrbital(p, s, n), Create: true},
						{Mode: SpinOrbital(q, s, n)},
					},
					Coeff: complex(h, 0),
				})
			}
		}
	}

	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			for r := 0; r < n; r++ {
				for s := 0; s < n; s++ {
					v := ints.TwoBody[((p*n+q)*n+r)*n+s]
					if math.Abs(v) <= tol {
						continue
					}
					for _, sigma := range spins {
						for _, tau := range spins {
							ps, qs := SpinOrbital(p, sigma, n), SpinOrbital(q, sigma, n)
							rt, st := SpinOrbital(r, tau, n), SpinOrbital(s, tau, n)
							if ps == rt || qs == st {
								continue // a†a† or aa on the same mode vanishes
							}
							op.Terms = append(op.Terms, FermionTerm{
								Ops: []Ladder{
									{Mode: ps, Create: true},
									{Mode: rt, Create: true},
									{Mode: st},
									{Mode: qs},
								},
								Coeff: complex(0.5*v, 0),
							})
						}
					}
				}
			}
		}
	}

	return op, nil
}
