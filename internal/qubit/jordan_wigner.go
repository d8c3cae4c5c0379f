package qubit

import "fmt"

// Mapper converts fermionic operators to qubit operators.
type Mapper interface {
	Map(op *FermionicOp) (*Operator, error)
}

// JordanWignerMapper maps mode j to qubit j:
//
//	a†_j = ½ (X_j − iY_j) Z_{j-1} … Z_0
//
// The mapping is one-to-one and keeps every qubit.
type JordanWignerMapper struct {
	Tolerance float64 // defaults to DefaultTolerance
}

// Map implements Mapper.
func (m JordanWignerMapper) Map(op *FermionicOp) (*Operator, error) {
	n := op.NumModes
	if n <= 0 || n > MaxQubits {
		return nil, fmt.Errorf("%w: %d modes", ErrTooManyQubits, n)
	}
	tol := m.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	create := make([][]Term, n)
	annihilate := make([][]Term, n)
	for j := 0; j < n; j++ {
		bit := uint64(1) << uint(j)
		parity := bit - 1
		xTerm := Pauli{X: bit, Z: parity}
		yTerm := Pauli{X: bit, Z: parity | bit}
		create[j] = []Term{{Pauli: xTerm, Coeff: 0.5}, {Pauli: yTerm, Coeff: -0.5i}}
		annihilate[j] = []Term{{Pauli: xTerm, Coeff: 0.5}, {Pauli: yTerm, Coeff: 0.5i}}
	}

	b := NewBuilder(n)
	for ti, t := range op.Terms {
		prod := []Term{{Pauli: Identity, Coeff: t.Coeff}}
		for _, l := range t.Ops {
			if l.Mode < 0 || l.Mode >= n {
				return nil, fmt.Errorf("term %d: mode %d outside 0..%d", ti, l.Mode, n-1)
			}
			factor := annihilate[l.Mode]
			if l.Create {
				factor = create[l.Mode]
			}
			prod = multiplyTerms(prod, factor)
		}
		for _, pt := range prod {
			b.Add(pt.Pauli, pt.Coeff)
		}
	}
	return b.Build(tol), nil
}

// multiplyTerms expands (Σ a)(Σ b) and merges equal Pauli strings.
func multiplyTerms(left, right []Term) []Term {
	acc := make(map[Pauli]complex128, len(left)*len(right))
	order := make([]Pauli, 0, len(left)*len(right))
	for _, l := range left {
		for _, r := range right {
			k, p := l.Pauli.Mul(r.Pauli)
			if _, seen := acc[p]; !seen {
				order = append(order, p)
			}
			acc[p] += l.Coeff * r.Coeff * Phase(k)
		}
	}
	out := make([]Term, 0, len(order))
	for _, p := range order {
		if c := acc[p]; c != 0 {
			out = append(out, Term{Pauli: p, Coeff: c})
		}
	}
	return out
}
