// Package exact computes reference ground-state energies by dense
// diagonalization of a qubit operator (full CI within the mapped space).
package exact

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/pescan/internal/qubit"
)

// DefaultMaxQubits bounds the 2^n × 2^n matrix the solver is willing to build.
const DefaultMaxQubits = 14

// ErrNotHermitian is returned for operators whose matrix is not Hermitian.
var ErrNotHermitian = errors.New("operator is not Hermitian")

// Solver diagonalizes qubit operators. The zero value uses DefaultMaxQubits.
// It holds no state between calls.
type Solver struct {
	MaxQubits int
}

// NewSolver returns a solver refusing operators wider than maxQubits.
func NewSolver(maxQubits int) Solver {
	return Solver{MaxQubits: maxQubits}
}

// Solve returns the smallest eigenvalue of op over the whole Hilbert space
// (all particle-number sectors).
func (s Solver) Solve(op *qubit.Operator) (float64, error) {
	vals, err := s.Eigenvalues(op)
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

// Eigenvalues returns the full ascending spectrum of op.
func (s Solver) Eigenvalues(op *qubit.Operator) ([]float64, error) {
	limit := s.MaxQubits
	if limit <= 0 {
		limit = DefaultMaxQubits
	}

	m, err := op.Matrix(limit)
	if err != nil {
		return nil, err
	}
	dim := 1 << uint(op.NumQubits())

	complexEntries := false
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			a, b := m[i*dim+j], m[j*dim+i]
			if math.Abs(real(a)-real(b)) > 1e-10 || math.Abs(imag(a)+imag(b)) > 1e-10 {
				return nil, fmt.Errorf("%w: element (%d,%d)", ErrNotHermitian, i, j)
			}
			if math.Abs(imag(a)) > 1e-12 {
				complexEntries = true
			}
		}
	}

	var sym *mat.SymDense
	if complexEntries {
		sym = realEmbedding(m, dim)
	} else {
		sym = mat.NewSymDense(dim, nil)
		for i := 0; i < dim; i++ {
			for j := i; j < dim; j++ {
				sym.SetSym(i, j, 0.5*(real(m[i*dim+j])+real(m[j*dim+i])))
			}
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(sym, false); !ok {
		return nil, fmt.Errorf("eigendecomposition of %d×%d matrix failed", dim, dim)
	}
	vals := es.Values(nil)

	if complexEntries {
		// Every eigenvalue of H appears twice in [[A, -B], [B, A]].
		out := make([]float64, 0, dim)
		for i := 0; i < len(vals); i += 2 {
			out = append(out, vals[i])
		}
		return out, nil
	}
	return vals, nil
}

// realEmbedding maps the Hermitian H = A + iB to the real symmetric [[A, -B], [B, A]].
func realEmbedding(m []complex128, dim int) *mat.SymDense {
	sym := mat.NewSymDense(2*dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			h := m[i*dim+j]
			a, b := real(h), imag(h)
			sym.SetSym(i, j, a)
			sym.SetSym(dim+i, dim+j, a)
			sym.SetSym(i, dim+j, -b)
			sym.SetSym(j, dim+i, b)
		}
	}
	return sym
}
