package qubit

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"strings"
)

// DefaultTolerance is the coefficient magnitude below which terms are dropped.
const DefaultTolerance = 1e-12

var (
	// ErrQubitMismatch is returned when combining operators of different widths.
	ErrQubitMismatch = errors.New("operators act on different qubit counts")
	// ErrTooManyQubits is returned when a register exceeds what an operation supports.
	ErrTooManyQubits = errors.New("too many qubits")
)

// Term is one weighted Pauli string.
type Term struct {
	Pauli Pauli
	Coeff complex128
}

// Operator is an immutable weighted sum of Pauli strings over a fixed number of qubits.
// Terms are kept unique and in canonical order.
type Operator struct {
	numQubits int
	terms     []Term
}

// NumQubits returns the register width.
func (o *Operator) NumQubits() int {
	return o.numQubits
}

// Len returns the number of terms.
func (o *Operator) Len() int {
	return len(o.terms)
}

// Terms returns a copy of the terms in canonical order.
func (o *Operator) Terms() []Term {
	return append([]Term(nil), o.terms...)
}

// Coefficient returns the weight of p, zero when absent.
func (o *Operator) Coefficient(p Pauli) complex128 {
	i := sort.Search(len(o.terms), func(i int) bool { return !o.terms[i].Pauli.less(p) })
	if i < len(o.terms) && o.terms[i].Pauli == p {
		return o.terms[i].Coeff
	}
	return 0
}

// IsHermitian reports whether every coefficient is real within tol.
func (o *Operator) IsHermitian(tol float64) bool {
	for _, t := range o.terms {
		if math.Abs(imag(t.Coeff)) > tol {
			return false
		}
	}
	return true
}

// Add returns o + other.
func (o *Operator) Add(other *Operator) (*Operator, error) {
	if o.numQubits != other.numQubits {
		return nil, fmt.Errorf("%w: %d vs %d", ErrQubitMismatch, o.numQubits, other.numQubits)
	}
	b := NewBuilder(o.numQubits)
	b.AddOperator(o, 1)
	b.AddOperator(other, 1)
	return b.Build(DefaultTolerance), nil
}

// Mul returns the operator product o·other.
func (o *Operator) Mul(other *Operator) (*Operator, error) {
	if o.numQubits != other.numQubits {
		return nil, fmt.Errorf("%w: %d vs %d", ErrQubitMismatch, o.numQubits, other.numQubits)
	}
	b := NewBuilder(o.numQubits)
	for _, l := range o.terms {
		for _, r := range other.terms {
			k, p := l.Pauli.Mul(r.Pauli)
			b.Add(p, l.Coeff*r.Coeff*Phase(k))
		}
	}
	return b.Build(DefaultTolerance), nil
}

// Scale returns c·o.
func (o *Operator) Scale(c complex128) *Operator {
	b := NewBuilder(o.numQubits)
	b.AddOperator(o, c)
	return b.Build(DefaultTolerance)
}

// Apply returns o|psi> for a state vector of length 2^n, qubit q at bit q of the index.
func (o *Operator) Apply(psi []complex128) ([]complex128, error) {
	if len(psi) != 1<<uint(o.numQubits) {
		return nil, fmt.Errorf("%w: state has %d amplitudes, operator needs %d", ErrQubitMismatch, len(psi), 1<<uint(o.numQubits))
	}
	out := make([]complex128, len(psi))
	for _, t := range o.terms {
		for b, amp := range psi {
			if amp == 0 {
				continue
			}
			k, nb := t.Pauli.Apply(uint64(b))
			out[nb] += t.Coeff * Phase(k) * amp
		}
	}
	return out, nil
}

// Expectation returns <psi|o|psi>.
func (o *Operator) Expectation(psi []complex128) (complex128, error) {
	hpsi, err := o.Apply(psi)
	if err != nil {
		return 0, err
	}
	var e complex128
	for i, a := range psi {
		e += cmplx.Conj(a) * hpsi[i]
	}
	return e, nil
}

// Matrix returns the dense 2^n × 2^n matrix of o, row-major.
func (o *Operator) Matrix(maxQubits int) ([]complex128, error) {
	if o.numQubits > maxQubits {
		return nil, fmt.Errorf("%w: %d > %d for a dense matrix", ErrTooManyQubits, o.numQubits, maxQubits)
	}
	dim := 1 << uint(o.numQubits)
	m := make([]complex128, dim*dim)
	for _, t := range o.terms {
		for col := 0; col < dim; col++ {
			k, row := t.Pauli.Apply(uint64(col))
			m[int(row)*dim+col] += t.Coeff * Phase(k)
		}
	}
	return m, nil
}

// String renders the operator as "c * LABEL + ..." in canonical order.
func (o *Operator) String() string {
	if len(o.terms) == 0 {
		return "0"
	}
	parts := make([]string, len(o.terms))
	for i, t := range o.terms {
		parts[i] = fmt.Sprintf("(%g%+gi) * %s", real(t.Coeff), imag(t.Coeff), t.Pauli.Label(o.numQubits))
	}
	return strings.Join(parts, " + ")
}

// Builder accumulates terms; it is not safe for concurrent use.
type Builder struct {
	numQubits int
	acc       map[Pauli]complex128
}

// NewBuilder starts an empty sum on n qubits.
func NewBuilder(n int) *Builder {
	return &Builder{numQubits: n, acc: make(map[Pauli]complex128)}
}

// Add accumulates c·p.
func (b *Builder) Add(p Pauli, c complex128) {
	b.acc[p] += c
}

// AddOperator accumulates c·o.
func (b *Builder) AddOperator(o *Operator, c complex128) {
	for _, t := range o.terms {
		b.acc[t.Pauli] += c * t.Coeff
	}
}

// Build zeroes real and imaginary parts at or below tol, drops vanishing terms
// and returns the canonical operator.
func (b *Builder) Build(tol float64) *Operator {
	terms := make([]Term, 0, len(b.acc))
	for p, c := range b.acc {
		re, im := real(c), imag(c)
		if math.Abs(re) <= tol {
			re = 0
		}
		if math.Abs(im) <= tol {
			im = 0
		}
		if re != 0 || im != 0 {
			terms = append(terms, Term{Pauli: p, Coeff: complex(re, im)})
		}
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Pauli.less(terms[j].Pauli) })
	return &Operator{numQubits: b.numQubits, terms: terms}
}

// NewOperator builds an operator from explicit terms, merging duplicates.
func NewOperator(n int, terms []Term) (*Operator, error) {
	if n <= 0 || n > MaxQubits {
		return nil, fmt.Errorf("%w: %d", ErrTooManyQubits, n)
	}
	limit := ^uint64(0)
	if n < MaxQubits {
		limit = uint64(1)<<uint(n) - 1
	}
	b := NewBuilder(n)
	for _, t := range terms {
		if t.Pauli.X&^limit != 0 || t.Pauli.Z&^limit != 0 {
			return nil, fmt.Errorf("%w: term %s exceeds %d qubits", ErrInvalidPauli, t.Pauli.Label(MaxQubits), n)
		}
		b.Add(t.Pauli, t.Coeff)
	}
	return b.Build(DefaultTolerance), nil
}

// FromLabels builds an operator from label → coefficient pairs such as {"ZI": 0.5}.
func FromLabels(labels map[string]complex128) (*Operator, error) {
	n := -1
	terms := make([]Term, 0, len(labels))
	for label, c := range labels {
		if n >= 0 && len(label) != n {
			return nil, fmt.Errorf("%w: label %q", ErrQubitMismatch, label)
		}
		n = len(label)
		p, err := ParsePauli(label)
		if err != nil {
			return nil, err
		}
		terms = append(terms, Term{Pauli: p, Coeff: c})
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: no terms", ErrInvalidPauli)
	}
	return NewOperator(n, terms)
}
