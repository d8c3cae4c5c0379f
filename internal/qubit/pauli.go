// Package qubit provides Pauli-string operators, the second-quantized
// electronic Hamiltonian and the Jordan-Wigner mapping between them.
package qubit

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// MaxQubits is the widest register a Pauli string can address.
const MaxQubits = 64

// ErrInvalidPauli is returned when a Pauli label cannot be parsed.
var ErrInvalidPauli = errors.New("invalid Pauli label")

// Pauli is a Hermitian tensor product of I, X, Y, Z encoded by two bit masks.
// Qubit q carries X if only X bit q is set, Z if only Z bit q is set and Y if both are.
type Pauli struct {
	X uint64
	Z uint64
}

// Identity is the all-I Pauli string.
var Identity = Pauli{}

// IsIdentity reports whether p acts trivially on every qubit.
func (p Pauli) IsIdentity() bool {
	return p.X == 0 && p.Z == 0
}

// Weight returns the number of non-identity factors.
func (p Pauli) Weight() int {
	return bits.OnesCount64(p.X | p.Z)
}

func (p Pauli) numY() int {
	return bits.OnesCount64(p.X & p.Z)
}

// Mul returns the product p·o as a phase i^k (k in 0..3) and a Pauli string.
func (p Pauli) Mul(o Pauli) (int, Pauli) {
	r := Pauli{X: p.X ^ o.X, Z: p.Z ^ o.Z}
	k := p.numY() + o.numY() - r.numY() + 2*bits.OnesCount64(p.Z&o.X)
	return ((k % 4) + 4) % 4, r
}

// Commutes reports whether p and o commute.
func (p Pauli) Commutes(o Pauli) bool {
	return (bits.OnesCount64(p.X&o.Z)+bits.OnesCount64(p.Z&o.X))%2 == 0
}

// Apply returns the basis state p|b> and the phase i^k it picks up.
func (p Pauli) Apply(b uint64) (int, uint64) {
	k := p.numY() + 2*bits.OnesCount64(p.Z&b)
	return k % 4, b ^ p.X
}

// Label renders p over n qubits with qubit 0 rightmost, e.g. "IZXY".
func (p Pauli) Label(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for q := n - 1; q >= 0; q-- {
		x := p.X>>uint(q)&1 == 1
		z := p.Z>>uint(q)&1 == 1
		switch {
		case x && z:
			sb.WriteByte('Y')
		case x:
			sb.WriteByte('X')
		case z:
			sb.WriteByte('Z')
		default:
			sb.WriteByte('I')
		}
	}
	return sb.String()
}

// ParsePauli parses a label with qubit 0 as the rightmost character.
func ParsePauli(label string) (Pauli, error) {
	n := len(label)
	if n == 0 || n > MaxQubits {
		return Pauli{}, fmt.Errorf("%w: %q has %d qubits", ErrInvalidPauli, label, n)
	}
	var p Pauli
	for i := 0; i < n; i++ {
		bit := uint64(1) << uint(n-1-i)
		switch label[i] {
		case 'I':
		case 'X':
			p.X |= bit
		case 'Y':
			p.X |= bit
			p.Z |= bit
		case 'Z':
			p.Z |= bit
		default:
			return Pauli{}, fmt.Errorf("%w: %q at position %d", ErrInvalidPauli, label[i], i)
		}
	}
	return p, nil
}

// less orders Pauli strings by Z mask, then X mask; the identity sorts first.
func (p Pauli) less(o Pauli) bool {
	if p.Z != o.Z {
		return p.Z < o.Z
	}
	return p.X < o.X
}

var phases = [4]complex128{1, 1i, -1, -1i}

// Phase converts the exponent returned by Mul and Apply to i^k.
func Phase(k int) complex128 {
	return phases[((k%4)+4)%4]
}
