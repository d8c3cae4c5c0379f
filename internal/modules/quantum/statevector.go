package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
)

// MaxSimulatedQubits bounds the dense statevector.
const MaxSimulatedQubits = 20

// Statevector holds 2^n amplitudes; qubit q is bit q of the basis index.
type Statevector struct {
	NumQubits  int
	Amplitudes []complex128
}

// NewStatevector returns |0…0>.
func NewStatevector(numQubits int) (*Statevector, error) {
	if numQubits <= 0 || numQubits > MaxSimulatedQubits {
		return nil, fmt.Errorf("%w: cannot simulate %d qubits", ErrInvalidArgument, numQubits)
	}
	amps := make([]complex128, 1<<uint(numQubits))
	amps[0] = 1
	return &Statevector{NumQubits: numQubits, Amplitudes: amps}, nil
}

// Simulate runs c with params bound from |0…0>.
func Simulate(c *Circuit, params []float64) (*Statevector, error) {
	if len(params) != c.NumParameters {
		return nil, fmt.Errorf("%w: circuit has %d parameters, got %d", ErrInvalidArgument, c.NumParameters, len(params))
	}
	sv, err := NewStatevector(c.NumQubits)
	if err != nil {
		return nil, err
	}
	for i, g := range c.Gates {
		theta := 0.0
		if g.Param >= 0 {
			theta = params[g.Param]
		}
		if err := sv.Apply(g.Kind, theta, g.Qubits...); err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
	}
	return sv, nil
}

// Apply applies one gate in place.
func (s *Statevector) Apply(kind GateKind, theta float64, qubits ...int) error {
	want := 1
	if kind == CX {
		want = 2
	}
	if len(qubits) != want {
		return fmt.Errorf("%w: %s takes %d qubits, got %d", ErrInvalidArgument, kind, want, len(qubits))
	}
	for _, q := range qubits {
		if q < 0 || q >= s.NumQubits {
			return fmt.Errorf("%w: qubit %d outside register of %d", ErrInvalidArgument, q, s.NumQubits)
		}
	}

	q := qubits[0]
	switch kind {
	case H:
		f := complex(1/math.Sqrt2, 0)
		s.apply1q(q, f, f, f, -f)
	case X:
		s.apply1q(q, 0, 1, 1, 0)
	case RX:
		c, sn := math.Cos(theta/2), math.Sin(theta/2)
		s.apply1q(q, complex(c, 0), complex(0, -sn), complex(0, -sn), complex(c, 0))
	case RY:
		c, sn := math.Cos(theta/2), math.Sin(theta/2)
		s.apply1q(q, complex(c, 0), complex(-sn, 0), complex(sn, 0), complex(c, 0))
	case RZ:
		s.apply1q(q, cmplx.Exp(complex(0, -theta/2)), 0, 0, cmplx.Exp(complex(0, theta/2)))
	case CX:
		if qubits[0] == qubits[1] {
			return fmt.Errorf("%w: cx control and target are both %d", ErrInvalidArgument, q)
		}
		s.applyCX(qubits[0], qubits[1])
	default:
		return fmt.Errorf("%w: unknown gate %q", ErrInvalidArgument, kind)
	}
	return nil
}

// apply1q applies [[a, b], [c, d]] to qubit q.
func (s *Statevector) apply1q(q int, a, b, c, d complex128) {
	bit := 1 << uint(q)
	for i := range s.Amplitudes {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		x0, x1 := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = a*x0 + b*x1
		s.Amplitudes[j] = c*x0 + d*x1
	}
}

func (s *Statevector) applyCX(control, target int) {
	cbit, tbit := 1<<uint(control), 1<<uint(target)
	for i := range s.Amplitudes {
		if i&cbit != 0 && i&tbit == 0 {
			j := i | tbit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// Norm returns sqrt(<psi|psi>).
func (s *Statevector) Norm() float64 {
	n := 0.0
	for _, a := range s.Amplitudes {
		n += real(a)*real(a) + imag(a)*imag(a)
	}
	return math.Sqrt(n)
}

// Probabilities returns |amplitude|² per basis state.
func (s *Statevector) Probabilities() []float64 {
	p := make([]float64, len(s.Amplitudes))
	for i, a := range s.Amplitudes {
		p[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return p
}
