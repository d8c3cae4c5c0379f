// Package quantum provides the parameterized circuits, the statevector
// simulator and the expectation-value estimator used by the VQE loop.
package quantum

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument marks configuration errors detected before any evaluation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupportedAnsatz is returned for ansatz names other than the two supported kinds.
	ErrUnsupportedAnsatz = fmt.Errorf("%w: unsupported ansatz", ErrInvalidArgument)
)

// AnsatzKind names a circuit topology.
type AnsatzKind string

const (
	// RealAmplitudes: RY rotation layers joined by a linear CX chain.
	RealAmplitudes AnsatzKind = "RealAmplitudes"
	// EfficientSU2: RY+RZ rotation layers joined by circular CX entanglement.
	EfficientSU2 AnsatzKind = "EfficientSU2"
)

// AnsatzKinds lists the supported topologies.
func AnsatzKinds() []AnsatzKind {
	return []AnsatzKind{RealAmplitudes, EfficientSU2}
}

// ParseAnsatzKind accepts the canonical names case-insensitively.
func ParseAnsatzKind(s string) (AnsatzKind, error) {
	for _, k := range AnsatzKinds() {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q (want %s or %s)", ErrUnsupportedAnsatz, s, RealAmplitudes, EfficientSU2)
}

// NumParameters returns the parameter count of kind on n qubits with reps repetitions.
func NumParameters(kind AnsatzKind, n, reps int) (int, error) {
	switch kind {
	case RealAmplitudes:
		return n * (reps + 1), nil
	case EfficientSU2:
		return 2 * n * (reps + 1), nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnsupportedAnsatz, kind)
	}
}

// NewAnsatz builds the circuit for kind. Rotation parameters are numbered layer
// by layer; within an EfficientSU2 layer all RY angles precede the RZ angles.
func NewAnsatz(kind AnsatzKind, numQubits, reps int) (*Circuit, error) {
	if numQubits <= 0 {
		return nil, fmt.Errorf("%w: ansatz needs at least one qubit, got %d", ErrInvalidArgument, numQubits)
	}
	if reps < 0 {
		return nil, fmt.Errorf("%w: negative reps %d", ErrInvalidArgument, reps)
	}

	c := NewCircuit(numQubits)
	switch kind {
	case RealAmplitudes:
		c.rotationLayer(RY)
		for r := 0; r < reps; r++ {
			c.linearEntanglement()
			c.rotationLayer(RY)
		}
	case EfficientSU2:
		c.rotationLayer(RY, RZ)
		for r := 0; r < reps; r++ {
			c.circularEntanglement()
			c.rotationLayer(RY, RZ)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedAnsatz, kind)
	}
	c.Name = string(kind)
	return c, nil
}

func (c *Circuit) rotationLayer(kinds ...GateKind) {
	for _, k := range kinds {
		for q := 0; q < c.NumQubits; q++ {
			c.AddParameterized(k, q)
		}
	}
}

func (c *Circuit) linearEntanglement() {
	for q := 0; q+1 < c.NumQubits; q++ {
		c.Add(CX, q, q+1)
	}
}

// circularEntanglement closes the ring with CX(n-1, 0) before the linear chain;
// on two qubits the ring edge would duplicate the chain and is omitted.
func (c *Circuit) circularEntanglement() {
	if c.NumQubits > 2 {
		c.Add(CX, c.NumQubits-1, 0)
	}
	c.linearEntanglement()
}
