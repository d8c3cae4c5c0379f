package quantum

import (
	"fmt"
	"strings"
)

// GateKind is a supported gate.
type GateKind string

const (
	H  GateKind = "h"
	X  GateKind = "x"
	RX GateKind = "rx"
	RY GateKind = "ry"
	RZ GateKind = "rz"
	CX GateKind = "cx"
)

// Gate is one operation. Param indexes the circuit parameter vector for
// rotations (-1 for fixed gates). For CX, Qubits is [control, target].
type Gate struct {
	Kind   GateKind
	Qubits []int
	Param  int
}

// Circuit is an ordered gate list on NumQubits qubits with NumParameters free angles.
type Circuit struct {
	Name          string
	NumQubits     int
	NumParameters int
	Gates         []Gate
}

// NewCircuit returns an empty circuit.
func NewCircuit(numQubits int) *Circuit {
	return &Circuit{NumQubits: numQubits}
}

// Add appends a fixed gate.
func (c *Circuit) Add(kind GateKind, qubits ...int) {
	c.Gates = append(c.Gates, Gate{Kind: kind, Qubits: qubits, Param: -1})
}

// AddParameterized appends a rotation bound to the next free parameter.
func (c *Circuit) AddParameterized(kind GateKind, qubit int) {
	c.Gates = append(c.Gates, Gate{Kind: kind, Qubits: []int{qubit}, Param: c.NumParameters})
	c.NumParameters++
}

// Depth returns the number of gate layers when gates on disjoint qubits run in parallel.
func (c *Circuit) Depth() int {
	level := make([]int, c.NumQubits)
	depth := 0
	for _, g := range c.Gates {
		d := 0
		for _, q := range g.Qubits {
			if level[q] > d {
				d = level[q]
			}
		}
		d++
		for _, q := range g.Qubits {
			level[q] = d
		}
		if d > depth {
			depth = d
		}
	}
	return depth
}

// CountOps returns the number of gates of each kind.
func (c *Circuit) CountOps() map[GateKind]int {
	counts := make(map[GateKind]int)
	for _, g := range c.Gates {
		counts[g.Kind]++
	}
	return counts
}

// QASM renders the circuit as OpenQASM 2.0 with the given parameter values bound.
func (c *Circuit) QASM(params []float64) (string, error) {
	if len(params) != c.NumParameters {
		return "", fmt.Errorf("%w: circuit has %d parameters, got %d", ErrInvalidArgument, c.NumParameters, len(params))
	}

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n\n", c.NumQubits)

	for _, g := range c.Gates {
		switch {
		case g.Kind == CX:
			fmt.Fprintf(&sb, "cx q[%d],q[%d];\n", g.Qubits[0], g.Qubits[1])
		case g.Param >= 0:
			fmt.Fprintf(&sb, "%s(%.17g) q[%d];\n", g.Kind, params[g.Param], g.Qubits[0])
		default:
			fmt.Fprintf(&sb, "%s q[%d];\n", g.Kind, g.Qubits[0])
		}
	}
	return sb.String(), nil
}
