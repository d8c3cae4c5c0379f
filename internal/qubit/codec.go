package qubit

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// wireOperator is the msgpack layout of an Operator: parallel arrays, one entry per term.
type wireOperator struct {
	NumQubits int       `msgpack:"n"`
	X         []uint64  `msgpack:"x"`
	Z         []uint64  `msgpack:"z"`
	Re        []float64 `msgpack:"re"`
	Im        []float64 `msgpack:"im"`
}

// MarshalMsgpack encodes the operator compactly for caching.
func (o *Operator) MarshalMsgpack() ([]byte, error) {
	w := wireOperator{
		NumQubits: o.numQubits,
		X:         make([]uint64, len(o.terms)),
		Z:         make([]uint64, len(o.terms)),
		Re:        make([]float64, len(o.terms)),
		Im:        make([]float64, len(o.terms)),
	}
	for i, t := range o.terms {
		w.X[i] = t.Pauli.X
		w.Z[i] = t.Pauli.Z
		w.Re[i] = real(t.Coeff)
		w.Im[i] = imag(t.Coeff)
	}
	return msgpack.Marshal(&w)
}

// UnmarshalMsgpack decodes data produced by MarshalMsgpack.
func (o *Operator) UnmarshalMsgpack(data []byte) error {
	var w wireOperator
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode operator: %w", err)
	}
	if len(w.Z) != len(w.X) || len(w.Re) != len(w.X) || len(w.Im) != len(w.X) {
		return fmt.Errorf("decode operator: ragged term arrays")
	}

	terms := make([]Term, len(w.X))
	for i := range w.X {
		terms[i] = Term{Pauli: Pauli{X: w.X[i], Z: w.Z[i]}, Coeff: complex(w.Re[i], w.Im[i])}
	}
	decoded, err := NewOperator(w.NumQubits, terms)
	if err != nil {
		return fmt.Errorf("decode operator: %w", err)
	}
	*o = *decoded
	return nil
}

// Encode returns the msgpack form of o.
func Encode(o *Operator) ([]byte, error) {
	return msgpack.Marshal(o)
}

// Decode parses an operator encoded with Encode.
func Decode(data []byte) (*Operator, error) {
	var o Operator
	if err := msgpack.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
