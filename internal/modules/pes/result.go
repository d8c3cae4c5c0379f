package pes

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Result is the scan table: five parallel sequences in scan order.
// The JSON field names and their order form the interchange format.
type Result struct {
	Distances         []float64 `json:"distances"`
	VQEEnergies       []float64 `json:"vqe_energies"`
	ExactEnergies     []float64 `json:"exact_energies"`
	Errors            []float64 `json:"errors"`
	NuclearRepulsions []float64 `json:"nuclear_repulsions"`
}

// NewResult returns an empty table with room for n points.
func NewResult(n int) *Result {
	return &Result{
		Distances:         make([]float64, 0, n),
		VQEEnergies:       make([]float64, 0, n),
		ExactEnergies:     make([]float64, 0, n),
		Errors:            make([]float64, 0, n),
		NuclearRepulsions: make([]float64, 0, n),
	}
}

// Append adds one point to the end of the table.
func (r *Result) Append(p Point) {
	r.Distances = append(r.Distances, p.Parameter)
	r.VQEEnergies = append(r.VQEEnergies, p.VQEEnergy)
	r.ExactEnergies = append(r.ExactEnergies, p.ExactEnergy)
	r.Errors = append(r.Errors, p.Error)
	r.NuclearRepulsions = append(r.NuclearRepulsions, p.NuclearRepulsion)
}

// Len returns the number of points.
func (r *Result) Len() int {
	return len(r.Distances)
}

// Validate checks that all five sequences have the same length.
func (r *Result) Validate() error {
	n := len(r.Distances)
	for name, s := range map[string][]float64{
		"vqe_energies":       r.VQEEnergies,
		"exact_energies":     r.ExactEnergies,
		"errors":             r.Errors,
		"nuclear_repulsions": r.NuclearRepulsions,
	} {
		if len(s) != n {
			return fmt.Errorf("result table: %s has %d entries, distances has %d", name, len(s), n)
		}
	}
	return nil
}

// MaxError returns the largest absolute error in Hartree, or 0 for an empty table.
func (r *Result) MaxError() float64 {
	m := 0.0
	for _, e := range r.Errors {
		m = math.Max(m, e)
	}
	return m
}

// MeanError returns the average absolute error in Hartree.
func (r *Result) MeanError() float64 {
	if len(r.Errors) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range r.Errors {
		sum += e
	}
	return sum / float64(len(r.Errors))
}

// WithinChemicalAccuracy counts the points whose error is below 1.6 mHa.
func (r *Result) WithinChemicalAccuracy() int {
	n := 0
	for _, e := range r.Errors {
		if e < ChemicalAccuracy {
			n++
		}
	}
	return n
}

// ChemicalAccuracy is 1.6 mHa expressed in Hartree.
const ChemicalAccuracy = 1.6e-3

// Clone returns a deep copy.
func (r *Result) Clone() *Result {
	return &Result{
		Distances:         append([]float64{}, r.Distances...),
		VQEEnergies:       append([]float64{}, r.VQEEnergies...),
		ExactEnergies:     append([]float64{}, r.ExactEnergies...),
		Errors:            append([]float64{}, r.Errors...),
		NuclearRepulsions: append([]float64{}, r.NuclearRepulsions...),
	}
}

// SaveResult writes r as indented JSON, creating parent directories.
func SaveResult(path string, r *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result %s: %w", path, err)
	}
	return nil
}

// LoadResult reads a table written by SaveResult.
func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result %s: %w", path, err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse result %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
