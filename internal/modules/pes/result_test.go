package pes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult(3)
	r.Append(Point{Parameter: 0.5, VQEEnergy: -1.05, ExactEnergy: -1.055, Error: 0.005, NuclearRepulsion: 1.058})
	r.Append(Point{Parameter: 0.735, VQEEnergy: -1.1365, ExactEnergy: -1.1373, Error: 0.0008, NuclearRepulsion: 0.72})
	r.Append(Point{Parameter: 1.0, VQEEnergy: -1.1, ExactEnergy: -1.101, Error: 0.001, NuclearRepulsion: 0.529})
	return r
}

func TestResult_JSONFieldOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "h2.json")
	require.NoError(t, SaveResult(path, sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	keys := []string{`"distances"`, `"vqe_energies"`, `"exact_energies"`, `"errors"`, `"nuclear_repulsions"`}
	last := -1
	for _, k := range keys {
		idx := strings.Index(text, k)
		require.GreaterOrEqual(t, idx, 0, "missing %s", k)
		assert.Greater(t, idx, last, "%s out of order", k)
		last = idx
	}
}

func TestResult_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h2.json")
	want := sampleResult()
	require.NoError(t, SaveResult(path, want))

	got, err := LoadResult(path)
	require.NoError(t, err)
	assert.Equal(t, want.Distances, got.Distances)
	assert.Equal(t, want.Errors, got.Errors)
}

func TestLoadResult_RejectsRaggedTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	body := `{"distances":[1,2],"vqe_energies":[1],"exact_energies":[1,2],"errors":[0,0],"nuclear_repulsions":[1,1]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	_, err := LoadResult(path)
	assert.ErrorContains(t, err, "vqe_energies")
}

func TestLoadResult_Missing(t *testing.T) {
	_, err := LoadResult(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestResult_Statistics(t *testing.T) {
	r := sampleResult()
	assert.InDelta(t, 0.005, r.MaxError(), 1e-15)
	assert.InDelta(t, (0.005+0.0008+0.001)/3, r.MeanError(), 1e-15)
	assert.Equal(t, 2, r.WithinChemicalAccuracy())

	empty := NewResult(0)
	assert.Zero(t, empty.MaxError())
	assert.Zero(t, empty.MeanError())
}

func TestResult_Clone(t *testing.T) {
	r := sampleResult()
	c := r.Clone()
	c.Errors[0] = 99
	assert.Equal(t, 0.005, r.Errors[0])
	assert.Equal(t, r.Distances, c.Distances)
}
