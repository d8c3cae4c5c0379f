// Package handlers provides HTTP handlers for one-off quantum computations:
// exact diagonalization, a single VQE run, ansatz inspection and molecular
// Hamiltonians.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/pescan/internal/modules/exact"
	"github.com/aristath/pescan/internal/modules/molecules"
	"github.com/aristath/pescan/internal/modules/quantum"
	"github.com/aristath/pescan/internal/modules/vqe"
	"github.com/aristath/pescan/internal/qubit"
	"github.com/rs/zerolog"
)

// Handler handles quantum HTTP requests
type Handler struct {
	solver exact.Solver
	runner *vqe.Runner
	log    zerolog.Logger
}

// NewHandler creates a new quantum handler
func NewHandler(
	solver exact.Solver,
	runner *vqe.Runner,
	log zerolog.Logger,
) *Handler {
	if runner == nil {
		runner = vqe.NewRunner(nil, log)
	}
	return &Handler{
		solver: solver,
		runner: runner,
		log:    log.With().Str("handler", "quantum").Logger(),
	}
}

// OperatorRequest carries either a qubit operator as Pauli label → real
// coefficient or a molecule and parameter to build one from.
type OperatorRequest struct {
	Terms     map[string]float64 `json:"terms,omitempty"`
	Molecule  string             `json:"molecule,omitempty"`
	Parameter *float64           `json:"parameter,omitempty"`
}

// VQERequest is an operator plus optional VQE settings.
type VQERequest struct {
	OperatorRequest
	Ansatz        string `json:"ansatz,omitempty"`
	Reps          *int   `json:"reps,omitempty"`
	MaxIterations *int   `json:"max_iterations,omitempty"`
	Seed          *int64 `json:"seed,omitempty"`
}

// HamiltonianRequest selects a molecule and a geometric parameter.
type HamiltonianRequest struct {
	Molecule  string   `json:"molecule"`
	Parameter *float64 `json:"parameter,omitempty"`
}

// operator returns the requested operator. meta is nil for explicit terms.
func (r OperatorRequest) operator(ctx context.Context) (op *qubit.Operator, meta *molecules.Context, err error) {
	if r.Molecule != "" {
		tmpl, err := molecules.Lookup(r.Molecule)
		if err != nil {
			return nil, nil, err
		}
		parameter := tmpl.DefaultParameter()
		if r.Parameter != nil {
			parameter = *r.Parameter
		}
		return tmpl.Build(ctx, parameter)
	}

	labels := make(map[string]complex128, len(r.Terms))
	for label, c := range r.Terms {
		labels[label] = complex(c, 0)
	}
	op, err = qubit.FromLabels(labels)
	return op, nil, err
}

// HandleExact handles POST /api/quantum/exact
func (h *Handler) HandleExact(w http.ResponseWriter, r *http.Request) {
	var req OperatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	op, meta, err := req.operator(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	energy, err := h.solver.Solve(op)
	if err != nil {
		h.writeError(w, err)
		return
	}

	data := map[string]interface{}{
		"energy":     energy,
		"num_qubits": op.NumQubits(),
		"num_terms":  op.Len(),
	}
	if meta != nil {
		data["nuclear_repulsion"] = meta.NuclearRepulsion
		data["total_energy"] = energy + meta.NuclearRepulsion
	}
	h.writeData(w, data)
}

// HandleVQE handles POST /api/quantum/vqe
func (h *Handler) HandleVQE(w http.ResponseWriter, r *http.Request) {
	var req VQERequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	op, _, err := req.operator(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	opts := vqe.DefaultOptions()
	if req.Ansatz != "" {
		opts.Ansatz = req.Ansatz
	}
	if req.Reps != nil {
		opts.Reps = *req.Reps
	}
	if req.MaxIterations != nil {
		opts.MaxIterations = *req.MaxIterations
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}

	result, err := h.runner.Run(r.Context(), op, opts)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, result)
}

// HandleAnsatz handles GET /api/quantum/ansatz?kind=&qubits=&reps=&seed=
// and returns the circuit shape plus OpenQASM bound to the initial point.
func (h *Handler) HandleAnsatz(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind, err := quantum.ParseAnsatzKind(q.Get("kind"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	qubits, err := intParam(q.Get("qubits"), 4)
	if err != nil {
		http.Error(w, "Invalid qubits parameter", http.StatusBadRequest)
		return
	}
	reps, err := intParam(q.Get("reps"), vqe.DefaultReps)
	if err != nil {
		http.Error(w, "Invalid reps parameter", http.StatusBadRequest)
		return
	}
	seed, err := intParam(q.Get("seed"), vqe.DefaultSeed)
	if err != nil {
		http.Error(w, "Invalid seed parameter", http.StatusBadRequest)
		return
	}

	circuit, err := quantum.NewAnsatz(kind, qubits, reps)
	if err != nil {
		h.writeError(w, err)
		return
	}
	params := vqe.InitialParameters(circuit.NumParameters, int64(seed))
	qasm, err := circuit.QASM(params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, map[string]interface{}{
		"ansatz":         kind,
		"num_qubits":     circuit.NumQubits,
		"reps":           reps,
		"num_parameters": circuit.NumParameters,
		"depth":          circuit.Depth(),
		"ops":            circuit.CountOps(),
		"qasm":           qasm,
	})
}

// HandleMolecules handles GET /api/quantum/molecules
func (h *Handler) HandleMolecules(w http.ResponseWriter, r *http.Request) {
	list := make([]map[string]interface{}, 0, len(molecules.Names()))
	for _, key := range molecules.Names() {
		tmpl, err := molecules.Lookup(key)
		if err != nil {
			h.writeError(w, err)
			return
		}
		list = append(list, map[string]interface{}{
			"key":               key,
			"name":              tmpl.Name(),
			"parameter":         tmpl.ParameterName(),
			"default_parameter": tmpl.DefaultParameter(),
			"geometry":          tmpl.Geometry(tmpl.DefaultParameter()),
		})
	}
	h.writeData(w, list)
}

// HandleHamiltonian handles POST /api/quantum/hamiltonian
func (h *Handler) HandleHamiltonian(w http.ResponseWriter, r *http.Request) {
	var req HamiltonianRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tmpl, err := molecules.Lookup(req.Molecule)
	if err != nil {
		h.writeError(w, err)
		return
	}
	parameter := tmpl.DefaultParameter()
	if req.Parameter != nil {
		parameter = *req.Parameter
	}

	op, meta, err := tmpl.Build(r.Context(), parameter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	terms := make(map[string]float64, op.Len())
	for _, t := range op.Terms() {
		terms[t.Pauli.Label(op.NumQubits())] = real(t.Coeff)
	}
	h.writeData(w, map[string]interface{}{
		"context": meta,
		"terms":   terms,
	})
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, quantum.ErrInvalidArgument),
		errors.Is(err, qubit.ErrInvalidPauli),
		errors.Is(err, qubit.ErrQubitMismatch),
		errors.Is(err, qubit.ErrTooManyQubits),
		errors.Is(err, exact.ErrNotHermitian),
		errors.Is(err, molecules.ErrUnknownMolecule):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Quantum request failed")
	}
	http.Error(w, err.Error(), status)
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
