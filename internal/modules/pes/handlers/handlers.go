// Package handlers provides HTTP handlers for submitting and inspecting PES scans.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aristath/pescan/internal/events"
	"github.com/aristath/pescan/internal/modules/pes"
	"github.com/aristath/pescan/internal/modules/plotting"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// Handler handles scan HTTP requests
type Handler struct {
	service   *pes.Service
	artifacts *plotting.ArtifactWriter
	bus       *events.Bus
	log       zerolog.Logger
}

// NewHandler creates a new scan handler
func NewHandler(
	service *pes.Service,
	artifacts *plotting.ArtifactWriter,
	bus *events.Bus,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:   service,
		artifacts: artifacts,
		bus:       bus,
		log:       log.With().Str("handler", "pes").Logger(),
	}
}

// HandleSubmit handles POST /api/scans
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req pes.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	run, err := h.service.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{"data": run})
}

// HandleList handles GET /api/scans?limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": runs,
		"metadata": map[string]interface{}{
			"count":     len(runs),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/scans/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": run})
}

// HandleResult handles GET /api/scans/{id}/result and returns the bare
// result table (the same document written to result.json).
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if run.Result == nil {
		http.Error(w, "Scan has no result (status "+string(run.Status)+")", http.StatusConflict)
		return
	}
	h.writeJSON(w, http.StatusOK, run.Result)
}

// HandlePlot handles GET /api/scans/{id}/plots/{kind} where kind is pes or error.
func (h *Handler) HandlePlot(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if kind != plotting.KindPES && kind != plotting.KindError {
		http.Error(w, "Unknown plot kind", http.StatusBadRequest)
		return
	}

	run, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	path, err := h.artifacts.Path(run.ID, run.Molecule, kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "Plot not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

var streamedTypes = []events.EventType{
	events.ScanQueued,
	events.ScanPoint,
	events.ScanCompleted,
	events.ScanFailed,
}

// HandleStream handles GET /api/scans/stream?run_id= and forwards scan events
// over a websocket until the client goes away.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	runID := r.URL.Query().Get("run_id")
	eventChan := make(chan *events.Event, 100)
	for _, t := range streamedTypes {
		unsubscribe := h.bus.Subscribe(t, func(event *events.Event) {
			if runID != "" && event.Data["run_id"] != runID {
				return
			}
			select {
			case eventChan <- event:
			default:
				h.log.Warn().Str("event_type", string(event.Type)).Msg("Stream channel full, dropping event")
			}
		})
		defer unsubscribe()
	}

	// Only close frames are expected from the client.
	ctx := conn.CloseRead(r.Context())
	h.log.Info().Str("run_id", runID).Msg("Client connected to scan stream")

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		var msg map[string]interface{}
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from scan stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-eventChan:
			msg = map[string]interface{}{
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			}
		case <-heartbeat.C:
			msg = map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}
		}

		data, err := json.Marshal(msg)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to marshal event")
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			h.log.Debug().Err(err).Msg("Scan stream write failed")
			return
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pes.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, pes.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Scan request failed")
	}
	http.Error(w, err.Error(), status)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
