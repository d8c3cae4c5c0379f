package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all scan routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/scans", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Get("/", h.HandleList)
		r.Get("/stream", h.HandleStream)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/result", h.HandleResult)
		r.Get("/{id}/plots/{kind}", h.HandlePlot)
	})
}
