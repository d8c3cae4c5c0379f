package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all quantum routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/quantum", func(r chi.Router) {
		r.Post("/exact", h.HandleExact)
		r.Post("/vqe", h.HandleVQE)
		r.Get("/ansatz", h.HandleAnsatz)
		r.Get("/molecules", h.HandleMolecules)
		r.Post("/hamiltonian", h.HandleHamiltonian)
	})
}
