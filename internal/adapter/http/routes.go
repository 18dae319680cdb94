package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. writes
// wraps the mutating document endpoints (rate limiting, idempotency).
func MountRoutes(r chi.Router, h *Handlers, writes ...func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": "0.1.0"})
		})

		// Documents
		r.Group(func(r chi.Router) {
			r.Use(writes...)
			r.Post("/documents/process", h.ProcessDocument)
			r.Post("/documents/route", h.RouteDocument)
		})
		r.Get("/documents/{id}/result", h.GetResult)

		// Agents
		r.Get("/agents", h.ListAgents)
		r.Get("/agents/{id}", h.GetAgent)

		r.Get("/plan", h.GetPlan)
	})
}
