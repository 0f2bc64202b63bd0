package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the full HTTP surface: plugin ingest, module callbacks,
// module registration, and the dashboard read API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	origins := h.corsAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Plugin to API
	r.Post("/ingest", h.Ingest)
	r.Post("/handshake", h.Handshake)
	r.Post("/heartbeat", h.Heartbeat)
	r.Post("/observations", h.CreateObservation)

	// Operator/plugin module registration
	r.Route("/servers/{server_id}/modules", func(r chi.Router) {
		r.Post("/", h.UpsertModule)
		r.Get("/", h.ListModules)
	})

	// Module to API callbacks
	r.Route("/callbacks", func(r chi.Router) {
		r.Post("/findings", h.PostFindings)
		r.Get("/player-state", h.GetPlayerState)
		r.Post("/player-state", h.SetPlayerState)
		r.Post("/player-states/batch-get", h.BatchGetPlayerStates)
		r.Post("/player-states/batch-set", h.BatchSetPlayerStates)
	})

	// Dashboard read API
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(h.RequireDashboard)
		r.Get("/servers", h.GetServers)
		r.Get("/builtin-modules", h.GetBuiltinModules)
		r.Route("/{server_id}", func(r chi.Router) {
			r.Get("/stats", h.GetStats)
			r.Get("/findings", h.GetFindings)
			r.Get("/players", h.GetPlayers)
			r.Get("/modules", h.GetModules)
			r.Get("/status", h.GetStatus)
			r.Post("/modules/{module_id}/toggle", h.ToggleModule)
		})
	})

	return r
}
