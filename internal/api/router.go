package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Handle("/metrics", promhttp.Handler())

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Authenticated routes (open when AUTH_SECRET is unset)
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.AuthMiddleware)

			// Session routes
			r.Post("/sessions", apiHandler.CreateSessionHandler)
			r.Get("/sessions", apiHandler.ListSessionsHandler)
			r.Get("/sessions/{sessionID}", apiHandler.GetSessionHandler)
			r.Delete("/sessions/{sessionID}", apiHandler.DeleteSessionHandler)

			// Retrieval scope
			r.Get("/selection", apiHandler.GetSelectionHandler)
			r.Put("/selection", apiHandler.SetSelectionHandler)

			// Material ingestion and questions
			r.Post("/ingest", apiHandler.IngestHandler)
			r.Post("/ask", apiHandler.AskHandler)
		})
	})

	return r
}
