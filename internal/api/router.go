// Package api assembles the HTTP router.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/ultragrab/internal/api/handler"
	mw "github.com/iconidentify/ultragrab/internal/api/middleware"
	"github.com/iconidentify/ultragrab/internal/metrics"
)

// NewRouter creates the HTTP router with all routes configured.
// No request timeout middleware is installed: downloads may run for as long
// as the origin keeps sending.
func NewRouter(
	mediaHandler *handler.MediaHandler,
	historyHandler *handler.HistoryHandler,
	healthHandler *handler.HealthHandler,
	uiHandler *handler.UIHandler,
	m *metrics.Metrics,
	corsOrigins []string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Metrics(m))
	r.Use(mw.Recovery(logger))
	r.Use(mw.CORS(corsOrigins))

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)
	r.Method("GET", "/metrics", m.Handler())

	// Web UI
	r.Get("/", uiHandler.Index)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", healthHandler.Stats)

		r.Post("/extract", mediaHandler.Extract)
		r.Get("/extract", mediaHandler.ExtractQuery)
		r.Get("/formats", mediaHandler.Formats)
		r.Get("/download", mediaHandler.Download)

		r.Get("/history", historyHandler.List)
		r.Delete("/history", historyHandler.Clear)
	})

	return r
}
