// Package web exposes the admin HTTP API: health, pipeline status
// counters, and manual stage triggers.
package web

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/znz-systems/inboxpilot/internal/web/handlers"
	"github.com/znz-systems/inboxpilot/internal/web/middleware"
)

// RouterDeps holds all dependencies needed to build the router.
type RouterDeps struct {
	StatusHandler *handlers.StatusHandler
	AdminToken    string
}

// NewRouter wires all routes into a Chi router.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RealIP)

	r.Get("/healthz", deps.StatusHandler.HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(deps.AdminToken))

		r.Get("/api/status", deps.StatusHandler.HandleStatus)
		r.Post("/api/run/{stage}", deps.StatusHandler.HandleRunStage)
	})

	return r
}
