package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/runservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *runservice.Service, store history.Store, authEnabled bool, token string, sseHandler http.Handler, progress ProgressPublisher) chi.Router {
	h := NewHandler(svc, store, progress)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Conversion.
	r.Post("/convert", h.Convert)
	r.Post("/check", h.Check)

	// Run history.
	r.Get("/runs", h.ListRuns)
	r.Delete("/runs", h.ClearRuns)

	// Presets.
	r.Get("/presets/{kind}", h.ListPresets)
	r.Get("/presets/{kind}/{name}", h.GetPreset)
	r.Put("/presets/{kind}/{name}", h.SavePreset)
	r.Delete("/presets/{kind}/{name}", h.DeletePreset)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
