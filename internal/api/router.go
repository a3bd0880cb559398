package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/envtest/internal/backend"
	"github.com/starford/envtest/internal/history"
	"github.com/starford/envtest/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, receives record.logged events and is mounted at
// GET /events inside the auth group.
func NewRouter(be *backend.Backend, hist *history.Service, broker *sse.Broker, authEnabled bool, token string) chi.Router {
	var events Publisher
	if broker != nil {
		events = broker
	}
	h := NewHandler(be, hist, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Plugin operations.
	r.Post("/debug-log", h.DebugLog)
	r.Post("/heroic", h.PullHeroicData)

	// Record history.
	r.Get("/records", h.ListRecords)
	r.Get("/records/search", h.SearchRecords)
	r.Get("/export/{appid}", h.ExportRecord)

	// Raw log files.
	r.Get("/logs", h.ListLogs)
	r.Get("/logs/{name}", h.DownloadLog)

	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	})
	return r
}
