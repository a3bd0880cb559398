package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/envtest/internal/backend"
	"github.com/starford/envtest/internal/history"
	"github.com/starford/envtest/internal/index"
	"github.com/starford/envtest/internal/sse"
)

// Publisher receives events for connected frontends.
type Publisher interface {
	Publish(event sse.Event)
}

// Handler holds API route handlers.
type Handler struct {
	backend *backend.Backend
	history *history.Service
	events  Publisher
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(be *backend.Backend, hist *history.Service, events Publisher) *Handler {
	return &Handler{backend: be, history: hist, events: events}
}

// envelopeStatus picks the HTTP status for an envelope: 400 for malformed
// input, 500 for other boundary errors, 200 otherwise.
func envelopeStatus(env backend.Envelope, err error) int {
	switch {
	case err != nil && backend.IsInvalidInput(err):
		return http.StatusBadRequest
	case env.Failed():
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, backend.MaxRequestBytes)
	return io.ReadAll(r.Body)
}

// DebugLog handles POST /api/debug-log.
//
//	@Summary		Record game info for an app
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			body	body		backend.DebugLogRequest	true	"appid and optional additional game info"
//	@Success		200		{object}	backend.DebugLogResponse
//	@Failure		400		{object}	backend.DebugLogResponse
//	@Failure		500		{object}	backend.DebugLogResponse
//	@Security		BearerAuth
//	@Router			/debug-log [post]
func (h *Handler) DebugLog(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, backend.DebugLogResponse{Status: backend.StatusError, Message: "failed to read body"})
		return
	}
	req, err := backend.DecodeDebugLogRequest(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, backend.DebugLogResponse{Status: backend.StatusError, Message: err.Error()})
		return
	}

	resp := h.backend.DebugLog(r.Context(), req)
	if !resp.Failed() && h.events != nil {
		h.events.Publish(sse.Event{Type: sse.TypeRecordLogged, Data: map[string]any{
			"appid":     req.AppID,
			"log_file":  resp.LogFile,
			"persisted": resp.Persisted != nil && *resp.Persisted,
		}})
	}
	writeJSON(w, envelopeStatus(resp, nil), resp)
}

// PullHeroicData handles POST /api/heroic.
//
//	@Summary		Look up Heroic launcher config and library data for a game
//	@Tags			heroic
//	@Accept			json
//	@Produce		json
//	@Param			body	body		backend.HeroicRequest	true	"appname"
//	@Success		200		{object}	backend.HeroicResponse
//	@Failure		400		{object}	backend.HeroicResponse
//	@Failure		500		{object}	backend.HeroicResponse
//	@Security		BearerAuth
//	@Router			/heroic [post]
func (h *Handler) PullHeroicData(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, backend.HeroicResponse{Status: backend.StatusError, Message: "failed to read body"})
		return
	}
	env, err := h.backend.Call(r.Context(), backend.OpPullHeroicData, body)
	writeJSON(w, envelopeStatus(env, err), env)
}

// ListRecords handles GET /api/records.
//
//	@Summary		List logged records, newest first
//	@Tags			records
//	@Produce		json
//	@Param			appid	query		int	false	"Filter by appid"
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	RecordListResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var query index.RecordQuery
	query.Limit, _ = strconv.Atoi(q.Get("limit"))
	query.Offset, _ = strconv.Atoi(q.Get("offset"))
	if raw := q.Get("appid"); raw != "" {
		appid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("appid must be an integer"))
			return
		}
		query.AppID = &appid
	}

	items, total, err := h.history.ListRecords(r.Context(), query)
	if err != nil {
		writeError(w, "list records", err)
		return
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: items, Total: total})
}

// SearchRecords handles GET /api/records/search.
//
//	@Summary		Full-text search across logged game info
//	@Tags			records
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/search [get]
func (h *Handler) SearchRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.history.Search(r.Context(), q, limit)
	if err != nil {
		slog.Debug("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
