package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListLogs handles GET /api/logs.
//
//	@Summary		List daily log files
//	@Tags			logs
//	@Produce		json
//	@Success		200	{object}	LogListResponse
//	@Security		BearerAuth
//	@Router			/logs [get]
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.history.ListLogs(r.Context())
	if err != nil {
		writeError(w, "list logs", err)
		return
	}
	writeJSON(w, http.StatusOK, LogListResponse{Logs: logs})
}

// DownloadLog handles GET /api/logs/{name}.
//
//	@Summary		Download a raw daily log file
//	@Tags			logs
//	@Produce		application/json
//	@Param			name	path	string	true	"Log file name (log-YYYYMMDD.log)"
//	@Success		200
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/logs/{name} [get]
func (h *Handler) DownloadLog(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.history.ReadLog(r.Context(), name)
	if err != nil {
		writeError(w, "read log", err)
		return
	}
	writeAttachment(w, name, "application/json", data)
}

// ExportRecord handles GET /api/export/{appid}.
//
//	@Summary		Download the newest record for an app as game_info_<appid>.json
//	@Tags			records
//	@Produce		application/json
//	@Param			appid	path	int	true	"Steam appid"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export/{appid} [get]
func (h *Handler) ExportRecord(w http.ResponseWriter, r *http.Request) {
	appid, err := strconv.ParseInt(chi.URLParam(r, "appid"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("appid must be an integer"))
		return
	}
	exp, err := h.history.ExportLatest(r.Context(), appid)
	if err != nil {
		writeError(w, "export record", err)
		return
	}
	writeAttachment(w, exp.Filename, "application/json", exp.Content)
}
