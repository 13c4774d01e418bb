package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/tictactoe-go/internal/api/response"
	"github.com/mcoot/tictactoe-go/internal/services/eventlog"
)

// MaxLogLimit caps how many entries one request can read
const MaxLogLimit = 500

// LogHandler serves the event log
type LogHandler struct {
	eventLog *eventlog.Service
}

// NewLogHandler creates a new log handler
func NewLogHandler(eventLog *eventlog.Service) *LogHandler {
	return &LogHandler{eventLog: eventLog}
}

// Recent handles GET /api/v1/logs?limit=N
func (h *LogHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = min(n, MaxLogLimit)
	}

	entries, err := h.eventLog.Recent(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Write(w, r, http.StatusOK, response.LogEntriesFromModel(entries))
}
