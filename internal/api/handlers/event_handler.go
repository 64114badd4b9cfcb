package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/carshelf/internal/services"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 200
)

// EventHandler handles HTTP requests related to the activity log.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent activity/events.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.GetRecentEvents(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		writeError(w, r, err, "Event", true)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func parseLimit(s string) int {
	limit, err := strconv.Atoi(s)
	if err != nil || limit <= 0 {
		return defaultEventLimit
	}
	if limit > maxEventLimit {
		return maxEventLimit
	}
	return limit
}
