package httpapi

import (
	"net/http"

	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/dsjohal14/cinestack/internal/scope/db"
)

// HandleQueueStatus reports the insertion queue snapshot
func (h *Handler) HandleQueueStatus(w http.ResponseWriter, _ *http.Request) {
	resp := QueueStatusResponse{
		Success: true,
		Queue:   h.queue.Status(),
	}
	if h.dead != nil {
		resp.DeadLetters = h.dead.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDeadLetters lists failed insertions kept in memory
func (h *Handler) HandleDeadLetters(w http.ResponseWriter, _ *http.Request) {
	resp := DeadLettersResponse{
		Success:     true,
		DeadLetters: []jobs.DeadLetter[db.Movie]{},
	}
	if h.dead != nil {
		resp.DeadLetters = h.dead.List()
		resp.Dropped = h.dead.Dropped()
	}
	resp.Count = len(resp.DeadLetters)
	writeJSON(w, http.StatusOK, resp)
}
