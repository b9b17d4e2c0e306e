package httpapi

import "net/http"

// HandleHealth returns API health status, movie count and queue snapshot
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.repo.CountMovies(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("health check failed")
		writeError(w, http.StatusServiceUnavailable, "store unavailable", "STORE_UNAVAILABLE")
		return
	}

	resp := HealthResponse{
		Status:     "healthy",
		MovieCount: count,
		Queue:      h.queue.Status(),
	}

	h.logger.Debug().Int64("movie_count", count).Msg("health check")

	writeJSON(w, http.StatusOK, resp)
}
