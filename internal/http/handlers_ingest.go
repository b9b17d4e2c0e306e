package httpapi

import (
	"encoding/json"
	"net/http"
)

// HandleCreateMovie validates a movie and hands it to the insertion queue.
// The response is 202 with the job id; the write happens later.
func (h *Handler) HandleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req MovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid create movie request")
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, fieldErrors(err))
		return
	}

	movie := req.Movie()
	jobID := h.queue.Submit(movie)

	h.logger.Info().
		Str("job_id", jobID).
		Str("title", movie.Title).
		Msg("movie queued for insertion")

	writeJSON(w, http.StatusAccepted, CreateMovieResponse{
		Success: true,
		Message: "Movie is being added to the database",
		JobID:   jobID,
	})
}
