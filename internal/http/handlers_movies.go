package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dsjohal14/cinestack/internal/scope/db"
	"github.com/go-chi/chi/v5"
)

// HandleListMovies returns movies in IMDb rank order
func (h *Handler) HandleListMovies(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	opts.Sort = db.SortImdbRank
	opts.Order = db.OrderAsc

	page, err := h.repo.ListMovies(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list movies")
		writeError(w, http.StatusInternalServerError, "failed to list movies", "STORE_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, listResponse(page, opts))
}

// HandleSortedMovies returns movies ordered by sortBy and order
func (h *Handler) HandleSortedMovies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := listOptions(r)
	opts.Sort = db.ParseSortField(q.Get("sortBy"))
	opts.Order = db.ParseSortOrder(q.Get("order"))

	page, err := h.repo.ListMovies(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list sorted movies")
		writeError(w, http.StatusInternalServerError, "failed to list movies", "STORE_ERROR")
		return
	}

	resp := listResponse(page, opts)
	resp.SortedBy = string(opts.Sort)
	resp.Order = string(opts.Order)
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetMovie returns a single movie
func (h *Handler) HandleGetMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := h.repo.GetMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "failed to get movie")
		return
	}
	writeJSON(w, http.StatusOK, MovieResponse{Success: true, Movie: movie})
}

// HandleUpdateMovie applies a partial update synchronously
func (h *Handler) HandleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req MovieUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid update movie request")
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, fieldErrors(err))
		return
	}

	movie, err := h.repo.UpdateMovie(r.Context(), id, req.Patch())
	if err != nil {
		h.storeError(w, err, "failed to update movie")
		return
	}

	h.logger.Info().Str("movie_id", id).Msg("movie updated")
	writeJSON(w, http.StatusOK, MovieResponse{
		Success: true,
		Message: "Movie updated successfully",
		Movie:   movie,
	})
}

// HandleDeleteMovie removes a movie synchronously
func (h *Handler) HandleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteMovie(r.Context(), id); err != nil {
		h.storeError(w, err, "failed to delete movie")
		return
	}

	h.logger.Info().Str("movie_id", id).Msg("movie deleted")
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Movie deleted successfully"})
}

// storeError maps store errors to responses
func (h *Handler) storeError(w http.ResponseWriter, err error, logMsg string) {
	var verr *db.ValidationError
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "Movie not found", "NOT_FOUND")
	case errors.As(err, &verr):
		writeValidationError(w, verr.Fields)
	case errors.Is(err, db.ErrDuplicate):
		writeError(w, http.StatusConflict, "Movie already exists", "DUPLICATE")
	default:
		h.logger.Error().Err(err).Msg(logMsg)
		writeError(w, http.StatusInternalServerError, "Server error", "STORE_ERROR")
	}
}
