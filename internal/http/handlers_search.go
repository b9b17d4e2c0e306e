package httpapi

import (
	"net/http"
	"strings"
)

// HandleSearch matches movies by title, description or director
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "Search query is required", "MISSING_QUERY")
		return
	}

	opts := listOptions(r)
	page, err := h.repo.SearchMovies(r.Context(), q, opts)
	if err != nil {
		h.logger.Error().Err(err).Str("query", q).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "search failed", "SEARCH_ERROR")
		return
	}

	h.logger.Info().
		Str("query", q).
		Int64("total", page.Total).
		Msg("search completed")

	resp := listResponse(page, opts)
	resp.SearchQuery = q
	writeJSON(w, http.StatusOK, resp)
}
