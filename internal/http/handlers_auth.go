package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dsjohal14/cinestack/internal/auth"
	"github.com/dsjohal14/cinestack/internal/scope/db"
)

// HandleRegister creates a user account and returns a token
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, token, err := h.auth.Register(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters", "WEAK_PASSWORD")
		return
	case errors.Is(err, db.ErrDuplicate):
		writeError(w, http.StatusConflict, "User already exists", "DUPLICATE")
		return
	case errors.Is(err, db.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
		return
	default:
		h.logger.Error().Err(err).Msg("registration failed")
		writeError(w, http.StatusInternalServerError, "Server error", "AUTH_ERROR")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Success: true, Token: token, User: user})
}

// HandleLogin exchanges credentials for a token
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "Server error", "AUTH_ERROR")
		return
	}

	h.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Token: token, User: user})
}

// HandleMe returns the authenticated user
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized to access this route. Please login.", "UNAUTHORIZED")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, User: user})
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, fieldErrors(err))
		return req, false
	}
	return req, true
}
