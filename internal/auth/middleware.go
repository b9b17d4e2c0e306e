package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dsjohal14/cinestack/internal/scope/db"
)

type ctxKey struct{}

// WithUser returns a context carrying u
func WithUser(ctx context.Context, u db.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFrom returns the authenticated user stored by Protect
func UserFrom(ctx context.Context) (db.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(db.User)
	return u, ok
}

// Protect requires a valid Bearer token and stores its user in the request context
func (s *Service) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			deny(w, http.StatusUnauthorized, "Not authorized to access this route. Please login.", "UNAUTHORIZED")
			return
		}

		u, err := s.Authenticate(r.Context(), token)
		switch {
		case errors.Is(err, ErrInvalidToken):
			deny(w, http.StatusUnauthorized, "Invalid or expired token. Please login again.", "INVALID_TOKEN")
			return
		case errors.Is(err, db.ErrNotFound):
			deny(w, http.StatusUnauthorized, "User not found. Please login again.", "UNKNOWN_USER")
			return
		case err != nil:
			s.logger.Error().Err(err).Msg("authentication failed")
			deny(w, http.StatusInternalServerError, "Authentication error", "AUTH_ERROR")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireAdmin rejects users without the admin role. Mount after Protect.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFrom(r.Context())
		if !ok || u.Role != db.RoleAdmin {
			deny(w, http.StatusForbidden, "Access denied. Admin privileges required.", "FORBIDDEN")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func deny(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
		"code":    code,
	})
}
