package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dsjohal14/cinestack/internal/auth"
	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/dsjohal14/cinestack/internal/scope/db"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// MovieQueue accepts movies for deferred insertion
type MovieQueue interface {
	Submit(m db.Movie) string
	Status() jobs.Snapshot
}

// Handler contains HTTP handlers for the API
type Handler struct {
	repo     db.Repository
	queue    MovieQueue
	auth     *auth.Service
	dead     *jobs.DeadLetters[db.Movie]
	validate *validator.Validate
	live     http.Handler
	logger   zerolog.Logger
}

// NewHandler creates a new HTTP handler. dead may be nil when failed jobs
// are not kept in memory.
func NewHandler(repo db.Repository, queue MovieQueue, authSvc *auth.Service, dead *jobs.DeadLetters[db.Movie], logger zerolog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		queue:    queue,
		auth:     authSvc,
		dead:     dead,
		validate: newValidator(),
		logger:   logger,
	}
}

// SetLive mounts a public status stream at /api/queue/ws
func (h *Handler) SetLive(live http.Handler) {
	h.live = live
}

// Routes mounts the catalog, auth and queue endpoints on r
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.HandleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.With(h.auth.Protect).Get("/me", h.HandleMe)
	})

	r.Route("/api/movies", func(r chi.Router) {
		r.Get("/", h.HandleListMovies)
		r.Get("/sorted", h.HandleSortedMovies)
		r.Get("/search", h.HandleSearch)
		r.Get("/{id}", h.HandleGetMovie)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Protect, auth.RequireAdmin)
			r.Post("/", h.HandleCreateMovie)
			r.Put("/{id}", h.HandleUpdateMovie)
			r.Delete("/{id}", h.HandleDeleteMovie)
		})
	})

	r.Route("/api/queue", func(r chi.Router) {
		if h.live != nil {
			r.Get("/ws", h.live.ServeHTTP)
		}
		r.Group(func(r chi.Router) {
			r.Use(h.auth.Protect, auth.RequireAdmin)
			r.Get("/status", h.HandleQueueStatus)
			r.Get("/dead-letters", h.HandleDeadLetters)
		})
	})
}

// Helper functions used across all handlers

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Message: message,
		Code:    code,
	})
}

// queryInt reads a positive integer query parameter, falling back to def
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// listOptions reads page and limit and applies the store defaults
func listOptions(r *http.Request) db.ListOptions {
	return db.ListOptions{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", db.DefaultPageSize),
	}.Normalize()
}

func listResponse(page db.MoviePage, opts db.ListOptions) MovieListResponse {
	return MovieListResponse{
		Success:     true,
		Count:       len(page.Movies),
		Total:       page.Total,
		TotalPages:  page.TotalPages(opts.Limit),
		CurrentPage: opts.Page,
		Movies:      page.Movies,
	}
}
