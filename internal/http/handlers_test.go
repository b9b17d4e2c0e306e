package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dsjohal14/cinestack/internal/auth"
	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/dsjohal14/cinestack/internal/libs/obs"
	"github.com/dsjohal14/cinestack/internal/scope/db"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type testEnv struct {
	router     *chi.Mux
	store      *db.MemStore
	queue      *jobs.Queue[db.Movie]
	dead       *jobs.DeadLetters[db.Movie]
	adminToken string
	userToken  string
}

func setupTestHandler(t *testing.T) *testEnv {
	return setupTestHandlerWithStore(t, nil)
}

// setupTestHandlerWithStore wires the API against a memory store. wrap,
// when set, decorates the queue's insert function.
func setupTestHandlerWithStore(t *testing.T, wrap func(next jobs.StoreFunc[db.Movie]) jobs.StoreFunc[db.Movie]) *testEnv {
	t.Helper()

	obs.InitLogger("error", false) // Quiet logs during tests
	logger := obs.Logger("test")

	store := db.NewMemStore()
	var storeFn jobs.StoreFunc[db.Movie] = db.InsertFunc(store)
	if wrap != nil {
		storeFn = wrap(storeFn)
	}
	dead := jobs.NewDeadLetters[db.Movie](10)
	queue := jobs.NewQueue(storeFn, logger,
		jobs.WithPacer[db.Movie](jobs.NoPause{}),
		jobs.WithFailureHandler[db.Movie](dead.Handle),
	)
	t.Cleanup(func() { _ = queue.Shutdown(context.Background()) })

	authSvc := auth.NewService(store, "test-secret", time.Hour, logger)
	handler := NewHandler(store, queue, authSvc, dead, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	handler.Routes(r)

	ctx := context.Background()
	admin, _, err := authSvc.EnsureAdmin(ctx, "admin@movieapp.com", "adminpassword123")
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	adminToken, err := authSvc.Issue(admin)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	_, userToken, err := authSvc.Register(ctx, "viewer@example.com", "viewerpass")
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}

	return &testEnv{
		router:     r,
		store:      store,
		queue:      queue,
		dead:       dead,
		adminToken: adminToken,
		userToken:  userToken,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("failed to encode body: %v", err)
			}
			raw = string(b)
		}
		reader = bytes.NewReader([]byte(raw))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seed(t *testing.T, movies ...db.Movie) []db.Movie {
	t.Helper()
	out := make([]db.Movie, 0, len(movies))
	for _, m := range movies {
		created, err := e.store.CreateMovie(context.Background(), m)
		if err != nil {
			t.Fatalf("failed to seed movie: %v", err)
		}
		out = append(out, created)
		time.Sleep(2 * time.Millisecond) // distinct creation times
	}
	return out
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func movie(title string, rank int) db.Movie {
	return db.Movie{
		Title:       title,
		Description: "About " + title,
		Rating:      8,
		ReleaseDate: time.Date(1999, 3, 31, 0, 0, 0, 0, time.UTC),
		Duration:    120,
		Director:    "Director of " + title,
		ImdbRank:    rank,
	}
}

func validMovieBody() map[string]any {
	return map[string]any{
		"title":       "The Matrix",
		"description": "A hacker learns the truth about reality",
		"rating":      8.7,
		"releaseDate": "1999-03-31",
		"duration":    136,
		"director":    "Lana Wachowski",
		"cast":        []string{"Keanu Reeves", "Carrie-Anne Moss"},
		"genres":      []string{"Action", "Sci-Fi"},
	}
}

func TestHandleHealth(t *testing.T) {
	env := setupTestHandler(t)
	env.seed(t, movie("Heat", 1))

	w := env.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	resp := decode[HealthResponse](t, w)
	if resp.Status != "healthy" {
		t.Errorf("expected status healthy, got %v", resp.Status)
	}
	if resp.MovieCount != 1 {
		t.Errorf("expected movie count 1, got %d", resp.MovieCount)
	}
}

func TestCreateMovieQueuesAndInserts(t *testing.T) {
	env := setupTestHandler(t)

	w := env.do(t, http.MethodPost, "/api/movies", env.adminToken, validMovieBody())
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[CreateMovieResponse](t, w)
	if !resp.Success || resp.JobID == "" {
		t.Errorf("expected success with job id, got %+v", resp)
	}
	if resp.Message != "Movie is being added to the database" {
		t.Errorf("unexpected message %q", resp.Message)
	}

	if err := env.queue.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	page, err := env.store.SearchMovies(context.Background(), "matrix", db.ListOptions{})
	if err != nil {
		t.Fatalf("SearchMovies failed: %v", err)
	}
	if len(page.Movies) != 1 {
		t.Fatalf("expected the queued movie to be stored, got %d", len(page.Movies))
	}
	stored := page.Movies[0]
	if stored.Poster != db.DefaultPoster {
		t.Errorf("expected default poster, got %q", stored.Poster)
	}
	if !stored.ReleaseDate.Equal(time.Date(1999, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected release date %v", stored.ReleaseDate)
	}
}

func TestCreateMovieValidation(t *testing.T) {
	env := setupTestHandler(t)

	tests := []struct {
		name      string
		mutate    func(b map[string]any)
		wantField string
	}{
		{"missing title", func(b map[string]any) { delete(b, "title") }, "title"},
		{"blank director", func(b map[string]any) { b["director"] = "   " }, "director"},
		{"rating too high", func(b map[string]any) { b["rating"] = 10.5 }, "rating"},
		{"negative rating", func(b map[string]any) { b["rating"] = -1 }, "rating"},
		{"missing rating", func(b map[string]any) { delete(b, "rating") }, "rating"},
		{"bad release date", func(b map[string]any) { b["releaseDate"] = "31/03/1999" }, "releaseDate"},
		{"zero duration", func(b map[string]any) { b["duration"] = 0 }, "duration"},
		{"zero rank", func(b map[string]any) { b["imdbRank"] = 0 }, "imdbRank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validMovieBody()
			tt.mutate(body)

			w := env.do(t, http.MethodPost, "/api/movies", env.adminToken, body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
			resp := decode[ErrorResponse](t, w)
			if resp.Success {
				t.Error("expected success=false")
			}
			found := false
			for _, f := range resp.Errors {
				if f.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %+v", tt.wantField, resp.Errors)
			}
		})
	}

	if snap := env.queue.Status(); snap.Submitted != 0 {
		t.Errorf("invalid requests must not be queued, submitted=%d", snap.Submitted)
	}
}

func TestCreateMovieZeroRatingAccepted(t *testing.T) {
	env := setupTestHandler(t)
	body := validMovieBody()
	body["rating"] = 0

	w := env.do(t, http.MethodPost, "/api/movies", env.adminToken, body)
	if w.Code != http.StatusAccepted {
		t.Errorf("expected status 202 for rating 0, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateMovieRequiresAdmin(t *testing.T) {
	env := setupTestHandler(t)

	w := env.do(t, http.MethodPost, "/api/movies", "", validMovieBody())
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without token, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/movies", env.userToken, validMovieBody())
	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for non-admin, got %d", w.Code)
	}
}

func TestCreateMovieInvalidJSON(t *testing.T) {
	env := setupTestHandler(t)

	w := env.do(t, http.MethodPost, "/api/movies", env.adminToken, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != "INVALID_JSON" {
		t.Errorf("expected INVALID_JSON, got %q", resp.Code)
	}
}

func TestFailedInsertIsIsolated(t *testing.T) {
	failing := setupTestHandlerWithStore(t, func(next jobs.StoreFunc[db.Movie]) jobs.StoreFunc[db.Movie] {
		return func(ctx context.Context, m db.Movie) error {
			if m.Title == "Broken" {
				return errors.New("write rejected")
			}
			return next(ctx, m)
		}
	})

	for _, title := range []string{"First", "Broken", "Third"} {
		body := validMovieBody()
		body["title"] = title
		w := failing.do(t, http.MethodPost, "/api/movies", failing.adminToken, body)
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", w.Code)
		}
	}
	if err := failing.queue.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if n, _ := failing.store.CountMovies(context.Background()); n != 2 {
		t.Errorf("expected 2 stored movies, got %d", n)
	}

	w := failing.do(t, http.MethodGet, "/api/queue/dead-letters", failing.adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	resp := decode[DeadLettersResponse](t, w)
	if resp.Count != 1 || resp.DeadLetters[0].Payload.Title != "Broken" {
		t.Errorf("expected one dead letter for Broken, got %+v", resp.DeadLetters)
	}
	if resp.DeadLetters[0].Error != "write rejected" {
		t.Errorf("unexpected dead letter error %q", resp.DeadLetters[0].Error)
	}
}

func TestListMovies(t *testing.T) {
	env := setupTestHandler(t)
	env.seed(t, movie("Unranked", 0), movie("Second", 2), movie("First", 1), movie("Third", 3))

	w := env.do(t, http.MethodGet, "/api/movies?page=1&limit=2", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	resp := decode[MovieListResponse](t, w)
	if resp.Count != 2 || resp.Total != 4 || resp.TotalPages != 2 || resp.CurrentPage != 1 {
		t.Errorf("unexpected paging: %+v", resp)
	}
	if resp.Movies[0].Title != "First" || resp.Movies[1].Title != "Second" {
		t.Errorf("expected rank order, got %s, %s", resp.Movies[0].Title, resp.Movies[1].Title)
	}

	w = env.do(t, http.MethodGet, "/api/movies?page=2&limit=2", "", nil)
	resp = decode[MovieListResponse](t, w)
	if resp.Movies[0].Title != "Third" || resp.Movies[1].Title != "Unranked" {
		t.Errorf("expected unranked last, got %s, %s", resp.Movies[0].Title, resp.Movies[1].Title)
	}
}

func TestSortedMovies(t *testing.T) {
	env := setupTestHandler(t)
	a := movie("Alien", 0)
	a.Rating = 8.5
	b := movie("Brazil", 0)
	b.Rating = 7.9
	c := movie("Casablanca", 0)
	c.Rating = 8.5
	env.seed(t, a, b, c)

	tests := []struct {
		query     string
		wantOrder []string
		wantSort  string
		wantOrd   string
	}{
		{"sortBy=rating&order=desc", []string{"Alien", "Casablanca", "Brazil"}, "rating", "desc"},
		{"sortBy=title&order=desc", []string{"Casablanca", "Brazil", "Alien"}, "title", "desc"},
		{"sortBy=title", []string{"Alien", "Brazil", "Casablanca"}, "title", "asc"},
		{"sortBy=budget&order=sideways", []string{"Alien", "Brazil", "Casablanca"}, "imdbRank", "asc"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/movies/sorted?"+tt.query, "", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}
			resp := decode[MovieListResponse](t, w)
			if resp.SortedBy != tt.wantSort || resp.Order != tt.wantOrd {
				t.Errorf("expected %s/%s, got %s/%s", tt.wantSort, tt.wantOrd, resp.SortedBy, resp.Order)
			}
			for i, title := range tt.wantOrder {
				if resp.Movies[i].Title != title {
					t.Errorf("position %d: expected %s, got %s", i, title, resp.Movies[i].Title)
				}
			}
		})
	}
}

func TestHandleSearch(t *testing.T) {
	env := setupTestHandler(t)
	env.seed(t, movie("Inception", 1), movie("Interstellar", 2), movie("Heat", 3))

	w := env.do(t, http.MethodGet, "/api/movies/search?q=INTER", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[MovieListResponse](t, w)
	if resp.Total != 1 || resp.Movies[0].Title != "Interstellar" {
		t.Errorf("expected Interstellar only, got %+v", resp.Movies)
	}
	if resp.SearchQuery != "INTER" {
		t.Errorf("expected searchQuery echoed, got %q", resp.SearchQuery)
	}

	w = env.do(t, http.MethodGet, "/api/movies/search", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without q, got %d", w.Code)
	}
	errResp := decode[ErrorResponse](t, w)
	if errResp.Message != "Search query is required" {
		t.Errorf("unexpected message %q", errResp.Message)
	}
}

func TestGetMovie(t *testing.T) {
	env := setupTestHandler(t)
	seeded := env.seed(t, movie("Heat", 1))

	w := env.do(t, http.MethodGet, "/api/movies/"+seeded[0].ID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	resp := decode[MovieResponse](t, w)
	if resp.Movie.ID != seeded[0].ID || resp.Movie.Title != "Heat" {
		t.Errorf("unexpected movie %+v", resp.Movie)
	}

	w = env.do(t, http.MethodGet, "/api/movies/does-not-exist", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	errResp := decode[ErrorResponse](t, w)
	if errResp.Message != "Movie not found" {
		t.Errorf("unexpected message %q", errResp.Message)
	}
}

func TestUpdateMovie(t *testing.T) {
	env := setupTestHandler(t)
	seeded := env.seed(t, movie("Heat", 1))
	path := "/api/movies/" + seeded[0].ID

	w := env.do(t, http.MethodPut, path, env.adminToken, map[string]any{"rating": 8.3, "releaseDate": "1995-12-15"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[MovieResponse](t, w)
	if resp.Movie.Rating != 8.3 || resp.Movie.Title != "Heat" || resp.Movie.ReleaseDate.Year() != 1995 {
		t.Errorf("unexpected update result %+v", resp.Movie)
	}

	w = env.do(t, http.MethodPut, path, env.adminToken, map[string]any{"rating": 42})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad rating, got %d", w.Code)
	}

	w = env.do(t, http.MethodPut, path, env.adminToken, map[string]any{"title": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for empty title, got %d", w.Code)
	}

	w = env.do(t, http.MethodPut, "/api/movies/missing", env.adminToken, map[string]any{"rating": 5})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	w = env.do(t, http.MethodPut, path, env.userToken, map[string]any{"rating": 5})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for non-admin, got %d", w.Code)
	}
}

func TestDeleteMovie(t *testing.T) {
	env := setupTestHandler(t)
	seeded := env.seed(t, movie("Heat", 1))
	path := "/api/movies/" + seeded[0].ID

	w := env.do(t, http.MethodDelete, path, env.adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, path, env.adminToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 on second delete, got %d", w.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	env := setupTestHandler(t)
	creds := map[string]string{"email": "new@example.com", "password": "s3cret!!"}

	w := env.do(t, http.MethodPost, "/api/auth/register", "", creds)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	reg := decode[AuthResponse](t, w)
	if reg.Token == "" || reg.User.Role != db.RoleUser {
		t.Errorf("unexpected register response %+v", reg)
	}

	w = env.do(t, http.MethodPost, "/api/auth/register", "", creds)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409 for duplicate, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/auth/login", "", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	login := decode[AuthResponse](t, w)

	w = env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	me := decode[AuthResponse](t, w)
	if me.User.Email != "new@example.com" {
		t.Errorf("unexpected user %+v", me.User)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Error("password hash must not be serialized")
	}

	w = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "short@example.com", "password": "abc"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for short password, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "nope", "password": "abcdefg"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad email, got %d", w.Code)
	}
}

func TestQueueStatus(t *testing.T) {
	env := setupTestHandler(t)

	w := env.do(t, http.MethodGet, "/api/queue/status", env.adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	resp := decode[QueueStatusResponse](t, w)
	if resp.Queue.Active || resp.Queue.QueueDepth != 0 {
		t.Errorf("expected idle queue, got %+v", resp.Queue)
	}

	w = env.do(t, http.MethodGet, "/api/queue/status", env.userToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for non-admin, got %d", w.Code)
	}
}

func TestLiveStreamIsPublic(t *testing.T) {
	env := setupTestHandler(t)
	logger := obs.Logger("test")

	h := NewHandler(env.store, env.queue, auth.NewService(env.store, "test-secret", time.Hour, logger), env.dead, logger)
	h.SetLive(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	}))
	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodGet, "/api/queue/ws", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusSwitchingProtocols {
		t.Errorf("expected the live handler to run without a token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue/status", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 for status without token, got %d", w.Code)
	}
}
