package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	movie, err := store.CreateMovie(ctx, fixture("Heat", 4))
	if err != nil {
		t.Fatalf("CreateMovie failed: %v", err)
	}
	user, err := store.CreateUser(ctx, User{Email: "admin@movieapp.com", PasswordHash: "secret-hash", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, name := range []string{moviesFile, usersFile} {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	reopened, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetMovie(ctx, movie.ID)
	if err != nil {
		t.Fatalf("GetMovie after reopen failed: %v", err)
	}
	if got.Title != "Heat" || got.ImdbRank != 4 || !got.CreatedAt.Equal(movie.CreatedAt) {
		t.Errorf("unexpected movie after reopen: %+v", got)
	}

	u, err := reopened.GetUserByEmail(ctx, "ADMIN@movieapp.com")
	if err != nil {
		t.Fatalf("GetUserByEmail after reopen failed: %v", err)
	}
	if u.ID != user.ID || u.PasswordHash != "secret-hash" || u.Role != RoleAdmin {
		t.Errorf("password hash and role must survive reopen, got %+v", u)
	}

	results, err := reopened.SearchMovies(ctx, "heat", ListOptions{})
	if err != nil {
		t.Fatalf("SearchMovies failed: %v", err)
	}
	if len(results.Movies) != 1 {
		t.Errorf("search index must be rebuilt on load, got %d results", len(results.Movies))
	}
}

func TestFileStoreDeletePersists(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	m, _ := store.CreateMovie(ctx, fixture("Gone", 0))
	if err := store.DeleteMovie(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMovie failed: %v", err)
	}

	// no Close: every write is flushed
	reopened, err := NewFileStore(tmpDir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if n, _ := reopened.CountMovies(ctx); n != 0 {
		t.Errorf("expected empty catalog after reopen, got %d", n)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, moviesFile), []byte("{not json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(tmpDir); err == nil {
		t.Error("expected error loading corrupt movies file")
	}
}
