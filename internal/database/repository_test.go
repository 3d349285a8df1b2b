package database

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func TestTokensRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	if _, _, err := repo.LoadTokens(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadTokens() on empty db error = %v, want ErrNotFound", err)
	}

	if err := repo.SaveTokens("a1", "r1"); err != nil {
		t.Fatalf("SaveTokens() error = %v", err)
	}
	if err := repo.SaveTokens("a2", ""); err != nil {
		t.Fatalf("SaveTokens() overwrite error = %v", err)
	}

	access, refresh, err := repo.LoadTokens()
	if err != nil {
		t.Fatalf("LoadTokens() error = %v", err)
	}
	if access != "a2" || refresh != "" {
		t.Fatalf("LoadTokens() = %q, %q, want a2, empty", access, refresh)
	}

	if err := repo.DeleteTokens(); err != nil {
		t.Fatalf("DeleteTokens() error = %v", err)
	}
	if _, _, err := repo.LoadTokens(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadTokens() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteTokensIf(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.SaveTokens("current", ""); err != nil {
		t.Fatalf("SaveTokens() error = %v", err)
	}

	deleted, err := repo.DeleteTokensIf("stale")
	if err != nil || deleted {
		t.Fatalf("DeleteTokensIf(stale) = %v, %v, want false, nil", deleted, err)
	}
	deleted, err = repo.DeleteTokensIf("current")
	if err != nil || !deleted {
		t.Fatalf("DeleteTokensIf(current) = %v, %v, want true, nil", deleted, err)
	}
}
