package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/officehours/internal/persistence"
	"github.com/example/officehours/internal/persistence/memory"
	"github.com/example/officehours/internal/persistence/sqlite"
	"github.com/example/officehours/internal/persistence/sqlite/migration"
	"github.com/example/officehours/internal/storage"
)

// Harness exposes application repositories over a real store.
type Harness struct {
	storage.Repositories

	store   persistence.Store
	cleanup func()
}

// Close releases resources associated with the harness.
func (h *Harness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a Harness over a temporary, migrated SQLite
// file. Close is registered with tb.
func NewSQLiteHarness(tb testing.TB) *Harness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "officehours.db")
	store, err := sqlite.Open(migration.DefaultSQLiteConfig(path), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &Harness{
		Repositories: storage.New(store),
		store:        store,
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// NewMemoryHarness constructs a Harness over the in-memory store.
func NewMemoryHarness(tb testing.TB) *Harness {
	tb.Helper()

	store := memory.New()
	harness := &Harness{
		Repositories: storage.New(store),
		store:        store,
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
