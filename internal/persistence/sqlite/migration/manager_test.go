package migration

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewConnectionManager(InMemorySQLiteConfig()).GetConnection()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_users.sql": {Data: []byte("CREATE TABLE users (id TEXT PRIMARY KEY);\nINSERT INTO users (id) VALUES ('root');")},
		"migrations/002_notes.sql": {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY, user_id TEXT REFERENCES users (id));")},
	}
}

func TestManager_RunMigrations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)
	manager := NewManager(NewFileScanner(), NewSQLiteExecutor(db), testMigrations(), "migrations", quietLogger())

	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations returned error: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil || count != 1 {
		t.Fatalf("expected seeded users table, got %d, %v", count, err)
	}

	status, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus returned error: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 || len(status.AppliedMigrations) != 2 {
		t.Fatalf("unexpected status %+v", status)
	}

	// A second run applies nothing.
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations returned error: %v", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil || count != 1 {
		t.Fatalf("expected migrations to run once, got %d rows", count)
	}
}

func TestManager_RunMigrationsRollsBackFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"migrations/001_ok.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"migrations/002_broken.sql": {Data: []byte("CREATE TABLE half (id TEXT);\nINSERT INTO missing_table VALUES (1);")},
	}
	manager := NewManager(NewFileScanner(), NewSQLiteExecutor(db), files, "migrations", quietLogger())

	err := manager.RunMigrations(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	var name string
	if err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE name = 'half'").Scan(&name); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected failed migration to roll back, got %q, %v", name, err)
	}
	applied, err := NewSQLiteExecutor(db).IsVersionApplied(ctx, "001")
	if err != nil || !applied {
		t.Fatalf("expected first migration to stay applied, got %v, %v", applied, err)
	}
}

func TestManager_DetectsGapsAndEditedFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("gap in sequence", func(t *testing.T) {
		t.Parallel()
		files := fstest.MapFS{
			"migrations/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"migrations/003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
		}
		manager := NewManager(NewFileScanner(), NewSQLiteExecutor(openTestDB(t)), files, "migrations", quietLogger())
		if err := manager.RunMigrations(ctx); !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("edited after apply", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		files := testMigrations()
		if err := NewManager(NewFileScanner(), NewSQLiteExecutor(db), files, "migrations", quietLogger()).RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations returned error: %v", err)
		}
		files["migrations/001_users.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE users (id TEXT PRIMARY KEY, name TEXT);")}
		err := NewManager(NewFileScanner(), NewSQLiteExecutor(db), files, "migrations", quietLogger()).RunMigrations(ctx)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})
}
