package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/officehours/internal/persistence"
	"github.com/example/officehours/internal/persistence/sqlite/migration"
)

func TestErrorMapper(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "unique", err: errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), want: persistence.ErrDuplicate},
		{name: "primary key", err: errors.New("PRIMARY KEY must be unique"), want: persistence.ErrDuplicate},
		{name: "foreign key", err: errors.New("FOREIGN KEY constraint failed (787)"), want: persistence.ErrForeignKeyViolation},
		{name: "check", err: errors.New("CHECK constraint failed: end_ns > start_ns"), want: persistence.ErrConstraintViolation},
		{name: "not null", err: errors.New("NOT NULL constraint failed: series.title"), want: persistence.ErrConstraintViolation},
		{name: "locked", err: errors.New("database is locked (5) (SQLITE_BUSY)"), want: ErrDatabaseLocked},
		{name: "already mapped", err: persistence.ErrNotFound, want: persistence.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := mapper.MapError(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("MapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	if mapper.MapError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	plain := errors.New("disk I/O error")
	if got := mapper.MapError(plain); got != plain {
		t.Fatalf("expected unmapped error to pass through, got %v", got)
	}
}

func TestRetryHelper(t *testing.T) {
	t.Parallel()

	config := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}

	t.Run("retries lock contention until success", func(t *testing.T) {
		t.Parallel()
		helper := NewRetryHelper(config)
		calls := 0
		err := helper.WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Fatalf("expected success on third call, got %v after %d calls", err, calls)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		t.Parallel()
		helper := NewRetryHelper(config)
		calls := 0
		err := helper.WithRetry(context.Background(), func() error {
			calls++
			return errors.New("database is locked")
		})
		if !errors.Is(err, ErrDatabaseLocked) || calls != 3 {
			t.Fatalf("expected ErrDatabaseLocked after 3 calls, got %v after %d", err, calls)
		}
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		t.Parallel()
		helper := NewRetryHelper(config)
		calls := 0
		err := helper.WithRetry(context.Background(), func() error {
			calls++
			return errors.New("UNIQUE constraint failed: users.id")
		})
		if !errors.Is(err, persistence.ErrDuplicate) || calls != 1 {
			t.Fatalf("expected a single ErrDuplicate call, got %v after %d", err, calls)
		}
	})
}

func TestStoreMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	config := migration.DefaultSQLiteConfig(filepath.Join(t.TempDir(), "officehours.db"))
	store, err := Open(config, logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("Migrate run %d failed: %v", i+1, err)
		}
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	var count int
	if err := store.pool.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", count)
	}
}

func TestWithTransactionRollsBack(t *testing.T) {
	t.Parallel()

	pool, err := NewConnectionPool(migration.InMemorySQLiteConfig())
	if err != nil {
		t.Fatalf("NewConnectionPool failed: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	ctx := context.Background()
	if _, err := pool.DB().ExecContext(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	boom := errors.New("boom")
	err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items (id) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := pool.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d rows", count)
	}
}
