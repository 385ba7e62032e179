package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/persistence"
	"github.com/example/officehours/internal/persistence/sqlite/migration"
)

func TestInstantsPastInt64Range(t *testing.T) {
	t.Parallel()

	store, err := Open(migration.InMemorySQLiteConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	const lastStorable = uint64(math.MaxInt64)
	tooLate := lastStorable + 1
	created := time.Date(2026, time.November, 2, 9, 0, 0, 0, time.UTC)

	t.Run("writes are rejected", func(t *testing.T) {
		seriesID := uuid.New()
		cases := map[string]error{
			"one-off": store.PutOneOff(ctx, persistence.OneOff{
				ID: uuid.New(), StartNanos: tooLate - 10, EndNanos: tooLate, Title: "late", Status: "active", CreatedAt: created,
			}),
			"exception": store.PutException(ctx, persistence.Exception{
				SeriesID: seriesID, OccurrenceNanos: tooLate, UpdatedAt: created,
			}),
			"series": store.PutSeries(ctx, persistence.Series{
				ID: seriesID, Title: "late", Frequency: "weekly", Weekday: 2, StartNanos: tooLate, DurationMinutes: 60, CreatedAt: created,
			}),
		}
		for name, err := range cases {
			if !errors.Is(err, persistence.ErrConstraintViolation) {
				t.Errorf("%s: err = %v, want ErrConstraintViolation", name, err)
			}
		}
	})

	t.Run("unbounded window still lists stored one-offs", func(t *testing.T) {
		id := uuid.New()
		if err := store.PutOneOff(ctx, persistence.OneOff{
			ID: id, StartNanos: 1_000, EndNanos: 2_000, Title: "early", Status: "active", CreatedAt: created,
		}); err != nil {
			t.Fatalf("PutOneOff: %v", err)
		}
		got, err := store.ListOneOffs(ctx, 0, math.MaxUint64)
		if err != nil {
			t.Fatalf("ListOneOffs: %v", err)
		}
		if len(got) != 1 || got[0].ID != id {
			t.Fatalf("ListOneOffs = %+v, want the stored one-off", got)
		}
	})

	t.Run("out of range occurrence is not found", func(t *testing.T) {
		if _, err := store.GetException(ctx, uuid.New(), tooLate); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("GetException err = %v, want ErrNotFound", err)
		}
	})
}
