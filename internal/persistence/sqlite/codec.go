package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/persistence"
)

// Timestamps are stored as RFC 3339 text with nanoseconds, instants as
// signed 64-bit nanoseconds (valid until 2262).

// checkNanos rejects instants that do not fit the signed column.
func checkNanos(values ...uint64) error {
	for _, n := range values {
		if n > math.MaxInt64 {
			return fmt.Errorf("%w: instant %d is past the storable range", persistence.ErrConstraintViolation, n)
		}
	}
	return nil
}

func nanosOrZero(value *uint64) uint64 {
	if value == nil {
		return 0
	}
	return *value
}

// boundNanos converts a query bound, saturating at the largest storable
// instant.
func boundNanos(n uint64) int64 {
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func formatOptionalTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseOptionalTime(column string, value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(column, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalNanos(value *uint64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func scannedNanos(value sql.NullInt64) *uint64 {
	if !value.Valid {
		return nil
	}
	n := uint64(value.Int64)
	return &n
}

func optionalString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func scannedString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func parseUUID(column, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return id, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
