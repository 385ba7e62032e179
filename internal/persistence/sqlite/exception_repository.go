package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/persistence"
)

// ExceptionRepository implements persistence.ExceptionRepository. Rows are
// keyed by (series_id, occurrence_ns), so listing a series is a primary key
// range scan.
type ExceptionRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewExceptionRepository creates an exception repository over pool.
func NewExceptionRepository(pool *ConnectionPool) *ExceptionRepository {
	return &ExceptionRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

const exceptionColumns = `series_id, occurrence_ns, start_ns, end_ns, notes, host_id,
	host_cleared, cancelled, updated_at, updated_by`

func (r *ExceptionRepository) GetException(ctx context.Context, seriesID uuid.UUID, occurrence uint64) (persistence.Exception, error) {
	if checkNanos(occurrence) != nil {
		return persistence.Exception{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx,
		`SELECT `+exceptionColumns+` FROM series_exceptions WHERE series_id = ? AND occurrence_ns = ?`,
		seriesID.String(), int64(occurrence))
	exception, err := scanException(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Exception{}, persistence.ErrNotFound
		}
		return persistence.Exception{}, r.mapper.MapError(err)
	}
	return exception, nil
}

// PutException inserts or replaces the overlay of one occurrence.
func (r *ExceptionRepository) PutException(ctx context.Context, exception persistence.Exception) error {
	if exception.SeriesID == uuid.Nil {
		return persistence.ErrConstraintViolation
	}
	if err := checkNanos(exception.OccurrenceNanos, nanosOrZero(exception.StartNanos), nanosOrZero(exception.EndNanos)); err != nil {
		return err
	}
	query := `
		INSERT INTO series_exceptions (` + exceptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (series_id, occurrence_ns) DO UPDATE SET
			start_ns = excluded.start_ns,
			end_ns = excluded.end_ns,
			notes = excluded.notes,
			host_id = excluded.host_id,
			host_cleared = excluded.host_cleared,
			cancelled = excluded.cancelled,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`

	_, err := r.helper.Exec(ctx, query,
		exception.SeriesID.String(),
		int64(exception.OccurrenceNanos),
		optionalNanos(exception.StartNanos),
		optionalNanos(exception.EndNanos),
		optionalString(exception.Notes),
		optionalString(exception.Host),
		exception.HostCleared,
		exception.Cancelled,
		formatTime(exception.UpdatedAt),
		exception.UpdatedBy,
	)
	return r.mapper.MapError(err)
}

func (r *ExceptionRepository) ListExceptions(ctx context.Context, seriesID uuid.UUID) ([]persistence.Exception, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT `+exceptionColumns+` FROM series_exceptions WHERE series_id = ? ORDER BY occurrence_ns ASC`,
		seriesID.String())
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var out []persistence.Exception
	for rows.Next() {
		exception, err := scanException(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		out = append(out, exception)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

func scanException(row scanner) (persistence.Exception, error) {
	var (
		exception  persistence.Exception
		seriesID   string
		occurrence int64
		start, end sql.NullInt64
		notes      sql.NullString
		host       sql.NullString
		updatedAt  string
	)
	if err := row.Scan(
		&seriesID,
		&occurrence,
		&start,
		&end,
		&notes,
		&host,
		&exception.HostCleared,
		&exception.Cancelled,
		&updatedAt,
		&exception.UpdatedBy,
	); err != nil {
		return persistence.Exception{}, err
	}

	var err error
	if exception.SeriesID, err = parseUUID("series_exceptions.series_id", seriesID); err != nil {
		return persistence.Exception{}, err
	}
	if exception.UpdatedAt, err = parseTime("series_exceptions.updated_at", updatedAt); err != nil {
		return persistence.Exception{}, err
	}
	exception.OccurrenceNanos = uint64(occurrence)
	exception.StartNanos = scannedNanos(start)
	exception.EndNanos = scannedNanos(end)
	exception.Notes = scannedString(notes)
	exception.Host = scannedString(host)
	return exception, nil
}
