package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/persistence"
)

// SeriesRepository implements persistence.SeriesRepository.
type SeriesRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSeriesRepository creates a series repository over pool.
func NewSeriesRepository(pool *ConnectionPool) *SeriesRepository {
	return &SeriesRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

const seriesColumns = `id, title, notes, link, frequency, weekday, ordinal, start_ns, end_ns,
	duration_minutes, color, paused, created_at, created_by`

// GetSeries loads one series.
func (r *SeriesRepository) GetSeries(ctx context.Context, id uuid.UUID) (persistence.Series, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+seriesColumns+` FROM series WHERE id = ?`, id.String())
	series, err := scanSeries(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Series{}, persistence.ErrNotFound
		}
		return persistence.Series{}, r.mapper.MapError(err)
	}
	return series, nil
}

// PutSeries inserts or replaces a series.
func (r *SeriesRepository) PutSeries(ctx context.Context, series persistence.Series) error {
	if series.ID == uuid.Nil {
		return persistence.ErrConstraintViolation
	}
	if err := checkNanos(series.StartNanos, nanosOrZero(series.EndNanos)); err != nil {
		return err
	}
	query := `
		INSERT INTO series (` + seriesColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			notes = excluded.notes,
			link = excluded.link,
			frequency = excluded.frequency,
			weekday = excluded.weekday,
			ordinal = excluded.ordinal,
			start_ns = excluded.start_ns,
			end_ns = excluded.end_ns,
			duration_minutes = excluded.duration_minutes,
			color = excluded.color,
			paused = excluded.paused`

	_, err := r.helper.Exec(ctx, query,
		series.ID.String(),
		series.Title,
		series.Notes,
		series.Link,
		series.Frequency,
		series.Weekday,
		series.Ordinal,
		int64(series.StartNanos),
		optionalNanos(series.EndNanos),
		series.DurationMinutes,
		series.Color,
		series.Paused,
		formatTime(series.CreatedAt),
		series.CreatedBy,
	)
	return r.mapper.MapError(err)
}

// DeleteSeries removes a series. Exceptions are left in place.
func (r *SeriesRepository) DeleteSeries(ctx context.Context, id uuid.UUID) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM series WHERE id = ?`, id.String())
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListSeries returns every series ordered by start then id.
func (r *SeriesRepository) ListSeries(ctx context.Context) ([]persistence.Series, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+seriesColumns+` FROM series ORDER BY start_ns ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var out []persistence.Series
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		out = append(out, series)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

func scanSeries(row scanner) (persistence.Series, error) {
	var (
		series    persistence.Series
		id        string
		start     int64
		end       sql.NullInt64
		createdAt string
	)
	if err := row.Scan(
		&id,
		&series.Title,
		&series.Notes,
		&series.Link,
		&series.Frequency,
		&series.Weekday,
		&series.Ordinal,
		&start,
		&end,
		&series.DurationMinutes,
		&series.Color,
		&series.Paused,
		&createdAt,
		&series.CreatedBy,
	); err != nil {
		return persistence.Series{}, err
	}

	var err error
	if series.ID, err = parseUUID("series.id", id); err != nil {
		return persistence.Series{}, err
	}
	if series.CreatedAt, err = parseTime("series.created_at", createdAt); err != nil {
		return persistence.Series{}, err
	}
	series.StartNanos = uint64(start)
	series.EndNanos = scannedNanos(end)
	return series, nil
}
