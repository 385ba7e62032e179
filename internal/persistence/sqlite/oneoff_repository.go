package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/persistence"
)

// OneOffRepository implements persistence.OneOffRepository.
type OneOffRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewOneOffRepository creates a one-off repository over pool.
func NewOneOffRepository(pool *ConnectionPool) *OneOffRepository {
	return &OneOffRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

const oneOffColumns = `id, start_ns, end_ns, title, notes, link, host_id, status, color, created_at, created_by`

func (r *OneOffRepository) GetOneOff(ctx context.Context, id uuid.UUID) (persistence.OneOff, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+oneOffColumns+` FROM one_offs WHERE id = ?`, id.String())
	oneOff, err := scanOneOff(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.OneOff{}, persistence.ErrNotFound
		}
		return persistence.OneOff{}, r.mapper.MapError(err)
	}
	return oneOff, nil
}

func (r *OneOffRepository) PutOneOff(ctx context.Context, oneOff persistence.OneOff) error {
	if oneOff.ID == uuid.Nil {
		return persistence.ErrConstraintViolation
	}
	if err := checkNanos(oneOff.StartNanos, oneOff.EndNanos); err != nil {
		return err
	}
	query := `
		INSERT INTO one_offs (` + oneOffColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			start_ns = excluded.start_ns,
			end_ns = excluded.end_ns,
			title = excluded.title,
			notes = excluded.notes,
			link = excluded.link,
			host_id = excluded.host_id,
			status = excluded.status,
			color = excluded.color`

	_, err := r.helper.Exec(ctx, query,
		oneOff.ID.String(),
		int64(oneOff.StartNanos),
		int64(oneOff.EndNanos),
		oneOff.Title,
		oneOff.Notes,
		oneOff.Link,
		optionalString(oneOff.Host),
		oneOff.Status,
		oneOff.Color,
		formatTime(oneOff.CreatedAt),
		oneOff.CreatedBy,
	)
	return r.mapper.MapError(err)
}

func (r *OneOffRepository) ListOneOffs(ctx context.Context, start, end uint64) ([]persistence.OneOff, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT `+oneOffColumns+` FROM one_offs WHERE start_ns >= ? AND start_ns < ? ORDER BY start_ns ASC, id ASC`,
		boundNanos(start), boundNanos(end))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var out []persistence.OneOff
	for rows.Next() {
		oneOff, err := scanOneOff(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		out = append(out, oneOff)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

func scanOneOff(row scanner) (persistence.OneOff, error) {
	var (
		oneOff     persistence.OneOff
		id         string
		start, end int64
		host       sql.NullString
		createdAt  string
	)
	if err := row.Scan(
		&id,
		&start,
		&end,
		&oneOff.Title,
		&oneOff.Notes,
		&oneOff.Link,
		&host,
		&oneOff.Status,
		&oneOff.Color,
		&createdAt,
		&oneOff.CreatedBy,
	); err != nil {
		return persistence.OneOff{}, err
	}

	var err error
	if oneOff.ID, err = parseUUID("one_offs.id", id); err != nil {
		return persistence.OneOff{}, err
	}
	if oneOff.CreatedAt, err = parseTime("one_offs.created_at", createdAt); err != nil {
		return persistence.OneOff{}, err
	}
	oneOff.StartNanos = uint64(start)
	oneOff.EndNanos = uint64(end)
	oneOff.Host = scannedString(host)
	return oneOff, nil
}
