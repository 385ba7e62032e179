package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/persistence"
)

// NotificationRepository implements the outbox table.
type NotificationRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewNotificationRepository creates an outbox repository over pool.
func NewNotificationRepository(pool *ConnectionPool) *NotificationRepository {
	return &NotificationRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

const notificationColumns = `id, created_at, kind, recipient, recipient_email, subject, body, ics,
	instance_id, status, attempts, sent_at, error`

func (r *NotificationRepository) PutNotification(ctx context.Context, n persistence.Notification) error {
	if n.ID == uuid.Nil {
		return persistence.ErrConstraintViolation
	}
	var instanceID sql.NullString
	if n.InstanceID != nil {
		instanceID = sql.NullString{String: n.InstanceID.String(), Valid: true}
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			sent_at = excluded.sent_at,
			error = excluded.error`,
		n.ID.String(),
		formatTime(n.CreatedAt),
		n.Kind,
		n.Recipient,
		n.RecipientEmail,
		n.Subject,
		n.Body,
		n.ICS,
		instanceID,
		n.Status,
		n.Attempts,
		formatOptionalTime(n.SentAt),
		n.Error,
	)
	return r.mapper.MapError(err)
}

func (r *NotificationRepository) GetNotification(ctx context.Context, id uuid.UUID) (persistence.Notification, error) {
	n, err := scanNotification(r.helper.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Notification{}, persistence.ErrNotFound
		}
		return persistence.Notification{}, r.mapper.MapError(err)
	}
	return n, nil
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, status string, limit int) ([]persistence.Notification, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.helper.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT ?`,
		status, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var out []persistence.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

func (r *NotificationRepository) HasNotification(ctx context.Context, recipient string, instanceID uuid.UUID, kind string) (bool, error) {
	var exists int
	err := r.helper.QueryRow(ctx,
		`SELECT 1 FROM notifications WHERE recipient = ? AND instance_id = ? AND kind = ? LIMIT 1`,
		recipient, instanceID.String(), kind).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, r.mapper.MapError(err)
	}
	return true, nil
}

func scanNotification(row scanner) (persistence.Notification, error) {
	var (
		n          persistence.Notification
		id         string
		createdAt  string
		instanceID sql.NullString
		sentAt     sql.NullString
	)
	if err := row.Scan(
		&id,
		&createdAt,
		&n.Kind,
		&n.Recipient,
		&n.RecipientEmail,
		&n.Subject,
		&n.Body,
		&n.ICS,
		&instanceID,
		&n.Status,
		&n.Attempts,
		&sentAt,
		&n.Error,
	); err != nil {
		return persistence.Notification{}, err
	}

	var err error
	if n.ID, err = parseUUID("notifications.id", id); err != nil {
		return persistence.Notification{}, err
	}
	if n.CreatedAt, err = parseTime("notifications.created_at", createdAt); err != nil {
		return persistence.Notification{}, err
	}
	if n.SentAt, err = parseOptionalTime("notifications.sent_at", sentAt); err != nil {
		return persistence.Notification{}, err
	}
	if instanceID.Valid {
		parsed, err := parseUUID("notifications.instance_id", instanceID.String)
		if err != nil {
			return persistence.Notification{}, err
		}
		n.InstanceID = &parsed
	}
	return n, nil
}
