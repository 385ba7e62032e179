package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/officehours/internal/persistence"
)

// UserRepository implements persistence.UserRepository. Out-of-office
// blocks live in user_out_of_office and are replaced wholesale on write.
type UserRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const userColumns = `id, name, email, role, status, email_on_assigned, email_on_removed,
	email_on_cancelled, email_on_time_changed, email_on_unclaimed_reminder, reminder_hours_before,
	last_active, sessions_hosted, created_at, updated_at`

// CreateUser inserts a new user. Duplicate ids or emails yield
// persistence.ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := checkBlocks(user.OutOfOffice); err != nil {
		return err
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userArgs(user)...)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.replaceBlocks(ctx, tx, user)
	})
}

// PutUser replaces an existing user.
func (r *UserRepository) PutUser(ctx context.Context, user persistence.User) error {
	if err := checkBlocks(user.OutOfOffice); err != nil {
		return err
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		args := userArgs(user)
		// id moves from first to last for the WHERE clause.
		args = append(args[1:], args[0])
		result, err := tx.ExecContext(ctx, `
			UPDATE users SET
				name = ?, email = ?, role = ?, status = ?,
				email_on_assigned = ?, email_on_removed = ?, email_on_cancelled = ?,
				email_on_time_changed = ?, email_on_unclaimed_reminder = ?, reminder_hours_before = ?,
				last_active = ?, sessions_hosted = ?, created_at = ?, updated_at = ?
			WHERE id = ?`, args...)
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
		return r.replaceBlocks(ctx, tx, user)
	})
}

func checkBlocks(blocks []persistence.OutOfOfficeBlock) error {
	for _, block := range blocks {
		if err := checkNanos(block.StartNanos, block.EndNanos); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepository) replaceBlocks(ctx context.Context, tx *sql.Tx, user persistence.User) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_out_of_office WHERE user_id = ?`, user.ID); err != nil {
		return r.mapper.MapError(err)
	}
	for _, block := range user.OutOfOffice {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_out_of_office (user_id, start_ns, end_ns) VALUES (?, ?, ?)`,
			user.ID, int64(block.StartNanos), int64(block.EndNanos)); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// GetUser retrieves a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	user, err := scanUser(r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, r.mapper.MapError(err)
	}

	blocks, err := r.listBlocks(ctx, []string{id})
	if err != nil {
		return persistence.User{}, err
	}
	user.OutOfOffice = blocks[id]
	return user, nil
}

// ListUsers returns all users ordered by creation timestamp then id.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	if len(users) == 0 {
		return users, nil
	}
	ids := make([]string, len(users))
	for i, user := range users {
		ids[i] = user.ID
	}
	blocks, err := r.listBlocks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].OutOfOffice = blocks[users[i].ID]
	}
	return users, nil
}

func (r *UserRepository) listBlocks(ctx context.Context, ids []string) (map[string][]persistence.OutOfOfficeBlock, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.helper.Query(ctx,
		`SELECT user_id, start_ns, end_ns FROM user_out_of_office WHERE user_id IN (`+placeholders+`) ORDER BY user_id, start_ns`,
		args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	out := make(map[string][]persistence.OutOfOfficeBlock)
	for rows.Next() {
		var (
			userID     string
			start, end int64
		)
		if err := rows.Scan(&userID, &start, &end); err != nil {
			return nil, r.mapper.MapError(err)
		}
		out[userID] = append(out[userID], persistence.OutOfOfficeBlock{StartNanos: uint64(start), EndNanos: uint64(end)})
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

func userArgs(user persistence.User) []any {
	return []any{
		user.ID,
		user.Name,
		normalizeEmail(user.Email),
		user.Role,
		user.Status,
		user.Notifications.EmailOnAssigned,
		user.Notifications.EmailOnRemoved,
		user.Notifications.EmailOnCancelled,
		user.Notifications.EmailOnTimeChanged,
		user.Notifications.EmailOnUnclaimedReminder,
		user.Notifications.ReminderHoursBefore,
		formatOptionalTime(user.LastActive),
		int64(user.SessionsHosted),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	}
}

func scanUser(row scanner) (persistence.User, error) {
	var (
		user                 persistence.User
		lastActive           sql.NullString
		hosted               int64
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Status,
		&user.Notifications.EmailOnAssigned,
		&user.Notifications.EmailOnRemoved,
		&user.Notifications.EmailOnCancelled,
		&user.Notifications.EmailOnTimeChanged,
		&user.Notifications.EmailOnUnclaimedReminder,
		&user.Notifications.ReminderHoursBefore,
		&lastActive,
		&hosted,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.User{}, err
	}

	var err error
	if user.LastActive, err = parseOptionalTime("users.last_active", lastActive); err != nil {
		return persistence.User{}, err
	}
	if user.CreatedAt, err = parseTime("users.created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime("users.updated_at", updatedAt); err != nil {
		return persistence.User{}, err
	}
	user.SessionsHosted = uint64(hosted)
	return user, nil
}

// normalizeEmail normalizes email addresses for consistent storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
