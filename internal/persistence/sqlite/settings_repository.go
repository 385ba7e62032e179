package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/officehours/internal/persistence"
)

// SettingsRepository stores the settings singleton in row id 1.
type SettingsRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSettingsRepository creates a settings repository over pool.
func NewSettingsRepository(pool *ConnectionPool) *SettingsRepository {
	return &SettingsRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

func (r *SettingsRepository) GetSettings(ctx context.Context) (persistence.Settings, error) {
	var (
		settings  persistence.Settings
		updatedAt string
	)
	err := r.helper.QueryRow(ctx, `
		SELECT forward_window_months, claims_paused, default_duration_minutes,
			org_name, org_timezone_label, updated_at, updated_by
		FROM settings WHERE id = 1`).Scan(
		&settings.ForwardWindowMonths,
		&settings.ClaimsPaused,
		&settings.DefaultDurationMinutes,
		&settings.OrgName,
		&settings.OrgTimezoneLabel,
		&updatedAt,
		&settings.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Settings{}, persistence.ErrNotFound
		}
		return persistence.Settings{}, r.mapper.MapError(err)
	}
	if settings.UpdatedAt, err = parseTime("settings.updated_at", updatedAt); err != nil {
		return persistence.Settings{}, err
	}
	return settings, nil
}

func (r *SettingsRepository) PutSettings(ctx context.Context, settings persistence.Settings) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO settings (id, forward_window_months, claims_paused, default_duration_minutes,
			org_name, org_timezone_label, updated_at, updated_by)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			forward_window_months = excluded.forward_window_months,
			claims_paused = excluded.claims_paused,
			default_duration_minutes = excluded.default_duration_minutes,
			org_name = excluded.org_name,
			org_timezone_label = excluded.org_timezone_label,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`,
		settings.ForwardWindowMonths,
		settings.ClaimsPaused,
		settings.DefaultDurationMinutes,
		settings.OrgName,
		settings.OrgTimezoneLabel,
		formatTime(settings.UpdatedAt),
		settings.UpdatedBy,
	)
	return r.mapper.MapError(err)
}
