package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/officehours/internal/logging"
)

// SettingsPatch lists the mutable global settings. Nil leaves a field unchanged.
type SettingsPatch struct {
	ForwardWindowMonths    *int
	ClaimsPaused           *bool
	DefaultDurationMinutes *uint32
	OrgName                *string
	OrgTimezoneLabel       *string
}

// SettingsService reads and updates the global settings singleton.
type SettingsService struct {
	settings SettingsRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewSettingsService constructs a settings service with the provided dependencies.
func NewSettingsService(settings SettingsRepository, now func() time.Time, logger *slog.Logger) *SettingsService {
	if now == nil {
		now = time.Now
	}
	return &SettingsService{settings: settings, now: now, logger: logging.Or(logger)}
}

// GetSettings returns the current settings, or the defaults if none are stored.
func (s *SettingsService) GetSettings(ctx context.Context, principal Principal) (GlobalSettings, error) {
	if s == nil {
		return GlobalSettings{}, fmt.Errorf("SettingsService is nil")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return GlobalSettings{}, ErrUnauthorized
	}
	settings, err := loadSettings(ctx, s.settings)
	if err != nil {
		return GlobalSettings{}, mapRepoError(err)
	}
	return settings, nil
}

// UpdateSettings applies patch. Admin only.
func (s *SettingsService) UpdateSettings(ctx context.Context, principal Principal, patch SettingsPatch) (settings GlobalSettings, err error) {
	if s == nil || s.settings == nil {
		err = fmt.Errorf("SettingsService not configured")
		return
	}

	logger := logging.Scoped(ctx, s.logger, "service", "SettingsService", "UpdateSettings",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update settings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "settings updated",
			"claims_paused", settings.ClaimsPaused,
			"forward_window_months", settings.ForwardWindowMonths,
		)
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if settings, err = loadSettings(ctx, s.settings); err != nil {
		err = mapRepoError(err)
		return
	}

	vErr := &ValidationError{}
	if patch.ForwardWindowMonths != nil {
		if months := *patch.ForwardWindowMonths; months < 1 || months > 12 {
			vErr.add("forward_window_months", "must be between 1 and 12")
		} else {
			settings.ForwardWindowMonths = months
		}
	}
	if patch.ClaimsPaused != nil {
		settings.ClaimsPaused = *patch.ClaimsPaused
	}
	if patch.DefaultDurationMinutes != nil {
		if *patch.DefaultDurationMinutes == 0 {
			vErr.add("default_duration_minutes", "must be positive")
		} else {
			settings.DefaultDurationMinutes = *patch.DefaultDurationMinutes
		}
	}
	if patch.OrgName != nil {
		if name := strings.TrimSpace(*patch.OrgName); name == "" {
			vErr.add("org_name", "cannot be empty")
		} else {
			settings.OrgName = name
		}
	}
	if patch.OrgTimezoneLabel != nil {
		settings.OrgTimezoneLabel = strings.TrimSpace(*patch.OrgTimezoneLabel)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	settings.UpdatedAt = s.now()
	settings.UpdatedBy = principal.UserID
	if err = s.settings.PutSettings(ctx, settings); err != nil {
		err = mapRepoError(err)
	}
	return
}
