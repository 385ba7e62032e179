package application

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/persistence"
	"github.com/example/officehours/internal/recurrence"
)

// SeriesRepository stores recurring series.
type SeriesRepository interface {
	GetSeries(ctx context.Context, id uuid.UUID) (Series, error)
	PutSeries(ctx context.Context, series Series) error
	DeleteSeries(ctx context.Context, id uuid.UUID) error
	ListSeries(ctx context.Context) ([]Series, error)
}

// ExceptionRepository stores per-occurrence overlays keyed by occurrence.
type ExceptionRepository interface {
	GetException(ctx context.Context, key recurrence.OccurrenceKey) (Exception, error)
	PutException(ctx context.Context, exception Exception) error
	// ListExceptions range-scans every exception of one series.
	ListExceptions(ctx context.Context, seriesID uuid.UUID) ([]Exception, error)
}

// OneOffRepository stores standalone sessions.
type OneOffRepository interface {
	GetOneOff(ctx context.Context, id uuid.UUID) (OneOff, error)
	PutOneOff(ctx context.Context, oneOff OneOff) error
	// ListOneOffs returns one-offs whose start lies in [start, end).
	ListOneOffs(ctx context.Context, start, end recurrence.Instant) ([]OneOff, error)
}

// UserRepository stores the user directory.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	PutUser(ctx context.Context, user User) error
	ListUsers(ctx context.Context) ([]User, error)
}

// SettingsRepository stores the global settings singleton.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (GlobalSettings, error)
	PutSettings(ctx context.Context, settings GlobalSettings) error
}

// NotificationRepository stores the notification outbox.
type NotificationRepository interface {
	PutNotification(ctx context.Context, job NotificationJob) error
	GetNotification(ctx context.Context, id uuid.UUID) (NotificationJob, error)
	ListNotifications(ctx context.Context, status NotificationStatus, limit int) ([]NotificationJob, error)
	HasNotification(ctx context.Context, recipient string, instanceID uuid.UUID, kind NotificationKind) (bool, error)
}

// TokenRepository stores issued access tokens.
type TokenRepository interface {
	PutToken(ctx context.Context, token AccessToken) error
	GetToken(ctx context.Context, id uuid.UUID) (AccessToken, error)
	ListTokens(ctx context.Context, userID string) ([]AccessToken, error)
}

// mapRepoError translates persistence sentinels into application sentinels.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) || errors.Is(err, persistence.ErrForeignKeyViolation) {
		return newValidationError("record", "violates a storage constraint")
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

// loadSettings returns the stored settings or the defaults when none exist.
func loadSettings(ctx context.Context, repo SettingsRepository) (GlobalSettings, error) {
	if repo == nil {
		return DefaultGlobalSettings(), nil
	}
	settings, err := repo.GetSettings(ctx)
	if err != nil {
		if isNotFound(err) {
			return DefaultGlobalSettings(), nil
		}
		return GlobalSettings{}, err
	}
	return settings, nil
}
