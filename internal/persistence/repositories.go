package persistence

import (
	"context"

	"github.com/google/uuid"
)

// SeriesRepository stores recurring series.
type SeriesRepository interface {
	GetSeries(ctx context.Context, id uuid.UUID) (Series, error)
	PutSeries(ctx context.Context, series Series) error
	DeleteSeries(ctx context.Context, id uuid.UUID) error
	ListSeries(ctx context.Context) ([]Series, error)
}

// ExceptionRepository stores per-occurrence overlays.
type ExceptionRepository interface {
	GetException(ctx context.Context, seriesID uuid.UUID, occurrence uint64) (Exception, error)
	PutException(ctx context.Context, exception Exception) error
	// ListExceptions returns every exception of the series ordered by
	// occurrence.
	ListExceptions(ctx context.Context, seriesID uuid.UUID) ([]Exception, error)
}

// OneOffRepository stores standalone sessions.
type OneOffRepository interface {
	GetOneOff(ctx context.Context, id uuid.UUID) (OneOff, error)
	PutOneOff(ctx context.Context, oneOff OneOff) error
	// ListOneOffs returns one-offs starting in [start, end) ordered by start.
	ListOneOffs(ctx context.Context, start, end uint64) ([]OneOff, error)
}

// UserRepository exposes the user directory.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	PutUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// SettingsRepository stores the settings singleton. GetSettings returns
// ErrNotFound until the first PutSettings.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (Settings, error)
	PutSettings(ctx context.Context, settings Settings) error
}

// NotificationRepository stores the notification outbox.
type NotificationRepository interface {
	PutNotification(ctx context.Context, notification Notification) error
	GetNotification(ctx context.Context, id uuid.UUID) (Notification, error)
	// ListNotifications returns jobs in the given status, oldest first. A
	// non-positive limit means no limit.
	ListNotifications(ctx context.Context, status string, limit int) ([]Notification, error)
	HasNotification(ctx context.Context, recipient string, instanceID uuid.UUID, kind string) (bool, error)
}

// TokenRepository stores access tokens.
type TokenRepository interface {
	PutToken(ctx context.Context, token Token) error
	GetToken(ctx context.Context, id uuid.UUID) (Token, error)
	ListTokens(ctx context.Context, userID string) ([]Token, error)
}

// Store groups every repository a backend provides.
type Store interface {
	SeriesRepository
	ExceptionRepository
	OneOffRepository
	UserRepository
	SettingsRepository
	NotificationRepository
	TokenRepository

	Close() error
}
