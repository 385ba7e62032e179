// Package sqlite implements persistence.Store on modernc.org/sqlite.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/officehours/internal/persistence"
	"github.com/example/officehours/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// Store bundles the SQLite repositories over one connection pool.
type Store struct {
	*SeriesRepository
	*ExceptionRepository
	*OneOffRepository
	*UserRepository
	*SettingsRepository
	*NotificationRepository
	*TokenRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database described by config. Call Migrate before
// using the repositories.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	pool.retry.logger = logger

	return &Store{
		SeriesRepository:       NewSeriesRepository(pool),
		ExceptionRepository:    NewExceptionRepository(pool),
		OneOffRepository:       NewOneOffRepository(pool),
		UserRepository:         NewUserRepository(pool),
		SettingsRepository:     NewSettingsRepository(pool),
		NotificationRepository: NewNotificationRepository(pool),
		TokenRepository:        NewTokenRepository(pool),
		pool:                   pool,
		logger:                 logger,
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationFiles,
		migrationDir,
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
