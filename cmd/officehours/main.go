package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/config"
	"github.com/example/officehours/internal/dispatch"
	httptransport "github.com/example/officehours/internal/http"
	"github.com/example/officehours/internal/logging"
	"github.com/example/officehours/internal/persistence"
	"github.com/example/officehours/internal/persistence/memory"
	"github.com/example/officehours/internal/persistence/sqlite"
	"github.com/example/officehours/internal/persistence/sqlite/migration"
	"github.com/example/officehours/internal/recurrence"
	"github.com/example/officehours/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to build logger", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	srv, err := newServer(ctx, cfg, time.Now, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := srv.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	runnerCtx, cancelRunner := context.WithCancel(ctx)
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		srv.runner.Run(runnerCtx)
	}()
	defer func() {
		cancelRunner()
		<-runnerDone
	}()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("office hours API listening", "addr", server.Addr, "storage", cfg.Storage)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// server holds everything main wires together. It is separate from run so
// tests can drive the handler without a listener.
type server struct {
	handler  http.Handler
	runner   *dispatch.Runner
	users    *application.UserService
	tokens   *application.TokenService
	notifier *application.NotificationService
	closer   io.Closer
}

func (s *server) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		return memory.New(), nil
	case config.StorageSQLite, "":
		store, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

func newServer(ctx context.Context, cfg config.Config, now func() time.Time, logger *slog.Logger) (*server, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	repos := storage.New(store)
	newID := recurrence.NewSequence(now).Next

	materializer := application.NewMaterializerWithLogger(repos.Series, repos.Exceptions, repos.OneOffs, repos.Settings, now, logger)
	notifications := application.NewNotificationServiceWithLogger(repos.Users, repos.Notifications, materializer, newID, now, logger)
	coverageService := application.NewCoverageServiceWithLogger(materializer, repos.Exceptions, repos.OneOffs, repos.Users, repos.Settings, notifications, now, logger)
	eventService := application.NewEventServiceWithLogger(materializer, repos.Exceptions, repos.OneOffs, repos.Users, repos.Settings, notifications, newID, now, logger)
	seriesService := application.NewSeriesServiceWithLogger(repos.Series, repos.Settings, newID, now, logger)
	settingsService := application.NewSettingsService(repos.Settings, now, logger)
	userService := application.NewUserServiceWithLogger(repos.Users, now, logger)
	tokenService := application.NewTokenService(repos.Tokens, repos.Users, newID, now,
		application.WithTokenCacheTTL(cfg.TokenCacheTTL),
		application.WithTokenLogger(logger),
	)

	if cfg.BootstrapAdminID != "" {
		created, err := userService.Bootstrap(ctx, application.UserInput{
			ID:    cfg.BootstrapAdminID,
			Name:  cfg.BootstrapAdminName,
			Email: cfg.BootstrapAdminEmail,
			Role:  application.RoleAdmin,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
		if created {
			logger.Info("bootstrapped admin user", "user_id", cfg.BootstrapAdminID)
		}
	}

	serializer := httptransport.NewSerializer()
	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Authenticator: tokenService,
		Serializer:    serializer,
		Events:        httptransport.NewEventHandler(eventService, coverageService, materializer, logger),
		Series:        httptransport.NewSeriesHandler(seriesService, logger),
		Users:         httptransport.NewUserHandler(userService, logger),
		Tokens:        httptransport.NewTokenHandler(tokenService, logger),
		Settings:      httptransport.NewSettingsHandler(settingsService, logger),
		Notifications: httptransport.NewNotificationHandler(notifications, logger),
		Logger:        logger,
		Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	runner, err := dispatch.NewRunner(dispatch.Config{
		DispatchSpec: cfg.DispatchCron,
		ReminderSpec: cfg.ReminderCron,
		BatchSize:    cfg.DispatchBatch,
	}, notifications, dispatch.LogSender{Logger: logger}, serializer, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &server{
		handler:  handler,
		runner:   runner,
		users:    userService,
		tokens:   tokenService,
		notifier: notifications,
		closer:   store,
	}, nil
}
