package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/storage"
)

// testHashParams keeps argon2id cheap enough for unit tests.
var testHashParams = application.Argon2idParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator(0xf0),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator(0xf0)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services is a fully wired application layer over one set of repositories.
type Services struct {
	Repos         storage.Repositories
	Materializer  *application.Materializer
	Notifications *application.NotificationService
	Coverage      *application.CoverageService
	Events        *application.EventService
	Series        *application.SeriesService
	Settings      *application.SettingsService
	Users         *application.UserService
	Tokens        *application.TokenService
}

// NewServices wires every application service onto repos the same way the
// server does.
func (f *ServiceFactory) NewServices(repos storage.Repositories) *Services {
	now := f.Clock.NowFunc()
	idGen := f.IDGenerator.NextFunc()
	logger := f.Logger

	materializer := application.NewMaterializerWithLogger(repos.Series, repos.Exceptions, repos.OneOffs, repos.Settings, now, logger)
	notifications := application.NewNotificationServiceWithLogger(repos.Users, repos.Notifications, materializer, idGen, now, logger)

	return &Services{
		Repos:         repos,
		Materializer:  materializer,
		Notifications: notifications,
		Coverage:      application.NewCoverageServiceWithLogger(materializer, repos.Exceptions, repos.OneOffs, repos.Users, repos.Settings, notifications, now, logger),
		Events:        application.NewEventServiceWithLogger(materializer, repos.Exceptions, repos.OneOffs, repos.Users, repos.Settings, notifications, idGen, now, logger),
		Series:        application.NewSeriesServiceWithLogger(repos.Series, repos.Settings, idGen, now, logger),
		Settings:      application.NewSettingsService(repos.Settings, now, logger),
		Users:         application.NewUserServiceWithLogger(repos.Users, now, logger),
		Tokens: application.NewTokenService(repos.Tokens, repos.Users, idGen, now,
			application.WithHashParams(testHashParams),
			application.WithTokenLogger(logger),
		),
	}
}
