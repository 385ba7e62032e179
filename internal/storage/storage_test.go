package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/persistence"
	"github.com/example/officehours/internal/persistence/memory"
	"github.com/example/officehours/internal/recurrence"
	"github.com/example/officehours/internal/storage"
)

func TestSeriesRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := storage.New(memory.New())
	end := recurrence.FromDate(2024, 6, 1)
	series := application.Series{
		ID:              uuid.New(),
		Title:           "Last Friday review",
		Frequency:       recurrence.FrequencyMonthly,
		Weekday:         recurrence.Friday,
		Ordinal:         recurrence.OrdinalLast,
		Start:           recurrence.FromDate(2024, 1, 26) + 14*recurrence.Hour,
		End:             &end,
		DurationMinutes: 45,
		CreatedAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repos.Series.PutSeries(ctx, series); err != nil {
		t.Fatalf("PutSeries failed: %v", err)
	}

	got, err := repos.Series.GetSeries(ctx, series.ID)
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if got.Frequency != recurrence.FrequencyMonthly || got.Ordinal != recurrence.OrdinalLast || got.Weekday != recurrence.Friday {
		t.Fatalf("rule fields not preserved: %+v", got)
	}
	if got.End == nil || *got.End != end || got.Start != series.Start {
		t.Fatalf("window not preserved: %+v", got)
	}
}

func TestSeriesRejectsCorruptRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	id := uuid.New()
	if err := store.PutSeries(ctx, persistence.Series{ID: id, Title: "bad", Frequency: "daily", DurationMinutes: 30}); err != nil {
		t.Fatalf("PutSeries failed: %v", err)
	}

	repos := storage.New(store)
	if _, err := repos.Series.GetSeries(ctx, id); !errors.Is(err, recurrence.ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
	if _, err := repos.Series.ListSeries(ctx); !errors.Is(err, recurrence.ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency from list, got %v", err)
	}
}

func TestExceptionKeyedByOccurrence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := storage.New(memory.New())
	key := recurrence.OccurrenceKey{SeriesID: uuid.New(), Start: recurrence.FromDate(2024, 1, 3) + 15*recurrence.Hour}
	moved := key.Start + 30*recurrence.Minute
	host := "alice"

	if err := repos.Exceptions.PutException(ctx, application.Exception{Key: key, StartOverride: &moved, Host: &host}); err != nil {
		t.Fatalf("PutException failed: %v", err)
	}

	got, err := repos.Exceptions.GetException(ctx, key)
	if err != nil {
		t.Fatalf("GetException failed: %v", err)
	}
	if got.Key != key || got.StartOverride == nil || *got.StartOverride != moved || got.Host == nil || *got.Host != host {
		t.Fatalf("unexpected exception %+v", got)
	}

	listed, err := repos.Exceptions.ListExceptions(ctx, key.SeriesID)
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one exception, got %d, %v", len(listed), err)
	}
}

func TestUserConversion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := storage.New(memory.New())
	user := application.User{
		ID:            "bob",
		Name:          "Bob",
		Email:         "bob@example.com",
		Role:          application.RoleAdmin,
		Status:        application.UserStatusActive,
		OutOfOffice:   []application.OutOfOfficeBlock{{Start: 10 * recurrence.Day, End: 12 * recurrence.Day}},
		Notifications: application.DefaultNotificationSettings(),
	}
	if err := repos.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := repos.Users.GetUser(ctx, "bob")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !got.IsAdmin() || len(got.OutOfOffice) != 1 || got.OutOfOffice[0].End != 12*recurrence.Day {
		t.Fatalf("unexpected user %+v", got)
	}
	if got.Notifications != application.DefaultNotificationSettings() {
		t.Fatalf("notification settings not preserved: %+v", got.Notifications)
	}
}

func TestNotFoundPassesThrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := storage.New(memory.New())

	if _, err := repos.Settings.GetSettings(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound for settings, got %v", err)
	}
	if _, err := repos.OneOffs.GetOneOff(ctx, uuid.New()); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound for one-off, got %v", err)
	}
	if _, err := repos.Tokens.GetToken(ctx, uuid.New()); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound for token, got %v", err)
	}
}

func TestNotificationKindsAndStatuses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := storage.New(memory.New())
	instance := uuid.New()
	job := application.NotificationJob{
		ID:         uuid.New(),
		CreatedAt:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Kind:       application.NotificationHostAssigned,
		Recipient:  "alice",
		Status:     application.NotificationPending,
		InstanceID: &instance,
	}
	if err := repos.Notifications.PutNotification(ctx, job); err != nil {
		t.Fatalf("PutNotification failed: %v", err)
	}

	pending, err := repos.Notifications.ListNotifications(ctx, application.NotificationPending, 10)
	if err != nil || len(pending) != 1 || pending[0].Kind != application.NotificationHostAssigned {
		t.Fatalf("unexpected pending jobs %+v, %v", pending, err)
	}
	found, err := repos.Notifications.HasNotification(ctx, "alice", instance, application.NotificationHostAssigned)
	if err != nil || !found {
		t.Fatalf("expected HasNotification to match, got %v, %v", found, err)
	}
}
