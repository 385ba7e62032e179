// Package storage adapts a persistence.Store to the repository interfaces of
// the application layer, converting between storage records and domain
// types.
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/persistence"
	"github.com/example/officehours/internal/recurrence"
)

// Repositories bundles the application repositories backed by one store.
type Repositories struct {
	Series        application.SeriesRepository
	Exceptions    application.ExceptionRepository
	OneOffs       application.OneOffRepository
	Users         application.UserRepository
	Settings      application.SettingsRepository
	Notifications application.NotificationRepository
	Tokens        application.TokenRepository
}

// New wires every application repository onto store.
func New(store persistence.Store) Repositories {
	return Repositories{
		Series:        &seriesRepository{repo: store},
		Exceptions:    &exceptionRepository{repo: store},
		OneOffs:       &oneOffRepository{repo: store},
		Users:         &userRepository{repo: store},
		Settings:      &settingsRepository{repo: store},
		Notifications: &notificationRepository{repo: store},
		Tokens:        &tokenRepository{repo: store},
	}
}

type seriesRepository struct {
	repo persistence.SeriesRepository
}

func (a *seriesRepository) GetSeries(ctx context.Context, id uuid.UUID) (application.Series, error) {
	model, err := a.repo.GetSeries(ctx, id)
	if err != nil {
		return application.Series{}, err
	}
	return toApplicationSeries(model)
}

func (a *seriesRepository) PutSeries(ctx context.Context, series application.Series) error {
	return a.repo.PutSeries(ctx, toPersistenceSeries(series))
}

func (a *seriesRepository) DeleteSeries(ctx context.Context, id uuid.UUID) error {
	return a.repo.DeleteSeries(ctx, id)
}

func (a *seriesRepository) ListSeries(ctx context.Context) ([]application.Series, error) {
	models, err := a.repo.ListSeries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.Series, 0, len(models))
	for _, model := range models {
		series, err := toApplicationSeries(model)
		if err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, nil
}

type exceptionRepository struct {
	repo persistence.ExceptionRepository
}

func (a *exceptionRepository) GetException(ctx context.Context, key recurrence.OccurrenceKey) (application.Exception, error) {
	model, err := a.repo.GetException(ctx, key.SeriesID, uint64(key.Start))
	if err != nil {
		return application.Exception{}, err
	}
	return toApplicationException(model), nil
}

func (a *exceptionRepository) PutException(ctx context.Context, exception application.Exception) error {
	return a.repo.PutException(ctx, toPersistenceException(exception))
}

func (a *exceptionRepository) ListExceptions(ctx context.Context, seriesID uuid.UUID) ([]application.Exception, error) {
	models, err := a.repo.ListExceptions(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	out := make([]application.Exception, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationException(model))
	}
	return out, nil
}

type oneOffRepository struct {
	repo persistence.OneOffRepository
}

func (a *oneOffRepository) GetOneOff(ctx context.Context, id uuid.UUID) (application.OneOff, error) {
	model, err := a.repo.GetOneOff(ctx, id)
	if err != nil {
		return application.OneOff{}, err
	}
	return toApplicationOneOff(model), nil
}

func (a *oneOffRepository) PutOneOff(ctx context.Context, oneOff application.OneOff) error {
	return a.repo.PutOneOff(ctx, toPersistenceOneOff(oneOff))
}

func (a *oneOffRepository) ListOneOffs(ctx context.Context, start, end recurrence.Instant) ([]application.OneOff, error) {
	models, err := a.repo.ListOneOffs(ctx, uint64(start), uint64(end))
	if err != nil {
		return nil, err
	}
	out := make([]application.OneOff, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationOneOff(model))
	}
	return out, nil
}

type userRepository struct {
	repo persistence.UserRepository
}

func (a *userRepository) CreateUser(ctx context.Context, user application.User) error {
	return a.repo.CreateUser(ctx, toPersistenceUser(user))
}

func (a *userRepository) GetUser(ctx context.Context, id string) (application.User, error) {
	model, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(model), nil
}

func (a *userRepository) PutUser(ctx context.Context, user application.User) error {
	return a.repo.PutUser(ctx, toPersistenceUser(user))
}

func (a *userRepository) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.User, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationUser(model))
	}
	return out, nil
}

type settingsRepository struct {
	repo persistence.SettingsRepository
}

func (a *settingsRepository) GetSettings(ctx context.Context) (application.GlobalSettings, error) {
	model, err := a.repo.GetSettings(ctx)
	if err != nil {
		return application.GlobalSettings{}, err
	}
	return application.GlobalSettings{
		ForwardWindowMonths:    model.ForwardWindowMonths,
		ClaimsPaused:           model.ClaimsPaused,
		DefaultDurationMinutes: model.DefaultDurationMinutes,
		OrgName:                model.OrgName,
		OrgTimezoneLabel:       model.OrgTimezoneLabel,
		UpdatedAt:              model.UpdatedAt,
		UpdatedBy:              model.UpdatedBy,
	}, nil
}

func (a *settingsRepository) PutSettings(ctx context.Context, settings application.GlobalSettings) error {
	return a.repo.PutSettings(ctx, persistence.Settings{
		ForwardWindowMonths:    settings.ForwardWindowMonths,
		ClaimsPaused:           settings.ClaimsPaused,
		DefaultDurationMinutes: settings.DefaultDurationMinutes,
		OrgName:                settings.OrgName,
		OrgTimezoneLabel:       settings.OrgTimezoneLabel,
		UpdatedAt:              settings.UpdatedAt,
		UpdatedBy:              settings.UpdatedBy,
	})
}

type notificationRepository struct {
	repo persistence.NotificationRepository
}

func (a *notificationRepository) PutNotification(ctx context.Context, job application.NotificationJob) error {
	return a.repo.PutNotification(ctx, persistence.Notification{
		ID:             job.ID,
		CreatedAt:      job.CreatedAt,
		Kind:           string(job.Kind),
		Recipient:      job.Recipient,
		RecipientEmail: job.RecipientEmail,
		Subject:        job.Subject,
		Body:           job.Body,
		ICS:            job.ICS,
		InstanceID:     cloneUUID(job.InstanceID),
		Status:         string(job.Status),
		Attempts:       job.Attempts,
		SentAt:         cloneTime(job.SentAt),
		Error:          job.Error,
	})
}

func (a *notificationRepository) GetNotification(ctx context.Context, id uuid.UUID) (application.NotificationJob, error) {
	model, err := a.repo.GetNotification(ctx, id)
	if err != nil {
		return application.NotificationJob{}, err
	}
	return toApplicationNotification(model), nil
}

func (a *notificationRepository) ListNotifications(ctx context.Context, status application.NotificationStatus, limit int) ([]application.NotificationJob, error) {
	models, err := a.repo.ListNotifications(ctx, string(status), limit)
	if err != nil {
		return nil, err
	}
	out := make([]application.NotificationJob, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationNotification(model))
	}
	return out, nil
}

func (a *notificationRepository) HasNotification(ctx context.Context, recipient string, instanceID uuid.UUID, kind application.NotificationKind) (bool, error) {
	return a.repo.HasNotification(ctx, recipient, instanceID, string(kind))
}

type tokenRepository struct {
	repo persistence.TokenRepository
}

func (a *tokenRepository) PutToken(ctx context.Context, token application.AccessToken) error {
	return a.repo.PutToken(ctx, persistence.Token{
		ID:         token.ID,
		UserID:     token.UserID,
		SecretHash: token.SecretHash,
		Label:      token.Label,
		CreatedAt:  token.CreatedAt,
		LastUsedAt: cloneTime(token.LastUsedAt),
		RevokedAt:  cloneTime(token.RevokedAt),
	})
}

func (a *tokenRepository) GetToken(ctx context.Context, id uuid.UUID) (application.AccessToken, error) {
	model, err := a.repo.GetToken(ctx, id)
	if err != nil {
		return application.AccessToken{}, err
	}
	return toApplicationToken(model), nil
}

func (a *tokenRepository) ListTokens(ctx context.Context, userID string) ([]application.AccessToken, error) {
	models, err := a.repo.ListTokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]application.AccessToken, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationToken(model))
	}
	return out, nil
}

func toApplicationSeries(model persistence.Series) (application.Series, error) {
	frequency, err := recurrence.ParseFrequency(model.Frequency)
	if err != nil {
		return application.Series{}, fmt.Errorf("series %s: %w", model.ID, err)
	}
	ordinal, err := recurrence.ParseOrdinal(model.Ordinal)
	if err != nil {
		return application.Series{}, fmt.Errorf("series %s: %w", model.ID, err)
	}
	return application.Series{
		ID:              model.ID,
		Title:           model.Title,
		Notes:           model.Notes,
		Link:            model.Link,
		Frequency:       frequency,
		Weekday:         recurrence.Weekday(model.Weekday),
		Ordinal:         ordinal,
		Start:           recurrence.Instant(model.StartNanos),
		End:             toInstant(model.EndNanos),
		DurationMinutes: model.DurationMinutes,
		Color:           model.Color,
		Paused:          model.Paused,
		CreatedAt:       model.CreatedAt,
		CreatedBy:       model.CreatedBy,
	}, nil
}

func toPersistenceSeries(series application.Series) persistence.Series {
	return persistence.Series{
		ID:              series.ID,
		Title:           series.Title,
		Notes:           series.Notes,
		Link:            series.Link,
		Frequency:       series.Frequency.String(),
		Weekday:         int(series.Weekday),
		Ordinal:         series.Ordinal.String(),
		StartNanos:      uint64(series.Start),
		EndNanos:        toNanos(series.End),
		DurationMinutes: series.DurationMinutes,
		Color:           series.Color,
		Paused:          series.Paused,
		CreatedAt:       series.CreatedAt,
		CreatedBy:       series.CreatedBy,
	}
}

func toApplicationException(model persistence.Exception) application.Exception {
	return application.Exception{
		Key:           recurrence.OccurrenceKey{SeriesID: model.SeriesID, Start: recurrence.Instant(model.OccurrenceNanos)},
		StartOverride: toInstant(model.StartNanos),
		EndOverride:   toInstant(model.EndNanos),
		NotesOverride: cloneString(model.Notes),
		Host:          cloneString(model.Host),
		HostCleared:   model.HostCleared,
		Cancelled:     model.Cancelled,
		UpdatedAt:     model.UpdatedAt,
		UpdatedBy:     model.UpdatedBy,
	}
}

func toPersistenceException(exception application.Exception) persistence.Exception {
	return persistence.Exception{
		SeriesID:        exception.Key.SeriesID,
		OccurrenceNanos: uint64(exception.Key.Start),
		StartNanos:      toNanos(exception.StartOverride),
		EndNanos:        toNanos(exception.EndOverride),
		Notes:           cloneString(exception.NotesOverride),
		Host:            cloneString(exception.Host),
		HostCleared:     exception.HostCleared,
		Cancelled:       exception.Cancelled,
		UpdatedAt:       exception.UpdatedAt,
		UpdatedBy:       exception.UpdatedBy,
	}
}

func toApplicationOneOff(model persistence.OneOff) application.OneOff {
	return application.OneOff{
		ID:        model.ID,
		Start:     recurrence.Instant(model.StartNanos),
		End:       recurrence.Instant(model.EndNanos),
		Title:     model.Title,
		Notes:     model.Notes,
		Link:      model.Link,
		Host:      cloneString(model.Host),
		Status:    application.SessionStatus(model.Status),
		Color:     model.Color,
		CreatedAt: model.CreatedAt,
		CreatedBy: model.CreatedBy,
	}
}

func toPersistenceOneOff(oneOff application.OneOff) persistence.OneOff {
	return persistence.OneOff{
		ID:         oneOff.ID,
		StartNanos: uint64(oneOff.Start),
		EndNanos:   uint64(oneOff.End),
		Title:      oneOff.Title,
		Notes:      oneOff.Notes,
		Link:       oneOff.Link,
		Host:       cloneString(oneOff.Host),
		Status:     string(oneOff.Status),
		Color:      oneOff.Color,
		CreatedAt:  oneOff.CreatedAt,
		CreatedBy:  oneOff.CreatedBy,
	}
}

func toApplicationUser(model persistence.User) application.User {
	blocks := make([]application.OutOfOfficeBlock, 0, len(model.OutOfOffice))
	for _, block := range model.OutOfOffice {
		blocks = append(blocks, application.OutOfOfficeBlock{
			Start: recurrence.Instant(block.StartNanos),
			End:   recurrence.Instant(block.EndNanos),
		})
	}
	return application.User{
		ID:          model.ID,
		Name:        model.Name,
		Email:       model.Email,
		Role:        application.Role(model.Role),
		Status:      application.UserStatus(model.Status),
		OutOfOffice: blocks,
		Notifications: application.NotificationSettings{
			EmailOnAssigned:          model.Notifications.EmailOnAssigned,
			EmailOnRemoved:           model.Notifications.EmailOnRemoved,
			EmailOnCancelled:         model.Notifications.EmailOnCancelled,
			EmailOnTimeChanged:       model.Notifications.EmailOnTimeChanged,
			EmailOnUnclaimedReminder: model.Notifications.EmailOnUnclaimedReminder,
			ReminderHoursBefore:      model.Notifications.ReminderHoursBefore,
		},
		LastActive:     cloneTime(model.LastActive),
		SessionsHosted: model.SessionsHosted,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User) persistence.User {
	blocks := make([]persistence.OutOfOfficeBlock, 0, len(user.OutOfOffice))
	for _, block := range user.OutOfOffice {
		blocks = append(blocks, persistence.OutOfOfficeBlock{
			StartNanos: uint64(block.Start),
			EndNanos:   uint64(block.End),
		})
	}
	return persistence.User{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        string(user.Role),
		Status:      string(user.Status),
		OutOfOffice: blocks,
		Notifications: persistence.NotificationSettings{
			EmailOnAssigned:          user.Notifications.EmailOnAssigned,
			EmailOnRemoved:           user.Notifications.EmailOnRemoved,
			EmailOnCancelled:         user.Notifications.EmailOnCancelled,
			EmailOnTimeChanged:       user.Notifications.EmailOnTimeChanged,
			EmailOnUnclaimedReminder: user.Notifications.EmailOnUnclaimedReminder,
			ReminderHoursBefore:      user.Notifications.ReminderHoursBefore,
		},
		LastActive:     cloneTime(user.LastActive),
		SessionsHosted: user.SessionsHosted,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

func toApplicationNotification(model persistence.Notification) application.NotificationJob {
	return application.NotificationJob{
		ID:             model.ID,
		CreatedAt:      model.CreatedAt,
		Kind:           application.NotificationKind(model.Kind),
		Recipient:      model.Recipient,
		RecipientEmail: model.RecipientEmail,
		Subject:        model.Subject,
		Body:           model.Body,
		ICS:            model.ICS,
		InstanceID:     cloneUUID(model.InstanceID),
		Status:         application.NotificationStatus(model.Status),
		Attempts:       model.Attempts,
		SentAt:         cloneTime(model.SentAt),
		Error:          model.Error,
	}
}

func toApplicationToken(model persistence.Token) application.AccessToken {
	return application.AccessToken{
		ID:         model.ID,
		UserID:     model.UserID,
		SecretHash: model.SecretHash,
		Label:      model.Label,
		CreatedAt:  model.CreatedAt,
		LastUsedAt: cloneTime(model.LastUsedAt),
		RevokedAt:  cloneTime(model.RevokedAt),
	}
}
