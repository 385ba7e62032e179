package http

import (
	"time"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/recurrence"
)

type sessionDTO struct {
	InstanceID      string     `json:"instance_id"`
	SeriesID        string     `json:"series_id,omitempty"`
	OccurrenceStart *time.Time `json:"occurrence_start,omitempty"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	Title           string     `json:"title"`
	Notes           string     `json:"notes,omitempty"`
	Link            string     `json:"link,omitempty"`
	Host            *string    `json:"host,omitempty"`
	HostName        string     `json:"host_name,omitempty"`
	Status          string     `json:"status"`
	Color           string     `json:"color,omitempty"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := sessionDTO{
		InstanceID: session.InstanceID.String(),
		Start:      session.Start.Time(),
		End:        session.End.Time(),
		Title:      session.Title,
		Notes:      session.Notes,
		Link:       session.Link,
		Host:       session.Host,
		Status:     string(session.Status),
		Color:      session.Color,
	}
	if session.SeriesID != nil {
		dto.SeriesID = session.SeriesID.String()
	}
	if session.OccurrenceStart != nil {
		occurrence := session.OccurrenceStart.Time()
		dto.OccurrenceStart = &occurrence
	}
	return dto
}

func toSessionDTOs(sessions []application.Session) []sessionDTO {
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}

// sessionRefRequest addresses one session in mutation bodies. Its shape is
// checked by application.ParseSessionRef.
type sessionRefRequest struct {
	SeriesID        string     `json:"series_id"`
	OccurrenceStart *time.Time `json:"occurrence_start"`
	InstanceID      string     `json:"instance_id"`
}

func (r sessionRefRequest) toInput() application.SessionRefInput {
	return application.SessionRefInput{
		SeriesID:        r.SeriesID,
		OccurrenceStart: r.OccurrenceStart,
		InstanceID:      r.InstanceID,
	}
}

type seriesDTO struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Notes           string     `json:"notes,omitempty"`
	Link            string     `json:"link,omitempty"`
	Frequency       string     `json:"frequency"`
	Weekday         string     `json:"weekday"`
	Ordinal         string     `json:"ordinal,omitempty"`
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	DurationMinutes uint32     `json:"duration_minutes"`
	Color           string     `json:"color,omitempty"`
	Paused          bool       `json:"paused"`
	CreatedAt       time.Time  `json:"created_at"`
	CreatedBy       string     `json:"created_by,omitempty"`
}

func toSeriesDTO(series application.Series) seriesDTO {
	return seriesDTO{
		ID:              series.ID.String(),
		Title:           series.Title,
		Notes:           series.Notes,
		Link:            series.Link,
		Frequency:       series.Frequency.String(),
		Weekday:         series.Weekday.String(),
		Ordinal:         series.Ordinal.String(),
		Start:           series.Start.Time(),
		End:             instantTime(series.End),
		DurationMinutes: series.DurationMinutes,
		Color:           series.Color,
		Paused:          series.Paused,
		CreatedAt:       series.CreatedAt.UTC(),
		CreatedBy:       series.CreatedBy,
	}
}

type outOfOfficeDTO struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
}

type notificationSettingsDTO struct {
	EmailOnAssigned          bool   `json:"email_on_assigned"`
	EmailOnRemoved           bool   `json:"email_on_removed"`
	EmailOnCancelled         bool   `json:"email_on_cancelled"`
	EmailOnTimeChanged       bool   `json:"email_on_time_changed"`
	EmailOnUnclaimedReminder bool   `json:"email_on_unclaimed_reminder"`
	ReminderHoursBefore      uint32 `json:"reminder_hours_before" validate:"max=168"`
}

func (d notificationSettingsDTO) toSettings() application.NotificationSettings {
	return application.NotificationSettings{
		EmailOnAssigned:          d.EmailOnAssigned,
		EmailOnRemoved:           d.EmailOnRemoved,
		EmailOnCancelled:         d.EmailOnCancelled,
		EmailOnTimeChanged:       d.EmailOnTimeChanged,
		EmailOnUnclaimedReminder: d.EmailOnUnclaimedReminder,
		ReminderHoursBefore:      d.ReminderHoursBefore,
	}
}

type userDTO struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name"`
	Email                string                  `json:"email"`
	Role                 string                  `json:"role"`
	Status               string                  `json:"status"`
	OutOfOffice          []outOfOfficeDTO        `json:"out_of_office"`
	NotificationSettings notificationSettingsDTO `json:"notification_settings"`
	LastActive           *time.Time              `json:"last_active,omitempty"`
	SessionsHosted       uint64                  `json:"sessions_hosted"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

func toUserDTO(user application.User) userDTO {
	blocks := make([]outOfOfficeDTO, 0, len(user.OutOfOffice))
	for _, block := range user.OutOfOffice {
		blocks = append(blocks, outOfOfficeDTO{Start: block.Start.Time(), End: block.End.Time()})
	}
	n := user.Notifications
	return userDTO{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        string(user.Role),
		Status:      string(user.Status),
		OutOfOffice: blocks,
		NotificationSettings: notificationSettingsDTO{
			EmailOnAssigned:          n.EmailOnAssigned,
			EmailOnRemoved:           n.EmailOnRemoved,
			EmailOnCancelled:         n.EmailOnCancelled,
			EmailOnTimeChanged:       n.EmailOnTimeChanged,
			EmailOnUnclaimedReminder: n.EmailOnUnclaimedReminder,
			ReminderHoursBefore:      n.ReminderHoursBefore,
		},
		LastActive:     user.LastActive,
		SessionsHosted: user.SessionsHosted,
		CreatedAt:      user.CreatedAt.UTC(),
		UpdatedAt:      user.UpdatedAt.UTC(),
	}
}

type tokenDTO struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Label      string     `json:"label,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

func toTokenDTO(token application.AccessToken) tokenDTO {
	return tokenDTO{
		ID:         token.ID.String(),
		UserID:     token.UserID,
		Label:      token.Label,
		CreatedAt:  token.CreatedAt.UTC(),
		LastUsedAt: token.LastUsedAt,
		RevokedAt:  token.RevokedAt,
	}
}

type settingsDTO struct {
	ForwardWindowMonths    int       `json:"forward_window_months"`
	ClaimsPaused           bool      `json:"claims_paused"`
	DefaultDurationMinutes uint32    `json:"default_duration_minutes"`
	OrgName                string    `json:"org_name"`
	OrgTimezoneLabel       string    `json:"org_timezone_label"`
	UpdatedAt              time.Time `json:"updated_at,omitempty"`
	UpdatedBy              string    `json:"updated_by,omitempty"`
}

func toSettingsDTO(settings application.GlobalSettings) settingsDTO {
	return settingsDTO{
		ForwardWindowMonths:    settings.ForwardWindowMonths,
		ClaimsPaused:           settings.ClaimsPaused,
		DefaultDurationMinutes: settings.DefaultDurationMinutes,
		OrgName:                settings.OrgName,
		OrgTimezoneLabel:       settings.OrgTimezoneLabel,
		UpdatedAt:              settings.UpdatedAt.UTC(),
		UpdatedBy:              settings.UpdatedBy,
	}
}

type notificationDTO struct {
	ID             string     `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	Kind           string     `json:"kind"`
	Recipient      string     `json:"recipient"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
	Subject        string     `json:"subject"`
	Body           string     `json:"body"`
	ICS            string     `json:"ics,omitempty"`
	InstanceID     string     `json:"instance_id,omitempty"`
	Status         string     `json:"status"`
	Attempts       int        `json:"attempts"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}

func toNotificationDTO(job application.NotificationJob) notificationDTO {
	dto := notificationDTO{
		ID:             job.ID.String(),
		CreatedAt:      job.CreatedAt.UTC(),
		Kind:           string(job.Kind),
		Recipient:      job.Recipient,
		RecipientEmail: job.RecipientEmail,
		Subject:        job.Subject,
		Body:           job.Body,
		ICS:            job.ICS,
		Status:         string(job.Status),
		Attempts:       job.Attempts,
		SentAt:         job.SentAt,
		Error:          job.Error,
	}
	if job.InstanceID != nil {
		dto.InstanceID = job.InstanceID.String()
	}
	return dto
}

type coverageDTO struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Total       int       `json:"total"`
	Covered     int       `json:"covered"`
	Unclaimed   int       `json:"unclaimed"`
	Percent     float64   `json:"percent"`
}

func toCoverageDTO(stats application.CoverageStats) coverageDTO {
	return coverageDTO{
		WindowStart: stats.WindowStart.Time(),
		WindowEnd:   stats.WindowEnd.Time(),
		Total:       stats.Total,
		Covered:     stats.Covered,
		Unclaimed:   stats.Unclaimed,
		Percent:     stats.Percent,
	}
}

func instantTime(value *recurrence.Instant) *time.Time {
	if value == nil {
		return nil
	}
	t := value.Time()
	return &t
}
