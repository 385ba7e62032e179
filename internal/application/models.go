package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/recurrence"
	"github.com/example/officehours/internal/scheduler"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// Role distinguishes administrators from regular users.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// UserStatus reports whether a user may sign in and host sessions.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Series is a recurring session template. Its occurrences are computed on
// read and never stored.
type Series struct {
	ID              uuid.UUID
	Title           string
	Notes           string
	Link            string
	Frequency       recurrence.Frequency
	Weekday         recurrence.Weekday
	Ordinal         recurrence.Ordinal
	Start           recurrence.Instant
	End             *recurrence.Instant
	DurationMinutes uint32
	Color           string
	Paused          bool
	CreatedAt       time.Time
	CreatedBy       string
}

// Rule returns the recurrence rule of the series.
func (s Series) Rule() recurrence.Rule {
	return recurrence.Rule{
		Frequency: s.Frequency,
		Weekday:   s.Weekday,
		Ordinal:   s.Ordinal,
		Start:     s.Start,
		End:       cloneInstant(s.End),
	}
}

// Duration returns the default length of each occurrence.
func (s Series) Duration() recurrence.Instant {
	return recurrence.Minutes(s.DurationMinutes)
}

// Exception is the sparse per-occurrence overlay of a series. Absent fields
// fall back to the series.
type Exception struct {
	Key           recurrence.OccurrenceKey
	StartOverride *recurrence.Instant
	EndOverride   *recurrence.Instant
	NotesOverride *string
	Host          *string
	HostCleared   bool
	Cancelled     bool
	UpdatedAt     time.Time
	UpdatedBy     string
}

// OneOff is a standalone session stored directly.
type OneOff struct {
	ID        uuid.UUID
	Start     recurrence.Instant
	End       recurrence.Instant
	Title     string
	Notes     string
	Link      string
	Host      *string
	Status    SessionStatus
	Color     string
	CreatedAt time.Time
	CreatedBy string
}

// Session is the effective, materialized view of one occurrence or one-off.
type Session struct {
	InstanceID      uuid.UUID
	SeriesID        *uuid.UUID
	OccurrenceStart *recurrence.Instant
	Start           recurrence.Instant
	End             recurrence.Instant
	Title           string
	Notes           string
	Link            string
	Host            *string
	Status          SessionStatus
	Color           string
	CreatedAt       time.Time
}

// Ref returns the reference that addresses the session in mutations.
func (s Session) Ref() SessionRef {
	if s.SeriesID != nil && s.OccurrenceStart != nil {
		return SessionRef{SeriesID: *s.SeriesID, OccurrenceStart: *s.OccurrenceStart, InstanceID: s.InstanceID}
	}
	return SessionRef{InstanceID: s.InstanceID}
}

// Interval returns the effective time span of the session.
func (s Session) Interval() scheduler.Interval {
	return scheduler.Interval{Start: s.Start, End: s.End}
}

// OutOfOfficeBlock is a half-open span during which a user cannot host.
type OutOfOfficeBlock struct {
	Start recurrence.Instant
	End   recurrence.Instant
}

// NotificationSettings holds a user's notification opt-ins.
type NotificationSettings struct {
	EmailOnAssigned          bool
	EmailOnRemoved           bool
	EmailOnCancelled         bool
	EmailOnTimeChanged       bool
	EmailOnUnclaimedReminder bool
	ReminderHoursBefore      uint32
}

// DefaultNotificationSettings returns the settings new users start with.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		EmailOnAssigned:     true,
		EmailOnRemoved:      true,
		EmailOnCancelled:    true,
		EmailOnTimeChanged:  true,
		ReminderHoursBefore: 24,
	}
}

// User is an authorized person in the directory.
type User struct {
	ID             string
	Name           string
	Email          string
	Role           Role
	Status         UserStatus
	OutOfOffice    []OutOfOfficeBlock
	Notifications  NotificationSettings
	LastActive     *time.Time
	SessionsHosted uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Principal returns the principal acting as this user.
func (u User) Principal() Principal {
	return Principal{UserID: u.ID, IsAdmin: u.IsAdmin()}
}

// Availability returns the host view used for eligibility checks.
func (u User) Availability() scheduler.Host {
	blocks := make([]scheduler.Interval, 0, len(u.OutOfOffice))
	for _, block := range u.OutOfOffice {
		blocks = append(blocks, scheduler.Interval{Start: block.Start, End: block.End})
	}
	return scheduler.Host{ID: u.ID, Disabled: u.Status == UserStatusDisabled, OutOfOffice: blocks}
}

// GlobalSettings is the process-wide configuration record.
type GlobalSettings struct {
	ForwardWindowMonths    int
	ClaimsPaused           bool
	DefaultDurationMinutes uint32
	OrgName                string
	OrgTimezoneLabel       string
	UpdatedAt              time.Time
	UpdatedBy              string
}

// DefaultGlobalSettings returns the settings used before an admin changes them.
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		ForwardWindowMonths:    2,
		DefaultDurationMinutes: 60,
		OrgName:                "Office Hours",
		OrgTimezoneLabel:       "UTC",
	}
}

// NotificationKind identifies the event a notification reports.
type NotificationKind string

const (
	NotificationHostAssigned       NotificationKind = "host_assigned"
	NotificationHostRemoved        NotificationKind = "host_removed"
	NotificationTimeChanged        NotificationKind = "instance_time_changed"
	NotificationCancelled          NotificationKind = "instance_cancelled"
	NotificationUnclaimedReminder  NotificationKind = "unclaimed_reminder"
	NotificationCoverageNeededSoon NotificationKind = "coverage_needed_soon"
	NotificationDailyDigest        NotificationKind = "daily_digest"
	NotificationWeeklyDigest       NotificationKind = "weekly_digest"
)

// NotificationStatus is the delivery state of an outbox job.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// NotificationJob is one outbox entry awaiting delivery.
type NotificationJob struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Kind           NotificationKind
	Recipient      string
	RecipientEmail string
	Subject        string
	Body           string
	ICS            string
	InstanceID     *uuid.UUID
	Status         NotificationStatus
	Attempts       int
	SentAt         *time.Time
	Error          string
}

// AccessToken is an issued bearer credential. Only the secret's hash is kept.
type AccessToken struct {
	ID         uuid.UUID
	UserID     string
	SecretHash string
	Label      string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

// IssuedToken is returned once, when a token is created.
type IssuedToken struct {
	Token  AccessToken
	Bearer string
}

// CoverageStats summarises host coverage over a window.
type CoverageStats struct {
	WindowStart recurrence.Instant
	WindowEnd   recurrence.Instant
	Total       int
	Covered     int
	Unclaimed   int
	Percent     float64
}

func cloneInstant(value *recurrence.Instant) *recurrence.Instant {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
