package persistence

import (
	"time"

	"github.com/google/uuid"
)

// Series is the stored form of a recurring session template. Instants are
// nanoseconds since the Unix epoch.
type Series struct {
	ID              uuid.UUID
	Title           string
	Notes           string
	Link            string
	Frequency       string
	Weekday         int
	Ordinal         string
	StartNanos      uint64
	EndNanos        *uint64
	DurationMinutes uint32
	Color           string
	Paused          bool
	CreatedAt       time.Time
	CreatedBy       string
}

// Exception is the sparse overlay of one occurrence, keyed by series id and
// the generated start of the occurrence.
type Exception struct {
	SeriesID        uuid.UUID
	OccurrenceNanos uint64
	StartNanos      *uint64
	EndNanos        *uint64
	Notes           *string
	Host            *string
	HostCleared     bool
	Cancelled       bool
	UpdatedAt       time.Time
	UpdatedBy       string
}

// OneOff is a standalone session.
type OneOff struct {
	ID         uuid.UUID
	StartNanos uint64
	EndNanos   uint64
	Title      string
	Notes      string
	Link       string
	Host       *string
	Status     string
	Color      string
	CreatedAt  time.Time
	CreatedBy  string
}

// OutOfOfficeBlock is a half-open unavailability span of a user.
type OutOfOfficeBlock struct {
	StartNanos uint64
	EndNanos   uint64
}

// NotificationSettings holds per-user opt-ins.
type NotificationSettings struct {
	EmailOnAssigned          bool
	EmailOnRemoved           bool
	EmailOnCancelled         bool
	EmailOnTimeChanged       bool
	EmailOnUnclaimedReminder bool
	ReminderHoursBefore      uint32
}

// User represents an authorized person in the directory.
type User struct {
	ID             string
	Name           string
	Email          string
	Role           string
	Status         string
	OutOfOffice    []OutOfOfficeBlock
	Notifications  NotificationSettings
	LastActive     *time.Time
	SessionsHosted uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Settings is the global settings singleton.
type Settings struct {
	ForwardWindowMonths    int
	ClaimsPaused           bool
	DefaultDurationMinutes uint32
	OrgName                string
	OrgTimezoneLabel       string
	UpdatedAt              time.Time
	UpdatedBy              string
}

// Notification is one outbox entry.
type Notification struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Kind           string
	Recipient      string
	RecipientEmail string
	Subject        string
	Body           string
	ICS            string
	InstanceID     *uuid.UUID
	Status         string
	Attempts       int
	SentAt         *time.Time
	Error          string
}

// Token is an issued access token. Only the hash of the secret is kept.
type Token struct {
	ID         uuid.UUID
	UserID     string
	SecretHash string
	Label      string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}
