package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/recurrence"
)

var (
	userCounter   uint64
	seriesCounter uint64
	oneOffCounter uint64
)

// referenceTime is a Monday morning; the first fixture session falls on the
// Wednesday after it.
var referenceTime = time.Date(2026, time.November, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// FirstSessionStart is the default start of series and one-off fixtures:
// Wednesday 2026-11-04 15:00 UTC.
func FirstSessionStart() recurrence.Instant {
	return recurrence.FromDate(2026, 11, 4) + 15*recurrence.Hour
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic directory entry.
type UserFixture struct {
	ID            string
	Name          string
	Email         string
	Role          application.Role
	Status        application.UserStatus
	OutOfOffice   []application.OutOfOfficeBlock
	Notifications application.NotificationSettings
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := UserFixture{
		ID:            id,
		Name:          fmt.Sprintf("User %03d", idx),
		Email:         fmt.Sprintf("%s@example.com", id),
		Role:          application.RoleUser,
		Status:        application.UserStatusActive,
		Notifications: application.DefaultNotificationSettings(),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserName overrides the generated display name.
func WithUserName(name string) UserOption {
	return func(f *UserFixture) {
		f.Name = name
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserAdmin grants or removes the admin role.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) {
		f.Role = application.RoleUser
		if isAdmin {
			f.Role = application.RoleAdmin
		}
	}
}

// WithUserDisabled marks the user disabled.
func WithUserDisabled() UserOption {
	return func(f *UserFixture) {
		f.Status = application.UserStatusDisabled
	}
}

// WithUserOutOfOffice appends a half-open out-of-office block.
func WithUserOutOfOffice(start, end recurrence.Instant) UserOption {
	return func(f *UserFixture) {
		f.OutOfOffice = append(f.OutOfOffice, application.OutOfOfficeBlock{Start: start, End: end})
	}
}

// WithUserNotifications replaces the notification preferences.
func WithUserNotifications(settings application.NotificationSettings) UserOption {
	return func(f *UserFixture) {
		f.Notifications = settings
	}
}

// Application converts the fixture into the domain type.
func (f UserFixture) Application() application.User {
	blocks := make([]application.OutOfOfficeBlock, len(f.OutOfOffice))
	copy(blocks, f.OutOfOffice)
	return application.User{
		ID:            f.ID,
		Name:          f.Name,
		Email:         f.Email,
		Role:          f.Role,
		Status:        f.Status,
		OutOfOffice:   blocks,
		Notifications: f.Notifications,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Principal returns the authenticated caller for the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, IsAdmin: f.Role == application.RoleAdmin}
}

// Input returns the fixture as an AuthorizeUser payload.
func (f UserFixture) Input() application.UserInput {
	return application.UserInput{ID: f.ID, Name: f.Name, Email: f.Email, Role: f.Role}
}

// ---------------------------- Series fixtures ----------------------------

// SeriesFixture represents a deterministic recurring series.
type SeriesFixture struct {
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

// SeriesOption configures the generated series fixture.
type SeriesOption func(*SeriesFixture)

// NewSeriesFixture returns a weekly Wednesday 15:00 series lasting an hour.
func NewSeriesFixture(opts ...SeriesOption) SeriesFixture {
	idx := atomic.AddUint64(&seriesCounter, 1)
	fixture := SeriesFixture{
		ID:              NewIDGenerator(0x5e).At(idx),
		Title:           fmt.Sprintf("Office Hours %03d", idx),
		Frequency:       recurrence.FrequencyWeekly,
		Weekday:         recurrence.Wednesday,
		Start:           FirstSessionStart(),
		DurationMinutes: 60,
		CreatedAt:       referenceTime,
		CreatedBy:       "admin",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSeriesID overrides the generated series ID.
func WithSeriesID(id uuid.UUID) SeriesOption {
	return func(f *SeriesFixture) {
		f.ID = id
	}
}

// WithSeriesTitle overrides the generated title.
func WithSeriesTitle(title string) SeriesOption {
	return func(f *SeriesFixture) {
		f.Title = title
	}
}

// WithSeriesBiweekly switches the fixture to every other week.
func WithSeriesBiweekly() SeriesOption {
	return func(f *SeriesFixture) {
		f.Frequency = recurrence.FrequencyBiweekly
	}
}

// WithSeriesMonthly switches the fixture to the given ordinal weekday.
func WithSeriesMonthly(ordinal recurrence.Ordinal) SeriesOption {
	return func(f *SeriesFixture) {
		f.Frequency = recurrence.FrequencyMonthly
		f.Ordinal = ordinal
	}
}

// WithSeriesStart moves the anchor. The weekday follows the new start.
func WithSeriesStart(start recurrence.Instant) SeriesOption {
	return func(f *SeriesFixture) {
		f.Start = start
		f.Weekday = start.Weekday()
	}
}

// WithSeriesEnd bounds the series.
func WithSeriesEnd(end recurrence.Instant) SeriesOption {
	return func(f *SeriesFixture) {
		f.End = &end
	}
}

// WithSeriesDuration overrides the occurrence length.
func WithSeriesDuration(minutes uint32) SeriesOption {
	return func(f *SeriesFixture) {
		f.DurationMinutes = minutes
	}
}

// WithSeriesPaused pauses the series.
func WithSeriesPaused() SeriesOption {
	return func(f *SeriesFixture) {
		f.Paused = true
	}
}

// Application converts the fixture into the domain type.
func (f SeriesFixture) Application() application.Series {
	series := application.Series{
		ID:              f.ID,
		Title:           f.Title,
		Notes:           f.Notes,
		Link:            f.Link,
		Frequency:       f.Frequency,
		Weekday:         f.Weekday,
		Ordinal:         f.Ordinal,
		Start:           f.Start,
		DurationMinutes: f.DurationMinutes,
		Color:           f.Color,
		Paused:          f.Paused,
		CreatedAt:       f.CreatedAt,
		CreatedBy:       f.CreatedBy,
	}
	if f.End != nil {
		end := *f.End
		series.End = &end
	}
	return series
}

// Input returns the fixture as a CreateSeries payload.
func (f SeriesFixture) Input() application.SeriesInput {
	input := application.SeriesInput{
		Title:           f.Title,
		Notes:           f.Notes,
		Link:            f.Link,
		Frequency:       f.Frequency.String(),
		Weekday:         f.Weekday.String(),
		Ordinal:         f.Ordinal.String(),
		Start:           f.Start.Time(),
		DurationMinutes: f.DurationMinutes,
		Color:           f.Color,
	}
	if f.End != nil {
		end := f.End.Time()
		input.End = &end
	}
	return input
}

// Occurrence returns the start of the n-th occurrence of a weekly or
// biweekly fixture, counting from zero.
func (f SeriesFixture) Occurrence(n int) recurrence.Instant {
	step := recurrence.Week
	if f.Frequency == recurrence.FrequencyBiweekly {
		step = 2 * recurrence.Week
	}
	return f.Start + recurrence.Instant(n)*step
}

// ---------------------------- One-off fixtures ---------------------------

// OneOffFixture represents a deterministic standalone session.
type OneOffFixture struct {
	ID        uuid.UUID
	Title     string
	Start     recurrence.Instant
	End       recurrence.Instant
	Host      *string
	Status    application.SessionStatus
	CreatedAt time.Time
	CreatedBy string
}

// OneOffOption configures the generated one-off fixture.
type OneOffOption func(*OneOffFixture)

// NewOneOffFixture returns an hour-long unclaimed session at FirstSessionStart
// plus one day.
func NewOneOffFixture(opts ...OneOffOption) OneOffFixture {
	idx := atomic.AddUint64(&oneOffCounter, 1)
	start := FirstSessionStart() + recurrence.Day
	fixture := OneOffFixture{
		ID:        NewIDGenerator(0x01).At(idx),
		Title:     fmt.Sprintf("Drop-in %03d", idx),
		Start:     start,
		End:       start + recurrence.Hour,
		Status:    application.SessionStatusActive,
		CreatedAt: referenceTime,
		CreatedBy: "admin",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOneOffSpan overrides the start and end.
func WithOneOffSpan(start, end recurrence.Instant) OneOffOption {
	return func(f *OneOffFixture) {
		f.Start = start
		f.End = end
	}
}

// WithOneOffHost assigns a host.
func WithOneOffHost(host string) OneOffOption {
	return func(f *OneOffFixture) {
		f.Host = &host
	}
}

// WithOneOffCancelled marks the session cancelled.
func WithOneOffCancelled() OneOffOption {
	return func(f *OneOffFixture) {
		f.Status = application.SessionStatusCancelled
	}
}

// Application converts the fixture into the domain type.
func (f OneOffFixture) Application() application.OneOff {
	return application.OneOff{
		ID:        f.ID,
		Start:     f.Start,
		End:       f.End,
		Title:     f.Title,
		Host:      copyStringPtr(f.Host),
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		CreatedBy: f.CreatedBy,
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
