package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/persistence"
	"github.com/example/officehours/internal/recurrence"
)

// memoryRepo is a hand-written in-memory implementation of every repository
// interface, reporting misses with persistence.ErrNotFound.
type memoryRepo struct {
	mu sync.Mutex

	series     map[uuid.UUID]Series
	exceptions map[recurrence.OccurrenceKey]Exception
	oneOffs    map[uuid.UUID]OneOff
	users      map[string]User
	settings   *GlobalSettings
	jobs       map[uuid.UUID]NotificationJob
	tokens     map[uuid.UUID]AccessToken

	exceptionScans int
	putErr         error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		series:     make(map[uuid.UUID]Series),
		exceptions: make(map[recurrence.OccurrenceKey]Exception),
		oneOffs:    make(map[uuid.UUID]OneOff),
		users:      make(map[string]User),
		jobs:       make(map[uuid.UUID]NotificationJob),
		tokens:     make(map[uuid.UUID]AccessToken),
	}
}

func (r *memoryRepo) GetSeries(ctx context.Context, id uuid.UUID) (Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	series, ok := r.series[id]
	if !ok {
		return Series{}, persistence.ErrNotFound
	}
	return series, nil
}

func (r *memoryRepo) PutSeries(ctx context.Context, series Series) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.series[series.ID] = series
	return nil
}

func (r *memoryRepo) DeleteSeries(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.series[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.series, id)
	return nil
}

func (r *memoryRepo) ListSeries(ctx context.Context) ([]Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Series, 0, len(r.series))
	for _, series := range r.series {
		out = append(out, series)
	}
	return out, nil
}

func (r *memoryRepo) GetException(ctx context.Context, key recurrence.OccurrenceKey) (Exception, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exc, ok := r.exceptions[key]
	if !ok {
		return Exception{}, persistence.ErrNotFound
	}
	return exc, nil
}

func (r *memoryRepo) PutException(ctx context.Context, exception Exception) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.exceptions[exception.Key] = exception
	return nil
}

func (r *memoryRepo) ListExceptions(ctx context.Context, seriesID uuid.UUID) ([]Exception, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exceptionScans++
	var out []Exception
	for key, exc := range r.exceptions {
		if key.SeriesID == seriesID {
			out = append(out, exc)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetOneOff(ctx context.Context, id uuid.UUID) (OneOff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	oneOff, ok := r.oneOffs[id]
	if !ok {
		return OneOff{}, persistence.ErrNotFound
	}
	return oneOff, nil
}

func (r *memoryRepo) PutOneOff(ctx context.Context, oneOff OneOff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.oneOffs[oneOff.ID] = oneOff
	return nil
}

func (r *memoryRepo) ListOneOffs(ctx context.Context, start, end recurrence.Instant) ([]OneOff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []OneOff
	for _, oneOff := range r.oneOffs {
		if oneOff.Start >= start && oneOff.Start < end {
			out = append(out, oneOff)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateUser(ctx context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepo) GetUser(ctx context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (r *memoryRepo) PutUser(ctx context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepo) ListUsers(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) GetSettings(ctx context.Context) (GlobalSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		return GlobalSettings{}, persistence.ErrNotFound
	}
	return *r.settings, nil
}

func (r *memoryRepo) PutSettings(ctx context.Context, settings GlobalSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.settings = &settings
	return nil
}

func (r *memoryRepo) PutNotification(ctx context.Context, job NotificationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *memoryRepo) GetNotification(ctx context.Context, id uuid.UUID) (NotificationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return NotificationJob{}, persistence.ErrNotFound
	}
	return job, nil
}

func (r *memoryRepo) ListNotifications(ctx context.Context, status NotificationStatus, limit int) ([]NotificationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NotificationJob
	for _, job := range r.jobs {
		if job.Status == status {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) HasNotification(ctx context.Context, recipient string, instanceID uuid.UUID, kind NotificationKind) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.Recipient == recipient && job.Kind == kind && job.InstanceID != nil && *job.InstanceID == instanceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) PutToken(ctx context.Context, token AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.tokens[token.ID] = token
	return nil
}

func (r *memoryRepo) GetToken(ctx context.Context, id uuid.UUID) (AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return AccessToken{}, persistence.ErrNotFound
	}
	return token, nil
}

func (r *memoryRepo) ListTokens(ctx context.Context, userID string) ([]AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AccessToken
	for _, token := range r.tokens {
		if token.UserID == userID {
			out = append(out, token)
		}
	}
	return out, nil
}

func (r *memoryRepo) jobsOfKind(kind NotificationKind) []NotificationJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NotificationJob
	for _, job := range r.jobs {
		if job.Kind == kind {
			out = append(out, job)
		}
	}
	return out
}

type notifierCall struct {
	kind      NotificationKind
	recipient string
	session   Session
}

// recordingNotifier captures notices; err, when set, is returned from every call.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
	err   error
}

func (n *recordingNotifier) record(kind NotificationKind, recipient string, session Session) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{kind: kind, recipient: recipient, session: session})
	return n.err
}

func (n *recordingNotifier) HostAssigned(ctx context.Context, recipient string, session Session) error {
	return n.record(NotificationHostAssigned, recipient, session)
}

func (n *recordingNotifier) HostRemoved(ctx context.Context, recipient string, session Session) error {
	return n.record(NotificationHostRemoved, recipient, session)
}

func (n *recordingNotifier) TimeChanged(ctx context.Context, recipient string, session Session) error {
	return n.record(NotificationTimeChanged, recipient, session)
}

func (n *recordingNotifier) Cancelled(ctx context.Context, recipient string, session Session) error {
	return n.record(NotificationCancelled, recipient, session)
}

func (n *recordingNotifier) snapshot() []notifierCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifierCall, len(n.calls))
	copy(out, n.calls)
	return out
}

// Wednesday 2024-01-03 15:00 UTC.
var testSeriesStart = time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func weeklyWednesdaySeries(id uuid.UUID) Series {
	return Series{
		ID:              id,
		Title:           "Office Hours",
		Frequency:       recurrence.FrequencyWeekly,
		Weekday:         recurrence.Wednesday,
		Start:           recurrence.FromTime(testSeriesStart),
		DurationMinutes: 60,
	}
}

func activeUser(id string, role Role) User {
	return User{
		ID:            id,
		Name:          "User " + id,
		Email:         id + "@example.com",
		Role:          role,
		Status:        UserStatusActive,
		Notifications: DefaultNotificationSettings(),
	}
}

func stringPtr(value string) *string {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}

var (
	adminPrincipal = Principal{UserID: "admin", IsAdmin: true}
	userPrincipal  = Principal{UserID: "alice"}
)
