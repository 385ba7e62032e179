// Package memory provides a map-backed persistence.Store for tests and
// single-process deployments that do not need durability.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/persistence"
)

type exceptionKey struct {
	seriesID   uuid.UUID
	occurrence uint64
}

// Storage keeps every record in memory behind a single RWMutex.
type Storage struct {
	mu            sync.RWMutex
	series        map[uuid.UUID]persistence.Series
	exceptions    map[exceptionKey]persistence.Exception
	oneOffs       map[uuid.UUID]persistence.OneOff
	users         map[string]persistence.User
	settings      *persistence.Settings
	notifications map[uuid.UUID]persistence.Notification
	tokens        map[uuid.UUID]persistence.Token
}

var _ persistence.Store = (*Storage)(nil)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		series:        make(map[uuid.UUID]persistence.Series),
		exceptions:    make(map[exceptionKey]persistence.Exception),
		oneOffs:       make(map[uuid.UUID]persistence.OneOff),
		users:         make(map[string]persistence.User),
		notifications: make(map[uuid.UUID]persistence.Notification),
		tokens:        make(map[uuid.UUID]persistence.Token),
	}
}

// Close is a no-op.
func (s *Storage) Close() error {
	return nil
}

// --- SeriesRepository ---

func (s *Storage) GetSeries(_ context.Context, id uuid.UUID) (persistence.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.series[id]
	if !ok {
		return persistence.Series{}, persistence.ErrNotFound
	}
	return cloneSeries(series), nil
}

func (s *Storage) PutSeries(_ context.Context, series persistence.Series) error {
	if series.ID == uuid.Nil {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series[series.ID] = cloneSeries(series)
	return nil
}

// DeleteSeries removes the series. Its exceptions stay behind, orphaned.
func (s *Storage) DeleteSeries(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.series[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.series, id)
	return nil
}

// ListSeries returns all series ordered by start then id.
func (s *Storage) ListSeries(_ context.Context) ([]persistence.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Series, 0, len(s.series))
	for _, series := range s.series {
		out = append(out, cloneSeries(series))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartNanos == out[j].StartNanos {
			return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
		}
		return out[i].StartNanos < out[j].StartNanos
	})
	return out, nil
}

// --- ExceptionRepository ---

func (s *Storage) GetException(_ context.Context, seriesID uuid.UUID, occurrence uint64) (persistence.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exception, ok := s.exceptions[exceptionKey{seriesID: seriesID, occurrence: occurrence}]
	if !ok {
		return persistence.Exception{}, persistence.ErrNotFound
	}
	return cloneException(exception), nil
}

func (s *Storage) PutException(_ context.Context, exception persistence.Exception) error {
	if exception.SeriesID == uuid.Nil {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exceptions[exceptionKey{seriesID: exception.SeriesID, occurrence: exception.OccurrenceNanos}] = cloneException(exception)
	return nil
}

func (s *Storage) ListExceptions(_ context.Context, seriesID uuid.UUID) ([]persistence.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Exception, 0)
	for key, exception := range s.exceptions {
		if key.seriesID != seriesID {
			continue
		}
		out = append(out, cloneException(exception))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurrenceNanos < out[j].OccurrenceNanos
	})
	return out, nil
}

// --- OneOffRepository ---

func (s *Storage) GetOneOff(_ context.Context, id uuid.UUID) (persistence.OneOff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	oneOff, ok := s.oneOffs[id]
	if !ok {
		return persistence.OneOff{}, persistence.ErrNotFound
	}
	return cloneOneOff(oneOff), nil
}

func (s *Storage) PutOneOff(_ context.Context, oneOff persistence.OneOff) error {
	if oneOff.ID == uuid.Nil {
		return persistence.ErrConstraintViolation
	}
	if oneOff.EndNanos <= oneOff.StartNanos {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.oneOffs[oneOff.ID] = cloneOneOff(oneOff)
	return nil
}

func (s *Storage) ListOneOffs(_ context.Context, start, end uint64) ([]persistence.OneOff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.OneOff, 0)
	for _, oneOff := range s.oneOffs {
		if oneOff.StartNanos < start || oneOff.StartNanos >= end {
			continue
		}
		out = append(out, cloneOneOff(oneOff))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartNanos == out[j].StartNanos {
			return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
		}
		return out[i].StartNanos < out[j].StartNanos
	})
	return out, nil
}

// --- UserRepository ---

// CreateUser stores a new user; ids and emails are unique.
func (s *Storage) CreateUser(_ context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s: %w", user.ID, persistence.ErrDuplicate)
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

// PutUser replaces an existing user.
func (s *Storage) PutUser(_ context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Storage) GetUser(_ context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return cloneUser(user), nil
}

// ListUsers returns all users ordered by CreatedAt then id.
func (s *Storage) ListUsers(_ context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, cloneUser(user))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *Storage) ensureUniqueEmailLocked(id, email string) error {
	lower := strings.ToLower(email)
	for existingID, user := range s.users {
		if existingID == id {
			continue
		}
		if strings.ToLower(user.Email) == lower {
			return fmt.Errorf("memory: email %s: %w", email, persistence.ErrDuplicate)
		}
	}
	return nil
}

// --- SettingsRepository ---

func (s *Storage) GetSettings(_ context.Context) (persistence.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return persistence.Settings{}, persistence.ErrNotFound
	}
	return *s.settings, nil
}

func (s *Storage) PutSettings(_ context.Context, settings persistence.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = &settings
	return nil
}

// --- NotificationRepository ---

func (s *Storage) PutNotification(_ context.Context, notification persistence.Notification) error {
	if notification.ID == uuid.Nil {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[notification.ID] = cloneNotification(notification)
	return nil
}

func (s *Storage) GetNotification(_ context.Context, id uuid.UUID) (persistence.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notification, ok := s.notifications[id]
	if !ok {
		return persistence.Notification{}, persistence.ErrNotFound
	}
	return cloneNotification(notification), nil
}

func (s *Storage) ListNotifications(_ context.Context, status string, limit int) ([]persistence.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Notification, 0)
	for _, notification := range s.notifications {
		if notification.Status != status {
			continue
		}
		out = append(out, cloneNotification(notification))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) HasNotification(_ context.Context, recipient string, instanceID uuid.UUID, kind string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, notification := range s.notifications {
		if notification.Recipient == recipient && notification.Kind == kind &&
			notification.InstanceID != nil && *notification.InstanceID == instanceID {
			return true, nil
		}
	}
	return false, nil
}

// --- TokenRepository ---

func (s *Storage) PutToken(_ context.Context, token persistence.Token) error {
	if token.ID == uuid.Nil || token.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[token.UserID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	s.tokens[token.ID] = cloneToken(token)
	return nil
}

func (s *Storage) GetToken(_ context.Context, id uuid.UUID) (persistence.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[id]
	if !ok {
		return persistence.Token{}, persistence.ErrNotFound
	}
	return cloneToken(token), nil
}

// ListTokens returns the user's tokens ordered by CreatedAt.
func (s *Storage) ListTokens(_ context.Context, userID string) ([]persistence.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Token, 0)
	for _, token := range s.tokens {
		if token.UserID != userID {
			continue
		}
		out = append(out, cloneToken(token))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
