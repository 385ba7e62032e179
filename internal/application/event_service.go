package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/ics"
	"github.com/example/officehours/internal/logging"
	"github.com/example/officehours/internal/recurrence"
	"github.com/example/officehours/internal/scheduler"
)

// PublicSession is the unauthenticated view of a session: the host is shown
// by display name only.
type PublicSession struct {
	Session  Session
	HostName string
}

// OneOffInput captures caller provided one-off fields.
type OneOffInput struct {
	Title  string
	Notes  string
	Link   string
	Color  string
	Start  time.Time
	End    time.Time
	HostID *string
}

// CreateOneOffParams wraps the data required to create a one-off session.
type CreateOneOffParams struct {
	Principal Principal
	Input     OneOffInput
}

// UpdateInstanceParams wraps the data required to edit one session. Nil
// fields are left unchanged.
type UpdateInstanceParams struct {
	Principal Principal
	Ref       SessionRefInput
	Start     *time.Time
	End       *time.Time
	Notes     *string
}

// CancelInstanceParams wraps the data required to cancel one session.
type CancelInstanceParams struct {
	Principal Principal
	Ref       SessionRefInput
}

// EventService lists, creates and edits individual sessions.
type EventService struct {
	materializer *Materializer
	exceptions   ExceptionRepository
	oneOffs      OneOffRepository
	users        UserRepository
	settings     SettingsRepository
	notifier     Notifier
	idGenerator  func() uuid.UUID
	now          func() time.Time
	logger       *slog.Logger
}

// NewEventService constructs an event service with the provided dependencies.
func NewEventService(materializer *Materializer, exceptions ExceptionRepository, oneOffs OneOffRepository, users UserRepository, settings SettingsRepository, notifier Notifier, idGenerator func() uuid.UUID, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(materializer, exceptions, oneOffs, users, settings, notifier, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(materializer *Materializer, exceptions ExceptionRepository, oneOffs OneOffRepository, users UserRepository, settings SettingsRepository, notifier Notifier, idGenerator func() uuid.UUID, now func() time.Time, logger *slog.Logger) *EventService {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = recurrence.NewSequence(now).Next
	}
	return &EventService{
		materializer: materializer,
		exceptions:   exceptions,
		oneOffs:      oneOffs,
		users:        users,
		settings:     settings,
		notifier:     notifier,
		idGenerator:  idGenerator,
		now:          now,
		logger:       logging.Or(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, s.logger, "service", "EventService", operation, attrs...)
}

// ListEvents materializes [start, end) for an authorized user.
func (s *EventService) ListEvents(ctx context.Context, principal Principal, start, end time.Time) ([]Session, error) {
	if s == nil || s.materializer == nil {
		return nil, fmt.Errorf("EventService not configured")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return nil, ErrUnauthorized
	}
	if vErr := validateWindow(start, end); vErr.HasErrors() {
		return nil, vErr
	}
	return s.materializer.Materialize(ctx, recurrence.FromTime(start), recurrence.FromTime(end))
}

// ListPublicEvents materializes [start, end) without authentication, replacing
// host ids with display names.
func (s *EventService) ListPublicEvents(ctx context.Context, start, end time.Time) ([]PublicSession, error) {
	if s == nil || s.materializer == nil {
		return nil, fmt.Errorf("EventService not configured")
	}
	if vErr := validateWindow(start, end); vErr.HasErrors() {
		return nil, vErr
	}

	sessions, err := s.materializer.Materialize(ctx, recurrence.FromTime(start), recurrence.FromTime(end))
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	out := make([]PublicSession, 0, len(sessions))
	for _, session := range sessions {
		public := PublicSession{Session: session}
		if session.Host != nil {
			hostID := *session.Host
			name, ok := names[hostID]
			if !ok && s.users != nil {
				if user, uerr := s.users.GetUser(ctx, hostID); uerr == nil {
					name = user.Name
				}
				names[hostID] = name
			}
			public.HostName = name
			public.Session.Host = nil
		}
		out = append(out, public)
	}
	return out, nil
}

// CreateOneOff stores a standalone session and returns it resolved.
func (s *EventService) CreateOneOff(ctx context.Context, params CreateOneOffParams) (session Session, err error) {
	if s == nil || s.oneOffs == nil {
		err = fmt.Errorf("EventService not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateOneOff",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create one-off", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("instance_id", session.InstanceID).InfoContext(ctx, "one-off created")
	}()

	if strings.TrimSpace(params.Principal.UserID) == "" {
		err = ErrUnauthorized
		return
	}

	input := params.Input
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	vErr.merge(validateWindow(input.Start, input.End))
	hostID := normalizeOptionalString(input.HostID)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	oneOff := OneOff{
		ID:        s.idGenerator(),
		Start:     recurrence.FromTime(input.Start),
		End:       recurrence.FromTime(input.End),
		Title:     strings.TrimSpace(input.Title),
		Notes:     strings.TrimSpace(input.Notes),
		Link:      strings.TrimSpace(input.Link),
		Color:     strings.TrimSpace(input.Color),
		Status:    SessionStatusActive,
		CreatedAt: s.now(),
		CreatedBy: params.Principal.UserID,
	}

	var host User
	if hostID != nil {
		if err = s.checkHost(ctx, params.Principal, *hostID, scheduler.Interval{Start: oneOff.Start, End: oneOff.End}, &host); err != nil {
			return
		}
		oneOff.Host = hostID
	}

	if err = s.oneOffs.PutOneOff(ctx, oneOff); err != nil {
		err = mapRepoError(err)
		return
	}

	session, _ = resolveOneOff(oneOff)
	if hostID != nil {
		s.notify(ctx, logger, func() error { return s.notifier.HostAssigned(ctx, host.ID, session) })
	}
	return
}

func (s *EventService) checkHost(ctx context.Context, principal Principal, hostID string, span scheduler.Interval, out *User) error {
	if !principal.IsAdmin {
		settings, err := loadSettings(ctx, s.settings)
		if err != nil {
			return mapRepoError(err)
		}
		if settings.ClaimsPaused {
			return ErrClaimsPaused
		}
	}
	if s.users == nil {
		return ErrNotFound
	}
	host, err := s.users.GetUser(ctx, hostID)
	if err != nil {
		return mapRepoError(err)
	}
	if conflicts := scheduler.DetectConflicts(host.Availability(), span); len(conflicts) > 0 {
		return fmt.Errorf("%w: %s", ErrHostUnavailable, conflicts[0].Type)
	}
	*out = host
	return nil
}

// UpdateInstance overrides the timing or notes of one session. Recurring
// occurrences receive exception overrides; one-offs are edited in place.
// The effective host is told when the timing changed.
func (s *EventService) UpdateInstance(ctx context.Context, params UpdateInstanceParams) (session Session, err error) {
	if s == nil || s.materializer == nil {
		err = fmt.Errorf("EventService not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateInstance",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("instance_id", session.InstanceID).InfoContext(ctx, "session updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var ref SessionRef
	if ref, err = ParseSessionRef(params.Ref); err != nil {
		return
	}
	if params.Start == nil && params.End == nil && params.Notes == nil {
		err = newValidationError("start", "at least one of start, end or notes is required")
		return
	}

	var current Session
	if current, err = s.materializer.Resolve(ctx, ref); err != nil {
		return
	}

	start, end := current.Start, current.End
	if params.Start != nil {
		start = recurrence.FromTime(*params.Start)
	}
	if params.End != nil {
		end = recurrence.FromTime(*params.End)
	}
	if end <= start {
		err = newValidationError("end", "end must be after start")
		return
	}

	if ref.Recurring() {
		err = s.updateException(ctx, ref, params, start, end)
	} else {
		err = s.updateOneOff(ctx, ref, params, start, end)
	}
	if err != nil {
		return
	}

	if session, err = s.materializer.Resolve(ctx, ref); err != nil {
		return
	}

	if session.Host != nil && (session.Start != current.Start || session.End != current.End) {
		recipient := *session.Host
		s.notify(ctx, logger, func() error { return s.notifier.TimeChanged(ctx, recipient, session) })
	}
	return
}

func (s *EventService) updateException(ctx context.Context, ref SessionRef, params UpdateInstanceParams, start, end recurrence.Instant) error {
	if s.exceptions == nil {
		return fmt.Errorf("exception repository not configured")
	}
	exc, err := s.exceptions.GetException(ctx, ref.Key())
	if err != nil {
		if !isNotFound(err) {
			return mapRepoError(err)
		}
		exc = Exception{Key: ref.Key()}
	}
	if params.Start != nil {
		exc.StartOverride = &start
	}
	if params.End != nil {
		exc.EndOverride = &end
	}
	if params.Notes != nil {
		notes := strings.TrimSpace(*params.Notes)
		exc.NotesOverride = &notes
	}
	exc.UpdatedAt = s.now()
	exc.UpdatedBy = params.Principal.UserID
	return mapRepoError(s.exceptions.PutException(ctx, exc))
}

func (s *EventService) updateOneOff(ctx context.Context, ref SessionRef, params UpdateInstanceParams, start, end recurrence.Instant) error {
	oneOff, err := s.oneOffs.GetOneOff(ctx, ref.InstanceID)
	if err != nil {
		return mapRepoError(err)
	}
	oneOff.Start = start
	oneOff.End = end
	if params.Notes != nil {
		oneOff.Notes = strings.TrimSpace(*params.Notes)
	}
	return mapRepoError(s.oneOffs.PutOneOff(ctx, oneOff))
}

// CancelInstance cancels one session and tells its host.
func (s *EventService) CancelInstance(ctx context.Context, params CancelInstanceParams) (err error) {
	if s == nil || s.materializer == nil {
		return fmt.Errorf("EventService not configured")
	}

	logger := s.loggerWith(ctx, "CancelInstance",
		"principal_id", params.Principal.UserID,
	)
	var cancelled Session
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("instance_id", cancelled.InstanceID).InfoContext(ctx, "session cancelled")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var ref SessionRef
	if ref, err = ParseSessionRef(params.Ref); err != nil {
		return
	}
	if cancelled, err = s.materializer.Resolve(ctx, ref); err != nil {
		return
	}

	if ref.Recurring() {
		exc, gerr := s.exceptions.GetException(ctx, ref.Key())
		if gerr != nil {
			if !isNotFound(gerr) {
				err = mapRepoError(gerr)
				return
			}
			exc = Exception{Key: ref.Key()}
		}
		exc.Cancelled = true
		exc.UpdatedAt = s.now()
		exc.UpdatedBy = params.Principal.UserID
		err = mapRepoError(s.exceptions.PutException(ctx, exc))
	} else {
		oneOff, gerr := s.oneOffs.GetOneOff(ctx, ref.InstanceID)
		if gerr != nil {
			err = mapRepoError(gerr)
			return
		}
		oneOff.Status = SessionStatusCancelled
		err = mapRepoError(s.oneOffs.PutOneOff(ctx, oneOff))
	}
	if err != nil {
		return
	}

	if cancelled.Host != nil {
		recipient := *cancelled.Host
		s.notify(ctx, logger, func() error { return s.notifier.Cancelled(ctx, recipient, cancelled) })
	}
	return
}

// EventICS renders one session as a calendar file.
func (s *EventService) EventICS(ctx context.Context, principal Principal, input SessionRefInput) (string, error) {
	if s == nil || s.materializer == nil {
		return "", fmt.Errorf("EventService not configured")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return "", ErrUnauthorized
	}
	ref, err := ParseSessionRef(input)
	if err != nil {
		return "", err
	}
	session, err := s.materializer.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	return ics.Calendar(ics.MethodPublish, s.now(), sessionEvent(session, 0, false)), nil
}

func (s *EventService) notify(ctx context.Context, logger *slog.Logger, send func() error) {
	if s.notifier == nil {
		return
	}
	if err := send(); err != nil {
		logger.WarnContext(ctx, "notification not recorded", "error", err)
	}
}

func validateWindow(start, end time.Time) *ValidationError {
	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if !vErr.HasErrors() && !end.After(start) {
		vErr.add("end", "end must be after start")
	}
	return vErr
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
