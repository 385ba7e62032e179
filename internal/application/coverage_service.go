package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/officehours/internal/logging"
	"github.com/example/officehours/internal/scheduler"
)

// Notifier receives fire-and-forget notices about coverage changes. Callers
// log failures and never propagate them.
type Notifier interface {
	HostAssigned(ctx context.Context, recipient string, session Session) error
	HostRemoved(ctx context.Context, recipient string, session Session) error
	TimeChanged(ctx context.Context, recipient string, session Session) error
	Cancelled(ctx context.Context, recipient string, session Session) error
}

// AssignParams wraps the data required to assign a host.
type AssignParams struct {
	Principal     Principal
	Ref           SessionRefInput
	HostID        string
	AdminOverride bool
}

// UnassignParams wraps the data required to clear a host.
type UnassignParams struct {
	Principal Principal
	Ref       SessionRefInput
}

// CoverageService assigns and removes hosts on sessions.
type CoverageService struct {
	materializer *Materializer
	exceptions   ExceptionRepository
	oneOffs      OneOffRepository
	users        UserRepository
	settings     SettingsRepository
	notifier     Notifier
	now          func() time.Time
	logger       *slog.Logger
}

// NewCoverageService constructs a coverage service with the provided dependencies.
func NewCoverageService(materializer *Materializer, exceptions ExceptionRepository, oneOffs OneOffRepository, users UserRepository, settings SettingsRepository, notifier Notifier, now func() time.Time) *CoverageService {
	return NewCoverageServiceWithLogger(materializer, exceptions, oneOffs, users, settings, notifier, now, nil)
}

// NewCoverageServiceWithLogger constructs a coverage service with a specified logger.
func NewCoverageServiceWithLogger(materializer *Materializer, exceptions ExceptionRepository, oneOffs OneOffRepository, users UserRepository, settings SettingsRepository, notifier Notifier, now func() time.Time, logger *slog.Logger) *CoverageService {
	if now == nil {
		now = time.Now
	}
	return &CoverageService{
		materializer: materializer,
		exceptions:   exceptions,
		oneOffs:      oneOffs,
		users:        users,
		settings:     settings,
		notifier:     notifier,
		now:          now,
		logger:       logging.Or(logger),
	}
}

func (s *CoverageService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, s.logger, "service", "CoverageService", operation, attrs...)
}

// Assign makes HostID the host of the referenced session and returns the
// freshly resolved session.
func (s *CoverageService) Assign(ctx context.Context, params AssignParams) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("CoverageService is nil")
		return
	}
	if s.materializer == nil || s.users == nil {
		err = fmt.Errorf("coverage dependencies not configured")
		return
	}

	hostID := strings.TrimSpace(params.HostID)
	logger := s.loggerWith(ctx, "Assign",
		"principal_id", params.Principal.UserID,
		"host_id", hostID,
		"admin_override", params.AdminOverride,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to assign host", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("instance_id", session.InstanceID).InfoContext(ctx, "host assigned")
	}()

	if err = s.checkPaused(ctx, params.Principal); err != nil {
		return
	}

	var ref SessionRef
	ref, err = ParseSessionRef(params.Ref)
	if hostID == "" {
		vErr, _ := err.(*ValidationError)
		if vErr == nil {
			vErr = &ValidationError{}
		}
		vErr.add("host_id", "host_id is required")
		err = vErr
	}
	if err != nil {
		return
	}

	var target Session
	target, err = s.materializer.Resolve(ctx, ref)
	if err != nil {
		return
	}

	var host User
	host, err = s.users.GetUser(ctx, hostID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	override := params.AdminOverride && params.Principal.IsAdmin
	if !override {
		if conflicts := scheduler.DetectConflicts(host.Availability(), target.Interval()); len(conflicts) > 0 {
			err = fmt.Errorf("%w: %s", ErrHostUnavailable, conflicts[0].Type)
			return
		}
	}

	if err = s.writeHost(ctx, ref, params.Principal, &hostID); err != nil {
		return
	}

	session, err = s.materializer.Resolve(ctx, ref)
	if err != nil {
		return
	}

	s.notify(ctx, logger, "host_assigned", func() error {
		return s.notifier.HostAssigned(ctx, host.ID, session)
	})
	reassigned := target.Host != nil && *target.Host == host.ID
	s.recordHosting(ctx, logger, host, params.Principal, !reassigned)
	return
}

// Unassign clears the host of the referenced session and returns the freshly
// resolved session. The previous host, if any, is notified.
func (s *CoverageService) Unassign(ctx context.Context, params UnassignParams) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("CoverageService is nil")
		return
	}
	if s.materializer == nil {
		err = fmt.Errorf("coverage dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "Unassign",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to unassign host", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("instance_id", session.InstanceID).InfoContext(ctx, "host unassigned")
	}()

	if err = s.checkPaused(ctx, params.Principal); err != nil {
		return
	}

	var ref SessionRef
	ref, err = ParseSessionRef(params.Ref)
	if err != nil {
		return
	}

	var previous Session
	previous, err = s.materializer.Resolve(ctx, ref)
	if err != nil {
		return
	}

	if err = s.writeHost(ctx, ref, params.Principal, nil); err != nil {
		return
	}

	session, err = s.materializer.Resolve(ctx, ref)
	if err != nil {
		return
	}

	if previous.Host != nil {
		recipient := *previous.Host
		s.notify(ctx, logger, "host_removed", func() error {
			return s.notifier.HostRemoved(ctx, recipient, previous)
		})
	}
	return
}

func (s *CoverageService) checkPaused(ctx context.Context, principal Principal) error {
	if principal.IsAdmin {
		return nil
	}
	settings, err := loadSettings(ctx, s.settings)
	if err != nil {
		return mapRepoError(err)
	}
	if settings.ClaimsPaused {
		return ErrClaimsPaused
	}
	return nil
}

// writeHost stores host (nil to clear) on the exception or one-off behind ref.
func (s *CoverageService) writeHost(ctx context.Context, ref SessionRef, principal Principal, host *string) error {
	if ref.Recurring() {
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
		exc.Host = cloneString(host)
		exc.HostCleared = host == nil
		exc.UpdatedAt = s.now()
		exc.UpdatedBy = principal.UserID
		return mapRepoError(s.exceptions.PutException(ctx, exc))
	}

	if s.oneOffs == nil {
		return fmt.Errorf("one-off repository not configured")
	}
	oneOff, err := s.oneOffs.GetOneOff(ctx, ref.InstanceID)
	if err != nil {
		return mapRepoError(err)
	}
	oneOff.Host = cloneString(host)
	return mapRepoError(s.oneOffs.PutOneOff(ctx, oneOff))
}

func (s *CoverageService) notify(ctx context.Context, logger *slog.Logger, kind string, send func() error) {
	if s.notifier == nil {
		return
	}
	if err := send(); err != nil {
		logger.WarnContext(ctx, "notification not recorded", "kind", kind, "error", err)
	}
}

// recordHosting bumps the host's counter when the host is new to the session
// and refreshes the actor's activity timestamp. Failures are logged; the
// assignment has already been committed.
func (s *CoverageService) recordHosting(ctx context.Context, logger *slog.Logger, host User, principal Principal, newHost bool) {
	now := s.now()
	if newHost {
		host.SessionsHosted++
	}
	if host.ID == principal.UserID {
		host.LastActive = &now
	}
	host.UpdatedAt = now
	if err := s.users.PutUser(ctx, host); err != nil {
		logger.WarnContext(ctx, "failed to record hosting stats", "error", err)
	}
	if host.ID == principal.UserID || principal.UserID == "" {
		return
	}
	actor, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return
	}
	actor.LastActive = &now
	if err := s.users.PutUser(ctx, actor); err != nil {
		logger.WarnContext(ctx, "failed to record activity", "error", err)
	}
}
