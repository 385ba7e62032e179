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
)

const (
	defaultDispatchLimit      = 50
	maxDeliveryAttempts       = 3
	coverageNeededSoonHorizon = 24 * time.Hour
)

// Sender delivers one notification job, for example over SMTP.
type Sender interface {
	Send(ctx context.Context, job NotificationJob) error
}

// DispatchResult reports the outcome of one dispatch pass.
type DispatchResult struct {
	Attempted int
	Sent      int
	Failed    int
}

// NotificationService maintains the notification outbox. It implements
// Notifier for the coverage and event services.
type NotificationService struct {
	users        UserRepository
	jobs         NotificationRepository
	materializer *Materializer
	idGenerator  func() uuid.UUID
	now          func() time.Time
	logger       *slog.Logger
}

// NewNotificationService constructs a notification service with the provided dependencies.
func NewNotificationService(users UserRepository, jobs NotificationRepository, materializer *Materializer, idGenerator func() uuid.UUID, now func() time.Time) *NotificationService {
	return NewNotificationServiceWithLogger(users, jobs, materializer, idGenerator, now, nil)
}

// NewNotificationServiceWithLogger constructs a notification service with a specified logger.
func NewNotificationServiceWithLogger(users UserRepository, jobs NotificationRepository, materializer *Materializer, idGenerator func() uuid.UUID, now func() time.Time, logger *slog.Logger) *NotificationService {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = recurrence.NewSequence(now).Next
	}
	return &NotificationService{
		users:        users,
		jobs:         jobs,
		materializer: materializer,
		idGenerator:  idGenerator,
		now:          now,
		logger:       logging.Or(logger),
	}
}

func (s *NotificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, s.logger, "service", "NotificationService", operation, attrs...)
}

// HostAssigned queues an invite for a newly assigned host.
func (s *NotificationService) HostAssigned(ctx context.Context, recipient string, session Session) error {
	return s.enqueue(ctx, recipient, session, notice{
		kind:     NotificationHostAssigned,
		enabled:  func(n NotificationSettings) bool { return n.EmailOnAssigned },
		subject:  "You've been assigned to an Office Hours session",
		body:     "You have been assigned as host for an Office Hours session.\n\nPlease add the attached calendar invite to your calendar.",
		method:   ics.MethodRequest,
		sequence: 1,
	})
}

// HostRemoved queues a cancellation for a host who was removed.
func (s *NotificationService) HostRemoved(ctx context.Context, recipient string, session Session) error {
	return s.enqueue(ctx, recipient, session, notice{
		kind:     NotificationHostRemoved,
		enabled:  func(n NotificationSettings) bool { return n.EmailOnRemoved },
		subject:  "You've been removed from an Office Hours session",
		body:     "You have been removed as host for an Office Hours session.",
		method:   ics.MethodCancel,
		sequence: 2,
	})
}

// TimeChanged queues an updated invite after a session moved.
func (s *NotificationService) TimeChanged(ctx context.Context, recipient string, session Session) error {
	return s.enqueue(ctx, recipient, session, notice{
		kind:     NotificationTimeChanged,
		enabled:  func(n NotificationSettings) bool { return n.EmailOnTimeChanged },
		subject:  "Office Hours session time changed: " + session.Title,
		body:     fmt.Sprintf("The time for Office Hours session '%s' has been updated. Please see the attached calendar invite.", session.Title),
		method:   ics.MethodRequest,
		sequence: 2,
	})
}

// Cancelled queues a cancellation for the host of a cancelled session.
func (s *NotificationService) Cancelled(ctx context.Context, recipient string, session Session) error {
	return s.enqueue(ctx, recipient, session, notice{
		kind:     NotificationCancelled,
		enabled:  func(n NotificationSettings) bool { return n.EmailOnCancelled },
		subject:  "Office Hours session cancelled: " + session.Title,
		body:     fmt.Sprintf("The Office Hours session '%s' has been cancelled.", session.Title),
		method:   ics.MethodCancel,
		sequence: 2,
	})
}

type notice struct {
	kind     NotificationKind
	enabled  func(NotificationSettings) bool
	subject  string
	body     string
	method   ics.Method
	sequence int
}

func (s *NotificationService) enqueue(ctx context.Context, recipient string, session Session, n notice) error {
	if s == nil || s.users == nil || s.jobs == nil {
		return fmt.Errorf("NotificationService not configured")
	}

	user, err := s.users.GetUser(ctx, recipient)
	if err != nil {
		return mapRepoError(err)
	}
	if n.enabled != nil && !n.enabled(user.Notifications) {
		return nil
	}

	now := s.now()
	payload := ics.Calendar(n.method, now, sessionEvent(session, n.sequence, n.method == ics.MethodCancel))
	job := s.newJob(user, n.kind, n.subject, n.body, session.InstanceID, now)
	job.ICS = payload

	if err := s.jobs.PutNotification(ctx, job); err != nil {
		return mapRepoError(err)
	}
	s.loggerWith(ctx, "enqueue",
		"kind", string(n.kind),
		"recipient", recipient,
		"job_id", job.ID,
	).DebugContext(ctx, "notification queued")
	return nil
}

func (s *NotificationService) newJob(user User, kind NotificationKind, subject, body string, instanceID uuid.UUID, now time.Time) NotificationJob {
	id := instanceID
	return NotificationJob{
		ID:             s.idGenerator(),
		CreatedAt:      now,
		Kind:           kind,
		Recipient:      user.ID,
		RecipientEmail: user.Email,
		Subject:        subject,
		Body:           body,
		InstanceID:     &id,
		Status:         NotificationPending,
	}
}

func sessionEvent(session Session, sequence int, cancelled bool) ics.Event {
	return ics.Event{
		ID:          session.InstanceID,
		Sequence:    sequence,
		Start:       session.Start.Time(),
		End:         session.End.Time(),
		Summary:     session.Title,
		Description: session.Notes,
		URL:         session.Link,
		Cancelled:   cancelled,
	}
}

// ListPending returns up to limit pending jobs, oldest first. Admin only.
func (s *NotificationService) ListPending(ctx context.Context, principal Principal, limit int) ([]NotificationJob, error) {
	if s == nil {
		return nil, fmt.Errorf("NotificationService is nil")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if s.jobs == nil {
		return nil, nil
	}
	jobs, err := s.jobs.ListNotifications(ctx, NotificationPending, limit)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return jobs, nil
}

// MarkSent records external delivery of a job. Admin only.
func (s *NotificationService) MarkSent(ctx context.Context, principal Principal, id string) (NotificationJob, error) {
	return s.mark(ctx, principal, "MarkSent", id, func(job *NotificationJob, now time.Time) {
		job.Status = NotificationSent
		job.SentAt = &now
		job.Error = ""
	})
}

// MarkFailed records a permanent delivery failure. Admin only.
func (s *NotificationService) MarkFailed(ctx context.Context, principal Principal, id, message string) (NotificationJob, error) {
	return s.mark(ctx, principal, "MarkFailed", id, func(job *NotificationJob, _ time.Time) {
		job.Status = NotificationFailed
		job.Attempts++
		job.Error = strings.TrimSpace(message)
	})
}

func (s *NotificationService) mark(ctx context.Context, principal Principal, operation, rawID string, apply func(*NotificationJob, time.Time)) (job NotificationJob, err error) {
	if s == nil {
		err = fmt.Errorf("NotificationService is nil")
		return
	}

	logger := s.loggerWith(ctx, operation,
		"principal_id", principal.UserID,
		"job_id", rawID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update notification", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "notification updated", "status", string(job.Status))
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	id, perr := parseID(rawID)
	if perr != nil {
		err = newValidationError("id", "must be a 16 byte identifier")
		return
	}
	if s.jobs == nil {
		err = ErrNotFound
		return
	}

	job, err = s.jobs.GetNotification(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	apply(&job, s.now())
	if err = s.jobs.PutNotification(ctx, job); err != nil {
		err = mapRepoError(err)
	}
	return
}

// Dispatch hands up to limit pending jobs to sender and records each outcome.
// A job that keeps failing is marked failed after maxDeliveryAttempts.
func (s *NotificationService) Dispatch(ctx context.Context, sender Sender, limit int) (DispatchResult, error) {
	var result DispatchResult
	if s == nil || s.jobs == nil {
		return result, fmt.Errorf("NotificationService not configured")
	}
	if sender == nil {
		return result, fmt.Errorf("sender not configured")
	}
	if limit <= 0 {
		limit = defaultDispatchLimit
	}

	logger := s.loggerWith(ctx, "Dispatch")
	jobs, err := s.jobs.ListNotifications(ctx, NotificationPending, limit)
	if err != nil {
		return result, mapRepoError(err)
	}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Attempted++

		sendErr := sender.Send(ctx, job)
		job.Attempts++
		if sendErr == nil {
			now := s.now()
			job.Status = NotificationSent
			job.SentAt = &now
			job.Error = ""
			result.Sent++
		} else {
			job.Error = sendErr.Error()
			if job.Attempts >= maxDeliveryAttempts {
				job.Status = NotificationFailed
			}
			result.Failed++
			logger.WarnContext(ctx, "notification delivery failed",
				"job_id", job.ID,
				"attempts", job.Attempts,
				"error", sendErr,
			)
		}

		if err := s.jobs.PutNotification(ctx, job); err != nil {
			return result, mapRepoError(err)
		}
	}

	if result.Attempted > 0 {
		logger.InfoContext(ctx, "dispatch completed",
			"attempted", result.Attempted,
			"sent", result.Sent,
			"failed", result.Failed,
		)
	}
	return result, nil
}

// QueueReminders enqueues unclaimed reminders for opted-in users whose
// reminder horizon reaches an unclaimed session, and coverage-needed-soon
// notices to admins for unclaimed sessions starting within a day. Each
// (recipient, session, kind) is queued at most once.
func (s *NotificationService) QueueReminders(ctx context.Context) (queued int, err error) {
	if s == nil || s.users == nil || s.jobs == nil || s.materializer == nil {
		return 0, fmt.Errorf("NotificationService not configured")
	}

	logger := s.loggerWith(ctx, "QueueReminders")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to queue reminders", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if queued > 0 {
			logger.InfoContext(ctx, "reminders queued", "count", queued)
		}
	}()

	sessions, err := s.materializer.Unclaimed(ctx)
	if err != nil {
		return 0, err
	}
	if len(sessions) == 0 {
		return 0, nil
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return 0, mapRepoError(err)
	}

	now := s.now()
	for _, user := range users {
		if user.Status != UserStatusActive {
			continue
		}
		for _, session := range sessions {
			until := session.Start.Time().Sub(now)
			if until < 0 {
				continue
			}

			if user.Notifications.EmailOnUnclaimedReminder &&
				until <= time.Duration(user.Notifications.ReminderHoursBefore)*time.Hour {
				ok, qerr := s.queueOnce(ctx, user, session, NotificationUnclaimedReminder,
					"Office Hours session needs a host: "+session.Title,
					fmt.Sprintf("The Office Hours session '%s' starting %s has no host yet.", session.Title, session.Start.Time().Format(time.RFC1123)),
					now)
				if qerr != nil {
					return queued, qerr
				}
				if ok {
					queued++
				}
			}

			if user.IsAdmin() && until <= coverageNeededSoonHorizon {
				ok, qerr := s.queueOnce(ctx, user, session, NotificationCoverageNeededSoon,
					"Coverage needed soon: "+session.Title,
					fmt.Sprintf("The Office Hours session '%s' starts %s and is still unclaimed.", session.Title, session.Start.Time().Format(time.RFC1123)),
					now)
				if qerr != nil {
					return queued, qerr
				}
				if ok {
					queued++
				}
			}
		}
	}
	return queued, nil
}

func (s *NotificationService) queueOnce(ctx context.Context, user User, session Session, kind NotificationKind, subject, body string, now time.Time) (bool, error) {
	exists, err := s.jobs.HasNotification(ctx, user.ID, session.InstanceID, kind)
	if err != nil {
		return false, mapRepoError(err)
	}
	if exists {
		return false, nil
	}
	job := s.newJob(user, kind, subject, body, session.InstanceID, now)
	if err := s.jobs.PutNotification(ctx, job); err != nil {
		return false, mapRepoError(err)
	}
	return true, nil
}
