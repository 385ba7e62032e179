package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/recurrence"
)

type senderStub struct {
	err  error
	sent []uuid.UUID
}

func (s *senderStub) Send(ctx context.Context, job NotificationJob) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, job.ID)
	return nil
}

func newNotificationFixture(now time.Time) (*memoryRepo, *NotificationService) {
	repo := newMemoryRepo()
	clock := fixedClock(now)
	m := NewMaterializer(repo, repo, repo, repo, clock)
	return repo, NewNotificationService(repo, repo, m, nil, clock)
}

func sampleSession() Session {
	start := recurrence.FromTime(testSeriesStart)
	return Session{
		InstanceID: uuid.New(),
		Start:      start,
		End:        start + recurrence.Hour,
		Title:      "Office Hours",
		Status:     SessionStatusActive,
	}
}

func TestNotificationService_Enqueue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		send       func(*NotificationService, Session) error
		kind       NotificationKind
		wantMethod string
		wantSubj   string
	}{
		{
			name:       "host assigned",
			send:       func(s *NotificationService, session Session) error { return s.HostAssigned(context.Background(), "alice", session) },
			kind:       NotificationHostAssigned,
			wantMethod: "METHOD:REQUEST",
			wantSubj:   "You've been assigned to an Office Hours session",
		},
		{
			name:       "host removed",
			send:       func(s *NotificationService, session Session) error { return s.HostRemoved(context.Background(), "alice", session) },
			kind:       NotificationHostRemoved,
			wantMethod: "METHOD:CANCEL",
			wantSubj:   "You've been removed from an Office Hours session",
		},
		{
			name:       "time changed",
			send:       func(s *NotificationService, session Session) error { return s.TimeChanged(context.Background(), "alice", session) },
			kind:       NotificationTimeChanged,
			wantMethod: "METHOD:REQUEST",
			wantSubj:   "Office Hours session time changed: Office Hours",
		},
		{
			name:       "cancelled",
			send:       func(s *NotificationService, session Session) error { return s.Cancelled(context.Background(), "alice", session) },
			kind:       NotificationCancelled,
			wantMethod: "METHOD:CANCEL",
			wantSubj:   "Office Hours session cancelled: Office Hours",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo, svc := newNotificationFixture(testSeriesStart)
			repo.users["alice"] = activeUser("alice", RoleUser)
			session := sampleSession()

			if err := tt.send(svc, session); err != nil {
				t.Fatalf("enqueue returned error: %v", err)
			}
			jobs := repo.jobsOfKind(tt.kind)
			if len(jobs) != 1 {
				t.Fatalf("expected one %s job, got %d", tt.kind, len(jobs))
			}
			job := jobs[0]
			if job.Subject != tt.wantSubj {
				t.Fatalf("expected subject %q, got %q", tt.wantSubj, job.Subject)
			}
			if job.RecipientEmail != "alice@example.com" || job.Status != NotificationPending {
				t.Fatalf("unexpected job %+v", job)
			}
			if job.InstanceID == nil || *job.InstanceID != session.InstanceID {
				t.Fatalf("expected job to reference the session")
			}
			if !strings.Contains(job.ICS, tt.wantMethod) {
				t.Fatalf("expected %s in payload:\n%s", tt.wantMethod, job.ICS)
			}
		})
	}
}

func TestNotificationService_RespectsOptOut(t *testing.T) {
	t.Parallel()
	repo, svc := newNotificationFixture(testSeriesStart)
	alice := activeUser("alice", RoleUser)
	alice.Notifications.EmailOnAssigned = false
	repo.users["alice"] = alice

	if err := svc.HostAssigned(context.Background(), "alice", sampleSession()); err != nil {
		t.Fatalf("HostAssigned returned error: %v", err)
	}
	if len(repo.jobs) != 0 {
		t.Fatalf("expected no job for opted-out user")
	}
}

func TestNotificationService_UnknownRecipient(t *testing.T) {
	t.Parallel()
	_, svc := newNotificationFixture(testSeriesStart)
	if err := svc.HostAssigned(context.Background(), "ghost", sampleSession()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationService_Dispatch(t *testing.T) {
	t.Run("marks delivered jobs sent", func(t *testing.T) {
		t.Parallel()
		repo, svc := newNotificationFixture(testSeriesStart)
		repo.users["alice"] = activeUser("alice", RoleUser)
		_ = svc.HostAssigned(context.Background(), "alice", sampleSession())
		_ = svc.Cancelled(context.Background(), "alice", sampleSession())

		sender := &senderStub{}
		result, err := svc.Dispatch(context.Background(), sender, 0)
		if err != nil {
			t.Fatalf("Dispatch returned error: %v", err)
		}
		if result.Attempted != 2 || result.Sent != 2 || result.Failed != 0 {
			t.Fatalf("unexpected result %+v", result)
		}
		for _, job := range repo.jobs {
			if job.Status != NotificationSent || job.SentAt == nil || job.Attempts != 1 {
				t.Fatalf("expected sent job, got %+v", job)
			}
		}
	})

	t.Run("fails jobs after repeated errors", func(t *testing.T) {
		t.Parallel()
		repo, svc := newNotificationFixture(testSeriesStart)
		repo.users["alice"] = activeUser("alice", RoleUser)
		_ = svc.HostAssigned(context.Background(), "alice", sampleSession())

		sender := &senderStub{err: errors.New("smtp down")}
		for attempt := 1; attempt <= maxDeliveryAttempts; attempt++ {
			result, err := svc.Dispatch(context.Background(), sender, 10)
			if err != nil {
				t.Fatalf("Dispatch returned error: %v", err)
			}
			if result.Failed != 1 {
				t.Fatalf("attempt %d: expected one failure, got %+v", attempt, result)
			}
		}
		for _, job := range repo.jobs {
			if job.Status != NotificationFailed || job.Attempts != maxDeliveryAttempts || job.Error != "smtp down" {
				t.Fatalf("expected failed job, got %+v", job)
			}
		}

		result, err := svc.Dispatch(context.Background(), sender, 10)
		if err != nil || result.Attempted != 0 {
			t.Fatalf("expected failed jobs to leave the pending queue, got %+v, %v", result, err)
		}
	})
}

func TestNotificationService_MarkSentAndFailed(t *testing.T) {
	t.Parallel()
	repo, svc := newNotificationFixture(testSeriesStart)
	repo.users["alice"] = activeUser("alice", RoleUser)
	_ = svc.HostAssigned(context.Background(), "alice", sampleSession())

	pending, err := svc.ListPending(context.Background(), adminPrincipal, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending job, got %d, %v", len(pending), err)
	}
	if _, err := svc.ListPending(context.Background(), userPrincipal, 10); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if _, err := svc.MarkSent(context.Background(), userPrincipal, pending[0].ID.String()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.MarkSent(context.Background(), adminPrincipal, "bogus"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.MarkSent(context.Background(), adminPrincipal, uuid.New().String()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	job, err := svc.MarkSent(context.Background(), adminPrincipal, pending[0].ID.String())
	if err != nil {
		t.Fatalf("MarkSent returned error: %v", err)
	}
	if job.Status != NotificationSent || job.SentAt == nil {
		t.Fatalf("expected sent job, got %+v", job)
	}

	job, err = svc.MarkFailed(context.Background(), adminPrincipal, pending[0].ID.String(), " bounced ")
	if err != nil {
		t.Fatalf("MarkFailed returned error: %v", err)
	}
	if job.Status != NotificationFailed || job.Error != "bounced" {
		t.Fatalf("expected failed job, got %+v", job)
	}
}

func TestNotificationService_QueueReminders(t *testing.T) {
	t.Parallel()

	// Twelve hours before the first Wednesday occurrence.
	now := testSeriesStart.Add(-12 * time.Hour)
	repo, svc := newNotificationFixture(now)
	series := weeklyWednesdaySeries(uuid.New())
	repo.series[series.ID] = series

	reminded := activeUser("alice", RoleUser)
	reminded.Notifications.EmailOnUnclaimedReminder = true
	reminded.Notifications.ReminderHoursBefore = 24
	repo.users["alice"] = reminded
	repo.users["bob"] = activeUser("bob", RoleUser)
	repo.users["admin"] = activeUser("admin", RoleAdmin)

	queued, err := svc.QueueReminders(context.Background())
	if err != nil {
		t.Fatalf("QueueReminders returned error: %v", err)
	}
	if queued != 2 {
		t.Fatalf("expected a reminder for alice and a coverage notice for admin, got %d", queued)
	}
	if jobs := repo.jobsOfKind(NotificationUnclaimedReminder); len(jobs) != 1 || jobs[0].Recipient != "alice" {
		t.Fatalf("unexpected reminder jobs %+v", jobs)
	}
	if jobs := repo.jobsOfKind(NotificationCoverageNeededSoon); len(jobs) != 1 || jobs[0].Recipient != "admin" {
		t.Fatalf("unexpected coverage jobs %+v", jobs)
	}

	again, err := svc.QueueReminders(context.Background())
	if err != nil {
		t.Fatalf("QueueReminders returned error: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected reminders to be queued once, got %d", again)
	}
}
