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

type eventFixture struct {
	repo     *memoryRepo
	notifier *recordingNotifier
	svc      *EventService
	series   Series
}

func newEventFixture(t *testing.T) eventFixture {
	t.Helper()
	repo := newMemoryRepo()
	series := weeklyWednesdaySeries(uuid.New())
	repo.series[series.ID] = series
	repo.users["alice"] = activeUser("alice", RoleUser)
	repo.users["admin"] = activeUser("admin", RoleAdmin)

	notifier := &recordingNotifier{}
	now := fixedClock(testSeriesStart)
	m := NewMaterializer(repo, repo, repo, repo, now)
	svc := NewEventService(m, repo, repo, repo, repo, notifier, nil, now)
	return eventFixture{repo: repo, notifier: notifier, svc: svc, series: series}
}

func TestEventService_ListEvents(t *testing.T) {
	t.Parallel()
	f := newEventFixture(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	if _, err := f.svc.ListEvents(context.Background(), Principal{}, start, end); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.svc.ListEvents(context.Background(), userPrincipal, end, start); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid window error, got %v", err)
	}

	sessions, err := f.svc.ListEvents(context.Background(), userPrincipal, start, end)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(sessions) != 5 {
		t.Fatalf("expected 5 January Wednesdays, got %d", len(sessions))
	}
}

func TestEventService_ListPublicEventsHidesHostIDs(t *testing.T) {
	t.Parallel()
	f := newEventFixture(t)
	key := recurrence.OccurrenceKey{SeriesID: f.series.ID, Start: f.series.Start}
	f.repo.exceptions[key] = Exception{Key: key, Host: stringPtr("alice")}

	public, err := f.svc.ListPublicEvents(context.Background(), testSeriesStart.Add(-time.Hour), testSeriesStart.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListPublicEvents returned error: %v", err)
	}
	if len(public) != 1 {
		t.Fatalf("expected one session, got %d", len(public))
	}
	if public[0].Session.Host != nil {
		t.Fatalf("expected host id to be hidden")
	}
	if public[0].HostName != "User alice" {
		t.Fatalf("expected host name, got %q", public[0].HostName)
	}
}

func TestEventService_CreateOneOff(t *testing.T) {
	start := testSeriesStart.Add(48 * time.Hour)

	t.Run("creates an unhosted one-off", func(t *testing.T) {
		t.Parallel()
		f := newEventFixture(t)
		session, err := f.svc.CreateOneOff(context.Background(), CreateOneOffParams{
			Principal: userPrincipal,
			Input:     OneOffInput{Title: " Drop-in ", Start: start, End: start.Add(time.Hour)},
		})
		if err != nil {
			t.Fatalf("CreateOneOff returned error: %v", err)
		}
		if session.Title != "Drop-in" || session.SeriesID != nil {
			t.Fatalf("unexpected session %+v", session)
		}
		if _, ok := f.repo.oneOffs[session.InstanceID]; !ok {
			t.Fatalf("expected one-off to be stored")
		}
		if calls := f.notifier.snapshot(); len(calls) != 0 {
			t.Fatalf("expected no notices, got %+v", calls)
		}
	})

	t.Run("creates with host and notifies", func(t *testing.T) {
		t.Parallel()
		f := newEventFixture(t)
		session, err := f.svc.CreateOneOff(context.Background(), CreateOneOffParams{
			Principal: userPrincipal,
			Input:     OneOffInput{Title: "Drop-in", Start: start, End: start.Add(time.Hour), HostID: stringPtr("alice")},
		})
		if err != nil {
			t.Fatalf("CreateOneOff returned error: %v", err)
		}
		if session.Host == nil || *session.Host != "alice" {
			t.Fatalf("expected alice as host")
		}
		if calls := f.notifier.snapshot(); len(calls) != 1 || calls[0].kind != NotificationHostAssigned {
			t.Fatalf("expected host assigned notice, got %+v", calls)
		}
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		f := newEventFixture(t)
		_, err := f.svc.CreateOneOff(context.Background(), CreateOneOffParams{
			Principal: userPrincipal,
			Input:     OneOffInput{Start: start, End: start},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if vErr.FieldErrors["title"] == "" || vErr.FieldErrors["end"] == "" {
			t.Fatalf("expected title and end errors, got %v", vErr.FieldErrors)
		}
	})

	t.Run("hosted one-off respects the pause gate", func(t *testing.T) {
		t.Parallel()
		f := newEventFixture(t)
		paused := DefaultGlobalSettings()
		paused.ClaimsPaused = true
		f.repo.settings = &paused

		_, err := f.svc.CreateOneOff(context.Background(), CreateOneOffParams{
			Principal: userPrincipal,
			Input:     OneOffInput{Title: "Drop-in", Start: start, End: start.Add(time.Hour), HostID: stringPtr("alice")},
		})
		if !errors.Is(err, ErrClaimsPaused) {
			t.Fatalf("expected ErrClaimsPaused, got %v", err)
		}
		if len(f.repo.oneOffs) != 0 {
			t.Fatalf("expected nothing to be stored")
		}
	})
}

func TestEventService_UpdateInstance(t *testing.T) {
	t.Run("moves a hosted occurrence and notifies", func(t *testing.T) {
		t.Parallel()
		f := newEventFixture(t)
		key := recurrence.OccurrenceKey{SeriesID: f.series.ID, Start: f.series.Start}
		f.repo.exceptions[key] = Exception{Key: key, Host: stringPtr("alice")}

		occurrence := testSeriesStart
		newStart := testSeriesStart.Add(2 * time.Hour)
		newEnd := newStart.Add(30 * time.Minute)
		session, err := f.svc.UpdateInstance(context.Background(), UpdateInstanceParams{
			Principal: adminPrincipal,
			Ref:       SessionRefInput{SeriesID: f.series.ID.String(), OccurrenceStart: &occurrence},
			Start:     &newStart,
			End:       &newEnd,
		})
		if err != nil {
			t.Fatalf("UpdateInstance returned error: %v", err)
		}
		if !session.Start.Time().Equal(newStart) || !session.End.Time().Equal(newEnd) {
			t.Fatalf("unexpected timing [%s, %s)", session.Start, session.End)
		}
		if session.Host == nil || *session.Host != "alice" {
			t.Fatalf("expected host to survive the edit")
		}
		if calls := f.notifier.snapshot(); len(calls) != 1 || calls[0].kind != NotificationTimeChanged {
			t.Fatalf("expected time changed notice, got %+v", calls)
		}
	})

	t.Run("notes only change sends nothing", func(t *testing.T) {
		t.Parallel()
		f := newEventFixture(t)
		occurrence := testSeriesStart
		session, err := f.svc.UpdateInstance(context.Background(), UpdateInstanceParams{
			Principal: adminPrincipal,
			Ref:       SessionRefInput{SeriesID: f.series.ID.String(), OccurrenceStart: &occurrence},
			Notes:     stringPtr("room 4"),
		})
		if err != nil {
			t.Fatalf("UpdateInstance returned error: %v", err)
		}
		if session.Notes != "room 4" {
			t.Fatalf("expected notes override, got %q", session.Notes)
		}
		if calls := f.notifier.snapshot(); len(calls) != 0 {
			t.Fatalf("expected no notices, got %+v", calls)
		}
	})

	t.Run("requires admin", func(t *testing.T) {
		t.Parallel()
		f := newEventFixture(t)
		occurrence := testSeriesStart
		_, err := f.svc.UpdateInstance(context.Background(), UpdateInstanceParams{
			Principal: userPrincipal,
			Ref:       SessionRefInput{SeriesID: f.series.ID.String(), OccurrenceStart: &occurrence},
			Notes:     stringPtr("x"),
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects inverted timing", func(t *testing.T) {
		t.Parallel()
		f := newEventFixture(t)
		occurrence := testSeriesStart
		end := testSeriesStart.Add(-time.Minute)
		_, err := f.svc.UpdateInstance(context.Background(), UpdateInstanceParams{
			Principal: adminPrincipal,
			Ref:       SessionRefInput{SeriesID: f.series.ID.String(), OccurrenceStart: &occurrence},
			End:       &end,
		})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestEventService_CancelInstance(t *testing.T) {
	t.Parallel()
	f := newEventFixture(t)
	key := recurrence.OccurrenceKey{SeriesID: f.series.ID, Start: f.series.Start}
	f.repo.exceptions[key] = Exception{Key: key, Host: stringPtr("alice")}
	occurrence := testSeriesStart
	ref := SessionRefInput{SeriesID: f.series.ID.String(), OccurrenceStart: &occurrence}

	if err := f.svc.CancelInstance(context.Background(), CancelInstanceParams{Principal: adminPrincipal, Ref: ref}); err != nil {
		t.Fatalf("CancelInstance returned error: %v", err)
	}
	if !f.repo.exceptions[key].Cancelled {
		t.Fatalf("expected exception to be cancelled")
	}
	if calls := f.notifier.snapshot(); len(calls) != 1 || calls[0].kind != NotificationCancelled || calls[0].recipient != "alice" {
		t.Fatalf("expected cancellation notice to alice, got %+v", calls)
	}

	err := f.svc.CancelInstance(context.Background(), CancelInstanceParams{Principal: adminPrincipal, Ref: ref})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cancelled occurrence to be gone, got %v", err)
	}
}

func TestEventService_EventICS(t *testing.T) {
	t.Parallel()
	f := newEventFixture(t)
	occurrence := testSeriesStart

	payload, err := f.svc.EventICS(context.Background(), userPrincipal, SessionRefInput{SeriesID: f.series.ID.String(), OccurrenceStart: &occurrence})
	if err != nil {
		t.Fatalf("EventICS returned error: %v", err)
	}
	for _, want := range []string{"BEGIN:VCALENDAR", "METHOD:PUBLISH", "SUMMARY:Office Hours"} {
		if !strings.Contains(payload, want) {
			t.Fatalf("expected payload to contain %q:\n%s", want, payload)
		}
	}
}
