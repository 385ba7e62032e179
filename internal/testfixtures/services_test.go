package testfixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/officehours/internal/application"
	"github.com/example/officehours/internal/recurrence"
)

func TestServicesEndToEnd(t *testing.T) {
	t.Parallel()

	harnesses := map[string]func(testing.TB) *Harness{
		"memory": NewMemoryHarness,
		"sqlite": NewSQLiteHarness,
	}

	for name, newHarness := range harnesses {
		newHarness := newHarness
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			factory := NewServiceFactory()
			svc := factory.NewServices(newHarness(t).Repositories)

			admin := NewUserFixture(WithUserID("admin"), WithUserAdmin(true))
			alice := NewUserFixture(WithUserID("alice"), WithUserName("Alice"))

			created, err := svc.Users.Bootstrap(ctx, admin.Input())
			if err != nil || !created {
				t.Fatalf("Bootstrap = %v, %v", created, err)
			}
			if _, err := svc.Users.AuthorizeUser(ctx, application.AuthorizeUserParams{Principal: admin.Principal(), Input: alice.Input()}); err != nil {
				t.Fatalf("AuthorizeUser: %v", err)
			}

			series, err := svc.Series.CreateSeries(ctx, application.CreateSeriesParams{
				Principal: admin.Principal(),
				Input:     NewSeriesFixture().Input(),
			})
			if err != nil {
				t.Fatalf("CreateSeries: %v", err)
			}
			if series.ID != factory.IDGenerator.At(1) {
				t.Fatalf("series id = %s, want first generated id", series.ID)
			}

			novemberStart := time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)
			novemberEnd := time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)
			sessions, err := svc.Events.ListEvents(ctx, alice.Principal(), novemberStart, novemberEnd)
			if err != nil {
				t.Fatalf("ListEvents: %v", err)
			}
			if len(sessions) != 4 {
				t.Fatalf("sessions = %d, want 4 Wednesdays", len(sessions))
			}
			if sessions[0].Start != FirstSessionStart() {
				t.Fatalf("first start = %v, want %v", sessions[0].Start, FirstSessionStart())
			}

			occurrence := sessions[1].OccurrenceStart.Time()
			ref := application.SessionRefInput{SeriesID: series.ID.String(), OccurrenceStart: &occurrence}
			assigned, err := svc.Coverage.Assign(ctx, application.AssignParams{Principal: alice.Principal(), Ref: ref, HostID: "alice"})
			if err != nil {
				t.Fatalf("Assign: %v", err)
			}
			if assigned.Host == nil || *assigned.Host != "alice" {
				t.Fatalf("host = %v, want alice", assigned.Host)
			}

			pending, err := svc.Notifications.ListPending(ctx, admin.Principal(), 10)
			if err != nil {
				t.Fatalf("ListPending: %v", err)
			}
			if len(pending) != 1 || pending[0].Kind != application.NotificationHostAssigned || pending[0].Recipient != "alice" {
				t.Fatalf("pending = %+v", pending)
			}

			unclaimed, err := svc.Materializer.Unclaimed(ctx)
			if err != nil {
				t.Fatalf("Unclaimed: %v", err)
			}
			for _, session := range unclaimed {
				if session.InstanceID == assigned.InstanceID {
					t.Fatal("assigned session listed as unclaimed")
				}
			}

			paused := true
			if _, err := svc.Settings.UpdateSettings(ctx, admin.Principal(), application.SettingsPatch{ClaimsPaused: &paused}); err != nil {
				t.Fatalf("UpdateSettings: %v", err)
			}
			_, err = svc.Coverage.Unassign(ctx, application.UnassignParams{Principal: alice.Principal(), Ref: ref})
			if !errors.Is(err, application.ErrClaimsPaused) {
				t.Fatalf("Unassign while paused err = %v, want ErrClaimsPaused", err)
			}

			issued, err := svc.Tokens.IssueToken(ctx, application.IssueTokenParams{Principal: alice.Principal(), Label: "cli"})
			if err != nil {
				t.Fatalf("IssueToken: %v", err)
			}
			principal, err := svc.Tokens.Authenticate(ctx, issued.Bearer)
			if err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			if principal.UserID != "alice" || principal.IsAdmin {
				t.Fatalf("principal = %+v", principal)
			}
		})
	}
}

func TestFixtureConversions(t *testing.T) {
	t.Parallel()

	series := NewSeriesFixture(WithSeriesBiweekly())
	if got := series.Occurrence(1) - series.Occurrence(0); got != 2*recurrence.Week {
		t.Fatalf("biweekly step = %d", got)
	}
	input := series.Input()
	if input.Frequency != "biweekly" || input.Weekday != "wed" || input.Ordinal != "" {
		t.Fatalf("input = %+v", input)
	}

	user := NewUserFixture(WithUserDisabled(), WithUserAdmin(true))
	if app := user.Application(); app.Status != application.UserStatusDisabled || !app.IsAdmin() {
		t.Fatalf("user = %+v", app)
	}

	oneOff := NewOneOffFixture(WithOneOffHost("bob"), WithOneOffCancelled())
	app := oneOff.Application()
	if app.Host == nil || *app.Host != "bob" || app.Status != application.SessionStatusCancelled {
		t.Fatalf("one-off = %+v", app)
	}
	*app.Host = "carol"
	if *oneOff.Host != "bob" {
		t.Fatal("Application shares the host pointer")
	}
}
