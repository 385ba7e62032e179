package testfixtures

import (
	"testing"
	"time"

	"github.com/example/officehours/internal/recurrence"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Now(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestClockNowFuncTracksAdvance(t *testing.T) {
	clock := NewClock(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected updated time %v, got %v", clock.Now(), got)
	}
}

func TestClockInstant(t *testing.T) {
	clock := NewClock(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	if got, want := clock.Instant(), recurrence.FromDate(2026, 1, 1); got != want {
		t.Fatalf("Instant() = %d, want %d", got, want)
	}
}

func TestClockAdvanceWeeksKeepsWeekday(t *testing.T) {
	clock := NewClock(time.Time{})
	before := clock.Instant()

	after := clock.AdvanceWeeks(3)
	if after-before != 3*recurrence.Week {
		t.Fatalf("advanced by %d", after-before)
	}
	if after.Weekday() != before.Weekday() {
		t.Fatalf("weekday changed from %s to %s", before.Weekday(), after.Weekday())
	}
}
