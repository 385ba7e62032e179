package testfixtures

import (
	"sync/atomic"
	"time"

	"github.com/example/officehours/internal/recurrence"
)

// Clock is a manual time source for services under test. It stores the
// current instant so tests can move it in whole weeks as easily as in
// minutes.
type Clock struct {
	instant atomic.Uint64
}

// NewClock starts the clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	c := &Clock{}
	c.Set(start)
	return c
}

func (c *Clock) Now() time.Time {
	return c.Instant().Time()
}

// NowFunc adapts the clock to the now parameter of the service constructors.
// A nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Instant() recurrence.Instant {
	return recurrence.Instant(c.instant.Load())
}

func (c *Clock) Set(t time.Time) {
	c.instant.Store(uint64(recurrence.FromTime(t)))
}

// Advance moves the clock forward and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	return recurrence.Instant(c.instant.Add(uint64(d))).Time()
}

// AdvanceWeeks moves the clock forward by whole weeks, keeping the time of
// day.
func (c *Clock) AdvanceWeeks(n int) recurrence.Instant {
	return recurrence.Instant(c.instant.Add(uint64(n) * uint64(recurrence.Week)))
}
