package scheduler

import "github.com/example/officehours/internal/recurrence"

// Interval is a half-open span [Start, End).
type Interval struct {
	Start recurrence.Instant
	End   recurrence.Instant
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.End > i.Start
}

// Overlaps applies half-open overlap: back-to-back intervals do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && i.End > other.Start
}

// Host is the availability view of a person who may cover a session.
type Host struct {
	ID          string
	Disabled    bool
	OutOfOffice []Interval
}

// ConflictType describes why a host cannot cover a session.
type ConflictType string

const (
	// ConflictTypeDisabled indicates the host's account is disabled.
	ConflictTypeDisabled ConflictType = "disabled"
	// ConflictTypeOutOfOffice indicates an out-of-office block overlaps the session.
	ConflictTypeOutOfOffice ConflictType = "out_of_office"
)

// Conflict details a reason the host is unavailable that callers can present to users.
type Conflict struct {
	Type  ConflictType
	Block *Interval
}

// DetectConflicts lists every reason host cannot cover session. An empty
// result means the host is eligible.
func DetectConflicts(host Host, session Interval) []Conflict {
	var conflicts []Conflict
	if host.Disabled {
		conflicts = append(conflicts, Conflict{Type: ConflictTypeDisabled})
	}
	for _, block := range host.OutOfOffice {
		if block.Overlaps(session) {
			b := block
			conflicts = append(conflicts, Conflict{Type: ConflictTypeOutOfOffice, Block: &b})
		}
	}
	return conflicts
}

// Eligible reports whether host may cover session.
func Eligible(host Host, session Interval) bool {
	return len(DetectConflicts(host, session)) == 0
}
