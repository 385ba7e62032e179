package application

import (
	"github.com/example/officehours/internal/recurrence"
)

// resolveOccurrence overlays exc (nil when absent) onto the base occurrence of
// series. ok is false when the occurrence is cancelled.
//
// Each field falls back independently: an overridden start without an
// overridden end keeps end = base + duration, anchored on the base instant.
func resolveOccurrence(series Series, base recurrence.Instant, exc *Exception) (Session, bool) {
	seriesID := series.ID
	occurrence := base

	session := Session{
		InstanceID:      recurrence.InstanceID(series.ID, base),
		SeriesID:        &seriesID,
		OccurrenceStart: &occurrence,
		Start:           base,
		End:             base + series.Duration(),
		Title:           series.Title,
		Notes:           series.Notes,
		Link:            series.Link,
		Status:          SessionStatusActive,
		Color:           series.Color,
		CreatedAt:       series.CreatedAt,
	}
	if exc == nil {
		return session, true
	}
	if exc.Cancelled {
		return Session{}, false
	}

	if exc.StartOverride != nil {
		session.Start = *exc.StartOverride
	}
	if exc.EndOverride != nil {
		session.End = *exc.EndOverride
	}
	if exc.NotesOverride != nil {
		session.Notes = *exc.NotesOverride
	}
	if !exc.HostCleared {
		session.Host = cloneString(exc.Host)
	}
	return session, true
}

// resolveOneOff presents a stored one-off as a session. ok is false when the
// one-off is cancelled.
func resolveOneOff(oneOff OneOff) (Session, bool) {
	if oneOff.Status == SessionStatusCancelled {
		return Session{}, false
	}
	return Session{
		InstanceID: oneOff.ID,
		Start:      oneOff.Start,
		End:        oneOff.End,
		Title:      oneOff.Title,
		Notes:      oneOff.Notes,
		Link:       oneOff.Link,
		Host:       cloneString(oneOff.Host),
		Status:     SessionStatusActive,
		Color:      oneOff.Color,
		CreatedAt:  oneOff.CreatedAt,
	}, true
}
