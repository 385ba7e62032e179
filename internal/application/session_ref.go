package application

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/recurrence"
)

// SessionRef addresses a session for mutation. Recurring occurrences are
// addressed by series and base occurrence start; one-offs by instance id.
type SessionRef struct {
	SeriesID        uuid.UUID
	OccurrenceStart recurrence.Instant
	InstanceID      uuid.UUID
}

// Recurring reports whether the reference names a series occurrence.
func (r SessionRef) Recurring() bool {
	return r.SeriesID != uuid.Nil
}

// Key returns the occurrence key of a recurring reference.
func (r SessionRef) Key() recurrence.OccurrenceKey {
	return recurrence.OccurrenceKey{SeriesID: r.SeriesID, Start: r.OccurrenceStart}
}

// SessionRefInput is the caller supplied, unvalidated form of a SessionRef.
type SessionRefInput struct {
	SeriesID        string
	OccurrenceStart *time.Time
	InstanceID      string
}

// ParseSessionRef validates the shape of input without touching storage.
func ParseSessionRef(input SessionRefInput) (SessionRef, error) {
	vErr := &ValidationError{}
	seriesRaw := strings.TrimSpace(input.SeriesID)
	instanceRaw := strings.TrimSpace(input.InstanceID)

	var ref SessionRef
	switch {
	case seriesRaw != "":
		id, err := parseID(seriesRaw)
		if err != nil {
			vErr.add("series_id", "must be a 16 byte identifier")
		}
		ref.SeriesID = id
		if input.OccurrenceStart == nil {
			vErr.add("occurrence_start", "occurrence_start is required for series occurrences")
		} else {
			ref.OccurrenceStart = recurrence.FromTime(*input.OccurrenceStart)
			ref.InstanceID = recurrence.InstanceID(ref.SeriesID, ref.OccurrenceStart)
		}
		if instanceRaw != "" {
			if instanceID, err := parseID(instanceRaw); err != nil || instanceID != ref.InstanceID {
				vErr.add("instance_id", "does not match the series occurrence")
			}
		}
	case instanceRaw != "":
		id, err := parseID(instanceRaw)
		if err != nil {
			vErr.add("instance_id", "must be a 16 byte identifier")
		}
		ref.InstanceID = id
		if input.OccurrenceStart != nil {
			vErr.add("occurrence_start", "only applies to series occurrences")
		}
	default:
		vErr.add("instance_id", "series_id with occurrence_start or instance_id is required")
	}

	if vErr.HasErrors() {
		return SessionRef{}, vErr
	}
	return ref, nil
}

var errNilID = errors.New("application: nil id")

// parseID accepts the canonical and 32 digit hex forms of a 16 byte id.
func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, errNilID
	}
	return id, nil
}
