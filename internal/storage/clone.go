package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/recurrence"
)

func toInstant(nanos *uint64) *recurrence.Instant {
	if nanos == nil {
		return nil
	}
	value := recurrence.Instant(*nanos)
	return &value
}

func toNanos(instant *recurrence.Instant) *uint64 {
	if instant == nil {
		return nil
	}
	value := uint64(*instant)
	return &value
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneUUID(value *uuid.UUID) *uuid.UUID {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
