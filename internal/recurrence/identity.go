package recurrence

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OccurrenceKey addresses one base occurrence of a series. Start is the
// generated instant, never an override.
type OccurrenceKey struct {
	SeriesID uuid.UUID
	Start    Instant
}

// Bytes returns the 24 byte storage form: series id then big-endian start.
func (k OccurrenceKey) Bytes() []byte {
	out := make([]byte, 0, 24)
	out = append(out, k.SeriesID[:]...)
	return binary.BigEndian.AppendUint64(out, uint64(k.Start))
}

// InstanceID derives the stable id of the occurrence.
func (k OccurrenceKey) InstanceID() uuid.UUID {
	return InstanceID(k.SeriesID, k.Start)
}

// InstanceID returns the first 16 bytes of SHA-256 over the series id followed
// by the big-endian occurrence instant. The same inputs always produce the
// same id.
func InstanceID(seriesID uuid.UUID, occurrence Instant) uuid.UUID {
	sum := sha256.Sum256(OccurrenceKey{SeriesID: seriesID, Start: occurrence}.Bytes())
	var id uuid.UUID
	copy(id[:], sum[:16])
	return id
}

// Sequence issues process-local unique ids for one-off sessions and
// notification jobs. Uniqueness holds within a process only.
type Sequence struct {
	mu      sync.Mutex
	counter uint64
	now     func() time.Time
}

// NewSequence returns a sequence reading wall time from now (time.Now when nil).
func NewSequence(now func() time.Time) *Sequence {
	if now == nil {
		now = time.Now
	}
	return &Sequence{now: now}
}

// Next returns a fresh id.
func (s *Sequence) Next() uuid.UUID {
	s.mu.Lock()
	s.counter++
	counter := s.counter
	s.mu.Unlock()

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(s.now().UnixNano()))
	binary.BigEndian.PutUint64(buf[8:], counter)
	sum := sha256.Sum256(buf[:])

	var id uuid.UUID
	copy(id[:], sum[:16])
	return id
}
