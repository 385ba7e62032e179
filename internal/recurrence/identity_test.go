package recurrence

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestInstanceIDIsDeterministic(t *testing.T) {
	t.Parallel()

	series := uuid.MustParse("6f1c2a4e-8d0b-4c61-9d8f-2f7a3b5c9e10")
	occurrence := FromDate(2024, 1, 3) + 10*Hour

	first := InstanceID(series, occurrence)
	second := InstanceID(series, occurrence)
	if first != second {
		t.Fatalf("InstanceID not stable: %s vs %s", first, second)
	}

	var buf [24]byte
	copy(buf[:16], series[:])
	binary.BigEndian.PutUint64(buf[16:], uint64(occurrence))
	sum := sha256.Sum256(buf[:])
	if !bytes.Equal(first[:], sum[:16]) {
		t.Fatalf("InstanceID = %x, want %x", first[:], sum[:16])
	}

	if other := InstanceID(series, occurrence+Week); other == first {
		t.Fatal("different occurrences must not share an id")
	}
	key := OccurrenceKey{SeriesID: series, Start: occurrence}
	if key.InstanceID() != first {
		t.Fatal("OccurrenceKey.InstanceID disagrees with InstanceID")
	}
	if got := key.Bytes(); !bytes.Equal(got, buf[:]) {
		t.Fatalf("OccurrenceKey.Bytes = %x, want %x", got, buf[:])
	}
}

func TestSequenceIssuesDistinctIDs(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seq := NewSequence(func() time.Time { return fixed })

	seen := make(map[uuid.UUID]struct{})
	for i := 0; i < 1000; i++ {
		id := seq.Next()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s after %d draws", id, i)
		}
		seen[id] = struct{}{}
	}
}
