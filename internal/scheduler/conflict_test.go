package scheduler

import (
	"testing"

	"github.com/example/officehours/internal/recurrence"
)

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	t1 := recurrence.FromDate(2024, 1, 3) + 10*recurrence.Hour
	t2 := t1 + recurrence.Hour
	session := Interval{Start: t1, End: t2}

	tests := []struct {
		name  string
		host  Host
		types []ConflictType
	}{
		{
			name: "available host yields no conflicts",
			host: Host{ID: "alice"},
		},
		{
			name:  "disabled host conflicts",
			host:  Host{ID: "alice", Disabled: true},
			types: []ConflictType{ConflictTypeDisabled},
		},
		{
			name:  "identical out-of-office block conflicts",
			host:  Host{ID: "alice", OutOfOffice: []Interval{{Start: t1, End: t2}}},
			types: []ConflictType{ConflictTypeOutOfOffice},
		},
		{
			name:  "partial overlap conflicts",
			host:  Host{ID: "alice", OutOfOffice: []Interval{{Start: t1 - recurrence.Minute, End: t1 + recurrence.Minute}}},
			types: []ConflictType{ConflictTypeOutOfOffice},
		},
		{
			name: "block ending at session start is back-to-back",
			host: Host{ID: "alice", OutOfOffice: []Interval{{Start: t1 - recurrence.Hour, End: t1}}},
		},
		{
			name: "block starting at session end is back-to-back",
			host: Host{ID: "alice", OutOfOffice: []Interval{{Start: t2, End: t2 + recurrence.Hour}}},
		},
		{
			name:  "every reason is reported",
			host:  Host{ID: "alice", Disabled: true, OutOfOffice: []Interval{{Start: t1, End: t2}, {Start: t2, End: t2 + 1}}},
			types: []ConflictType{ConflictTypeDisabled, ConflictTypeOutOfOffice},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := DetectConflicts(tt.host, session)
			if len(got) != len(tt.types) {
				t.Fatalf("got %d conflicts %+v, want %v", len(got), got, tt.types)
			}
			for i, conflict := range got {
				if conflict.Type != tt.types[i] {
					t.Fatalf("conflict %d type = %s, want %s", i, conflict.Type, tt.types[i])
				}
				if conflict.Type == ConflictTypeOutOfOffice && conflict.Block == nil {
					t.Fatalf("out-of-office conflict %d carries no block", i)
				}
			}
			if Eligible(tt.host, session) != (len(tt.types) == 0) {
				t.Fatalf("Eligible disagrees with DetectConflicts")
			}
		})
	}
}

func TestIntervalValid(t *testing.T) {
	t.Parallel()

	if (Interval{Start: 5, End: 5}).Valid() {
		t.Fatal("empty interval must be invalid")
	}
	if !(Interval{Start: 5, End: 6}).Valid() {
		t.Fatal("non-empty interval must be valid")
	}
}
