package recurrence

import (
	"strings"
	"testing"
)

// The generator must agree with an independent RFC 5545 expansion.
func TestGenerateAgreesWithRRule(t *testing.T) {
	t.Parallel()

	start := FromDate(2023, 11, 6) + 14*Hour + 30*Minute
	windowStart := FromDate(2023, 12, 1)
	windowEnd := FromDate(2025, 3, 1)

	var rules []Rule
	for wd := Monday; wd <= Sunday; wd++ {
		rules = append(rules,
			Rule{Frequency: FrequencyWeekly, Weekday: wd, Start: start},
			Rule{Frequency: FrequencyBiweekly, Weekday: wd, Start: start},
			Rule{Frequency: FrequencyBiweekly, Weekday: wd, Start: start, End: instantPtr(FromDate(2024, 9, 1))},
		)
		for ord := OrdinalFirst; ord <= OrdinalLast; ord++ {
			rules = append(rules, Rule{Frequency: FrequencyMonthly, Weekday: wd, Ordinal: ord, Start: start})
		}
	}

	for _, rule := range rules {
		rule := rule
		name := rule.Frequency.String() + "/" + rule.Weekday.String() + "/" + rule.Ordinal.String()
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rr, err := rule.RRule()
			if err != nil {
				t.Fatalf("RRule() error: %v", err)
			}
			expected := rr.Between(windowStart.Time(), (windowEnd - 1).Time(), true)
			got := Generate(rule, windowStart, windowEnd)

			if len(got) != len(expected) {
				t.Fatalf("generator produced %d occurrences, rrule produced %d", len(got), len(expected))
			}
			for i := range expected {
				if want := FromTime(expected[i]); got[i] != want {
					t.Fatalf("occurrence %d = %s, rrule says %s", i, got[i], want)
				}
			}
		})
	}
}

func TestRuleRRuleString(t *testing.T) {
	t.Parallel()

	start := FromDate(2024, 1, 1)
	tests := []struct {
		name     string
		rule     Rule
		contains []string
	}{
		{
			name:     "biweekly",
			rule:     Rule{Frequency: FrequencyBiweekly, Weekday: Wednesday, Start: start},
			contains: []string{"FREQ=WEEKLY", "INTERVAL=2", "BYDAY=WE"},
		},
		{
			name:     "last friday",
			rule:     Rule{Frequency: FrequencyMonthly, Weekday: Friday, Ordinal: OrdinalLast, Start: start},
			contains: []string{"FREQ=MONTHLY", "BYDAY=-1FR"},
		},
		{
			name:     "bounded",
			rule:     Rule{Frequency: FrequencyWeekly, Weekday: Monday, Start: start, End: instantPtr(FromDate(2024, 6, 1))},
			contains: []string{"UNTIL="},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.rule.RRuleString()
			if err != nil {
				t.Fatalf("RRuleString() error: %v", err)
			}
			for _, part := range tt.contains {
				if !strings.Contains(got, part) {
					t.Fatalf("RRULE %q missing %q", got, part)
				}
			}
			if strings.Contains(got, "DTSTART") {
				t.Fatalf("RRULE %q must not embed DTSTART", got)
			}
		})
	}
}

func TestRuleRRuleRejectsInvalidRule(t *testing.T) {
	t.Parallel()

	if _, err := (Rule{Frequency: FrequencyMonthly, Weekday: Monday}).RRule(); err != ErrOrdinalRequired {
		t.Fatalf("expected ErrOrdinalRequired, got %v", err)
	}
}
