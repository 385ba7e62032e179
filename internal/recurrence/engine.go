package recurrence

import (
	"errors"
	"strings"
)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyWeekly repeats every week on the anchor weekday.
	FrequencyWeekly
	// FrequencyBiweekly repeats every second week on the anchor weekday.
	FrequencyBiweekly
	// FrequencyMonthly repeats on the Nth or last anchor weekday of each month.
	FrequencyMonthly
)

func (f Frequency) String() string {
	switch f {
	case FrequencyWeekly:
		return "weekly"
	case FrequencyBiweekly:
		return "biweekly"
	case FrequencyMonthly:
		return "monthly"
	default:
		return "unspecified"
	}
}

// ParseFrequency maps the wire names onto Frequency values.
func ParseFrequency(value string) (Frequency, error) {
	switch normalize(value) {
	case "weekly":
		return FrequencyWeekly, nil
	case "biweekly":
		return FrequencyBiweekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	default:
		return FrequencyUnspecified, ErrInvalidFrequency
	}
}

// Ordinal selects which anchor weekday of a month a monthly rule uses.
type Ordinal int

const (
	OrdinalNone Ordinal = iota
	OrdinalFirst
	OrdinalSecond
	OrdinalThird
	OrdinalFourth
	OrdinalLast
)

func (o Ordinal) String() string {
	switch o {
	case OrdinalFirst:
		return "first"
	case OrdinalSecond:
		return "second"
	case OrdinalThird:
		return "third"
	case OrdinalFourth:
		return "fourth"
	case OrdinalLast:
		return "last"
	default:
		return ""
	}
}

// ParseOrdinal maps the wire names onto Ordinal values. The empty string is
// OrdinalNone.
func ParseOrdinal(value string) (Ordinal, error) {
	switch normalize(value) {
	case "":
		return OrdinalNone, nil
	case "first":
		return OrdinalFirst, nil
	case "second":
		return OrdinalSecond, nil
	case "third":
		return OrdinalThird, nil
	case "fourth":
		return OrdinalFourth, nil
	case "last":
		return OrdinalLast, nil
	default:
		return OrdinalNone, ErrInvalidOrdinal
	}
}

// Rule describes a recurrence configuration for a series.
type Rule struct {
	Frequency Frequency
	Weekday   Weekday
	Ordinal   Ordinal
	Start     Instant
	End       *Instant
}

var (
	// ErrInvalidFrequency indicates the recurrence frequency is not supported.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrInvalidWeekday indicates the anchor weekday is out of range.
	ErrInvalidWeekday = errors.New("recurrence: invalid weekday")
	// ErrInvalidOrdinal indicates an unknown ordinal name or value.
	ErrInvalidOrdinal = errors.New("recurrence: invalid ordinal")
	// ErrOrdinalRequired indicates a monthly rule without an ordinal.
	ErrOrdinalRequired = errors.New("recurrence: monthly rule requires an ordinal")
	// ErrOrdinalNotAllowed indicates an ordinal on a weekly or biweekly rule.
	ErrOrdinalNotAllowed = errors.New("recurrence: ordinal only applies to monthly rules")
	// ErrInvalidWindow indicates a rule end at or before its start.
	ErrInvalidWindow = errors.New("recurrence: end must be after start")
)

// Validate checks that the rule can be expanded.
func (r Rule) Validate() error {
	if !r.Weekday.Valid() {
		return ErrInvalidWeekday
	}
	if r.Ordinal < OrdinalNone || r.Ordinal > OrdinalLast {
		return ErrInvalidOrdinal
	}

	switch r.Frequency {
	case FrequencyWeekly, FrequencyBiweekly:
		if r.Ordinal != OrdinalNone {
			return ErrOrdinalNotAllowed
		}
	case FrequencyMonthly:
		if r.Ordinal == OrdinalNone {
			return ErrOrdinalRequired
		}
	default:
		return ErrInvalidFrequency
	}

	if r.End != nil && *r.End <= r.Start {
		return ErrInvalidWindow
	}
	return nil
}

// Generate expands rule into base occurrence instants inside the half-open
// window [windowStart, windowEnd), clipped to the rule's own bounds. The result
// is ascending and never contains an instant before rule.Start or at or after
// rule.End.
//
// Weekly and biweekly cadences are phase-locked to the first anchor weekday at
// or after rule.Start, keeping the start's time of day. Monthly occurrences
// fall on the Nth or last anchor weekday at the same time of day; months in
// which the requested weekday does not exist contribute nothing.
func Generate(rule Rule, windowStart, windowEnd Instant) []Instant {
	start := windowStart
	if rule.Start > start {
		start = rule.Start
	}
	end := windowEnd
	if rule.End != nil && *rule.End < end {
		end = *rule.End
	}
	if start >= end || !rule.Weekday.Valid() {
		return nil
	}

	switch rule.Frequency {
	case FrequencyWeekly:
		return stepped(rule, start, end, Week)
	case FrequencyBiweekly:
		return stepped(rule, start, end, 2*Week)
	case FrequencyMonthly:
		return monthly(rule, start, end)
	default:
		return nil
	}
}

// Origin returns the first anchor weekday at or after the rule start, at the
// start's time of day. Weekly and biweekly occurrences are Origin + k*interval.
func (r Rule) Origin() Instant {
	return r.Start + Instant(daysUntil(r.Start.Weekday(), r.Weekday))*Day
}

func stepped(rule Rule, start, end, interval Instant) []Instant {
	occurrence := rule.Origin()
	if start > occurrence {
		steps := (start - occurrence + interval - 1) / interval
		occurrence += steps * interval
	}

	var out []Instant
	for occurrence < end {
		out = append(out, occurrence)
		if end-occurrence <= interval {
			break
		}
		occurrence += interval
	}
	return out
}

func monthly(rule Rule, start, end Instant) []Instant {
	timeOfDay := rule.Start.TimeOfDay()
	year, month, _ := start.Date()
	lastYear, lastMonth, _ := (end - 1).Date()

	var out []Instant
	for year < lastYear || (year == lastYear && month <= lastMonth) {
		if day, ok := NthWeekday(year, month, rule.Weekday, rule.Ordinal); ok {
			occurrence := FromDate(year, month, day) + timeOfDay
			if occurrence >= start && occurrence < end {
				out = append(out, occurrence)
			}
		}
		year, month = nextMonth(year, month)
	}
	return out
}

// NthWeekday returns the day of month of the ordinal-th weekday of the given
// month. ok is false when the month has no such day.
func NthWeekday(year, month int, weekday Weekday, ordinal Ordinal) (day int, ok bool) {
	length := DaysInMonth(year, month)
	if length == 0 || !weekday.Valid() {
		return 0, false
	}

	switch ordinal {
	case OrdinalFirst, OrdinalSecond, OrdinalThird, OrdinalFourth:
		first := FromDate(year, month, 1).Weekday()
		day = 1 + daysUntil(first, weekday) + (int(ordinal)-1)*7
		if day > length {
			return 0, false
		}
		return day, true
	case OrdinalLast:
		last := FromDate(year, month, length).Weekday()
		return length - daysUntil(weekday, last), true
	default:
		return 0, false
	}
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
