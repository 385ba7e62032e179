package recurrence

import (
	"fmt"

	"github.com/teambition/rrule-go"
)

// RRule converts the rule into an RFC 5545 recurrence. DTSTART is the first
// occurrence so the library's week counting matches the generator's phase.
// The exclusive End becomes an inclusive UNTIL one nanosecond earlier.
func (r Rule) RRule() (*rrule.RRule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	day := rruleWeekday(r.Weekday)
	opt := rrule.ROption{
		Interval: 1,
		Wkst:     rrule.MO,
	}

	switch r.Frequency {
	case FrequencyWeekly, FrequencyBiweekly:
		opt.Freq = rrule.WEEKLY
		opt.Dtstart = r.Origin().Time()
		opt.Byweekday = []rrule.Weekday{day}
		if r.Frequency == FrequencyBiweekly {
			opt.Interval = 2
		}
	case FrequencyMonthly:
		n := int(r.Ordinal)
		if r.Ordinal == OrdinalLast {
			n = -1
		}
		opt.Freq = rrule.MONTHLY
		opt.Dtstart = r.Start.Time()
		opt.Byweekday = []rrule.Weekday{day.Nth(n)}
	}

	if r.End != nil {
		opt.Until = (*r.End - 1).Time()
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("recurrence: build rrule: %w", err)
	}
	return rule, nil
}

// RRuleString returns the RRULE property value without DTSTART.
func (r Rule) RRuleString() (string, error) {
	rule, err := r.RRule()
	if err != nil {
		return "", err
	}
	return rule.OrigOptions.RRuleString(), nil
}

func rruleWeekday(w Weekday) rrule.Weekday {
	switch w {
	case Tuesday:
		return rrule.TU
	case Wednesday:
		return rrule.WE
	case Thursday:
		return rrule.TH
	case Friday:
		return rrule.FR
	case Saturday:
		return rrule.SA
	case Sunday:
		return rrule.SU
	default:
		return rrule.MO
	}
}
