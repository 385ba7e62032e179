package recurrence

import "time"

// Instant is an absolute point in time expressed as nanoseconds since
// 1970-01-01T00:00:00Z. Instants carry no zone; every calendar computation in
// this package is proleptic Gregorian UTC.
type Instant uint64

// Common spans expressed as Instants.
const (
	Second Instant = 1_000_000_000
	Minute         = 60 * Second
	Hour           = 60 * Minute
	Day            = 24 * Hour
	Week           = 7 * Day
)

const epochYear = 1970

// Weekday identifies a day of the week with Monday as zero.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Valid reports whether w names one of the seven weekdays.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return "invalid"
	}
	return weekdayNames[w]
}

// ParseWeekday accepts three letter or full English weekday names.
func ParseWeekday(value string) (Weekday, error) {
	switch normalize(value) {
	case "mon", "monday":
		return Monday, nil
	case "tue", "tuesday":
		return Tuesday, nil
	case "wed", "wednesday":
		return Wednesday, nil
	case "thu", "thursday":
		return Thursday, nil
	case "fri", "friday":
		return Friday, nil
	case "sat", "saturday":
		return Saturday, nil
	case "sun", "sunday":
		return Sunday, nil
	default:
		return 0, ErrInvalidWeekday
	}
}

// IsLeapYear applies the Gregorian rule: divisible by 4, not by 100 unless by 400.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInMonth returns the number of days in month (1-12) of year, or 0 for an
// invalid month.
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

func daysInYear(year int) uint64 {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// Date returns the calendar date containing t.
func (t Instant) Date() (year, month, day int) {
	days := uint64(t / Day)

	year = epochYear
	for {
		n := daysInYear(year)
		if days < n {
			break
		}
		days -= n
		year++
	}

	month = 1
	for {
		n := uint64(DaysInMonth(year, month))
		if days < n {
			break
		}
		days -= n
		month++
	}

	return year, month, int(days) + 1
}

// FromDate returns midnight of the given date. Dates before the epoch clamp to
// the epoch because Instants are unsigned.
func FromDate(year, month, day int) Instant {
	if year < epochYear || month < 1 || day < 1 {
		return 0
	}

	var days uint64
	for y := epochYear; y < year; y++ {
		days += daysInYear(y)
	}
	for m := 1; m < month; m++ {
		days += uint64(DaysInMonth(year, m))
	}
	days += uint64(day - 1)

	return Instant(days) * Day
}

// Weekday returns the day of the week of t. 1970-01-01 was a Thursday.
func (t Instant) Weekday() Weekday {
	return Weekday((uint64(t/Day) + uint64(Thursday)) % 7)
}

// Midnight truncates t to the start of its day.
func (t Instant) Midnight() Instant {
	return t - t%Day
}

// TimeOfDay returns the offset of t from its midnight.
func (t Instant) TimeOfDay() Instant {
	return t % Day
}

// Time converts t for presentation and transport.
func (t Instant) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

func (t Instant) String() string {
	return t.Time().Format(time.RFC3339Nano)
}

// FromTime converts a wall clock time to an Instant. Times before the epoch
// clamp to zero.
func FromTime(t time.Time) Instant {
	if t.Before(time.Unix(0, 0)) {
		return 0
	}
	return Instant(t.UnixNano())
}

// Minutes converts a whole number of minutes to a span.
func Minutes(n uint32) Instant {
	return Instant(n) * Minute
}

// WindowEnd returns the last nanosecond of the month that lies months calendar
// months after the month containing from.
func WindowEnd(from Instant, months int) Instant {
	year, month, _ := from.Date()
	for i := 0; i < months; i++ {
		year, month = nextMonth(year, month)
	}
	last := DaysInMonth(year, month)
	return FromDate(year, month, last) + Day - 1
}

func nextMonth(year, month int) (int, int) {
	month++
	if month > 12 {
		return year + 1, 1
	}
	return year, month
}

// daysUntil returns how many days forward from reaches target (0-6).
func daysUntil(from, target Weekday) int {
	return (int(target) + 7 - int(from)) % 7
}
