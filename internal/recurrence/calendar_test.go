package recurrence

import (
	"testing"
	"time"
)

func TestIsLeapYear(t *testing.T) {
	t.Parallel()

	cases := map[int]bool{
		1970: false,
		1972: true,
		1900: false,
		2000: true,
		2023: false,
		2024: true,
		2100: false,
		2400: true,
	}
	for year, want := range cases {
		if got := IsLeapYear(year); got != want {
			t.Errorf("IsLeapYear(%d) = %v, want %v", year, got, want)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		year, month, want int
	}{
		{2024, 1, 31},
		{2024, 2, 29},
		{2023, 2, 28},
		{2100, 2, 28},
		{2000, 2, 29},
		{2024, 4, 30},
		{2024, 12, 31},
		{2024, 0, 0},
		{2024, 13, 0},
	}
	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestEpochIsThursday(t *testing.T) {
	t.Parallel()

	if got := Instant(0).Weekday(); got != Thursday {
		t.Fatalf("epoch weekday = %v, want thu", got)
	}
	if got := (Day - 1).Weekday(); got != Thursday {
		t.Fatalf("last nanosecond of epoch day = %v, want thu", got)
	}
	if got := Day.Weekday(); got != Friday {
		t.Fatalf("day after epoch = %v, want fri", got)
	}
}

func TestFromDateMatchesKnownInstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		year, month, day int
		unixSeconds      uint64
		weekday          Weekday
	}{
		{name: "epoch", year: 1970, month: 1, day: 1, unixSeconds: 0, weekday: Thursday},
		{name: "y2k", year: 2000, month: 1, day: 1, unixSeconds: 946684800, weekday: Saturday},
		{name: "leap day", year: 2024, month: 2, day: 29, unixSeconds: 1709164800, weekday: Thursday},
		{name: "new year 2024", year: 2024, month: 1, day: 1, unixSeconds: 1704067200, weekday: Monday},
		{name: "end of century", year: 2100, month: 3, day: 1, unixSeconds: 4107542400, weekday: Monday},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FromDate(tt.year, tt.month, tt.day)
			if want := Instant(tt.unixSeconds) * Second; got != want {
				t.Fatalf("FromDate = %d, want %d", got, want)
			}
			if wd := got.Weekday(); wd != tt.weekday {
				t.Fatalf("weekday = %v, want %v", wd, tt.weekday)
			}

			y, m, d := (got + 13*Hour).Date()
			if y != tt.year || m != tt.month || d != tt.day {
				t.Fatalf("Date() = %d-%d-%d, want %d-%d-%d", y, m, d, tt.year, tt.month, tt.day)
			}
		})
	}
}

func TestDateRoundTripAgainstTimePackage(t *testing.T) {
	t.Parallel()

	// Every day for a span that crosses 2000 and 2100 boundaries in steps.
	for day := Instant(0); day < FromDate(2110, 1, 1); day += 17 * Day {
		y, m, d := day.Date()
		want := day.Time()
		if y != want.Year() || time.Month(m) != want.Month() || d != want.Day() {
			t.Fatalf("Date(%d) = %d-%d-%d, time package says %s", day, y, m, d, want.Format("2006-01-02"))
		}
		if FromDate(y, m, d) != day.Midnight() {
			t.Fatalf("FromDate(%d-%d-%d) != midnight of %d", y, m, d, day)
		}
		if got, want := day.Weekday(), (int(want.Weekday())+6)%7; int(got) != want {
			t.Fatalf("Weekday(%s) = %d, want %d", day, got, want)
		}
	}
}

func TestWindowEnd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		from   Instant
		months int
		want   Instant
	}{
		{
			name:   "same month",
			from:   FromDate(2024, 1, 15) + 10*Hour,
			months: 0,
			want:   FromDate(2024, 2, 1) - 1,
		},
		{
			name:   "two months into leap february",
			from:   FromDate(2023, 12, 31),
			months: 2,
			want:   FromDate(2024, 3, 1) - 1,
		},
		{
			name:   "crosses year",
			from:   FromDate(2024, 11, 30) + 23*Hour,
			months: 3,
			want:   FromDate(2025, 3, 1) - 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := WindowEnd(tt.from, tt.months); got != tt.want {
				t.Fatalf("WindowEnd = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"wed", "Wednesday", " WED "} {
		got, err := ParseWeekday(in)
		if err != nil || got != Wednesday {
			t.Fatalf("ParseWeekday(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseWeekday("funday"); err != ErrInvalidWeekday {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
}
