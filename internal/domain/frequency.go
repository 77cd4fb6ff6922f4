package domain

import (
	"fmt"
	"strings"
	"time"
)

// AggregationFrequency defines the bucket width of a charted time series
type AggregationFrequency int

const (
	FiveMinutes AggregationFrequency = iota
	Hour
	Day
	Week
	Month
	Year
)

// Frequencies lists every supported frequency, narrowest first
var Frequencies = []AggregationFrequency{FiveMinutes, Hour, Day, Week, Month, Year}

// Valid reports whether f is one of Frequencies
func (f AggregationFrequency) Valid() bool {
	return f >= FiveMinutes && f <= Year
}

func (f AggregationFrequency) String() string {
	switch f {
	case FiveMinutes:
		return "five_minutes"
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return fmt.Sprintf("frequency(%d)", int(f))
	}
}

// ParseFrequency parses a frequency name, accepting a few common spellings
func ParseFrequency(s string) (AggregationFrequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "five_minutes", "fiveminutes", "5m", "5min":
		return FiveMinutes, nil
	case "hour", "hourly", "1h":
		return Hour, nil
	case "day", "daily", "1d":
		return Day, nil
	case "week", "weekly", "1w":
		return Week, nil
	case "month", "monthly":
		return Month, nil
	case "year", "yearly", "annual":
		return Year, nil
	default:
		return Day, fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
}

// Advance returns the end of the n-th bucket starting at start.
// Calendar frequencies are computed from start rather than chained, and
// month/year steps clamp the day to the last day of the target month
// (Jan 31 + 1 month = Feb 28/29), so bucket ends never drift.
// It panics when f is not Valid.
func (f AggregationFrequency) Advance(start time.Time, n int) time.Time {
	switch f {
	case FiveMinutes:
		return start.Add(time.Duration(n) * 5 * time.Minute)
	case Hour:
		return start.Add(time.Duration(n) * time.Hour)
	case Day:
		return start.AddDate(0, 0, n)
	case Week:
		return start.AddDate(0, 0, 7*n)
	case Month:
		return addMonthsClamped(start, n)
	case Year:
		return addMonthsClamped(start, 12*n)
	default:
		panic(fmt.Sprintf("advance by %s", f))
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())

	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}

	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
