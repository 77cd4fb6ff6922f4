package domain

import (
	"fmt"
	"time"
)

// MinTime is the earliest supported instant. Open-ended ranges start here.
var MinTime = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// DateRange represents a span of time between two UTC instants, From <= To.
//
// When a range attributes events (cash flows, buckets) it is half-open:
// From is exclusive and To is inclusive. Values "at From" are computed
// including everything that happened up to and at From.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange creates a validated range.
// Returns ErrInvalidRange if from is after to or from is before MinTime.
func NewDateRange(from, to time.Time) (DateRange, error) {
	from, to = from.UTC(), to.UTC()

	if from.After(to) {
		return DateRange{}, fmt.Errorf("%w: from %s is after to %s", ErrInvalidRange, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	if from.Before(MinTime) {
		return DateRange{}, fmt.Errorf("%w: from %s is before supported history", ErrInvalidRange, from.Format(time.RFC3339))
	}

	return DateRange{From: from, To: to}, nil
}

// OpenRange returns the range covering all supported history up to now
func OpenRange(now time.Time) DateRange {
	return DateRange{From: MinTime, To: now.UTC()}
}

// Contains reports whether t falls in the half-open interval (From, To]
func (r DateRange) Contains(t time.Time) bool {
	return t.After(r.From) && !t.After(r.To)
}

// IsEmpty reports whether the range has zero width
func (r DateRange) IsEmpty() bool {
	return r.From.Equal(r.To)
}

// Duration returns the width of the range
func (r DateRange) Duration() time.Duration {
	return r.To.Sub(r.From)
}

// ClampFrom moves From forward to t when t is inside the range.
// ok is false when t is after To: the whole range precedes t.
func (r DateRange) ClampFrom(t time.Time) (clamped DateRange, ok bool) {
	if t.After(r.To) {
		return DateRange{}, false
	}
	if t.After(r.From) {
		r.From = t
	}
	return r, true
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
}
