// Package timeseries partitions date ranges into frequency-sized buckets and
// evaluates a caller-supplied computation over each of them, in order.
package timeseries

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// BucketFunc computes the chart point of one bucket.
// The meaning of the returned value is decided by the caller.
type BucketFunc func(ctx context.Context, bucket domain.DateRange) (domain.ChartPoint, error)

type options struct {
	dataStart    time.Time
	hasDataStart bool
	noData       bool
	zeroBaseline bool
}

// Option configures an aggregation
type Option func(*options)

// WithDataStart clamps the range start forward to the first instant with data.
// A range that ends before t produces an empty sequence.
func WithDataStart(t time.Time) Option {
	return func(o *options) {
		o.dataStart = t.UTC()
		o.hasDataStart = true
	}
}

// WithoutData marks the queried entity as having no data at all: the sequence is empty
func WithoutData() Option {
	return func(o *options) {
		o.noData = true
	}
}

// WithZeroBaseline prepends a {effective From, 0} point.
// Used for series measured relative to the range start (profit, performance).
func WithZeroBaseline() Option {
	return func(o *options) {
		o.zeroBaseline = true
	}
}

// Buckets partitions r into consecutive (start, end] sub-ranges of width f.
// The first starts at r.From, each next one starts where the previous ended,
// and the last is clipped to r.To. A zero-width range yields one bucket and
// an invalid frequency yields none.
func Buckets(r domain.DateRange, f domain.AggregationFrequency) iter.Seq[domain.DateRange] {
	return func(yield func(domain.DateRange) bool) {
		if !f.Valid() {
			return
		}
		if r.IsEmpty() {
			yield(r)
			return
		}

		start := r.From
		for i := 1; start.Before(r.To); i++ {
			end := f.Advance(r.From, i)
			if end.After(r.To) {
				end = r.To
			}
			if !yield(domain.DateRange{From: start, To: end}) {
				return
			}
			start = end
		}
	}
}

// AggregateCalculations evaluates fn over every bucket of r, lazily and in order.
//
// Logic:
//  0. An invalid frequency yields ErrInvalidFrequency and nothing else.
//  1. Apply the data policies: no data or a range entirely before the data
//     yields nothing; otherwise From is clamped forward to the data start.
//  2. Yield the zero baseline when requested.
//  3. Evaluate fn bucket by bucket. An error is yielded once and ends the sequence.
//     Context cancellation is checked between buckets.
func AggregateCalculations(ctx context.Context, r domain.DateRange, f domain.AggregationFrequency, fn BucketFunc, opts ...Option) iter.Seq2[domain.ChartPoint, error] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(domain.ChartPoint, error) bool) {
		if !f.Valid() {
			yield(domain.ChartPoint{}, fmt.Errorf("%w: %s", domain.ErrInvalidFrequency, f))
			return
		}

		if o.noData {
			return
		}

		effective := r
		if o.hasDataStart {
			clamped, ok := r.ClampFrom(o.dataStart)
			if !ok {
				return
			}
			effective = clamped
		}

		if o.zeroBaseline {
			if !yield(domain.ChartPoint{Time: effective.From, Value: decimal.Zero}, nil) {
				return
			}
		}

		for bucket := range Buckets(effective, f) {
			if err := ctx.Err(); err != nil {
				yield(domain.ChartPoint{}, err)
				return
			}

			point, err := fn(ctx, bucket)
			if err != nil {
				yield(domain.ChartPoint{}, err)
				return
			}

			if !yield(point, nil) {
				return
			}
		}
	}
}

// Collect drains a sequence into a slice, stopping at the first error
func Collect(seq iter.Seq2[domain.ChartPoint, error]) ([]domain.ChartPoint, error) {
	points := make([]domain.ChartPoint, 0)
	for point, err := range seq {
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, nil
}

// EndOfBucket is a BucketFunc adapter for point-in-time figures (value, price, BEP)
// evaluated at the end of each bucket
func EndOfBucket(fn func(ctx context.Context, at time.Time) (decimal.Decimal, error)) BucketFunc {
	return func(ctx context.Context, bucket domain.DateRange) (domain.ChartPoint, error) {
		value, err := fn(ctx, bucket.To)
		if err != nil {
			return domain.ChartPoint{}, err
		}
		return domain.ChartPoint{Time: bucket.To, Value: value}, nil
	}
}
