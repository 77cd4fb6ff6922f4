package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// maxHops bounds the conversion path: one leg into the default currency and one leg out of it
const maxHops = 2

// Converter converts amounts between currencies through the exchange-rate graph.
// The graph is rooted at DefaultCurrency, the only currency guaranteed to be
// reachable from and to every other tracked currency.
type Converter struct {
	Rates           domain.ExchangeRateSource
	DefaultCurrency string
}

// NewConverter creates a new converter pivoting through defaultCurrency
func NewConverter(rates domain.ExchangeRateSource, defaultCurrency string) *Converter {
	return &Converter{
		Rates:           rates,
		DefaultCurrency: defaultCurrency,
	}
}

// Convert converts amount from one currency to another at the given instant.
//
// Logic:
//  1. Same currency or zero amount: returned unchanged, no lookup.
//  2. Direct rate from->to: amount * rate.
//  3. Target is the default currency: amount / rate(default->from).
//     Source is the default currency: amount / rate(to->default).
//  4. Otherwise convert from->default, then default->to.
//  5. No path: *domain.NoExchangeRateError.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string, at time.Time) (decimal.Decimal, error) {
	return c.convert(ctx, amount, from, to, at.UTC(), maxHops)
}

func (c *Converter) convert(ctx context.Context, amount decimal.Decimal, from, to string, at time.Time, hops int) (decimal.Decimal, error) {
	if from == to || amount.IsZero() {
		return amount, nil
	}

	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	direct, err := c.lookup(ctx, from, to, at)
	if err != nil {
		return decimal.Zero, err
	}
	if direct != nil {
		return amount.Mul(direct.Rate), nil
	}

	pivot := c.DefaultCurrency
	if pivot == "" {
		return decimal.Zero, fmt.Errorf("%w: %w", domain.ErrMissingDefaultCurrency, noRate(from, to, at))
	}

	// Inverse of the single edge touching the default currency
	if to == pivot || from == pivot {
		inverse, err := c.lookup(ctx, to, from, at)
		if err != nil {
			return decimal.Zero, err
		}
		if inverse != nil && !inverse.Rate.IsZero() {
			return amount.Div(inverse.Rate), nil
		}
	}

	if from != pivot && to != pivot && hops > 1 {
		inPivot, err := c.convert(ctx, amount, from, pivot, at, hops-1)
		if err != nil {
			if errors.Is(err, domain.ErrNoExchangeRateAvailable) {
				return decimal.Zero, noRate(from, to, at)
			}
			return decimal.Zero, err
		}

		out, err := c.convert(ctx, inPivot, pivot, to, at, hops-1)
		if err != nil {
			if errors.Is(err, domain.ErrNoExchangeRateAvailable) {
				return decimal.Zero, noRate(from, to, at)
			}
			return decimal.Zero, err
		}
		return out, nil
	}

	return decimal.Zero, noRate(from, to, at)
}

// lookup returns the rate or nil when the source has none; other source failures are errors
func (c *Converter) lookup(ctx context.Context, from, to string, at time.Time) (*domain.ExchangeRate, error) {
	rate, err := c.Rates.GetAt(ctx, from, to, at)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get exchange rate %s->%s: %w", from, to, err)
	}
	return rate, nil
}

func noRate(from, to string, at time.Time) error {
	return &domain.NoExchangeRateError{From: from, To: to, Time: at}
}

// ConvertChartPointCurrency converts the value of one point at the point's own time.
// An empty target or a target equal to base returns the point unchanged.
func (c *Converter) ConvertChartPointCurrency(ctx context.Context, base, target string, point domain.ChartPoint) (domain.ChartPoint, error) {
	if target == "" || target == base {
		return point, nil
	}

	value, err := c.Convert(ctx, point.Value, base, target, point.Time)
	if err != nil {
		return domain.ChartPoint{}, err
	}

	return domain.ChartPoint{Time: point.Time, Value: value}, nil
}

// ConvertSeries converts every point at its own time.
// It fails on the first missing rate instead of zeroing the point.
func (c *Converter) ConvertSeries(ctx context.Context, points []domain.ChartPoint, from, to string) ([]domain.ChartPoint, error) {
	out := make([]domain.ChartPoint, 0, len(points))
	for _, p := range points {
		converted, err := c.ConvertChartPointCurrency(ctx, from, to, p)
		if err != nil {
			return nil, fmt.Errorf("failed to convert point at %s: %w", p.Time.Format(time.RFC3339), err)
		}
		out = append(out, converted)
	}
	return out, nil
}
