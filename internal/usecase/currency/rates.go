package currency

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// CombineExchangeRates chains two rate series through their shared currency:
// A->B combined with B->C gives A->C, multiplied pair by pair.
//
// Both series must share timestamps index by index. This is not checked;
// the output is truncated to the shorter input.
func CombineExchangeRates(aToB, bToC []domain.ExchangeRate) []domain.ExchangeRate {
	n := min(len(aToB), len(bToC))

	out := make([]domain.ExchangeRate, n)
	for i := 0; i < n; i++ {
		out[i] = domain.ExchangeRate{
			From: aToB[i].From,
			To:   bToC[i].To,
			Time: aToB[i].Time,
			Rate: aToB[i].Rate.Mul(bToC[i].Rate),
		}
	}
	return out
}

// RateSeries returns the from->to rates observed in r, following the same
// path policy as Convert: the direct series, the inverted series of the edge
// touching the default currency, or both legs through the default currency
// combined on their common timestamps.
func (c *Converter) RateSeries(ctx context.Context, from, to string, r domain.DateRange) ([]domain.ExchangeRate, error) {
	if from == to {
		return []domain.ExchangeRate{{From: from, To: to, Time: r.From, Rate: decimal.NewFromInt(1)}}, nil
	}

	series, err := c.rateSeries(ctx, from, to, r, maxHops)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, noRate(from, to, r.From)
	}
	return series, nil
}

func (c *Converter) rateSeries(ctx context.Context, from, to string, r domain.DateRange, hops int) ([]domain.ExchangeRate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	direct, err := c.Rates.ListInRange(ctx, from, to, r)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchange rates %s->%s: %w", from, to, err)
	}
	if len(direct) > 0 {
		return direct, nil
	}

	pivot := c.DefaultCurrency
	if pivot == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrMissingDefaultCurrency, noRate(from, to, r.From))
	}

	if to == pivot || from == pivot {
		inverse, err := c.Rates.ListInRange(ctx, to, from, r)
		if err != nil {
			return nil, fmt.Errorf("failed to list exchange rates %s->%s: %w", to, from, err)
		}
		return invertRates(inverse), nil
	}

	if hops < 2 {
		return nil, nil
	}

	inPivot, err := c.rateSeries(ctx, from, pivot, r, hops-1)
	if err != nil {
		return nil, err
	}
	outPivot, err := c.rateSeries(ctx, pivot, to, r, hops-1)
	if err != nil {
		return nil, err
	}

	a, b := alignRates(inPivot, outPivot)
	return CombineExchangeRates(a, b), nil
}

// invertRates flips each edge; zero rates have no inverse and are dropped
func invertRates(rates []domain.ExchangeRate) []domain.ExchangeRate {
	one := decimal.NewFromInt(1)

	out := make([]domain.ExchangeRate, 0, len(rates))
	for _, rate := range rates {
		if rate.Rate.IsZero() {
			continue
		}
		out = append(out, domain.ExchangeRate{
			From: rate.To,
			To:   rate.From,
			Time: rate.Time,
			Rate: one.Div(rate.Rate),
		})
	}
	return out
}

// alignRates keeps the observations whose timestamp appears in both series.
// Both inputs are ordered by time.
func alignRates(a, b []domain.ExchangeRate) ([]domain.ExchangeRate, []domain.ExchangeRate) {
	var outA, outB []domain.ExchangeRate

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch ta, tb := a[i].Time, b[j].Time; {
		case ta.Equal(tb):
			outA = append(outA, a[i])
			outB = append(outB, b[j])
			i++
			j++
		case ta.Before(tb):
			i++
		default:
			j++
		}
	}
	return outA, outB
}

// RateAt returns the from->to rate at an instant by converting one unit
func (c *Converter) RateAt(ctx context.Context, from, to string, at time.Time) (decimal.Decimal, error) {
	one := decimal.NewFromInt(1)
	if from == to {
		return one, nil
	}
	return c.Convert(ctx, one, from, to, at)
}
