// Package chart binds the calculators and the converter into bucket functions
// producing charted series for a position or a whole portfolio
package chart

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-analytics/internal/common"
	"github.com/simaogato/wealthflow-analytics/internal/domain"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/calculator"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/portfolio"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/timeseries"
)

// Kind is the figure a chart plots
type Kind string

const (
	KindPrice       Kind = "price"
	KindValue       Kind = "value"
	KindProfit      Kind = "profit"
	KindPerformance Kind = "performance"
	KindBreakEven   Kind = "break_even"
)

// ErrUnsupportedKind is returned for unknown kinds or kinds a portfolio chart cannot plot
var ErrUnsupportedKind = errors.New("unsupported chart kind")

// ParseKind parses a chart kind name
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPrice, KindValue, KindProfit, KindPerformance, KindBreakEven:
		return k, nil
	case "bep", "breakeven":
		return KindBreakEven, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
}

// ZeroBaseline reports whether the series is measured relative to the range start
// and therefore starts with a zero point
func (k Kind) ZeroBaseline() bool {
	return k == KindProfit || k == KindPerformance
}

// IsMoney reports whether the plotted values carry a currency
func (k Kind) IsMoney() bool {
	return k != KindPerformance
}

// Service produces position and portfolio charts
type Service struct {
	Portfolios *portfolio.Service
	Logger     *common.Logger
}

// NewChartService creates a new Service instance
func NewChartService(portfolios *portfolio.Service, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{Portfolios: portfolios, Logger: logger}
}

// PositionChart returns the series of one position over r.
// Money kinds are converted to target at each point's time; an empty target keeps
// the instrument currency.
func (s *Service) PositionChart(ctx context.Context, positionID uuid.UUID, kind Kind, r domain.DateRange, freq domain.AggregationFrequency, target string) ([]domain.ChartPoint, error) {
	position, err := s.Portfolios.PositionSource.GetByID(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	seq, err := s.PositionSeries(ctx, position, kind, r, freq, target)
	if err != nil {
		return nil, err
	}

	points, err := timeseries.Collect(seq)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s chart: %w", kind, err)
	}

	s.Logger.Debug().
		Str("position", positionID.String()).
		Str("kind", string(kind)).
		Str("frequency", freq.String()).
		Int("points", len(points)).
		Msg("Position chart built")

	return points, nil
}

// PositionSeries returns the lazy series of one position over r.
//
// Logic:
//  1. A position without transactions has no data: empty series.
//  2. The range is clamped forward to the first transaction.
//  3. Point-in-time kinds (price, value, break_even) are evaluated at each bucket end;
//     relative kinds (profit, performance) cover the clamped start up to the bucket end
//     and start with a zero baseline.
func (s *Service) PositionSeries(ctx context.Context, position *domain.Position, kind Kind, r domain.DateRange, freq domain.AggregationFrequency, target string) (iter.Seq2[domain.ChartPoint, error], error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	first, ok := position.FirstTransactionTime()
	if !ok {
		return timeseries.AggregateCalculations(ctx, r, freq, nil, timeseries.WithoutData()), nil
	}

	opts := []timeseries.Option{timeseries.WithDataStart(first)}
	if kind.ZeroBaseline() {
		opts = append(opts, timeseries.WithZeroBaseline())
	}

	effective, inRange := r.ClampFrom(first)
	if !inRange {
		return timeseries.AggregateCalculations(ctx, r, freq, nil, opts...), nil
	}

	prices, err := portfolio.LoadPrices(ctx, s.Portfolios.PriceSource, position.InstrumentID, effective)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	bucketFn := positionBucket(kind, position.Transactions, prices, effective)
	converter := s.Portfolios.Converter

	fn := func(ctx context.Context, bucket domain.DateRange) (domain.ChartPoint, error) {
		point, err := bucketFn(ctx, bucket)
		if err != nil || !kind.IsMoney() {
			return point, err
		}
		return converter.ConvertChartPointCurrency(ctx, position.Currency, target, point)
	}

	return timeseries.AggregateCalculations(ctx, r, freq, fn, opts...), nil
}

// positionBucket computes one bucket of kind in the instrument currency
func positionBucket(kind Kind, txs []domain.Transaction, prices []domain.PricePoint, effective domain.DateRange) timeseries.BucketFunc {
	switch kind {
	case KindPrice:
		return timeseries.EndOfBucket(func(_ context.Context, at time.Time) (decimal.Decimal, error) {
			price, _ := calculator.PriceAt(prices, txs, at)
			return price, nil
		})
	case KindValue:
		return timeseries.EndOfBucket(func(_ context.Context, at time.Time) (decimal.Decimal, error) {
			return calculator.ValueAt(txs, prices, at), nil
		})
	case KindBreakEven:
		return timeseries.EndOfBucket(func(_ context.Context, at time.Time) (decimal.Decimal, error) {
			return calculator.BreakEvenPoint(txs, at), nil
		})
	}

	// Relative kinds cover the clamped start up to the bucket end
	return func(_ context.Context, b domain.DateRange) (domain.ChartPoint, error) {
		since := domain.DateRange{From: effective.From, To: b.To}
		if kind == KindProfit {
			return domain.ChartPoint{Time: b.To, Value: calculator.Profit(txs, prices, since)}, nil
		}
		return domain.ChartPoint{Time: b.To, Value: calculator.TimeWeightedPerformance(txs, prices, since)}, nil
	}
}

// PortfolioChart returns the value, profit or performance series of a portfolio
// over r, in the portfolio currency. Each bucket sums the position figures
// converted at the bucket end.
func (s *Service) PortfolioChart(ctx context.Context, portfolioID uuid.UUID, kind Kind, r domain.DateRange, freq domain.AggregationFrequency) ([]domain.ChartPoint, error) {
	switch kind {
	case KindValue, KindProfit, KindPerformance:
	default:
		return nil, fmt.Errorf("%w: %q for a portfolio", ErrUnsupportedKind, kind)
	}

	p, positions, err := s.Portfolios.LoadPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	var opts []timeseries.Option
	if kind.ZeroBaseline() {
		opts = append(opts, timeseries.WithZeroBaseline())
	}

	effective := r
	holdings, err := s.Portfolios.LoadHoldings(ctx, p, positions, r)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	if first, ok := holdings.FirstTransaction(); ok {
		opts = append(opts, timeseries.WithDataStart(first))
		if clamped, inRange := r.ClampFrom(first); inRange {
			effective = clamped
		}
	} else {
		opts = append(opts, timeseries.WithoutData())
	}

	fn := func(ctx context.Context, bucket domain.DateRange) (domain.ChartPoint, error) {
		snap, err := holdings.Snapshot(ctx, domain.DateRange{From: effective.From, To: bucket.To})
		if err != nil {
			return domain.ChartPoint{}, err
		}

		point := domain.ChartPoint{Time: bucket.To}
		switch kind {
		case KindValue:
			point.Value = snap.Value
		case KindProfit:
			point.Value = snap.Profit
		default:
			point.Value = snap.Performance
		}
		return point, nil
	}

	points, err := timeseries.Collect(timeseries.AggregateCalculations(ctx, r, freq, fn, opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to build portfolio %s chart: %w", kind, err)
	}

	s.Logger.Debug().
		Str("portfolio", portfolioID.String()).
		Str("kind", string(kind)).
		Int("positions", len(positions)).
		Int("points", len(points)).
		Msg("Portfolio chart built")

	return points, nil
}
