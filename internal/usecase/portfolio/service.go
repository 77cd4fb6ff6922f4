// Package portfolio rolls position figures up to portfolio level, normalised to the portfolio currency
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-analytics/internal/common"
	"github.com/simaogato/wealthflow-analytics/internal/domain"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/calculator"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/currency"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/irr"
)

// Service handles portfolio-level aggregation
type Service struct {
	PortfolioSource domain.PortfolioSource
	PositionSource  domain.PositionSource
	PriceSource     domain.PriceSource
	Converter       *currency.Converter
	Logger          *common.Logger
	Workers         int // Max positions computed concurrently
}

// NewPortfolioService creates a new Service instance
func NewPortfolioService(
	portfolioSource domain.PortfolioSource,
	positionSource domain.PositionSource,
	priceSource domain.PriceSource,
	converter *currency.Converter,
	logger *common.Logger,
	workers int,
) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if workers < 1 {
		workers = 1
	}

	return &Service{
		PortfolioSource: portfolioSource,
		PositionSource:  positionSource,
		PriceSource:     priceSource,
		Converter:       converter,
		Logger:          logger,
		Workers:         workers,
	}
}

// positionData is the immutable input of one position's computations
type positionData struct {
	position *domain.Position
	prices   []domain.PricePoint
	rate     decimal.Decimal // Position currency -> portfolio currency
}

// GetPortfolioStatistics loads a portfolio with its positions and aggregates its statistics at now
func (s *Service) GetPortfolioStatistics(ctx context.Context, portfolioID uuid.UUID, now time.Time) (*Statistics, error) {
	portfolio, positions, err := s.LoadPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	return s.AggregatePortfolioStatistics(ctx, portfolio, positions, now)
}

// LoadPortfolio fetches a portfolio and its positions
func (s *Service) LoadPortfolio(ctx context.Context, portfolioID uuid.UUID) (*domain.Portfolio, []*domain.Position, error) {
	portfolio, err := s.PortfolioSource.GetByID(ctx, portfolioID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	positions, err := s.PositionSource.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list positions: %w", err)
	}

	return portfolio, positions, nil
}

// AggregatePortfolioStatistics computes the day/week/month/total statistics of every position
// and of the portfolio at now.
//
// Logic:
//  1. Fan out one computation per position (at most Workers at a time): load prices,
//     compute every window in the position currency, convert money figures at now.
//  2. Any position failure fails the whole call; no partial totals are returned.
//  3. Sum the converted figures in input order. Portfolio performance links the
//     sub-periods between every transaction time of every position.
func (s *Service) AggregatePortfolioStatistics(ctx context.Context, portfolio *domain.Portfolio, positions []*domain.Position, now time.Time) (*Statistics, error) {
	now = now.UTC()
	first, hasTransactions := firstTransaction(positions)

	windows := make([]domain.DateRange, len(StatisticsWindows))
	earliest := now
	for i, w := range StatisticsWindows {
		windows[i] = w.Range(now, first, hasTransactions)
		if windows[i].From.Before(earliest) {
			earliest = windows[i].From
		}
	}

	s.Logger.Debug().
		Str("portfolio", portfolio.ID.String()).
		Int("positions", len(positions)).
		Time("now", now).
		Msg("Aggregating portfolio statistics")

	data := make([]positionData, len(positions))
	results := make([]PositionStatistics, len(positions))

	err := s.fanOut(ctx, positions, func(ctx context.Context, i int, p *domain.Position) error {
		d, err := s.loadPosition(ctx, p, portfolio.Currency, domain.DateRange{From: earliest, To: now}, now)
		if err != nil {
			return err
		}
		data[i] = d
		results[i] = positionStatistics(d, now, windows)
		return nil
	})
	if err != nil {
		s.Logger.Warn().Err(err).Str("portfolio", portfolio.ID.String()).Msg("Portfolio statistics failed")
		return nil, err
	}

	stats := &Statistics{
		PortfolioID: portfolio.ID,
		Currency:    portfolio.Currency,
		Time:        now,
		Value:       decimal.Zero,
		CostBasis:   decimal.Zero,
		Positions:   results,
	}

	for _, ps := range results {
		stats.Value = stats.Value.Add(ps.Value)
		stats.CostBasis = stats.CostBasis.Add(ps.CostBasis)
	}

	for i, w := range StatisticsWindows {
		profit := decimal.Zero
		for _, ps := range results {
			profit = profit.Add(ps.Windows[i].Profit)
		}

		stats.Windows = append(stats.Windows, WindowStatistics{
			Window:              w,
			Range:               windows[i],
			Profit:              profit,
			Performance:         calculator.LinkReturns(portfolioPeriods(data, windows[i])),
			MoneyWeightedReturn: portfolioMoneyWeightedReturn(data, windows[i]),
		})
	}

	return stats, nil
}

// AggregatePositions rolls up the position snapshots over r, converted at r.To
func (s *Service) AggregatePositions(ctx context.Context, portfolio *domain.Portfolio, positions []*domain.Position, r domain.DateRange) (*PortfolioSnapshot, error) {
	holdings, err := s.LoadHoldings(ctx, portfolio, positions, r)
	if err != nil {
		return nil, err
	}

	return holdings.Snapshot(ctx, r)
}

// fanOut runs work for every position, at most s.Workers at a time.
// Errors are joined in position order, each prefixed with the position ID.
func (s *Service) fanOut(ctx context.Context, positions []*domain.Position, work func(ctx context.Context, i int, p *domain.Position) error) error {
	sem := make(chan struct{}, max(s.Workers, 1))
	errs := make([]error, len(positions))
	var wg sync.WaitGroup

	for i, p := range positions {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int, p *domain.Position) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := work(ctx, i, p); err != nil {
				errs[i] = fmt.Errorf("position %s: %w", p.ID, err)
			}
		}(i, p)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// loadPosition fetches the prices needed to value p anywhere in r and the
// rate to the portfolio currency at rateTime
func (s *Service) loadPosition(ctx context.Context, p *domain.Position, target string, r domain.DateRange, rateTime time.Time) (positionData, error) {
	prices, err := LoadPrices(ctx, s.PriceSource, p.InstrumentID, r)
	if err != nil {
		return positionData{}, err
	}

	rate, err := s.Converter.RateAt(ctx, p.Currency, target, rateTime)
	if err != nil {
		return positionData{}, fmt.Errorf("failed to convert %s to %s: %w", p.Currency, target, err)
	}

	return positionData{position: p, prices: prices, rate: rate}, nil
}

// LoadPrices returns the prices observed in r, preceded by the latest price at or before r.From
func LoadPrices(ctx context.Context, source domain.PriceSource, instrumentID uuid.UUID, r domain.DateRange) ([]domain.PricePoint, error) {
	prices := make([]domain.PricePoint, 0)

	seed, err := source.GetAt(ctx, instrumentID, r.From)
	switch {
	case err == nil:
		prices = append(prices, *seed)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to get price: %w", err)
	}

	inRange, err := source.ListInRange(ctx, instrumentID, r)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}

	return append(prices, inRange...), nil
}

func positionStatistics(d positionData, now time.Time, windows []domain.DateRange) PositionStatistics {
	txs := d.position.Transactions

	holding := calculator.HoldingSize(txs, now)
	price, _ := calculator.PriceAt(d.prices, txs, now)
	bep := calculator.BreakEvenPoint(txs, now)

	ps := PositionStatistics{
		PositionID:     d.position.ID,
		InstrumentID:   d.position.InstrumentID,
		Currency:       d.position.Currency,
		HoldingSize:    holding,
		Price:          price,
		Value:          holding.Mul(price).Mul(d.rate),
		BreakEvenPoint: bep.Mul(d.rate),
		CostBasis:      bep.Mul(holding).Mul(d.rate),
	}

	for i, r := range windows {
		ps.Windows = append(ps.Windows, WindowStatistics{
			Window:              StatisticsWindows[i],
			Range:               r,
			Profit:              calculator.Profit(txs, d.prices, r).Mul(d.rate),
			Performance:         calculator.TimeWeightedPerformance(txs, d.prices, r),
			MoneyWeightedReturn: moneyWeightedReturn(positionFlows(d, r, false), r),
		})
	}

	return ps
}

// positionFlows returns the IRR flows of one position, optionally converted
func positionFlows(d positionData, r domain.DateRange, convert bool) []irr.CashFlow {
	txs := d.position.Transactions
	flows := irr.CashFlows(txs, calculator.ValueAt(txs, d.prices, r.From), calculator.ValueAt(txs, d.prices, r.To), r)

	if convert {
		for i := range flows {
			flows[i].Amount = flows[i].Amount.Mul(d.rate)
		}
	}
	return flows
}

func moneyWeightedReturn(flows []irr.CashFlow, r domain.DateRange) decimal.NullDecimal {
	rate, err := irr.CalculateIrr(flows, r)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: rate, Valid: true}
}

func portfolioMoneyWeightedReturn(data []positionData, r domain.DateRange) decimal.NullDecimal {
	var flows []irr.CashFlow
	for _, d := range data {
		flows = append(flows, positionFlows(d, r, true)...)
	}
	return moneyWeightedReturn(flows, r)
}

// portfolioPeriods splits r at the transaction times of every position and sums
// the converted position values of each sub-period
func portfolioPeriods(data []positionData, r domain.DateRange) []calculator.HoldingPeriod {
	var all []domain.Transaction
	for _, d := range data {
		all = append(all, d.position.Transactions...)
	}

	bounds := append([]time.Time{r.From}, calculator.FlowTimes(all, r)...)
	if last := bounds[len(bounds)-1]; last.Before(r.To) {
		bounds = append(bounds, r.To)
	}

	periods := make([]calculator.HoldingPeriod, 0, len(bounds)-1)
	for i := 1; i < len(bounds); i++ {
		period := calculator.HoldingPeriod{StartValue: decimal.Zero, EndValue: decimal.Zero}
		for _, d := range data {
			p := calculator.Period(d.position.Transactions, d.prices, bounds[i-1], bounds[i])
			period.StartValue = period.StartValue.Add(p.StartValue.Mul(d.rate))
			period.EndValue = period.EndValue.Add(p.EndValue.Mul(d.rate))
		}
		periods = append(periods, period)
	}
	return periods
}
