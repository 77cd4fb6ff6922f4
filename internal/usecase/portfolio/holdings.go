package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/calculator"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/currency"
)

// Holdings is a portfolio's positions with their prices loaded over a range.
// Snapshots of any sub-range can then be taken without reloading prices.
type Holdings struct {
	Portfolio *domain.Portfolio
	positions []positionData
	converter *currency.Converter
}

// LoadHoldings fans out the price loading of every position over r
func (s *Service) LoadHoldings(ctx context.Context, portfolio *domain.Portfolio, positions []*domain.Position, r domain.DateRange) (*Holdings, error) {
	data := make([]positionData, len(positions))

	err := s.fanOut(ctx, positions, func(ctx context.Context, i int, p *domain.Position) error {
		prices, err := LoadPrices(ctx, s.PriceSource, p.InstrumentID, r)
		if err != nil {
			return err
		}
		data[i] = positionData{position: p, prices: prices}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Holdings{Portfolio: portfolio, positions: data, converter: s.Converter}, nil
}

// FirstTransaction returns the time of the earliest transaction of any position
func (h *Holdings) FirstTransaction() (time.Time, bool) {
	positions := make([]*domain.Position, len(h.positions))
	for i, d := range h.positions {
		positions[i] = d.position
	}
	return firstTransaction(positions)
}

// Snapshot computes every position over r and rolls them up, converting at r.To.
// r must lie within the range the holdings were loaded for.
func (h *Holdings) Snapshot(ctx context.Context, r domain.DateRange) (*PortfolioSnapshot, error) {
	data := make([]positionData, len(h.positions))
	snapshots := make([]domain.PositionSnapshot, len(h.positions))
	var errs []error

	for i, d := range h.positions {
		rate, err := h.converter.RateAt(ctx, d.position.Currency, h.Portfolio.Currency, r.To)
		if err != nil {
			errs = append(errs, fmt.Errorf("position %s: failed to convert %s to %s: %w", d.position.ID, d.position.Currency, h.Portfolio.Currency, err))
			continue
		}
		d.rate = rate
		data[i] = d

		snap := calculator.Snapshot(d.position, d.prices, r)
		snap.Currency = h.Portfolio.Currency
		snap.Value = snap.Value.Mul(rate)
		snap.Profit = snap.Profit.Mul(rate)
		snap.BreakEvenPoint = snap.BreakEvenPoint.Mul(rate)
		snapshots[i] = snap
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	out := &PortfolioSnapshot{
		PortfolioID: h.Portfolio.ID,
		Currency:    h.Portfolio.Currency,
		Range:       r,
		Value:       decimal.Zero,
		Profit:      decimal.Zero,
		Performance: calculator.LinkReturns(portfolioPeriods(data, r)),
		Positions:   snapshots,
	}
	for _, snap := range snapshots {
		out.Value = out.Value.Add(snap.Value)
		out.Profit = out.Profit.Add(snap.Profit)
	}

	return out, nil
}
