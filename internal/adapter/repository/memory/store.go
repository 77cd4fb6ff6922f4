// Package memory provides in-memory implementations of the engine's data sources.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// Store holds portfolios, positions, prices and exchange rates in memory.
// It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	portfolios map[uuid.UUID]*domain.Portfolio
	positions  []*domain.Position // insertion order is the listing order
	prices     map[uuid.UUID][]domain.PricePoint
	rates      map[string][]domain.ExchangeRate
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		portfolios: make(map[uuid.UUID]*domain.Portfolio),
		prices:     make(map[uuid.UUID][]domain.PricePoint),
		rates:      make(map[string][]domain.ExchangeRate),
	}
}

func pairKey(from, to string) string { return from + "->" + to }

// AddPortfolio stores a portfolio
func (s *Store) AddPortfolio(p domain.Portfolio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios[p.ID] = &p
}

// AddPosition stores a position; its transactions are kept ordered by time
func (s *Store) AddPosition(p domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Transactions = domain.SortTransactions(p.Transactions)
	s.positions = append(s.positions, &p)
}

// AddPrices stores price points for their instruments
func (s *Store) AddPrices(points ...domain.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.prices[p.InstrumentID] = append(s.prices[p.InstrumentID], p)
	}
	for id := range s.prices {
		series := s.prices[id]
		sort.SliceStable(series, func(i, j int) bool { return series[i].Time.Before(series[j].Time) })
	}
}

// AddRates stores directed exchange rates
func (s *Store) AddRates(rates ...domain.ExchangeRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rates {
		key := pairKey(r.From, r.To)
		s.rates[key] = append(s.rates[key], r)
	}
	for key := range s.rates {
		series := s.rates[key]
		sort.SliceStable(series, func(i, j int) bool { return series[i].Time.Before(series[j].Time) })
	}
}

// Portfolios returns the store as a domain.PortfolioSource
func (s *Store) Portfolios() domain.PortfolioSource { return portfolioSource{s} }

// Positions returns the store as a domain.PositionSource
func (s *Store) Positions() domain.PositionSource { return positionSource{s} }

// Prices returns the store as a domain.PriceSource
func (s *Store) Prices() domain.PriceSource { return priceSource{s} }

// Rates returns the store as a domain.ExchangeRateSource
func (s *Store) Rates() domain.ExchangeRateSource { return rateSource{s} }

type portfolioSource struct{ s *Store }

func (p portfolioSource) GetByID(ctx context.Context, id uuid.UUID) (*domain.Portfolio, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	portfolio, ok := p.s.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %s: %w", id, domain.ErrNotFound)
	}
	cp := *portfolio
	return &cp, nil
}

type positionSource struct{ s *Store }

func (p positionSource) GetByID(ctx context.Context, id uuid.UUID) (*domain.Position, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	for _, pos := range p.s.positions {
		if pos.ID == id {
			return clonePosition(pos), nil
		}
	}
	return nil, fmt.Errorf("position %s: %w", id, domain.ErrNotFound)
}

func (p positionSource) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.Position, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	out := make([]*domain.Position, 0)
	for _, pos := range p.s.positions {
		if pos.PortfolioID == portfolioID {
			out = append(out, clonePosition(pos))
		}
	}
	return out, nil
}

func clonePosition(p *domain.Position) *domain.Position {
	cp := *p
	cp.Transactions = make([]domain.Transaction, len(p.Transactions))
	copy(cp.Transactions, p.Transactions)
	return &cp
}

type priceSource struct{ s *Store }

func (p priceSource) GetAt(ctx context.Context, instrumentID uuid.UUID, at time.Time) (*domain.PricePoint, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	series := p.s.prices[instrumentID]
	// First index strictly after at; the one before it is the latest at or before at
	i := sort.Search(len(series), func(i int) bool { return series[i].Time.After(at) })
	if i == 0 {
		return nil, fmt.Errorf("price for instrument %s at %s: %w", instrumentID, at.Format(time.RFC3339), domain.ErrNotFound)
	}
	point := series[i-1]
	return &point, nil
}

func (p priceSource) ListInRange(ctx context.Context, instrumentID uuid.UUID, r domain.DateRange) ([]domain.PricePoint, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	out := make([]domain.PricePoint, 0)
	for _, point := range p.s.prices[instrumentID] {
		if !point.Time.Before(r.From) && !point.Time.After(r.To) {
			out = append(out, point)
		}
	}
	return out, nil
}

type rateSource struct{ s *Store }

func (p rateSource) GetAt(ctx context.Context, from, to string, at time.Time) (*domain.ExchangeRate, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	series := p.s.rates[pairKey(from, to)]
	i := sort.Search(len(series), func(i int) bool { return series[i].Time.After(at) })
	if i == 0 {
		return nil, fmt.Errorf("rate %s->%s at %s: %w", from, to, at.Format(time.RFC3339), domain.ErrNotFound)
	}
	rate := series[i-1]
	return &rate, nil
}

func (p rateSource) ListInRange(ctx context.Context, from, to string, r domain.DateRange) ([]domain.ExchangeRate, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	out := make([]domain.ExchangeRate, 0)
	for _, rate := range p.s.rates[pairKey(from, to)] {
		if !rate.Time.Before(r.From) && !rate.Time.After(r.To) {
			out = append(out, rate)
		}
	}
	return out, nil
}
