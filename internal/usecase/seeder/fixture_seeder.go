// Package seeder loads portfolios, positions, prices and exchange rates from a
// TOML fixture into a writable store.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// Store is the write side the seeder fills
type Store interface {
	AddPortfolio(p domain.Portfolio)
	AddPosition(p domain.Position)
	AddPrices(points ...domain.PricePoint)
	AddRates(rates ...domain.ExchangeRate)
}

// Fixture is the TOML document layout
type Fixture struct {
	Portfolios []PortfolioFixture `toml:"portfolios"`
	Positions  []PositionFixture  `toml:"positions"`
	Prices     []PriceFixture     `toml:"prices"`
	Rates      []RateFixture      `toml:"rates"`
}

type PortfolioFixture struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	Currency string `toml:"currency"`
}

type PositionFixture struct {
	ID           string               `toml:"id"`
	PortfolioID  string               `toml:"portfolio_id"`
	InstrumentID string               `toml:"instrument_id"`
	Currency     string               `toml:"currency"`
	Transactions []TransactionFixture `toml:"transactions"`
}

type TransactionFixture struct {
	Amount string    `toml:"amount"`
	Price  string    `toml:"price"`
	Time   time.Time `toml:"time"`
	Note   string    `toml:"note"`
}

type PriceFixture struct {
	InstrumentID string    `toml:"instrument_id"`
	Time         time.Time `toml:"time"`
	Price        string    `toml:"price"`
}

type RateFixture struct {
	From string    `toml:"from"`
	To   string    `toml:"to"`
	Time time.Time `toml:"time"`
	Rate string    `toml:"rate"`
}

// FixtureSeeder fills a store from fixtures
type FixtureSeeder struct {
	store      Store
	portfolios domain.PortfolioSource
}

// NewFixtureSeeder creates a new FixtureSeeder instance.
// portfolios is read to skip portfolios the store already holds.
func NewFixtureSeeder(store Store, portfolios domain.PortfolioSource) *FixtureSeeder {
	return &FixtureSeeder{
		store:      store,
		portfolios: portfolios,
	}
}

// SeedFile parses the TOML fixture at path and seeds it
func (s *FixtureSeeder) SeedFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", path, err)
	}

	var fixture Fixture
	if err := toml.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}

	return s.Seed(ctx, fixture)
}

// Seed validates every record of the fixture, then stores them.
// Nothing is stored when any record is invalid. Positions of portfolios that
// already exist are skipped along with the portfolio.
func (s *FixtureSeeder) Seed(ctx context.Context, fixture Fixture) error {
	portfolios := make([]domain.Portfolio, 0, len(fixture.Portfolios))
	existing := make(map[uuid.UUID]bool)

	for i, pf := range fixture.Portfolios {
		id, err := parseID(pf.ID)
		if err != nil {
			return fmt.Errorf("portfolio %d: %w", i, err)
		}

		p := domain.Portfolio{ID: id, Name: pf.Name, Currency: pf.Currency}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("portfolio %d: %w", i, err)
		}

		// Try to get the portfolio by ID; only a missing one is created
		_, err = s.portfolios.GetByID(ctx, id)
		switch {
		case err == nil:
			existing[id] = true
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("failed to check portfolio %s: %w", id, err)
		}

		portfolios = append(portfolios, p)
	}

	positions := make([]domain.Position, 0, len(fixture.Positions))
	for i, pf := range fixture.Positions {
		p, err := pf.toDomain()
		if err != nil {
			return fmt.Errorf("position %d: %w", i, err)
		}
		if existing[p.PortfolioID] {
			continue
		}
		positions = append(positions, p)
	}

	prices := make([]domain.PricePoint, 0, len(fixture.Prices))
	for i, pf := range fixture.Prices {
		instrumentID, err := parseID(pf.InstrumentID)
		if err != nil {
			return fmt.Errorf("price %d: %w", i, err)
		}
		price, err := parsePositive("price", pf.Price)
		if err != nil {
			return fmt.Errorf("price %d: %w", i, err)
		}
		prices = append(prices, domain.PricePoint{InstrumentID: instrumentID, Time: pf.Time.UTC(), Price: price})
	}

	rates := make([]domain.ExchangeRate, 0, len(fixture.Rates))
	for i, rf := range fixture.Rates {
		if err := domain.ValidateCurrency(rf.From); err != nil {
			return fmt.Errorf("rate %d: %w", i, err)
		}
		if err := domain.ValidateCurrency(rf.To); err != nil {
			return fmt.Errorf("rate %d: %w", i, err)
		}
		rate, err := parsePositive("rate", rf.Rate)
		if err != nil {
			return fmt.Errorf("rate %d: %w", i, err)
		}
		rates = append(rates, domain.ExchangeRate{From: rf.From, To: rf.To, Time: rf.Time.UTC(), Rate: rate})
	}

	for _, p := range portfolios {
		s.store.AddPortfolio(p)
	}
	for _, p := range positions {
		s.store.AddPosition(p)
	}
	s.store.AddPrices(prices...)
	s.store.AddRates(rates...)

	return nil
}

func (pf PositionFixture) toDomain() (domain.Position, error) {
	var p domain.Position
	var err error

	if p.ID, err = parseID(pf.ID); err != nil {
		return p, err
	}
	if p.PortfolioID, err = parseID(pf.PortfolioID); err != nil {
		return p, fmt.Errorf("portfolio_id: %w", err)
	}
	if p.InstrumentID, err = parseID(pf.InstrumentID); err != nil {
		return p, fmt.Errorf("instrument_id: %w", err)
	}
	if err := domain.ValidateCurrency(pf.Currency); err != nil {
		return p, err
	}
	p.Currency = pf.Currency

	p.Transactions = make([]domain.Transaction, 0, len(pf.Transactions))
	for j, tf := range pf.Transactions {
		tx := domain.Transaction{
			ID:         uuid.New(),
			PositionID: p.ID,
			Time:       tf.Time.UTC(),
			Note:       tf.Note,
		}
		if tx.Amount, err = decimal.NewFromString(tf.Amount); err != nil {
			return p, fmt.Errorf("transaction %d: failed to parse amount: %w", j, err)
		}
		if tx.Price, err = decimal.NewFromString(tf.Price); err != nil {
			return p, fmt.Errorf("transaction %d: failed to parse price: %w", j, err)
		}
		if err := tx.Validate(); err != nil {
			return p, fmt.Errorf("transaction %d: %w", j, err)
		}
		p.Transactions = append(p.Transactions, tx)
	}

	return p, nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func parsePositive(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be positive, got %s", field, d)
	}
	return d, nil
}
