package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio represents a set of positions reported in one currency
type Portfolio struct {
	ID       uuid.UUID
	Name     string
	Currency string
}

// Validate ensures the portfolio adheres to domain rules
func (p *Portfolio) Validate() error {
	if p.Name == "" {
		return errors.New("portfolio name cannot be empty")
	}

	return ValidateCurrency(p.Currency)
}

// Position represents the holding of one instrument within one portfolio.
// Currency is the instrument's currency; every figure computed for the
// position is expressed in it until explicitly converted.
type Position struct {
	ID           uuid.UUID
	PortfolioID  uuid.UUID
	InstrumentID uuid.UUID
	Currency     string
	Transactions []Transaction
}

// FirstTransactionTime returns the time of the earliest transaction.
// ok is false when the position has no transactions.
func (p *Position) FirstTransactionTime() (first time.Time, ok bool) {
	for _, tx := range p.Transactions {
		if !ok || tx.Time.Before(first) {
			first = tx.Time
			ok = true
		}
	}
	return first, ok
}

// PositionSnapshot is the derived result of the position calculators over a
// range. It is created per request and never persisted.
type PositionSnapshot struct {
	PositionID     uuid.UUID
	Currency       string
	Value          decimal.Decimal
	Profit         decimal.Decimal
	Performance    decimal.Decimal
	BreakEvenPoint decimal.Decimal
}
