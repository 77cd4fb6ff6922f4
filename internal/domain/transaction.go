package domain

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction represents a single buy or sell event of a position in the domain layer.
// The engine treats transactions as immutable once they have been queried.
type Transaction struct {
	ID         uuid.UUID
	PositionID uuid.UUID
	Amount     decimal.Decimal // Signed: positive = buy, negative = sell
	Price      decimal.Decimal // Per unit, in the instrument's currency
	Time       time.Time       // UTC instant
	Note       string
}

// CashFlow returns the money moved by the transaction (amount * price), in the instrument's currency.
// Buys are positive, sells are negative.
func (t Transaction) CashFlow() decimal.Decimal {
	return t.Amount.Mul(t.Price)
}

// Validate ensures the transaction adheres to domain rules
// Returns an error if validation fails
func (t *Transaction) Validate() error {
	if t.Amount.IsZero() {
		return errors.New("transaction amount cannot be zero")
	}

	if t.Price.IsNegative() {
		return errors.New("transaction price cannot be negative")
	}

	if t.Time.IsZero() {
		return errors.New("transaction time must be set")
	}

	return nil
}

// SortTransactions returns a copy of txs ordered by time.
// Transactions sharing the same instant keep their input order.
func SortTransactions(txs []Transaction) []Transaction {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	return sorted
}
