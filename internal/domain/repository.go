package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PortfolioSource defines the read access to portfolios needed by the engine
type PortfolioSource interface {
	// GetByID retrieves a portfolio by its ID
	// Returns an error wrapping ErrNotFound if it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*Portfolio, error)
}

// PositionSource defines the read access to positions and their transactions
type PositionSource interface {
	// GetByID retrieves a position with its transactions ordered by time
	GetByID(ctx context.Context, id uuid.UUID) (*Position, error)

	// ListByPortfolio retrieves every position of a portfolio, with transactions, in a stable order
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*Position, error)
}

// PriceSource defines the lookups of instrument prices
type PriceSource interface {
	// GetAt retrieves the latest price observed at or before at
	// Returns an error wrapping ErrNotFound if there is none
	GetAt(ctx context.Context, instrumentID uuid.UUID, at time.Time) (*PricePoint, error)

	// ListInRange retrieves every price with From <= Time <= To, ordered by time
	ListInRange(ctx context.Context, instrumentID uuid.UUID, r DateRange) ([]PricePoint, error)
}

// ExchangeRateSource defines the lookups of directed exchange rates
type ExchangeRateSource interface {
	// GetAt retrieves the latest from->to rate at or before at
	// Returns an error wrapping ErrNotFound if there is none
	GetAt(ctx context.Context, from, to string, at time.Time) (*ExchangeRate, error)

	// ListInRange retrieves every from->to rate with From <= Time <= To, ordered by time
	ListInRange(ctx context.Context, from, to string, r DateRange) ([]ExchangeRate, error)
}
