package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricePoint represents an observed instrument price.
// Prices are sparse: there is no guarantee of a point at every queried instant.
type PricePoint struct {
	InstrumentID uuid.UUID
	Time         time.Time
	Price        decimal.Decimal // In the instrument's currency
}

// ExchangeRate is a directed edge of the exchange-rate graph:
// 1 unit of From is worth Rate units of To at Time.
type ExchangeRate struct {
	From string
	To   string
	Time time.Time
	Rate decimal.Decimal
}

// ChartPoint is the only output type of the time series aggregator.
// The meaning of Value (price, profit, performance...) is decided by the caller.
type ChartPoint struct {
	Time  time.Time
	Value decimal.Decimal
}
