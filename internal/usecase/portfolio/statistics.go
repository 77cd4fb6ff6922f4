package portfolio

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// Window names one of the fixed statistics ranges ending at "now"
type Window string

const (
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowTotal Window = "total"
)

// StatisticsWindows lists the windows in reporting order
var StatisticsWindows = []Window{WindowDay, WindowWeek, WindowMonth, WindowTotal}

// Range returns the window's range ending at now.
// Month goes back one calendar month, clamped to the shorter month's last day.
// Total starts at the first transaction; without one it is the empty range {now, now}.
func (w Window) Range(now time.Time, firstTransaction time.Time, hasTransactions bool) domain.DateRange {
	now = now.UTC()

	var from time.Time
	switch w {
	case WindowDay:
		from = now.Add(-24 * time.Hour)
	case WindowWeek:
		from = now.AddDate(0, 0, -7)
	case WindowMonth:
		from = domain.Month.Advance(now, -1)
	default:
		from = now
		if hasTransactions && firstTransaction.Before(now) {
			from = firstTransaction.UTC()
		}
	}

	return domain.DateRange{From: from, To: now}
}

// WindowStatistics holds the figures of one window.
// Profit is a money figure in the owner's reporting currency; the returns are unitless.
type WindowStatistics struct {
	Window              Window
	Range               domain.DateRange
	Profit              decimal.Decimal
	Performance         decimal.Decimal     // Time-weighted
	MoneyWeightedReturn decimal.NullDecimal // Invalid when the rate is undefined
}

// PositionStatistics holds the figures of one position at "now".
// Money figures are converted to the portfolio currency; Price stays in the instrument currency.
type PositionStatistics struct {
	PositionID     uuid.UUID
	InstrumentID   uuid.UUID
	Currency       string // Instrument currency
	HoldingSize    decimal.Decimal
	Price          decimal.Decimal
	Value          decimal.Decimal
	BreakEvenPoint decimal.Decimal
	CostBasis      decimal.Decimal // BreakEvenPoint * HoldingSize
	Windows        []WindowStatistics
}

// Statistics is the dashboard summary of a portfolio at "now", in the portfolio currency
type Statistics struct {
	PortfolioID uuid.UUID
	Currency    string
	Time        time.Time
	Value       decimal.Decimal
	CostBasis   decimal.Decimal
	Windows     []WindowStatistics
	Positions   []PositionStatistics // Same order as the input positions
}

// Window returns the statistics of the named window
func (s *Statistics) Window(w Window) (WindowStatistics, bool) {
	for _, ws := range s.Windows {
		if ws.Window == w {
			return ws, true
		}
	}
	return WindowStatistics{}, false
}

// PortfolioSnapshot is the roll-up of position snapshots over one range, in the portfolio currency
type PortfolioSnapshot struct {
	PortfolioID uuid.UUID
	Currency    string
	Range       domain.DateRange
	Value       decimal.Decimal
	Profit      decimal.Decimal
	Performance decimal.Decimal
	Positions   []domain.PositionSnapshot
}

func firstTransaction(positions []*domain.Position) (time.Time, bool) {
	var first time.Time
	var found bool
	for _, p := range positions {
		if t, ok := p.FirstTransactionTime(); ok && (!found || t.Before(first)) {
			first, found = t, true
		}
	}
	return first, found
}
