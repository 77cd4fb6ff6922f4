// Package calculator holds the pure position calculators: value, profit,
// performance and break-even point over a transaction stream and its prices.
// Every figure is in the position's instrument currency.
package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

var one = decimal.NewFromInt(1)

// HoldingSize returns the cumulative signed amount of the transactions at or before at.
// It may be negative (short position).
func HoldingSize(txs []domain.Transaction, at time.Time) decimal.Decimal {
	size := decimal.Zero
	for _, tx := range txs {
		if !tx.Time.After(at) {
			size = size.Add(tx.Amount)
		}
	}
	return size
}

// holdingBefore is HoldingSize excluding the transactions exactly at at
func holdingBefore(txs []domain.Transaction, at time.Time) decimal.Decimal {
	size := decimal.Zero
	for _, tx := range txs {
		if tx.Time.Before(at) {
			size = size.Add(tx.Amount)
		}
	}
	return size
}

// PriceAt returns the latest known price at or before at.
// Observations are the price points and the execution prices of the transactions;
// on equal times a price point wins. ok is false when nothing is known yet.
func PriceAt(prices []domain.PricePoint, txs []domain.Transaction, at time.Time) (price decimal.Decimal, ok bool) {
	var pointTime, txTime time.Time
	var pointPrice, txPrice decimal.Decimal
	var pointFound, txFound bool

	for _, p := range prices {
		if p.Time.After(at) {
			continue
		}
		if !pointFound || !p.Time.Before(pointTime) {
			pointTime, pointPrice, pointFound = p.Time, p.Price, true
		}
	}

	for _, tx := range txs {
		if tx.Time.After(at) {
			continue
		}
		if !txFound || !tx.Time.Before(txTime) {
			txTime, txPrice, txFound = tx.Time, tx.Price, true
		}
	}

	switch {
	case pointFound && (!txFound || !txTime.After(pointTime)):
		return pointPrice, true
	case txFound:
		return txPrice, true
	default:
		return decimal.Zero, false
	}
}

// Value returns holding size at at multiplied by price
func Value(txs []domain.Transaction, price decimal.Decimal, at time.Time) decimal.Decimal {
	return HoldingSize(txs, at).Mul(price)
}

// ValueAt values the holding at at with the latest known price.
// A position with nothing known yet is worth zero.
func ValueAt(txs []domain.Transaction, prices []domain.PricePoint, at time.Time) decimal.Decimal {
	price, ok := PriceAt(prices, txs, at)
	if !ok {
		return decimal.Zero
	}
	return Value(txs, price, at)
}

// NetCashFlow sums amount*price of the transactions in (r.From, r.To].
// A transaction exactly at r.From belongs to the value at From, not to the flows.
func NetCashFlow(txs []domain.Transaction, r domain.DateRange) decimal.Decimal {
	flow := decimal.Zero
	for _, tx := range txs {
		if r.Contains(tx.Time) {
			flow = flow.Add(tx.CashFlow())
		}
	}
	return flow
}

// Profit returns valueAtTo - valueAtFrom - NetCashFlow over r:
// realized and unrealized profit net of the money put in during the range.
func Profit(txs []domain.Transaction, prices []domain.PricePoint, r domain.DateRange) decimal.Decimal {
	valueFrom := ValueAt(txs, prices, r.From)
	valueTo := ValueAt(txs, prices, r.To)

	return valueTo.Sub(valueFrom).Sub(NetCashFlow(txs, r))
}

// Performance returns the simple return (valueTo - valueFrom) / valueFrom.
// From zero: 0 when valueTo is 0, 1 when it is positive, -1 when it is negative.
func Performance(valueFrom, valueTo decimal.Decimal) decimal.Decimal {
	if valueFrom.IsZero() {
		return decimal.NewFromInt(int64(valueTo.Sign()))
	}
	return valueTo.Sub(valueFrom).Div(valueFrom)
}

// HoldingPeriod is one sub-period between two cash flows
type HoldingPeriod struct {
	StartValue decimal.Decimal // After the flows at the period start
	EndValue   decimal.Decimal // Before the flows at the period end
}

// LinkReturns geometrically links holding-period returns and returns the total return.
// Periods starting from zero value contribute a factor of 1.
func LinkReturns(periods []HoldingPeriod) decimal.Decimal {
	growth := one
	for _, p := range periods {
		if p.StartValue.IsZero() {
			continue
		}
		growth = growth.Mul(p.EndValue.Div(p.StartValue))
	}
	return growth.Sub(one)
}

// FlowTimes returns the distinct transaction times in (r.From, r.To], in order
func FlowTimes(txs []domain.Transaction, r domain.DateRange) []time.Time {
	sorted := domain.SortTransactions(txs)

	times := make([]time.Time, 0)
	for _, tx := range sorted {
		if !r.Contains(tx.Time) {
			continue
		}
		if n := len(times); n > 0 && times[n-1].Equal(tx.Time) {
			continue
		}
		times = append(times, tx.Time)
	}
	return times
}

// HoldingPeriods splits r at every transaction time and values each sub-period
func HoldingPeriods(txs []domain.Transaction, prices []domain.PricePoint, r domain.DateRange) []HoldingPeriod {
	bounds := append([]time.Time{r.From}, FlowTimes(txs, r)...)
	if last := bounds[len(bounds)-1]; last.Before(r.To) {
		bounds = append(bounds, r.To)
	}

	periods := make([]HoldingPeriod, 0, len(bounds)-1)
	for i := 1; i < len(bounds); i++ {
		periods = append(periods, Period(txs, prices, bounds[i-1], bounds[i]))
	}
	return periods
}

// Period values the holding between two consecutive flow times:
// after the flows at start and before the flows at end
func Period(txs []domain.Transaction, prices []domain.PricePoint, start, end time.Time) HoldingPeriod {
	endPrice, _ := PriceAt(prices, txs, end)

	return HoldingPeriod{
		StartValue: ValueAt(txs, prices, start),
		EndValue:   holdingBefore(txs, end).Mul(endPrice),
	}
}

// TimeWeightedPerformance returns the time-weighted return over r, removing
// the effect of the timing and size of cash flows
func TimeWeightedPerformance(txs []domain.Transaction, prices []domain.PricePoint, r domain.DateRange) decimal.Decimal {
	return LinkReturns(HoldingPeriods(txs, prices, r))
}

// BreakEvenPoint returns Σ amount*price / Σ amount over the transactions at or before at.
// A zero net holding gives 0.
func BreakEvenPoint(txs []domain.Transaction, at time.Time) decimal.Decimal {
	invested := decimal.Zero
	size := decimal.Zero
	for _, tx := range txs {
		if tx.Time.After(at) {
			continue
		}
		invested = invested.Add(tx.CashFlow())
		size = size.Add(tx.Amount)
	}

	if size.IsZero() {
		return decimal.Zero
	}
	return invested.Div(size)
}

// Snapshot computes the position figures over r: value and break-even point at r.To,
// profit and time-weighted performance over r
func Snapshot(position *domain.Position, prices []domain.PricePoint, r domain.DateRange) domain.PositionSnapshot {
	txs := position.Transactions

	return domain.PositionSnapshot{
		PositionID:     position.ID,
		Currency:       position.Currency,
		Value:          ValueAt(txs, prices, r.To),
		Profit:         Profit(txs, prices, r),
		Performance:    TimeWeightedPerformance(txs, prices, r),
		BreakEvenPoint: BreakEvenPoint(txs, r.To),
	}
}
