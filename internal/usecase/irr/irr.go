// Package irr solves the money-weighted return (internal rate of return) of a cash-flow stream
package irr

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

const (
	newtonMaxIter    = 100
	bisectionMaxIter = 200
	precision        = 24
)

var (
	// maxExponent bounds |ln(1+r)| * horizon, so the growth factor over the
	// whole flow stream stays within e^±60.
	maxExponent    = decimal.NewFromInt(60)
	relTolerance   = decimal.New(1, -10)
	logTolerance   = decimal.New(1, -14)
	secondsPerYear = decimal.NewFromInt(365 * 24 * 60 * 60)
	one            = decimal.NewFromInt(1)
	half           = decimal.RequireFromString("0.5")
)

// CashFlow is one signed flow seen from the investor:
// negative = money put into the position, positive = money taken out.
type CashFlow struct {
	Time   time.Time
	Amount decimal.Decimal
}

// CashFlows builds the flow stream of a position over r.
//
// Logic:
//  1. The value held at r.From is an opening investment (-valueFrom), when non-zero.
//  2. Every transaction in (r.From, r.To] is a flow of -amount*price
//     (buys are money in, sells are money out).
//  3. The value held at r.To is a final sale (+valueTo).
func CashFlows(txs []domain.Transaction, valueFrom, valueTo decimal.Decimal, r domain.DateRange) []CashFlow {
	flows := make([]CashFlow, 0, len(txs)+2)

	if !valueFrom.IsZero() {
		flows = append(flows, CashFlow{Time: r.From, Amount: valueFrom.Neg()})
	}

	for _, tx := range domain.SortTransactions(txs) {
		if r.Contains(tx.Time) {
			flows = append(flows, CashFlow{Time: tx.Time, Amount: tx.CashFlow().Neg()})
		}
	}

	return append(flows, CashFlow{Time: r.To, Amount: valueTo})
}

// CalculateIrr returns the annual rate r such that
// Σ amount_i / (1+r)^(days_i/365) = 0, days measured from range.From.
//
// The root is searched for x = ln(1+r), so short windows with large
// annualised rates stay well conditioned. Newton-Raphson is tried first; if it
// does not converge a bracket around zero is doubled until the NPV changes sign
// and then bisected. Flows that are all zero, that never change sign, or that
// have no root within a growth factor of e^±60 return ErrPerformanceUndefined.
func CalculateIrr(flows []CashFlow, r domain.DateRange) (decimal.Decimal, error) {
	if len(flows) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no cash flows", domain.ErrPerformanceUndefined)
	}

	sorted := make([]CashFlow, len(flows))
	copy(sorted, flows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var hasNeg, hasPos bool
	scale, horizon := decimal.Zero, decimal.Zero
	years := make([]decimal.Decimal, len(sorted))
	for i, f := range sorted {
		switch f.Amount.Sign() {
		case -1:
			hasNeg = true
		case 1:
			hasPos = true
		}
		scale = scale.Add(f.Amount.Abs())

		elapsed := f.Time.Sub(r.From)
		years[i] = decimal.NewFromInt(int64(elapsed / time.Second)).Div(secondsPerYear)
		if years[i].Abs().GreaterThan(horizon) {
			horizon = years[i].Abs()
		}
	}

	if scale.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: all cash flows are zero", domain.ErrPerformanceUndefined)
	}
	if !hasNeg || !hasPos {
		return decimal.Zero, fmt.Errorf("%w: cash flows never change sign", domain.ErrPerformanceUndefined)
	}
	if horizon.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: cash flows span no time", domain.ErrPerformanceUndefined)
	}

	s := solver{
		flows:     sorted,
		years:     years,
		tolerance: scale.Mul(relTolerance),
		step:      one.Div(horizon),
		bound:     maxExponent.Div(horizon),
	}

	x, ok := s.newton(s.initialGuess())
	if !ok {
		x, ok = s.bisect()
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: rate did not converge", domain.ErrPerformanceUndefined)
	}

	growth, err := exp(x)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrPerformanceUndefined, err)
	}
	return growth.Sub(one).Round(12), nil
}

// solver works on the log rate x = ln(1+r). step is the x that grows money by
// e over the whole horizon and bound caps |x| at maxExponent steps.
type solver struct {
	flows     []CashFlow
	years     []decimal.Decimal
	tolerance decimal.Decimal
	step      decimal.Decimal
	bound     decimal.Decimal
}

// initialGuess spreads the simple return received/invested over the horizon
func (s solver) initialGuess() decimal.Decimal {
	invested, received := decimal.Zero, decimal.Zero
	for _, f := range s.flows {
		if f.Amount.IsNegative() {
			invested = invested.Sub(f.Amount)
		} else {
			received = received.Add(f.Amount)
		}
	}

	ratio := received.DivRound(invested, precision)
	if !ratio.IsPositive() {
		return decimal.Zero
	}
	ln, err := ratio.Ln(precision)
	if err != nil {
		return decimal.Zero
	}
	return s.clamp(ln.Mul(s.step))
}

func (s solver) clamp(x decimal.Decimal) decimal.Decimal {
	if x.GreaterThan(s.bound) {
		return s.bound
	}
	if x.LessThan(s.bound.Neg()) {
		return s.bound.Neg()
	}
	return x
}

// npv returns the net present value at x and its derivative with respect to x
func (s solver) npv(x decimal.Decimal) (value, derivative decimal.Decimal, ok bool) {
	value, derivative = decimal.Zero, decimal.Zero
	for i, f := range s.flows {
		y := s.years[i]
		if y.IsZero() {
			value = value.Add(f.Amount)
			continue
		}

		// (1+r)^-y = exp(-y * x)
		discount, err := exp(y.Neg().Mul(x))
		if err != nil {
			return decimal.Zero, decimal.Zero, false
		}

		pv := f.Amount.Mul(discount)
		value = value.Add(pv)
		derivative = derivative.Sub(y.Mul(pv))
	}
	return value, derivative, true
}

func (s solver) newton(guess decimal.Decimal) (decimal.Decimal, bool) {
	x := guess
	for iter := 0; iter < newtonMaxIter; iter++ {
		value, derivative, ok := s.npv(x)
		if !ok {
			return decimal.Zero, false
		}

		if value.Abs().LessThan(s.tolerance) {
			return x, true
		}

		if derivative.IsZero() {
			return decimal.Zero, false
		}

		next := s.clamp(x.Sub(value.DivRound(derivative, precision)))
		if next.Equal(x) {
			// Stuck on a clamp bound without a root there
			return decimal.Zero, false
		}
		x = next
	}
	return decimal.Zero, false
}

// bracket doubles [-w, w] from w = step until the NPV changes sign or the
// bound is reached
func (s solver) bracket() (lo, hi, npvLo decimal.Decimal, ok bool) {
	for w := s.step; ; w = s.clamp(w.Add(w)) {
		lo, hi = w.Neg(), w

		npvLo, _, ok = s.npv(lo)
		if !ok {
			return
		}
		npvHi, _, okHi := s.npv(hi)
		if !okHi {
			return lo, hi, npvLo, false
		}

		if npvLo.Sign()*npvHi.Sign() <= 0 {
			return lo, hi, npvLo, true
		}
		if w.Equal(s.bound) {
			return lo, hi, npvLo, false
		}
	}
}

func (s solver) bisect() (decimal.Decimal, bool) {
	lo, hi, npvLo, ok := s.bracket()
	if !ok {
		return decimal.Zero, false
	}
	if npvLo.IsZero() {
		return lo, true
	}

	for iter := 0; iter < bisectionMaxIter; iter++ {
		mid := lo.Add(hi).Mul(half)
		npvMid, _, ok := s.npv(mid)
		if !ok {
			return decimal.Zero, false
		}

		if npvMid.Abs().LessThan(s.tolerance) || hi.Sub(lo).LessThan(logTolerance) {
			return mid, true
		}

		if npvMid.Sign()*npvLo.Sign() < 0 {
			hi = mid
		} else {
			lo = mid
			npvLo = npvMid
		}
	}
	return decimal.Zero, false
}

// exp returns e^x. The argument is halved until it is at most 0.5 and the
// Taylor result is squared back.
func exp(x decimal.Decimal) (decimal.Decimal, error) {
	reduced, squarings := x.Abs(), 0
	for reduced.GreaterThan(half) {
		reduced = reduced.Mul(half)
		squarings++
	}

	result, err := reduced.Round(precision + 2).ExpTaylor(precision)
	if err != nil {
		return decimal.Zero, err
	}
	for ; squarings > 0; squarings-- {
		result = result.Mul(result).Round(precision)
	}

	if x.IsNegative() {
		return one.DivRound(result, precision), nil
	}
	return result, nil
}
