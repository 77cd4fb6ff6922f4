package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoExchangeRateAvailable is returned when no rate (direct, inverse or pivoted) exists for a pair at a time
	ErrNoExchangeRateAvailable = errors.New("no exchange rate available")

	// ErrConversionUnavailable is returned when an amount cannot be converted between two currencies
	ErrConversionUnavailable = errors.New("currency conversion unavailable")

	// ErrPerformanceUndefined is returned when a money-weighted return cannot be solved
	ErrPerformanceUndefined = errors.New("performance undefined")

	// ErrInvalidRange is returned for ranges with From after To or outside supported history
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidFrequency is returned for aggregation frequencies outside Frequencies
	ErrInvalidFrequency = errors.New("invalid aggregation frequency")

	// ErrMissingDefaultCurrency is returned when a conversion needs the pivot currency but none is configured
	ErrMissingDefaultCurrency = errors.New("missing default currency")

	// ErrInvalidCurrency is returned for unknown or malformed ISO-4217 codes
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrNotFound is returned by sources when the requested record does not exist
	ErrNotFound = errors.New("not found")
)

// NoExchangeRateError describes the pair and instant a conversion failed for.
// It matches both ErrNoExchangeRateAvailable and ErrConversionUnavailable.
type NoExchangeRateError struct {
	From string
	To   string
	Time time.Time
}

func (e *NoExchangeRateError) Error() string {
	return fmt.Sprintf("no exchange rate available from %s to %s at %s", e.From, e.To, e.Time.Format(time.RFC3339))
}

func (e *NoExchangeRateError) Is(target error) bool {
	return target == ErrNoExchangeRateAvailable || target == ErrConversionUnavailable
}
