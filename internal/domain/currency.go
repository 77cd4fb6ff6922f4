package domain

import (
	"fmt"

	"github.com/Rhymond/go-money"
)

// ValidateCurrency checks that code is an upper-case ISO-4217 code known to the currency table
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return fmt.Errorf("%w: %q must be 3 letters", ErrInvalidCurrency, code)
	}

	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: %q must be upper-case letters", ErrInvalidCurrency, code)
		}
	}

	if money.GetCurrency(code) == nil {
		return fmt.Errorf("%w: %q is not a known currency", ErrInvalidCurrency, code)
	}

	return nil
}

// CurrencyFraction returns the number of minor-unit digits of a currency (2 for EUR, 0 for JPY).
// Unknown currencies default to 2.
func CurrencyFraction(code string) int32 {
	cur := money.GetCurrency(code)
	if cur == nil {
		return 2
	}
	return int32(cur.Fraction)
}
