package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/paypadi/wallet-backend/pkg/enums"
)

// All engine state is integer minor units. Decimal values exist only at the
// API and provider boundary, where callers submit "150.00"-style amounts.

var minorUnitExponents = map[enums.Currency]int32{
	enums.CurrencyNGN: 2,
	enums.CurrencyUSD: 2,
	enums.CurrencyGHS: 2,
}

// ToMinorUnits converts a major-unit decimal amount into integer minor units.
// Amounts with sub-minor precision (e.g. fractional kobo) are rejected rather
// than rounded.
func ToMinorUnits(amount decimal.Decimal, currency enums.Currency) (int64, error) {
	exp, ok := minorUnitExponents[currency]
	if !ok {
		return 0, fmt.Errorf("unsupported currency %q", currency)
	}
	scaled := amount.Shift(exp)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has more precision than %s allows", amount, currency)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s out of range", amount)
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits renders integer minor units as a major-unit decimal.
func FromMinorUnits(minor int64, currency enums.Currency) decimal.Decimal {
	exp, ok := minorUnitExponents[currency]
	if !ok {
		exp = 2
	}
	return decimal.New(minor, -exp)
}

// ParseAmount parses a caller-supplied decimal string and converts it to
// minor units, requiring a strictly positive value.
func ParseAmount(raw string, currency enums.Currency) (int64, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	return ToMinorUnits(amount, currency)
}
