// Minor-unit arithmetic. Split distribution works on integer counts of
// a currency's smallest unit so that remainders can be handed out one
// unit at a time and sums stay exact.
package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Minor unit exponents per ISO 4217. Currencies not listed use 2.
var minorUnitExponents = map[string]int32{
	"BHD": 3,
	"IQD": 3,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
	"VND": 0,
}

// MinorUnitExponent returns the number of decimal places of the
// currency's smallest unit.
func MinorUnitExponent(currency string) int32 {
	if exp, ok := minorUnitExponents[currency]; ok {
		return exp
	}
	return 2
}

// ToMinorUnits converts an amount to an integer count of the currency's
// minor units. Amounts with finer precision than the minor unit are
// rejected: they could never sum back exactly.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	shifted := amount.Shift(MinorUnitExponent(currency))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %s has sub-unit precision for %s", ErrInvalidAmount, amount, currency)
	}
	return shifted.IntPart(), nil
}

// FromMinorUnits converts a minor-unit count back to a decimal amount.
func FromMinorUnits(units int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(units).Shift(-MinorUnitExponent(currency))
}
