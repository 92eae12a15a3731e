package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ComputeShares resolves an expense's split configuration into one
// computed share per share entry. It is pure and deterministic: the
// same expense always yields the same shares, which is what makes a
// later revert exact. The shares always sum to the expense amount to
// the minor unit; any configuration that cannot guarantee that fails
// with ErrInvalidSplit.
func ComputeShares(e Expense) ([]ComputedShare, error) {
	if !e.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount %s must be positive", ErrInvalidSplit, e.Amount)
	}
	total, err := ToMinorUnits(e.Amount, e.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSplit, err)
	}

	switch e.SplitMode {
	case SplitEqual:
		return equalShares(e, total)
	case SplitUnequal:
		return unequalShares(e, total)
	case SplitShares:
		return weightedShares(e, total)
	default:
		return nil, fmt.Errorf("%w: unknown split mode %q", ErrInvalidSplit, e.SplitMode)
	}
}

// equalShares divides the amount over the entries flagged split_equaly.
// The integer remainder goes one minor unit at a time to the first
// flagged entries in list order.
func equalShares(e Expense, total int64) ([]ComputedShare, error) {
	var flagged int64
	for _, entry := range e.PaidFor {
		if entry.SplitEqualy {
			flagged++
		}
	}
	if flagged == 0 {
		return nil, fmt.Errorf("%w: equal split with no participant", ErrInvalidSplit)
	}

	base := total / flagged
	remainder := total % flagged

	shares := make([]ComputedShare, len(e.PaidFor))
	for i, entry := range e.PaidFor {
		units := int64(0)
		if entry.SplitEqualy {
			units = base
			if remainder > 0 {
				units++
				remainder--
			}
		}
		shares[i] = ComputedShare{
			ContactID: entry.ContactID,
			Amount:    FromMinorUnits(units, e.Currency),
		}
	}
	return shares, nil
}

// unequalShares takes each entry's split_unequaly value verbatim; nil
// counts as zero. The values must add up to the amount exactly.
func unequalShares(e Expense, total int64) ([]ComputedShare, error) {
	shares := make([]ComputedShare, len(e.PaidFor))
	var sum int64
	for i, entry := range e.PaidFor {
		value := entry.UnequalAmount()
		units, err := ToMinorUnits(value, e.Currency)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %s: %v", ErrInvalidSplit, entry.ContactID, err)
		}
		sum += units
		shares[i] = ComputedShare{
			ContactID: entry.ContactID,
			Amount:    FromMinorUnits(units, e.Currency),
		}
	}
	if sum != total {
		return nil, fmt.Errorf("%w: unequal amounts sum to %s, expense amount is %s",
			ErrInvalidSplit, FromMinorUnits(sum, e.Currency), e.Amount)
	}
	return shares, nil
}

// weightedShares distributes the amount proportionally to split_shares
// weights, rounding with a largest-remainder pass: every entry gets the
// floor of its exact share, then leftover minor units go to the entries
// with the largest fractional remainders, ties broken by list order.
func weightedShares(e Expense, total int64) ([]ComputedShare, error) {
	totalWeight := decimal.Zero
	for _, entry := range e.PaidFor {
		if entry.SplitShares.IsNegative() {
			return nil, fmt.Errorf("%w: entry %s has negative shares", ErrInvalidSplit, entry.ContactID)
		}
		totalWeight = totalWeight.Add(entry.SplitShares)
	}
	if !totalWeight.IsPositive() {
		return nil, fmt.Errorf("%w: total shares must be positive, got %s", ErrInvalidSplit, totalWeight)
	}

	units := make([]int64, len(e.PaidFor))
	fractions := make([]decimal.Decimal, len(e.PaidFor))
	distributed := int64(0)
	for i, entry := range e.PaidFor {
		exact := decimal.NewFromInt(total).Mul(entry.SplitShares).Div(totalWeight)
		floor := exact.Floor()
		units[i] = floor.IntPart()
		fractions[i] = exact.Sub(floor)
		distributed += units[i]
	}

	order := make([]int, len(e.PaidFor))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fractions[order[a]].GreaterThan(fractions[order[b]])
	})
	leftover := total - distributed
	for i := int64(0); i < leftover && i < int64(len(order)); i++ {
		units[order[i]]++
	}

	shares := make([]ComputedShare, len(e.PaidFor))
	for i, entry := range e.PaidFor {
		shares[i] = ComputedShare{
			ContactID: entry.ContactID,
			Amount:    FromMinorUnits(units[i], e.Currency),
		}
	}
	return shares, nil
}

// SumShares adds up the computed share amounts.
func SumShares(shares []ComputedShare) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
	}
	return sum
}
