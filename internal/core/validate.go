package core

import "fmt"

// ValidateExpense gate-keeps persistence. An expense may be committed
// only if its shares compute without error, the computed sequence is
// non-empty and it touches at least one account: an expense with no
// effect must not be saved. The check never mutates anything.
func ValidateExpense(e Expense) error {
	if len(e.Accounts) == 0 {
		return fmt.Errorf("%w: no accounts", ErrInvalidExpense)
	}
	shares, err := ComputeShares(e)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExpense, err)
	}
	if len(shares) == 0 {
		return fmt.Errorf("%w: no beneficiaries", ErrInvalidExpense)
	}
	return nil
}
