package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopspring/decimal"
)

// DefaultShareEntry opts a member in to an equal split. Used when
// building a brand-new expense where everyone participates.
func DefaultShareEntry(m Member) ShareEntry {
	return ShareEntry{
		ContactID:   m.ID,
		SplitEqualy: true,
		SplitShares: decimal.NewFromInt(1),
	}
}

// ZeroShareEntry makes a member addressable in the split without
// contributing anything until explicitly included. Used when members
// joined the account after the expense was authored.
func ZeroShareEntry(m Member) ShareEntry {
	return ShareEntry{
		ContactID:   m.ID,
		SplitEqualy: false,
		SplitShares: decimal.Zero,
	}
}

// ReconcileShares aligns an expense's share list with the account's
// current member set: every member missing from paidFor gets a
// zero-weight entry appended. Existing entries are preserved unchanged,
// including entries for members no longer in the account; cleanup of
// those stale liabilities is deliberately not attempted here. The
// function is idempotent and leaves dateUpdated alone when nothing was
// added.
func ReconcileShares(e Expense, members []Member) Expense {
	present := make(map[string]bool, len(e.PaidFor))
	for _, entry := range e.PaidFor {
		present[entry.ContactID] = true
	}

	var missing []ShareEntry
	for _, m := range members {
		if !present[m.ID] {
			missing = append(missing, ZeroShareEntry(m))
		}
	}
	if len(missing) == 0 {
		return e
	}

	out := e.Clone()
	out.PaidFor = append(out.PaidFor, missing...)
	out.DateUpdated = time.Now().Unix()
	return out
}

// NewExpenseDraft starts an expense against an account with every
// current member opted in to an equal split.
func NewExpenseDraft(a Account) Expense {
	now := time.Now().Unix()
	paidFor := make([]ShareEntry, 0, len(a.Members))
	for _, m := range a.Members {
		paidFor = append(paidFor, DefaultShareEntry(m))
	}
	return Expense{
		ID:          uuid.NewString(),
		Currency:    "EUR",
		Date:        Today(),
		Type:        TypeIndividual,
		SplitMode:   SplitEqual,
		PaidFor:     paidFor,
		Accounts:    []string{a.ID},
		DateCreated: now,
		DateUpdated: now,
	}
}
