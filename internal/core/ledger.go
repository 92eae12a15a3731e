package core

import "time"

// ApplyExpense posts an expense's computed shares to an account and
// returns the updated value; the input account is left untouched. The
// payer is credited the full amount (they fronted it) and every
// beneficiary is debited their computed share, so the net effect on the
// account is zero as long as the shares sum to the amount.
func ApplyExpense(a Account, e Expense, shares []ComputedShare) Account {
	out := a.Clone()
	out.Balances[e.PaidByContactID] = out.Balance(e.PaidByContactID).Add(e.Amount)
	for _, s := range shares {
		out.Balances[s.ContactID] = out.Balance(s.ContactID).Sub(s.Amount)
	}
	out.Expenses = appendID(out.Expenses, e.ID)
	if e.Date.After(out.DateLastExpense) {
		out.DateLastExpense = e.Date
	}
	out.DateUpdated = time.Now().Unix()
	return out
}

// RevertExpense undoes a previous apply: the payer is debited the
// amount and every beneficiary credited their share. It must be called
// with the same computed shares that were applied; recomputing from a
// possibly-edited expense would not restore the balances exactly.
func RevertExpense(a Account, e Expense, shares []ComputedShare) Account {
	out := a.Clone()
	out.Balances[e.PaidByContactID] = out.Balance(e.PaidByContactID).Sub(e.Amount)
	for _, s := range shares {
		out.Balances[s.ContactID] = out.Balance(s.ContactID).Add(s.Amount)
	}
	out.Expenses = removeID(out.Expenses, e.ID)
	out.DateUpdated = time.Now().Unix()
	return out
}

func appendID(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
