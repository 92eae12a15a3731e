package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SplitEqual   SplitMode = "equal"
	SplitUnequal SplitMode = "unequal"
	SplitShares  SplitMode = "shares"
)

const (
	TypeIndividual ExpenseType = "individual"
	TypeGroup      ExpenseType = "group"
)

type (
	SplitMode   string
	ExpenseType string

	// Member identifies a participant. Identity is ID; the display name
	// is owned by the external contact directory.
	Member struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}

	// ShareEntry records how one member participates in an expense's
	// split. Exactly one entry exists per beneficiary; entries are never
	// removed, even for members who later leave the account.
	ShareEntry struct {
		ContactID     string           `json:"contactId"`
		SplitEqualy   bool             `json:"split_equaly"`
		SplitUnequaly *decimal.Decimal `json:"split_unequaly"`
		SplitShares   decimal.Decimal  `json:"split_shares"`
	}

	// ComputedShare is the resolved monetary liability for one
	// ShareEntry. It is derived, never persisted.
	ComputedShare struct {
		ContactID string
		Amount    decimal.Decimal
	}

	Expense struct {
		ID              string          `json:"id"`
		Description     string          `json:"description"`
		Amount          decimal.Decimal `json:"amount"`
		Currency        string          `json:"currency"`
		Date            Date            `json:"date"`
		Type            ExpenseType     `json:"type"`
		PaidByContactID string          `json:"paidByContactId"`
		SplitMode       SplitMode       `json:"splitMode"`
		PaidFor         []ShareEntry    `json:"paidFor"`
		Accounts        []string        `json:"accounts"`
		DateCreated     int64           `json:"dateCreated"`
		DateUpdated     int64           `json:"dateUpdated"`
	}

	// Account is a ledger scope shared by a set of members. Balances map
	// member IDs to signed amounts: positive means the account owes the
	// member, negative means the member owes the account. Outside of an
	// in-flight commit the balances always sum to zero.
	Account struct {
		ID              string                     `json:"id"`
		Name            string                     `json:"name"`
		Members         []Member                   `json:"members"`
		Expenses        []string                   `json:"expenses"`
		Balances        map[string]decimal.Decimal `json:"balances"`
		DateLastExpense Date                       `json:"dateLastExpense"`
		DateUpdated     int64                      `json:"dateUpdated"`
	}
)

var (
	ErrInvalidSplit   = errors.New("invalid split")
	ErrInvalidExpense = errors.New("invalid expense")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// NewAccount builds an account with a zero balance per member.
func NewAccount(id, name string, members []Member) Account {
	balances := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		balances[m.ID] = decimal.Zero
	}
	return Account{
		ID:          id,
		Name:        name,
		Members:     append([]Member(nil), members...),
		Balances:    balances,
		DateUpdated: time.Now().Unix(),
	}
}

// Clone returns a deep copy so callers can derive new account values
// without touching the original.
func (a Account) Clone() Account {
	out := a
	out.Members = append([]Member(nil), a.Members...)
	out.Expenses = append([]string(nil), a.Expenses...)
	out.Balances = make(map[string]decimal.Decimal, len(a.Balances))
	for id, amount := range a.Balances {
		out.Balances[id] = amount
	}
	return out
}

// Balance returns the member's balance, zero when the member has none.
func (a Account) Balance(contactID string) decimal.Decimal {
	if b, ok := a.Balances[contactID]; ok {
		return b
	}
	return decimal.Zero
}

// HasMember reports whether the contact is currently a member.
func (a Account) HasMember(contactID string) bool {
	for _, m := range a.Members {
		if m.ID == contactID {
			return true
		}
	}
	return false
}

// Clone copies the expense including its share entries.
func (e Expense) Clone() Expense {
	out := e
	out.PaidFor = append([]ShareEntry(nil), e.PaidFor...)
	out.Accounts = append([]string(nil), e.Accounts...)
	return out
}

// UnequalAmount returns the entry's unequal split value, treating nil
// as zero.
func (s ShareEntry) UnequalAmount() decimal.Decimal {
	if s.SplitUnequaly == nil {
		return decimal.Zero
	}
	return *s.SplitUnequaly
}
