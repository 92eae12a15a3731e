package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidateExpense(t *testing.T) {
	good := expenseEqual("10", "a", "b")
	if err := ValidateExpense(good); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	zeroAmount := expenseEqual("0", "a", "b")

	undersum := Expense{
		Amount: dec("10"), Currency: "EUR", SplitMode: SplitUnequal,
		Accounts: []string{"acc-1"},
		PaidFor: []ShareEntry{
			{ContactID: "a", SplitUnequaly: decPtr("4")},
			{ContactID: "b", SplitUnequaly: decPtr("4")},
		},
	}

	zeroShares := Expense{
		Amount: dec("10"), Currency: "EUR", SplitMode: SplitShares,
		Accounts: []string{"acc-1"},
		PaidFor:  []ShareEntry{{ContactID: "a"}, {ContactID: "b"}},
	}

	noAccounts := expenseEqual("10", "a", "b")
	noAccounts.Accounts = nil

	cases := []struct {
		name string
		e    Expense
	}{
		{"zero amount", zeroAmount},
		{"unequal sum below amount", undersum},
		{"all share weights zero", zeroShares},
		{"no accounts", noAccounts},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateExpense(tc.e); !errors.Is(err, ErrInvalidExpense) {
				t.Fatalf("expected ErrInvalidExpense, got %v", err)
			}
		})
	}
}

func TestValidateExpenseKeepsSplitError(t *testing.T) {
	err := ValidateExpense(expenseEqual("0", "a"))
	if !errors.Is(err, ErrInvalidSplit) {
		t.Fatalf("expected wrapped ErrInvalidSplit, got %v", err)
	}
}

func TestAccountCloneIsIndependent(t *testing.T) {
	account := NewAccount("acc-1", "Flat", testMembers())
	account.Expenses = []string{"exp-1"}

	clone := account.Clone()
	clone.Balances["a"] = dec("5")
	clone.Expenses[0] = "other"
	clone.Members[0].DisplayName = "changed"

	if !account.Balance("a").IsZero() {
		t.Fatalf("clone leaked balance mutation: %s", account.Balance("a"))
	}
	if account.Expenses[0] != "exp-1" {
		t.Fatalf("clone leaked expense mutation: %v", account.Expenses)
	}
	if account.Members[0].DisplayName != "Alice" {
		t.Fatalf("clone leaked member mutation: %v", account.Members)
	}
}

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `"2024-02-29"` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip changed date: %s vs %s", back, d)
	}

	var zero Date
	data, _ = json.Marshal(zero)
	if string(data) != "null" {
		t.Fatalf("zero date should encode as null, got %s", data)
	}
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		units    int64
		ok       bool
	}{
		{"12.34", "EUR", 1234, true},
		{"12", "EUR", 1200, true},
		{"12.345", "EUR", 0, false},
		{"100", "JPY", 100, true},
		{"100.5", "JPY", 0, false},
		{"1.234", "KWD", 1234, true},
	}
	for _, tc := range cases {
		units, err := ToMinorUnits(dec(tc.amount), tc.currency)
		if tc.ok {
			if err != nil || units != tc.units {
				t.Fatalf("%s %s: expected %d, got %d (err=%v)", tc.amount, tc.currency, tc.units, units, err)
			}
			if !FromMinorUnits(units, tc.currency).Equal(dec(tc.amount)) {
				t.Fatalf("%s %s: round trip mismatch", tc.amount, tc.currency)
			}
		} else if err == nil {
			t.Fatalf("%s %s: expected error", tc.amount, tc.currency)
		}
	}
}
