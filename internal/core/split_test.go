package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func equalEntry(contactID string) ShareEntry {
	return ShareEntry{ContactID: contactID, SplitEqualy: true, SplitShares: decimal.NewFromInt(1)}
}

func expenseEqual(amount string, contactIDs ...string) Expense {
	e := Expense{
		Amount:          dec(amount),
		Currency:        "EUR",
		PaidByContactID: contactIDs[0],
		SplitMode:       SplitEqual,
		Accounts:        []string{"acc-1"},
	}
	for _, id := range contactIDs {
		e.PaidFor = append(e.PaidFor, equalEntry(id))
	}
	return e
}

func assertShares(t *testing.T, shares []ComputedShare, want []string) {
	t.Helper()
	if len(shares) != len(want) {
		t.Fatalf("expected %d shares, got %d", len(want), len(shares))
	}
	for i, w := range want {
		if !shares[i].Amount.Equal(dec(w)) {
			t.Fatalf("share %d: expected %s, got %s", i, w, shares[i].Amount)
		}
	}
}

func TestComputeSharesEqual(t *testing.T) {
	shares, err := ComputeShares(expenseEqual("100", "a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 100.00 over three: one entry takes the extra cents, in list order.
	assertShares(t, shares, []string{"33.34", "33.33", "33.33"})
	if !SumShares(shares).Equal(dec("100")) {
		t.Fatalf("shares sum to %s, want 100", SumShares(shares))
	}
}

func TestComputeSharesEqualSkipsUnflagged(t *testing.T) {
	e := expenseEqual("30", "a", "b", "c")
	e.PaidFor[1].SplitEqualy = false

	shares, err := ComputeShares(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertShares(t, shares, []string{"15", "0", "15"})
}

func TestComputeSharesEqualZeroDecimalCurrency(t *testing.T) {
	e := expenseEqual("100", "a", "b", "c")
	e.Currency = "JPY"

	shares, err := ComputeShares(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Yen has no minor decimals: the remainder is whole yen.
	assertShares(t, shares, []string{"34", "33", "33"})
}

func TestComputeSharesUnequal(t *testing.T) {
	e := Expense{
		Amount:    dec("50"),
		Currency:  "EUR",
		SplitMode: SplitUnequal,
		Accounts:  []string{"acc-1"},
		PaidFor: []ShareEntry{
			{ContactID: "a", SplitUnequaly: decPtr("12.50")},
			{ContactID: "b", SplitUnequaly: decPtr("37.50")},
			{ContactID: "c"}, // nil counts as zero
		},
	}

	shares, err := ComputeShares(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertShares(t, shares, []string{"12.5", "37.5", "0"})
}

func TestComputeSharesWeighted(t *testing.T) {
	e := Expense{
		Amount:    dec("1.00"),
		Currency:  "EUR",
		SplitMode: SplitShares,
		Accounts:  []string{"acc-1"},
		PaidFor: []ShareEntry{
			{ContactID: "a", SplitShares: dec("1")},
			{ContactID: "b", SplitShares: dec("2")},
			{ContactID: "c", SplitShares: dec("4")},
		},
	}

	shares, err := ComputeShares(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Exact shares are 14.28, 28.57 and 57.14 cents; the leftover cent
	// goes to the largest fractional remainder (entry b).
	assertShares(t, shares, []string{"0.14", "0.29", "0.57"})
}

func TestComputeSharesWeightedTieBreaksByListOrder(t *testing.T) {
	e := Expense{
		Amount:    dec("1.00"),
		Currency:  "EUR",
		SplitMode: SplitShares,
		Accounts:  []string{"acc-1"},
		PaidFor: []ShareEntry{
			{ContactID: "a", SplitShares: dec("1")},
			{ContactID: "b", SplitShares: dec("1")},
			{ContactID: "c", SplitShares: dec("1")},
		},
	}

	shares, err := ComputeShares(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertShares(t, shares, []string{"0.34", "0.33", "0.33"})
}

func TestComputeSharesSumProperty(t *testing.T) {
	cases := []Expense{
		expenseEqual("10", "a", "b", "c"),
		expenseEqual("0.01", "a", "b", "c"),
		expenseEqual("99.99", "a", "b", "c", "d", "e", "f", "g"),
		{
			Amount: dec("77.77"), Currency: "EUR", SplitMode: SplitShares,
			PaidFor: []ShareEntry{
				{ContactID: "a", SplitShares: dec("3")},
				{ContactID: "b", SplitShares: dec("1.5")},
				{ContactID: "c", SplitShares: dec("7")},
			},
		},
		{
			Amount: dec("20"), Currency: "EUR", SplitMode: SplitUnequal,
			PaidFor: []ShareEntry{
				{ContactID: "a", SplitUnequaly: decPtr("19.99")},
				{ContactID: "b", SplitUnequaly: decPtr("0.01")},
			},
		},
	}
	for i, e := range cases {
		shares, err := ComputeShares(e)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if !SumShares(shares).Equal(e.Amount) {
			t.Fatalf("case %d: shares sum to %s, want %s", i, SumShares(shares), e.Amount)
		}
	}
}

func TestComputeSharesInvalid(t *testing.T) {
	noParticipants := expenseEqual("10", "a", "b")
	noParticipants.PaidFor[0].SplitEqualy = false
	noParticipants.PaidFor[1].SplitEqualy = false

	subUnit := expenseEqual("10.005", "a", "b")

	cases := []struct {
		name string
		e    Expense
	}{
		{"zero amount", expenseEqual("0", "a", "b")},
		{"negative amount", expenseEqual("-5", "a", "b")},
		{"sub-unit amount", subUnit},
		{"equal without participants", noParticipants},
		{
			"unequal sum mismatch",
			Expense{
				Amount: dec("10"), Currency: "EUR", SplitMode: SplitUnequal,
				PaidFor: []ShareEntry{
					{ContactID: "a", SplitUnequaly: decPtr("3")},
					{ContactID: "b", SplitUnequaly: decPtr("3")},
				},
			},
		},
		{
			"shares all zero",
			Expense{
				Amount: dec("10"), Currency: "EUR", SplitMode: SplitShares,
				PaidFor: []ShareEntry{
					{ContactID: "a"},
					{ContactID: "b"},
				},
			},
		},
		{
			"negative share weight",
			Expense{
				Amount: dec("10"), Currency: "EUR", SplitMode: SplitShares,
				PaidFor: []ShareEntry{
					{ContactID: "a", SplitShares: dec("2")},
					{ContactID: "b", SplitShares: dec("-1")},
				},
			},
		},
		{
			"unknown mode",
			Expense{
				Amount: dec("10"), Currency: "EUR", SplitMode: "percentage",
				PaidFor: []ShareEntry{{ContactID: "a", SplitEqualy: true}},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ComputeShares(tc.e); !errors.Is(err, ErrInvalidSplit) {
				t.Fatalf("expected ErrInvalidSplit, got %v", err)
			}
		})
	}
}

func TestComputeSharesDeterministic(t *testing.T) {
	e := expenseEqual("100", "a", "b", "c")
	first, err := ComputeShares(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := ComputeShares(e)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for j := range first {
			if !first[j].Amount.Equal(again[j].Amount) {
				t.Fatalf("run %d share %d differs: %s vs %s", i, j, first[j].Amount, again[j].Amount)
			}
		}
	}
}
