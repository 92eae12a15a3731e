package memory

import (
	"context"
	"errors"
	"testing"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

func TestAccountRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetAccount(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	account := core.NewAccount("acc-1", "Flat", []core.Member{{ID: "a", DisplayName: "Alice"}})
	if err := s.PutAccount(ctx, account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Flat" || len(got.Members) != 1 {
		t.Fatalf("unexpected account: %+v", got)
	}

	// Returned values are copies: mutating them must not leak back.
	got.Name = "changed"
	again, _ := s.GetAccount(ctx, "acc-1")
	if again.Name != "Flat" {
		t.Fatalf("store leaked a reference: %s", again.Name)
	}
}

func TestListAccountsByMember(t *testing.T) {
	s := New()
	ctx := context.Background()

	flat := core.NewAccount("acc-1", "Flat", []core.Member{{ID: "a"}, {ID: "b"}})
	trip := core.NewAccount("acc-2", "Trip", []core.Member{{ID: "b"}, {ID: "c"}})
	s.PutAccount(ctx, flat)
	s.PutAccount(ctx, trip)

	accounts, err := s.ListAccountsByMember(ctx, "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}

	accounts, _ = s.ListAccountsByMember(ctx, "c")
	if len(accounts) != 1 || accounts[0].ID != "acc-2" {
		t.Fatalf("unexpected accounts for c: %+v", accounts)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	e := core.Expense{ID: "exp-1", Description: "groceries"}
	if err := s.PutExpense(ctx, e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.GetExpense(ctx, "exp-1")
	if err != nil || got.Description != "groceries" {
		t.Fatalf("unexpected expense: %+v (err=%v)", got, err)
	}
	if err := s.RemoveExpense(ctx, "exp-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.GetExpense(ctx, "exp-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestListMembers(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.PutAccount(ctx, core.NewAccount("acc-1", "Flat", []core.Member{{ID: "a"}, {ID: "b"}}))

	members, err := s.ListMembers(ctx, "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if _, err := s.ListMembers(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
