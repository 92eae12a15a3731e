// Package store declares the engine's outbound ports. Persistence,
// member directory and change notification are collaborators behind
// these interfaces; the engine never retries them itself.
package store

import (
	"context"
	"errors"

	"splitledger/internal/core"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

type (
	// AccountStore persists accounts. Writes are treated as
	// at-least-once, eventually acknowledged operations.
	AccountStore interface {
		GetAccount(ctx context.Context, id string) (core.Account, error)
		PutAccount(ctx context.Context, account core.Account) error
		ListAccounts(ctx context.Context) ([]core.Account, error)
		ListAccountsByMember(ctx context.Context, memberID string) ([]core.Account, error)
	}

	// ExpenseStore persists expenses.
	ExpenseStore interface {
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		PutExpense(ctx context.Context, expense core.Expense) error
		RemoveExpense(ctx context.Context, id string) error
	}

	// Directory supplies the current member list of an account so the
	// reconciler can detect members added after an expense was authored.
	Directory interface {
		ListMembers(ctx context.Context, accountID string) ([]core.Member, error)
	}

	// Notifier announces that ledger state changed after a successful
	// commit. There is no payload; consumers re-fetch what they need.
	Notifier interface {
		NotifyChanged(ctx context.Context) error
	}
)
