// Package services orchestrates commits across the ledger engine and
// its collaborators.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

// PersistenceError reports a failed remote write. By the time it is
// returned the service has already re-put the pre-commit account
// snapshots (best effort), so persisted balances are not left half
// committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CommitService sequences expense commits: revert the old version,
// validate and apply the new one, persist every touched account, then
// the expense, then notify. Commits touching the same account are
// serialized through keyed mutexes so concurrent edits cannot corrupt
// the zero-sum invariant.
type CommitService struct {
	accounts  store.AccountStore
	expenses  store.ExpenseStore
	directory store.Directory
	notifier  store.Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCommitService(accounts store.AccountStore, expenses store.ExpenseStore, directory store.Directory, notifier store.Notifier) *CommitService {
	return &CommitService{
		accounts:  accounts,
		expenses:  expenses,
		directory: directory,
		notifier:  notifier,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Save commits an expense. oldExpense is the previously committed
// version when editing, nil when adding. Apply and revert both work on
// the shares computed from each version's own stored entries, never on
// a recomputation of the other version.
func (s *CommitService) Save(ctx context.Context, oldExpense *core.Expense, expense core.Expense) error {
	var touched []string
	if oldExpense != nil {
		touched = append(touched, oldExpense.Accounts...)
	}
	touched = uniqueSorted(append(touched, expense.Accounts...))

	unlock := s.lockAccounts(touched)
	defer unlock()

	originals, err := s.loadAccounts(ctx, touched)
	if err != nil {
		return err
	}
	working := make(map[string]core.Account, len(originals))
	for id, a := range originals {
		working[id] = a
	}

	if oldExpense != nil {
		oldShares, err := core.ComputeShares(*oldExpense)
		if err != nil {
			return fmt.Errorf("compute shares of stored expense %s: %w", oldExpense.ID, err)
		}
		for _, id := range oldExpense.Accounts {
			working[id] = core.RevertExpense(working[id], *oldExpense, oldShares)
		}
	}

	if err := core.ValidateExpense(expense); err != nil {
		return err
	}
	shares, err := core.ComputeShares(expense)
	if err != nil {
		return err
	}
	for _, id := range expense.Accounts {
		working[id] = core.ApplyExpense(working[id], expense, shares)
	}

	if err := s.persistAccounts(ctx, touched, working, originals); err != nil {
		return err
	}
	if err := s.expenses.PutExpense(ctx, expense); err != nil {
		s.compensate(ctx, touched, originals)
		return &PersistenceError{Op: "put expense " + expense.ID, Err: err}
	}

	slog.InfoContext(ctx, "Expense committed",
		"expense_id", expense.ID,
		"amount", expense.Amount.String(),
		"currency", expense.Currency,
		"split_mode", string(expense.SplitMode),
		"accounts", len(expense.Accounts),
		"edit", oldExpense != nil)

	s.notify(ctx)
	return nil
}

// Remove deletes a committed expense: revert its shares from every
// account it touched, persist, delete the record, notify.
func (s *CommitService) Remove(ctx context.Context, expense core.Expense) error {
	touched := uniqueSorted(expense.Accounts)

	unlock := s.lockAccounts(touched)
	defer unlock()

	originals, err := s.loadAccounts(ctx, touched)
	if err != nil {
		return err
	}

	shares, err := core.ComputeShares(expense)
	if err != nil {
		return fmt.Errorf("compute shares of stored expense %s: %w", expense.ID, err)
	}
	working := make(map[string]core.Account, len(originals))
	for _, id := range touched {
		working[id] = core.RevertExpense(originals[id], expense, shares)
	}

	if err := s.persistAccounts(ctx, touched, working, originals); err != nil {
		return err
	}
	if err := s.expenses.RemoveExpense(ctx, expense.ID); err != nil {
		s.compensate(ctx, touched, originals)
		return &PersistenceError{Op: "remove expense " + expense.ID, Err: err}
	}

	slog.InfoContext(ctx, "Expense removed",
		"expense_id", expense.ID,
		"accounts", len(touched))

	s.notify(ctx)
	return nil
}

// OpenExpense loads an expense for editing, reconciled against the
// account's current member set.
func (s *CommitService) OpenExpense(ctx context.Context, accountID, expenseID string) (core.Expense, error) {
	members, err := s.directory.ListMembers(ctx, accountID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("list members of %s: %w", accountID, err)
	}
	expense, err := s.expenses.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", expenseID, err)
	}
	return core.ReconcileShares(expense, members), nil
}

// NewExpense starts a draft against an account with every member opted
// in to an equal split.
func (s *CommitService) NewExpense(ctx context.Context, accountID string) (core.Expense, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get account %s: %w", accountID, err)
	}
	return core.NewExpenseDraft(account), nil
}

// Balances returns an account's current balance map.
func (s *CommitService) Balances(ctx context.Context, accountID string) (core.Account, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %s: %w", accountID, err)
	}
	return account, nil
}

func (s *CommitService) loadAccounts(ctx context.Context, ids []string) (map[string]core.Account, error) {
	out := make(map[string]core.Account, len(ids))
	for _, id := range ids {
		account, err := s.accounts.GetAccount(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get account %s: %w", id, err)
		}
		out[id] = account
	}
	return out, nil
}

func (s *CommitService) persistAccounts(ctx context.Context, ids []string, working, originals map[string]core.Account) error {
	for i, id := range ids {
		if err := s.accounts.PutAccount(ctx, working[id]); err != nil {
			s.compensate(ctx, ids[:i], originals)
			return &PersistenceError{Op: "put account " + id, Err: err}
		}
	}
	return nil
}

// compensate re-puts pre-commit snapshots after a persistence failure.
// Best effort: a failure here is logged and the ledger is left for the
// audit worker to flag.
func (s *CommitService) compensate(ctx context.Context, ids []string, originals map[string]core.Account) {
	for _, id := range ids {
		if err := s.accounts.PutAccount(ctx, originals[id]); err != nil {
			slog.ErrorContext(ctx, "Failed to restore account after persistence failure",
				"account_id", id, "error", err)
		}
	}
}

func (s *CommitService) notify(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyChanged(ctx); err != nil {
		// The commit already persisted; consumers will catch up on the
		// next notification or periodic refresh.
		slog.WarnContext(ctx, "Failed to publish change notification", "error", err)
	}
}

func (s *CommitService) lockAccounts(ids []string) func() {
	locks := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		locks = append(locks, s.accountLock(id))
	}
	// ids are sorted, so every commit acquires in the same order.
	for _, l := range locks {
		l.Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

func (s *CommitService) accountLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[id]; !ok {
		s.locks[id] = &sync.Mutex{}
	}
	return s.locks[id]
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
