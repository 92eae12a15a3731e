// Package memory is the in-process store used by tests and as the
// default backend. Optionally seeded from JSON files on disk.
package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

type Store struct {
	mu       sync.Mutex
	accounts map[string]core.Account
	expenses map[string]core.Expense
}

func New() *Store {
	return &Store{
		accounts: make(map[string]core.Account),
		expenses: make(map[string]core.Expense),
	}
}

// NewFromFiles seeds a store from accounts.json and expenses.json in
// base, when present. Missing or unreadable seed files leave the store
// empty rather than failing startup.
func NewFromFiles(base string) *Store {
	s := New()

	var accounts []core.Account
	if readJSON(filepath.Join(base, "accounts.json"), &accounts) {
		for _, a := range accounts {
			s.accounts[a.ID] = a.Clone()
		}
	}
	var expenses []core.Expense
	if readJSON(filepath.Join(base, "expenses.json"), &expenses) {
		for _, e := range expenses {
			s.expenses[e.ID] = e.Clone()
		}
	}
	return s
}

func (s *Store) GetAccount(_ context.Context, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, store.ErrNotFound
	}
	return a.Clone(), nil
}

func (s *Store) PutAccount(_ context.Context, account core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account.Clone()
	return nil
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListAccountsByMember(_ context.Context, memberID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.HasMember(memberID) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListMembers(_ context.Context, accountID string) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]core.Member(nil), a.Members...), nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, store.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *Store) PutExpense(_ context.Context, expense core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[expense.ID] = expense.Clone()
	return nil
}

func (s *Store) RemoveExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expenses, id)
	return nil
}

func readJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}
