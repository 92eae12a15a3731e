// Package worker hosts the background audit that cross-checks stored
// account balances against the expenses that produced them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/store"
)

// FindingKind classifies an audit finding
type FindingKind string

const (
	FindingDrift          FindingKind = "balance_drift"
	FindingZeroSum        FindingKind = "zero_sum_violation"
	FindingMissingExpense FindingKind = "missing_expense"
	FindingInvalidExpense FindingKind = "invalid_expense"
	FindingGhostBalance   FindingKind = "ghost_balance"
)

// Finding describes one discrepancy detected during an audit pass
type Finding struct {
	Kind      FindingKind
	AccountID string
	ContactID string
	ExpenseID string
	Detail    string
}

// AuditWorker recomputes account balances from first principles and
// compares them to what the store holds
type AuditWorker struct {
	accounts  store.AccountStore
	expenses  store.ExpenseStore
	batchSize int
}

func NewAuditWorker(accounts store.AccountStore, expenses store.ExpenseStore, batchSize int) *AuditWorker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &AuditWorker{
		accounts:  accounts,
		expenses:  expenses,
		batchSize: batchSize,
	}
}

// HandleChangeMessage re-audits the ledger after a commit notification
func (w *AuditWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.InfoContext(ctx, "Processing change notification", "timestamp", msg.Timestamp)
	return w.RunAudit(ctx)
}

// RunAudit audits every account in the store. Findings are logged;
// only infrastructure failures are returned as errors.
func (w *AuditWorker) RunAudit(ctx context.Context) error {
	accounts, err := w.accounts.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	total := 0
	for i := 0; i < len(accounts); i += w.batchSize {
		end := i + w.batchSize
		if end > len(accounts) {
			end = len(accounts)
		}
		for _, account := range accounts[i:end] {
			if err := ctx.Err(); err != nil {
				return err
			}
			findings, err := w.AuditAccount(ctx, account)
			if err != nil {
				return fmt.Errorf("audit account %s: %w", account.ID, err)
			}
			for _, f := range findings {
				slog.WarnContext(ctx, "Audit finding",
					"kind", string(f.Kind),
					"account_id", f.AccountID,
					"contact_id", f.ContactID,
					"expense_id", f.ExpenseID,
					"detail", f.Detail)
			}
			total += len(findings)
		}
	}

	slog.InfoContext(ctx, "Audit pass complete",
		"accounts", len(accounts),
		"findings", total)
	return nil
}

// AuditAccount replays the account's expenses and diffs the derived
// balances against the stored ones.
func (w *AuditWorker) AuditAccount(ctx context.Context, account core.Account) ([]Finding, error) {
	var findings []Finding

	derived := map[string]decimal.Decimal{}
	for _, m := range account.Members {
		derived[m.ID] = decimal.Zero
	}

	for _, expenseID := range account.Expenses {
		expense, err := w.expenses.GetExpense(ctx, expenseID)
		if errors.Is(err, store.ErrNotFound) {
			findings = append(findings, Finding{
				Kind:      FindingMissingExpense,
				AccountID: account.ID,
				ExpenseID: expenseID,
				Detail:    "account references an expense that is not stored",
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		shares, err := core.ComputeShares(expense)
		if err != nil {
			findings = append(findings, Finding{
				Kind:      FindingInvalidExpense,
				AccountID: account.ID,
				ExpenseID: expenseID,
				Detail:    err.Error(),
			})
			continue
		}

		derived[expense.PaidByContactID] = derived[expense.PaidByContactID].Add(expense.Amount)
		for _, share := range shares {
			derived[share.ContactID] = derived[share.ContactID].Sub(share.Amount)
		}
	}

	for contactID, want := range derived {
		got := account.Balance(contactID)
		if !got.Equal(want) {
			findings = append(findings, Finding{
				Kind:      FindingDrift,
				AccountID: account.ID,
				ContactID: contactID,
				Detail:    fmt.Sprintf("stored %s, derived %s", got, want),
			})
		}
	}

	sum := decimal.Zero
	for contactID, balance := range account.Balances {
		sum = sum.Add(balance)
		if _, known := derived[contactID]; !known && !balance.IsZero() {
			findings = append(findings, Finding{
				Kind:      FindingGhostBalance,
				AccountID: account.ID,
				ContactID: contactID,
				Detail:    fmt.Sprintf("balance %s held by a contact with no membership and no stored expense", balance),
			})
		}
	}
	if !sum.IsZero() {
		findings = append(findings, Finding{
			Kind:      FindingZeroSum,
			AccountID: account.ID,
			Detail:    fmt.Sprintf("balances sum to %s", sum),
		})
	}

	return findings, nil
}
