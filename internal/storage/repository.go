// Package storage is the SQLite persistence collaborator. Accounts and
// expenses are stored as rows with their nested structures (members,
// share entries, balances) serialized as JSON columns.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, members, expenses, balances, date_last_expense, date_updated
		   FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, store.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return account, nil
}

func (r *SQLiteRepository) PutAccount(ctx context.Context, account core.Account) error {
	members, err := json.Marshal(account.Members)
	if err != nil {
		return fmt.Errorf("marshal members: %w", err)
	}
	expenses, err := json.Marshal(orEmpty(account.Expenses))
	if err != nil {
		return fmt.Errorf("marshal expenses: %w", err)
	}
	balances, err := json.Marshal(account.Balances)
	if err != nil {
		return fmt.Errorf("marshal balances: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, members, expenses, balances, date_last_expense, date_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   members = excluded.members,
		   expenses = excluded.expenses,
		   balances = excluded.balances,
		   date_last_expense = excluded.date_last_expense,
		   date_updated = excluded.date_updated`,
		account.ID, account.Name, string(members), string(expenses), string(balances),
		account.DateLastExpense.String(), account.DateUpdated)
	if err != nil {
		return fmt.Errorf("put account %s: %w", account.ID, err)
	}

	slog.DebugContext(ctx, "Account saved", "account_id", account.ID)
	return nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, members, expenses, balances, date_last_expense, date_updated
		   FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

// ListAccountsByMember filters in process: member sets are small JSON
// documents, not worth a join table for this access pattern.
func (r *SQLiteRepository) ListAccountsByMember(ctx context.Context, memberID string) ([]core.Account, error) {
	accounts, err := r.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := accounts[:0]
	for _, a := range accounts {
		if a.HasMember(memberID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, accountID string) ([]core.Member, error) {
	account, err := r.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.Members, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, description, amount, currency, date, type, paid_by_contact_id,
		        split_mode, paid_for, accounts, date_created, date_updated
		   FROM expenses WHERE id = ?`, id)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, store.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return expense, nil
}

func (r *SQLiteRepository) PutExpense(ctx context.Context, expense core.Expense) error {
	paidFor, err := json.Marshal(expense.PaidFor)
	if err != nil {
		return fmt.Errorf("marshal paid_for: %w", err)
	}
	accounts, err := json.Marshal(expense.Accounts)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, description, amount, currency, date, type,
		                       paid_by_contact_id, split_mode, paid_for, accounts,
		                       date_created, date_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   description = excluded.description,
		   amount = excluded.amount,
		   currency = excluded.currency,
		   date = excluded.date,
		   type = excluded.type,
		   paid_by_contact_id = excluded.paid_by_contact_id,
		   split_mode = excluded.split_mode,
		   paid_for = excluded.paid_for,
		   accounts = excluded.accounts,
		   date_created = excluded.date_created,
		   date_updated = excluded.date_updated`,
		expense.ID, expense.Description, expense.Amount.String(), expense.Currency,
		expense.Date.String(), string(expense.Type), expense.PaidByContactID,
		string(expense.SplitMode), string(paidFor), string(accounts),
		expense.DateCreated, expense.DateUpdated)
	if err != nil {
		return fmt.Errorf("put expense %s: %w", expense.ID, err)
	}

	slog.DebugContext(ctx, "Expense saved", "expense_id", expense.ID)
	return nil
}

func (r *SQLiteRepository) RemoveExpense(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove expense %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a               core.Account
		members         string
		expenses        string
		balances        string
		dateLastExpense sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &members, &expenses, &balances, &dateLastExpense, &a.DateUpdated); err != nil {
		return core.Account{}, err
	}
	if err := json.Unmarshal([]byte(members), &a.Members); err != nil {
		return core.Account{}, fmt.Errorf("unmarshal members: %w", err)
	}
	if err := json.Unmarshal([]byte(expenses), &a.Expenses); err != nil {
		return core.Account{}, fmt.Errorf("unmarshal expenses: %w", err)
	}
	if err := json.Unmarshal([]byte(balances), &a.Balances); err != nil {
		return core.Account{}, fmt.Errorf("unmarshal balances: %w", err)
	}
	if a.Balances == nil {
		a.Balances = map[string]decimal.Decimal{}
	}
	if dateLastExpense.Valid && dateLastExpense.String != "" {
		d, err := core.ParseDate(dateLastExpense.String)
		if err != nil {
			return core.Account{}, err
		}
		a.DateLastExpense = d
	}
	return a, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e        core.Expense
		amount   string
		date     string
		kind     string
		mode     string
		paidFor  string
		accounts string
	)
	if err := row.Scan(&e.ID, &e.Description, &amount, &e.Currency, &date, &kind,
		&e.PaidByContactID, &mode, &paidFor, &accounts, &e.DateCreated, &e.DateUpdated); err != nil {
		return core.Expense{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse amount: %w", err)
	}
	e.Amount = parsed
	if date != "" {
		d, err := core.ParseDate(date)
		if err != nil {
			return core.Expense{}, err
		}
		e.Date = d
	}
	e.Type = core.ExpenseType(kind)
	e.SplitMode = core.SplitMode(mode)
	if err := json.Unmarshal([]byte(paidFor), &e.PaidFor); err != nil {
		return core.Expense{}, fmt.Errorf("unmarshal paid_for: %w", err)
	}
	if err := json.Unmarshal([]byte(accounts), &e.Accounts); err != nil {
		return core.Expense{}, fmt.Errorf("unmarshal accounts: %w", err)
	}
	return e, nil
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
