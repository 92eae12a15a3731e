// Package postgres is the Postgres persistence collaborator, the
// server-grade alternative to the SQLite store.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sql.DB
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, members, expenses, balances, date_last_expense, date_updated
		   FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, store.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return account, nil
}

func (s *Store) PutAccount(ctx context.Context, account core.Account) error {
	members, err := json.Marshal(account.Members)
	if err != nil {
		return fmt.Errorf("marshal members: %w", err)
	}
	expenses, err := json.Marshal(account.Expenses)
	if err != nil {
		return fmt.Errorf("marshal expenses: %w", err)
	}
	balances, err := json.Marshal(account.Balances)
	if err != nil {
		return fmt.Errorf("marshal balances: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, members, expenses, balances, date_last_expense, date_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   members = EXCLUDED.members,
		   expenses = EXCLUDED.expenses,
		   balances = EXCLUDED.balances,
		   date_last_expense = EXCLUDED.date_last_expense,
		   date_updated = EXCLUDED.date_updated`,
		account.ID, account.Name, members, expenses, balances,
		account.DateLastExpense.String(), account.DateUpdated)
	if err != nil {
		return fmt.Errorf("put account %s: %w", account.ID, err)
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.queryAccounts(ctx,
		`SELECT id, name, members, expenses, balances, date_last_expense, date_updated
		   FROM accounts ORDER BY id`)
}

func (s *Store) ListAccountsByMember(ctx context.Context, memberID string) ([]core.Account, error) {
	match, err := json.Marshal([]map[string]string{{"id": memberID}})
	if err != nil {
		return nil, err
	}
	return s.queryAccounts(ctx,
		`SELECT id, name, members, expenses, balances, date_last_expense, date_updated
		   FROM accounts WHERE members @> $1 ORDER BY id`, string(match))
}

func (s *Store) ListMembers(ctx context.Context, accountID string) ([]core.Member, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.Members, nil
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...any) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
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

func (s *Store) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, description, amount, currency, date, type, paid_by_contact_id,
		        split_mode, paid_for, accounts, date_created, date_updated
		   FROM expenses WHERE id = $1`, id)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, store.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return expense, nil
}

func (s *Store) PutExpense(ctx context.Context, expense core.Expense) error {
	paidFor, err := json.Marshal(expense.PaidFor)
	if err != nil {
		return fmt.Errorf("marshal paid_for: %w", err)
	}
	accounts, err := json.Marshal(expense.Accounts)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, description, amount, currency, date, type,
		                       paid_by_contact_id, split_mode, paid_for, accounts,
		                       date_created, date_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   description = EXCLUDED.description,
		   amount = EXCLUDED.amount,
		   currency = EXCLUDED.currency,
		   date = EXCLUDED.date,
		   type = EXCLUDED.type,
		   paid_by_contact_id = EXCLUDED.paid_by_contact_id,
		   split_mode = EXCLUDED.split_mode,
		   paid_for = EXCLUDED.paid_for,
		   accounts = EXCLUDED.accounts,
		   date_created = EXCLUDED.date_created,
		   date_updated = EXCLUDED.date_updated`,
		expense.ID, expense.Description, expense.Amount.String(), expense.Currency,
		expense.Date.String(), string(expense.Type), expense.PaidByContactID,
		string(expense.SplitMode), paidFor, accounts,
		expense.DateCreated, expense.DateUpdated)
	if err != nil {
		return fmt.Errorf("put expense %s: %w", expense.ID, err)
	}
	return nil
}

func (s *Store) RemoveExpense(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id); err != nil {
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
		members         []byte
		expenses        []byte
		balances        []byte
		dateLastExpense sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &members, &expenses, &balances, &dateLastExpense, &a.DateUpdated); err != nil {
		return core.Account{}, err
	}
	if err := json.Unmarshal(members, &a.Members); err != nil {
		return core.Account{}, fmt.Errorf("unmarshal members: %w", err)
	}
	if err := json.Unmarshal(expenses, &a.Expenses); err != nil {
		return core.Account{}, fmt.Errorf("unmarshal expenses: %w", err)
	}
	if err := json.Unmarshal(balances, &a.Balances); err != nil {
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
		paidFor  []byte
		accounts []byte
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
	if err := json.Unmarshal(paidFor, &e.PaidFor); err != nil {
		return core.Expense{}, fmt.Errorf("unmarshal paid_for: %w", err)
	}
	if err := json.Unmarshal(accounts, &e.Accounts); err != nil {
		return core.Expense{}, fmt.Errorf("unmarshal accounts: %w", err)
	}
	return e, nil
}
