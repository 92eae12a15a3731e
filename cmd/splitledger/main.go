package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"splitledger/internal/backend"
	"splitledger/internal/config"
	"splitledger/internal/core"
	applog "splitledger/internal/log"
	"splitledger/internal/services"
	"splitledger/internal/store"
	"splitledger/internal/worker"
)

const usage = `Usage: splitledger <command> [flags]

Commands:
  balances -account <id>                  print per-contact balances
  add      -account <id> [flags]          record a new expense
  edit     -account <id> -expense <id>    re-save an expense with new values
  remove   -expense <id>                  remove an expense and revert its effect
  open     -account <id> -expense <id>    print an expense reconciled with current members
  audit                                   replay all expenses and report discrepancies
`

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Logs go to stderr so command output on stdout stays scriptable.
	logger := applog.NewWithHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}), applog.ComponentApp)
	applog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog())
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Cleanup failed", "error", err)
			}
		}()
	}

	svc := services.NewCommitService(
		result.Stores.Accounts,
		result.Stores.Expenses,
		result.Stores.Directory,
		result.Notifier)

	if err := run(ctx, os.Args[1], os.Args[2:], svc, result.Stores); err != nil {
		logger.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, svc *services.CommitService, stores backend.Stores) error {
	switch command {
	case "balances":
		return runBalances(ctx, args, svc)
	case "add":
		return runAdd(ctx, args, svc)
	case "edit":
		return runEdit(ctx, args, svc, stores.Expenses)
	case "remove":
		return runRemove(ctx, args, svc, stores.Expenses)
	case "open":
		return runOpen(ctx, args, svc)
	case "audit":
		return runAudit(ctx, stores)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runBalances(ctx context.Context, args []string, svc *services.CommitService) error {
	fs := flag.NewFlagSet("balances", flag.ExitOnError)
	accountID := fs.String("account", "", "account id")
	fs.Parse(args)
	if *accountID == "" {
		return fmt.Errorf("-account is required")
	}

	account, err := svc.Balances(ctx, *accountID)
	if err != nil {
		return err
	}

	names := map[string]string{}
	for _, m := range account.Members {
		names[m.ID] = m.DisplayName
	}
	contactIDs := make([]string, 0, len(account.Balances))
	for id := range account.Balances {
		contactIDs = append(contactIDs, id)
	}
	sort.Strings(contactIDs)

	fmt.Printf("%s (%s)\n", account.Name, account.ID)
	for _, id := range contactIDs {
		name := names[id]
		if name == "" {
			name = id
		}
		fmt.Printf("  %-20s %s\n", name, account.Balance(id))
	}
	return nil
}

func runAdd(ctx context.Context, args []string, svc *services.CommitService) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	accountID := fs.String("account", "", "account id")
	description := fs.String("description", "", "expense description")
	amount := fs.String("amount", "", "expense amount, e.g. 12.50")
	currency := fs.String("currency", "", "ISO currency code (default EUR)")
	date := fs.String("date", "", "expense date as YYYY-MM-DD (default today)")
	payer := fs.String("payer", "", "contact id of the payer")
	mode := fs.String("mode", "", "split mode: equal, unequal or shares")
	shares := fs.String("shares", "", "per-contact split values, e.g. a=2,b=1")
	fs.Parse(args)
	if *accountID == "" {
		return fmt.Errorf("-account is required")
	}

	expense, err := svc.NewExpense(ctx, *accountID)
	if err != nil {
		return err
	}
	if err := applyFlags(&expense, *description, *amount, *currency, *date, *payer, *mode, *shares); err != nil {
		return err
	}

	if err := svc.Save(ctx, nil, expense); err != nil {
		return err
	}
	fmt.Printf("saved expense %s\n", expense.ID)
	return nil
}

func runEdit(ctx context.Context, args []string, svc *services.CommitService, expenses store.ExpenseStore) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	accountID := fs.String("account", "", "account id")
	expenseID := fs.String("expense", "", "expense id")
	description := fs.String("description", "", "expense description")
	amount := fs.String("amount", "", "expense amount, e.g. 12.50")
	currency := fs.String("currency", "", "ISO currency code")
	date := fs.String("date", "", "expense date as YYYY-MM-DD")
	payer := fs.String("payer", "", "contact id of the payer")
	mode := fs.String("mode", "", "split mode: equal, unequal or shares")
	shares := fs.String("shares", "", "per-contact split values, e.g. a=2,b=1")
	fs.Parse(args)
	if *accountID == "" || *expenseID == "" {
		return fmt.Errorf("-account and -expense are required")
	}

	old, err := expenses.GetExpense(ctx, *expenseID)
	if err != nil {
		return err
	}
	edited, err := svc.OpenExpense(ctx, *accountID, *expenseID)
	if err != nil {
		return err
	}
	if err := applyFlags(&edited, *description, *amount, *currency, *date, *payer, *mode, *shares); err != nil {
		return err
	}

	if err := svc.Save(ctx, &old, edited); err != nil {
		return err
	}
	fmt.Printf("saved expense %s\n", edited.ID)
	return nil
}

func runRemove(ctx context.Context, args []string, svc *services.CommitService, expenses store.ExpenseStore) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	expenseID := fs.String("expense", "", "expense id")
	fs.Parse(args)
	if *expenseID == "" {
		return fmt.Errorf("-expense is required")
	}

	expense, err := expenses.GetExpense(ctx, *expenseID)
	if err != nil {
		return err
	}
	if err := svc.Remove(ctx, expense); err != nil {
		return err
	}
	fmt.Printf("removed expense %s\n", expense.ID)
	return nil
}

func runOpen(ctx context.Context, args []string, svc *services.CommitService) error {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	accountID := fs.String("account", "", "account id")
	expenseID := fs.String("expense", "", "expense id")
	fs.Parse(args)
	if *accountID == "" || *expenseID == "" {
		return fmt.Errorf("-account and -expense are required")
	}

	expense, err := svc.OpenExpense(ctx, *accountID, *expenseID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(expense, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runAudit(ctx context.Context, stores backend.Stores) error {
	w := worker.NewAuditWorker(stores.Accounts, stores.Expenses, 50)
	return w.RunAudit(ctx)
}

// applyFlags overlays the provided flag values on an expense draft,
// leaving untouched fields at their current values.
func applyFlags(e *core.Expense, description, amount, currency, date, payer, mode, shares string) error {
	if description != "" {
		e.Description = description
	}
	if amount != "" {
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		e.Amount = parsed
	}
	if currency != "" {
		e.Currency = strings.ToUpper(currency)
	}
	if date != "" {
		parsed, err := core.ParseDate(date)
		if err != nil {
			return err
		}
		e.Date = parsed
	}
	if payer != "" {
		e.PaidByContactID = payer
	}
	if mode != "" {
		e.SplitMode = core.SplitMode(mode)
	}
	if shares != "" {
		return applyShareValues(e, shares)
	}
	return nil
}

// applyShareValues parses "a=2,b=1" style values. For the unequal mode
// the values are amounts; for the shares mode they are weights. Contacts
// not named get a zero entry, matching what reconciliation produces.
func applyShareValues(e *core.Expense, raw string) error {
	values := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return fmt.Errorf("invalid share value %q: expected contact=value", pair)
		}
		values[parts[0]] = parts[1]
	}

	for i := range e.PaidFor {
		entry := &e.PaidFor[i]
		value, named := values[entry.ContactID]
		if !named {
			*entry = core.ShareEntry{ContactID: entry.ContactID}
			continue
		}
		delete(values, entry.ContactID)

		switch e.SplitMode {
		case core.SplitUnequal:
			parsed, err := decimal.NewFromString(value)
			if err != nil {
				return fmt.Errorf("invalid amount for %s: %w", entry.ContactID, err)
			}
			entry.SplitEqualy = false
			entry.SplitUnequaly = &parsed
			entry.SplitShares = decimal.Zero
		case core.SplitShares:
			weight, err := decimal.NewFromString(value)
			if err != nil {
				return fmt.Errorf("invalid weight for %s: %w", entry.ContactID, err)
			}
			entry.SplitEqualy = false
			entry.SplitUnequaly = nil
			entry.SplitShares = weight
		default:
			entry.SplitEqualy = true
			entry.SplitUnequaly = nil
			entry.SplitShares = decimal.NewFromInt(1)
		}
	}

	if len(values) > 0 {
		unknown := make([]string, 0, len(values))
		for id := range values {
			unknown = append(unknown, id)
		}
		sort.Strings(unknown)
		return fmt.Errorf("share values for unknown contacts: %s", strings.Join(unknown, ", "))
	}
	return nil
}
