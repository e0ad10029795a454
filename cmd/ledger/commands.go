// cmd/ledger/commands.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	app "economy-ledger/internal"
	"economy-ledger/internal/balance"
	"economy-ledger/internal/service"
	"economy-ledger/internal/util"
)

// Output destinations, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&createCmd{}, "accounts")
	c.Register(&listCmd{}, "accounts")
	c.Register(&balanceCmd{}, "accounts")
	c.Register(&addCmd{}, "accounts")
	c.Register(&setCmd{}, "accounts")
	c.Register(&jobCmd{}, "attributes")
	c.Register(&notifyCmd{}, "attributes")
	c.Register(&currencyCmd{}, "ledger")
}

// session opens the application on first use, so help commands never touch storage.
type session struct {
	app *app.Application
}

func (s *session) ledger(ctx context.Context) (service.LedgerService, error) {
	if s.app == nil {
		s.app = app.NewApplication()
		if err := s.app.Initialize(ctx); err != nil {
			return nil, err
		}
	}
	if s.app.Ledger == nil {
		return nil, fmt.Errorf("ledger is not initialized")
	}
	return s.app.Ledger, nil
}

func (s *session) close(ctx context.Context) error {
	if s.app == nil || s.app.Logger == nil {
		return nil
	}
	return s.app.Shutdown(ctx)
}

// open resolves the session passed to Commander.Execute and returns its ledger.
func open(ctx context.Context, args []interface{}) (service.LedgerService, subcommands.ExitStatus) {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "internal error: no session")
		return nil, subcommands.ExitFailure
	}
	s, ok := args[0].(*session)
	if !ok {
		fmt.Fprintln(stderr, "internal error: unexpected session type")
		return nil, subcommands.ExitFailure
	}
	ledger, err := s.ledger(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening ledger: %v\n", err)
		return nil, subcommands.ExitFailure
	}
	return ledger, subcommands.ExitSuccess
}

// report prints err and maps it to an exit status. Storage errors come after the
// change was applied in memory, so they are reported as warnings.
func report(err error) subcommands.ExitStatus {
	switch {
	case err == nil:
		return subcommands.ExitSuccess
	case util.IsError(err, util.ErrStorageUnavailable):
		fmt.Fprintf(stderr, "Warning: change not saved: %v\n", err)
	case util.IsError(err, util.ErrInvalidInput):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return subcommands.ExitFailure
}

type createCmd struct {
	virtual bool
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "create an account if it does not exist" }
func (*createCmd) Usage() string {
	return `ledger create [-virtual] <account>

  Creates a player account (the identifier must be a UUID) or, with -virtual,
  an account for a bank, shop or other non-player entity. Existing accounts
  are left untouched.
`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.virtual, "virtual", false, "Create a virtual (non-player) account.")
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	ledger, status := open(ctx, args)
	if status != subcommands.ExitSuccess {
		return status
	}

	acct, err := ledger.GetOrCreateAccount(ctx, f.Arg(0), c.virtual)
	if acct != nil {
		fmt.Fprintf(stdout, "%s\t%s\n", acct.ID, acct.Currency.Display(acct.Balance))
	}
	return report(err)
}

type listCmd struct{}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list all accounts with their balances" }
func (*listCmd) Usage() string {
	return `ledger list

  Lists every account in identifier order.
`
}

func (*listCmd) SetFlags(*flag.FlagSet) {}

func (*listCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	ledger, status := open(ctx, args)
	if status != subcommands.ExitSuccess {
		return status
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tTYPE\tBALANCE\tJOB\tNOTIFY")
	for _, id := range ledger.Accounts(ctx) {
		acct, err := ledger.GetAccount(ctx, id)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t%v\t\t\n", id, err)
			continue
		}
		kind := "player"
		notify := fmt.Sprint(acct.NotificationsEnabled)
		if acct.Virtual {
			kind, notify = "virtual", "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", acct.ID, kind, acct.Currency.Display(acct.Balance), acct.Job, notify)
	}
	if err := w.Flush(); err != nil {
		return report(err)
	}
	return subcommands.ExitSuccess
}

type balanceCmd struct {
	raw bool
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print the balance of an account" }
func (*balanceCmd) Usage() string {
	return `ledger balance [-raw] <account>

  Prints the balance, creating the account with the starting balance if needed.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print the plain amount without currency formatting.")
}

func (c *balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	ledger, status := open(ctx, args)
	if status != subcommands.ExitSuccess {
		return status
	}

	bal, err := ledger.GetBalance(ctx, f.Arg(0))
	if err != nil {
		return report(err)
	}
	if c.raw {
		fmt.Fprintln(stdout, bal.StringFixed(balance.Scale))
	} else {
		fmt.Fprintln(stdout, ledger.DefaultCurrency().Display(bal))
	}
	return subcommands.ExitSuccess
}

type addCmd struct{}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add an amount to a balance (negative to debit)" }
func (*addCmd) Usage() string {
	return `ledger add <account> <amount>

  Adds amount to the balance and prints the new balance. A negative amount
  debits the account: ledger add bank -12.50
`
}

func (*addCmd) SetFlags(*flag.FlagSet) {}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	amount, err := balance.Parse(f.Arg(1))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	ledger, status := open(ctx, args)
	if status != subcommands.ExitSuccess {
		return status
	}

	bal, err := ledger.AddToBalance(ctx, f.Arg(0), amount)
	if err == nil || util.IsError(err, util.ErrStorageUnavailable) {
		fmt.Fprintln(stdout, ledger.DefaultCurrency().Display(bal))
	}
	return report(err)
}

type setCmd struct{}

func (*setCmd) Name() string     { return "set" }
func (*setCmd) Synopsis() string { return "replace the balance of an account" }
func (*setCmd) Usage() string {
	return `ledger set <account> <amount>

  Replaces the balance. The amount may have at most two decimal places.
`
}

func (*setCmd) SetFlags(*flag.FlagSet) {}

func (c *setCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	amount, err := balance.Parse(f.Arg(1))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	ledger, status := open(ctx, args)
	if status != subcommands.ExitSuccess {
		return status
	}

	return report(ledger.SetBalance(ctx, f.Arg(0), amount))
}

type jobCmd struct{}

func (*jobCmd) Name() string     { return "job" }
func (*jobCmd) Synopsis() string { return "print or change the job of an account" }
func (*jobCmd) Usage() string {
	return `ledger job <account> [<job>]

  Prints the job label, or stores a new one when given.
`
}

func (*jobCmd) SetFlags(*flag.FlagSet) {}

func (c *jobCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 || f.NArg() > 2 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	ledger, status := open(ctx, args)
	if status != subcommands.ExitSuccess {
		return status
	}

	if f.NArg() == 2 {
		return report(ledger.SetJob(ctx, f.Arg(0), f.Arg(1)))
	}
	job, err := ledger.GetJob(ctx, f.Arg(0))
	if err != nil {
		return report(err)
	}
	fmt.Fprintln(stdout, job)
	return subcommands.ExitSuccess
}

type notifyCmd struct {
	toggle bool
}

func (*notifyCmd) Name() string     { return "notify" }
func (*notifyCmd) Synopsis() string { return "show or toggle job notifications" }
func (*notifyCmd) Usage() string {
	return `ledger notify [-toggle] <account>

  Prints whether job notifications are enabled, flipping the preference first with -toggle.
`
}

func (c *notifyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.toggle, "toggle", false, "Flip the notification preference.")
}

func (c *notifyCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	ledger, status := open(ctx, args)
	if status != subcommands.ExitSuccess {
		return status
	}

	var (
		enabled bool
		err     error
	)
	if c.toggle {
		enabled, err = ledger.ToggleNotifications(ctx, f.Arg(0))
	} else {
		enabled, err = ledger.NotificationsEnabled(ctx, f.Arg(0))
	}
	if err == nil || util.IsError(err, util.ErrStorageUnavailable) {
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Fprintf(stdout, "job notifications %s\n", state)
	}
	return report(err)
}

type currencyCmd struct{}

func (*currencyCmd) Name() string     { return "currency" }
func (*currencyCmd) Synopsis() string { return "print the ledger currency" }
func (*currencyCmd) Usage() string {
	return `ledger currency

  Prints the configured currency and the key its balances are stored under.
`
}

func (*currencyCmd) SetFlags(*flag.FlagSet) {}

func (*currencyCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	ledger, status := open(ctx, args)
	if status != subcommands.ExitSuccess {
		return status
	}
	for _, c := range ledger.Currencies() {
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", c.Code, c.Name, c.BalanceKey())
	}
	return subcommands.ExitSuccess
}
