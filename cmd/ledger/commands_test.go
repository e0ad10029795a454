// cmd/ledger/commands_test.go
package main

import (
	"bytes"
	"context"
	"flag"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "economy-ledger/internal"
	"economy-ledger/internal/balance"
	"economy-ledger/internal/config"
)

const playerID = "069a79f4-44e9-4726-a5be-fca90e38aaf5"

func newSession(t *testing.T) *session {
	t.Helper()
	cfg := &config.AppConfig{
		Store: config.StoreConfig{Driver: config.StoreMemory},
		Ledger: config.LedgerConfig{
			CurrencyCode:    "USD",
			CurrencyName:    "Dollar",
			StartingBalance: balance.MustParse("10.00"),
			AllowOverdraft:  true,
		},
		LogLevel:  "error",
		LogFormat: "text",
	}
	a := app.NewApplication()
	require.NoError(t, a.InitializeWithConfig(context.Background(), cfg))
	return &session{app: a}
}

// run executes one command line against s and returns its exit status and output.
func run(t *testing.T, s *session, args ...string) (subcommands.ExitStatus, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	prevOut, prevErr := stdout, stderr
	stdout, stderr = &out, &errOut
	t.Cleanup(func() {
		stdout, stderr = prevOut, prevErr
	})

	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "ledger")
	commander.Output, commander.Error = &out, &errOut
	register(commander)
	require.NoError(t, fs.Parse(args))

	status := commander.Execute(context.Background(), s)
	return status, out.String(), errOut.String()
}

func TestCommands(t *testing.T) {
	t.Run("BalanceCreatesAccount", func(t *testing.T) {
		s := newSession(t)

		status, out, _ := run(t, s, "balance", playerID)

		assert.Equal(t, subcommands.ExitSuccess, status)
		assert.Equal(t, "$10.00\n", out)
		assert.True(t, s.app.Ledger.HasAccount(context.Background(), playerID))
	})

	t.Run("AddAndDebit", func(t *testing.T) {
		s := newSession(t)

		status, out, _ := run(t, s, "add", playerID, "5")
		assert.Equal(t, subcommands.ExitSuccess, status)
		assert.Equal(t, "$15.00\n", out)

		status, out, _ = run(t, s, "add", playerID, "-3.00")
		assert.Equal(t, subcommands.ExitSuccess, status)
		assert.Equal(t, "$12.00\n", out)

		status, out, _ = run(t, s, "balance", "-raw", playerID)
		assert.Equal(t, subcommands.ExitSuccess, status)
		assert.Equal(t, "12.00\n", out)
	})

	t.Run("AddRejectsBadAmount", func(t *testing.T) {
		s := newSession(t)

		status, _, errOut := run(t, s, "add", "bank", "lots")

		assert.Equal(t, subcommands.ExitUsageError, status)
		assert.Contains(t, errOut, "Error:")
		assert.False(t, s.app.Ledger.HasAccount(context.Background(), "bank"))
	})

	t.Run("AddRejectsSubCentAmount", func(t *testing.T) {
		s := newSession(t)

		status, out, errOut := run(t, s, "add", "bank", "0.001")

		assert.Equal(t, subcommands.ExitFailure, status)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "two decimal places")
	})

	t.Run("SetBalance", func(t *testing.T) {
		s := newSession(t)

		status, _, _ := run(t, s, "set", "bank", "250.5")
		require.Equal(t, subcommands.ExitSuccess, status)

		_, out, _ := run(t, s, "balance", "-raw", "bank")
		assert.Equal(t, "250.50\n", out)
	})

	t.Run("CreatePlayerNeedsUUID", func(t *testing.T) {
		s := newSession(t)

		status, _, errOut := run(t, s, "create", "bank")

		assert.Equal(t, subcommands.ExitUsageError, status)
		assert.Contains(t, errOut, "not a UUID")

		status, out, _ := run(t, s, "create", "-virtual", "bank")
		assert.Equal(t, subcommands.ExitSuccess, status)
		assert.Equal(t, "bank\t$10.00\n", out)
	})

	t.Run("JobAndNotify", func(t *testing.T) {
		s := newSession(t)

		_, out, _ := run(t, s, "job", playerID)
		assert.Equal(t, "Unemployed\n", out)

		status, _, _ := run(t, s, "job", playerID, "Farmer")
		require.Equal(t, subcommands.ExitSuccess, status)
		_, out, _ = run(t, s, "job", playerID)
		assert.Equal(t, "Farmer\n", out)

		_, out, _ = run(t, s, "notify", playerID)
		assert.Equal(t, "job notifications enabled\n", out)
		_, out, _ = run(t, s, "notify", "-toggle", playerID)
		assert.Equal(t, "job notifications disabled\n", out)
	})

	t.Run("ListAndCurrency", func(t *testing.T) {
		s := newSession(t)
		run(t, s, "create", playerID)
		run(t, s, "create", "-virtual", "bank")

		status, out, _ := run(t, s, "list")
		assert.Equal(t, subcommands.ExitSuccess, status)
		assert.Contains(t, out, "ACCOUNT")
		assert.Contains(t, out, playerID)
		assert.Contains(t, out, "virtual")
		assert.Contains(t, out, "Unemployed")

		_, out, _ = run(t, s, "currency")
		assert.Equal(t, "USD\tDollar\tdollar-balance\n", out)
	})

	t.Run("MissingArguments", func(t *testing.T) {
		s := newSession(t)

		status, _, errOut := run(t, s, "balance")

		assert.Equal(t, subcommands.ExitUsageError, status)
		assert.Contains(t, errOut, "ledger balance")
	})
}
