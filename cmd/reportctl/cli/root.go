// Package cli implements reportctl, the operator tool for building statements
// from a ledger and driving the report worker.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/ledger"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/db"
)

// options holds the persistent flags shared by every command.
type options struct {
	policy      string
	ledgerFile  string
	sqlitePath  string
	pgDSN       string
	redisAddr   string
	format      string
	companyID   int64
	companyName string
	strict      bool
	debug       bool
}

// NewRootCommand creates the reportctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "reportctl",
		Short: "Build ledger statements and manage report runs",
		Long: `reportctl builds the trial balance, profit and loss and balance sheet
from a YAML ledger file, a SQLite ledger or the Postgres ledger tables.

Example:
  reportctl tb --ledger ledger.yaml --as-of 2024-03-31
  reportctl bs --pg $PG_DSN --company 3 --from 2024-01-01 --to 2024-03-31 --horizontal
  reportctl enqueue --company 3 --kind profit_loss`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.policy, "policy", string(balances.PolicyOutstanding), "receivable and payable policy (outstanding|full)")
	flags.StringVar(&opts.ledgerFile, "ledger", "", "YAML ledger file")
	flags.StringVar(&opts.sqlitePath, "sqlite", "", "SQLite ledger file")
	flags.StringVar(&opts.pgDSN, "pg", os.Getenv("PG_DSN"), "Postgres DSN of the host ledger")
	flags.StringVar(&opts.redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address of the job queue")
	flags.StringVar(&opts.format, "format", "text", "output format (text|csv)")
	flags.Int64Var(&opts.companyID, "company", 1, "company id")
	flags.StringVar(&opts.companyName, "company-name", "", "company name printed in the header")
	flags.BoolVar(&opts.strict, "strict", false, "fail when the trial balance does not balance")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newTrialBalanceCommand(opts),
		newProfitLossCommand(opts),
		newBalanceSheetCommand(opts),
		newImportCommand(opts),
		newMigrateCommand(opts),
		newEnqueueCommand(opts),
		newQueueCommand(opts),
	)
	return root
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openSource resolves the ledger flags. A YAML file wins over SQLite, which
// wins over Postgres.
func (o *options) openSource(ctx context.Context) (ledger.Source, func(), error) {
	switch {
	case o.ledgerFile != "":
		src, err := ledger.LoadFixtureFile(o.ledgerFile)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	case o.sqlitePath != "":
		src, err := ledger.OpenSQLite(o.sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	case o.pgDSN != "":
		pool, err := db.New(ctx, o.pgDSN, 4)
		if err != nil {
			return nil, nil, err
		}
		return ledger.NewPostgresSource(pool), pool.Close, nil
	default:
		return nil, nil, errors.New("one of --ledger, --sqlite or --pg is required")
	}
}

func (o *options) service(cmd *cobra.Command, source ledger.Source) (*accounting.Service, error) {
	policy, err := balances.ParsePolicy(o.policy)
	if err != nil {
		return nil, err
	}
	return accounting.NewService(source, accounting.Options{
		Policy:             policy,
		Logger:             o.logger(cmd),
		StrictTrialBalance: o.strict,
	}), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
