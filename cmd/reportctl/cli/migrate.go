package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/ledger"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/runs"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/db"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the report run tables in Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.pgDSN == "" {
				return errors.New("--pg or PG_DSN is required")
			}
			pool, err := db.New(cmd.Context(), opts.pgDSN, 2)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := runs.NewStore(pool).EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "report run tables ready")
			return nil
		},
	}
}

func newImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Copy a YAML ledger into a SQLite ledger file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ledgerFile == "" || opts.sqlitePath == "" {
				return errors.New("import needs both --ledger and --sqlite")
			}
			mem, err := ledger.LoadFixtureFile(opts.ledgerFile)
			if err != nil {
				return err
			}
			dst, err := ledger.OpenSQLite(opts.sqlitePath)
			if err != nil {
				return err
			}
			defer dst.Close()
			if err := dst.Import(cmd.Context(), mem); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s into %s\n", opts.ledgerFile, dst.Path())
			return nil
		},
	}
}
