package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/export"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/runs"
)

const dateLayout = "2006-01-02"

func newTrialBalanceCommand(opts *options) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "tb",
		Short: "Print the trial balance as of a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseDay("as-of", asOf)
			if err != nil {
				return err
			}
			return opts.render(cmd, runs.Key{Kind: reports.KindTrialBalance, CompanyID: opts.companyID, To: to})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "closing date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("as-of")
	return cmd
}

func newProfitLossCommand(opts *options) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "pl",
		Short: "Print the profit and loss for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := periodKey(reports.KindProfitAndLoss, opts.companyID, from, to)
			if err != nil {
				return err
			}
			return opts.render(cmd, key)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day of the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day of the period (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newBalanceSheetCommand(opts *options) *cobra.Command {
	var from, to string
	var horizontal bool
	cmd := &cobra.Command{
		Use:   "bs",
		Short: "Print the balance sheet as of a date",
		Long: `Print the balance sheet as of --to. When --from is given, results before it
are shown as the opening profit and loss and the rest as the current period.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := reports.KindBalanceSheet
			if horizontal {
				kind = reports.KindBalanceSheetHorizontal
			}
			key, err := periodKey(kind, opts.companyID, from, to)
			if err != nil {
				return err
			}
			return opts.render(cmd, key)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start of the current period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "balance sheet date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&horizontal, "horizontal", false, "liabilities and assets side by side")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// render builds the statement for key and writes it to stdout in the
// selected format.
func (o *options) render(cmd *cobra.Command, key runs.Key) error {
	ctx := cmd.Context()
	source, closeSource, err := o.openSource(ctx)
	if err != nil {
		return err
	}
	defer closeSource()

	svc, err := o.service(cmd, source)
	if err != nil {
		return err
	}
	doc, err := svc.Document(ctx, key, o.companyName)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch o.format {
	case "csv":
		return export.WriteCSV(out, doc)
	case "text", "":
		return export.NewTextRenderer(language.English).Render(out, doc)
	default:
		return fmt.Errorf("unknown format %q", o.format)
	}
}

func periodKey(kind reports.Kind, companyID int64, from, to string) (runs.Key, error) {
	key := runs.Key{Kind: kind, CompanyID: companyID}
	var err error
	if from != "" {
		if key.From, err = parseDay("from", from); err != nil {
			return runs.Key{}, err
		}
	}
	if key.To, err = parseDay("to", to); err != nil {
		return runs.Key{}, err
	}
	return key, nil
}

func parseDay(flag, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, raw)
	}
	return t, nil
}
