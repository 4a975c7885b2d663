package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-reports/testing"
)

const cliLedger = `
company: 1
accounts:
  - {id: 1, code: "1000", name: Cash, type: asset_cash}
  - {id: 2, code: "4000", name: Sales, type: income}
  - {id: 3, code: "5000", name: Purchase, type: expense_direct_cost}
entries:
  - date: 2024-01-10
    lines:
      - {account: 1, debit: "1000"}
      - {account: 2, credit: "1000"}
  - date: 2024-01-15
    lines:
      - {account: 3, debit: "400"}
      - {account: 1, credit: "400"}
`

func writeLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cliLedger), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTrialBalanceCSV(t *testing.T) {
	path := writeLedger(t)
	out, err := runCLI(t, "tb", "--ledger", path, "--as-of", "2024-01-31", "--format", "csv")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"Particulars", "Code", "Debit", "Credit"}, records[0])
	last := records[len(records)-1]
	require.Equal(t, "Total", last[0])
	require.Equal(t, "1000.00", last[2])
	require.Equal(t, "1000.00", last[3])
}

func TestProfitLossText(t *testing.T) {
	path := writeLedger(t)
	out, err := runCLI(t, "pl", "--ledger", path, "--from", "2024-01-01", "--to", "2024-01-31", "--company-name", "Acme")
	require.NoError(t, err)
	require.Contains(t, out, "Acme")
	require.Contains(t, out, "Profit & Loss")
	require.Contains(t, out, "From 01-Jan-2024 To 31-Jan-2024")
	require.Contains(t, out, "1,000.00")
}

func TestBalanceSheetHorizontalFromSQLite(t *testing.T) {
	path := writeLedger(t)
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	out, err := runCLI(t, "import", "--ledger", path, "--sqlite", dbPath)
	require.NoError(t, err)
	require.Contains(t, out, "imported")

	out, err = runCLI(t, "bs", "--sqlite", dbPath, "--to", "2024-01-31", "--horizontal", "--format", "csv")
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(records), 1)
	for _, rec := range records {
		require.Len(t, rec, len(records[0]))
	}
}

func TestCommandErrors(t *testing.T) {
	t.Setenv("PG_DSN", "")
	path := writeLedger(t)

	_, err := runCLI(t, "tb", "--as-of", "2024-01-31")
	require.ErrorContains(t, err, "--ledger")

	_, err = runCLI(t, "tb", "--ledger", path, "--as-of", "31/01/2024")
	require.ErrorContains(t, err, "--as-of")

	_, err = runCLI(t, "pl", "--ledger", path, "--from", "2024-02-01", "--to", "2024-01-31")
	require.ErrorContains(t, err, "start date")

	_, err = runCLI(t, "tb", "--ledger", path, "--as-of", "2024-01-31", "--policy", "fifo")
	require.ErrorContains(t, err, "unknown policy")

	_, err = runCLI(t, "tb", "--ledger", path, "--as-of", "2024-01-31", "--format", "pdf")
	require.ErrorContains(t, err, "unknown format")

	_, err = runCLI(t, "migrate")
	require.ErrorContains(t, err, "PG_DSN")

	_, err = runCLI(t, "import", "--ledger", path)
	require.Error(t, err)
}

func TestNewJobsCLIRequiresAddress(t *testing.T) {
	_, err := NewJobsCLI("")
	require.Error(t, err)
}
