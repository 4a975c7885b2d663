package reports

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/ledger"

	_ "github.com/odyssey-erp/odyssey-reports/testing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func scenario() []AccountBalance {
	return []AccountBalance{
		{AccountID: 1, Code: "4000", Name: "Sales", Type: ledger.TypeIncome, Balance: d("-1000")},
		{AccountID: 2, Code: "5000", Name: "Purchase", Type: ledger.TypeExpenseDirectCost, Balance: d("400")},
		{AccountID: 3, Code: "1000", Name: "Cash", Type: ledger.TypeAssetCash, Balance: d("600")},
	}
}

func findLine(t *testing.T, lines []Line, name string) Line {
	t.Helper()
	for _, l := range lines {
		if l.Name == name {
			return l
		}
	}
	t.Fatalf("line %q not found", name)
	return Line{}
}

func TestBuildTrialBalance(t *testing.T) {
	tb := BuildTrialBalance(scenario())
	if !tb.TotalDebit.Equal(d("1000")) || !tb.TotalCredit.Equal(d("1000")) {
		t.Fatalf("expected 1000/1000 got %s/%s", tb.TotalDebit, tb.TotalCredit)
	}
	if !tb.Balanced || !tb.Difference.IsZero() {
		t.Fatalf("expected balanced trial balance")
	}

	wantOrder := []string{"Cash-in-Hand", "Cash", "Sales Accounts", "Sales", "Purchase Accounts", "Purchase", "Total"}
	if len(tb.Lines) != len(wantOrder) {
		t.Fatalf("expected %d lines got %d", len(wantOrder), len(tb.Lines))
	}
	for i, name := range wantOrder {
		if tb.Lines[i].Name != name {
			t.Fatalf("line %d: expected %q got %q", i, name, tb.Lines[i].Name)
		}
	}

	sales := findLine(t, tb.Lines, "Sales")
	if !sales.Credit.Equal(d("1000")) || !sales.Debit.IsZero() {
		t.Fatalf("sales should sit in the credit column: %+v", sales)
	}
	purchase := findLine(t, tb.Lines, "Purchase")
	if !purchase.Debit.Equal(d("400")) {
		t.Fatalf("purchase debit expected 400 got %s", purchase.Debit)
	}
	header := findLine(t, tb.Lines, "Sales Accounts")
	if !header.IsGroup || header.Level != 0 || !header.Credit.Equal(d("1000")) {
		t.Fatalf("unexpected group header %+v", header)
	}
	total := tb.Lines[len(tb.Lines)-1]
	if !total.IsTotal || !total.Debit.Equal(d("1000")) || !total.Credit.Equal(d("1000")) {
		t.Fatalf("unexpected total line %+v", total)
	}
}

func TestTrialBalanceSequencesIncreaseByTen(t *testing.T) {
	tb := BuildTrialBalance(scenario())
	for i, l := range tb.Lines {
		if l.Sequence != (i+1)*10 {
			t.Fatalf("line %d has sequence %d", i, l.Sequence)
		}
	}
}

func TestTrialBalanceSurfacesMismatch(t *testing.T) {
	accounts := append(scenario(), AccountBalance{AccountID: 9, Code: "9999", Name: "Suspense", Type: "suspense", Balance: d("5")})
	tb := BuildTrialBalance(accounts)
	if tb.Balanced {
		t.Fatalf("expected unbalanced trial balance")
	}
	if !tb.Difference.Equal(d("5")) {
		t.Fatalf("expected difference 5 got %s", tb.Difference)
	}
	if findLine(t, tb.Lines, "Miscellaneous").Debit.String() != "5" {
		t.Fatalf("suspense account should land in Miscellaneous")
	}
}

func TestMaterialityFilter(t *testing.T) {
	accounts := append(scenario(),
		AccountBalance{AccountID: 10, Code: "1001", Name: "Petty Cash", Type: ledger.TypeAssetCash, Balance: d("0.009")},
		AccountBalance{AccountID: 11, Code: "4100", Name: "Service Income", Type: ledger.TypeIncome, Balance: d("-0.004")},
	)
	tb := BuildTrialBalance(accounts)
	for _, l := range tb.Lines {
		if l.Name == "Petty Cash" || l.Name == "Service Income" {
			t.Fatalf("negligible account %q rendered", l.Name)
		}
	}
	if !findLine(t, tb.Lines, "Cash-in-Hand").Debit.Equal(d("600")) {
		t.Fatalf("negligible balance leaked into subtotal")
	}

	pl := BuildProfitAndLoss(accounts)
	if !findLine(t, pl.Lines, "Sales Accounts").Amount.Equal(d("1000")) {
		t.Fatalf("negligible income leaked into subtotal")
	}
}

func TestBuildProfitAndLoss(t *testing.T) {
	pl := BuildProfitAndLoss(scenario())
	if !pl.TotalIncome.Equal(d("1000")) || !pl.TotalExpense.Equal(d("400")) {
		t.Fatalf("unexpected totals %s/%s", pl.TotalIncome, pl.TotalExpense)
	}
	if !pl.Net.Equal(d("600")) || !pl.Profit() {
		t.Fatalf("expected profit 600 got %s", pl.Net)
	}

	wantOrder := []string{"Purchase Accounts", "Purchase", "Sales Accounts", "Sales", "Net Profit"}
	for i, name := range wantOrder {
		if pl.Lines[i].Name != name {
			t.Fatalf("line %d: expected %q got %q", i, name, pl.Lines[i].Name)
		}
	}
	net := pl.Lines[len(pl.Lines)-1]
	if !net.IsNetResult || !net.Amount.Equal(d("600")) {
		t.Fatalf("unexpected net line %+v", net)
	}
	for _, l := range pl.Lines {
		if l.Name == "Cash" {
			t.Fatalf("balance sheet account on profit and loss")
		}
	}
}

func TestProfitAndLossNetLossAndAnomaly(t *testing.T) {
	pl := BuildProfitAndLoss([]AccountBalance{
		{AccountID: 1, Code: "4000", Name: "Sales", Type: ledger.TypeIncome, Balance: d("-100")},
		{AccountID: 2, Code: "4100", Name: "Sales Returns", Type: ledger.TypeIncome, Balance: d("30")},
		{AccountID: 3, Code: "6000", Name: "Rent", Type: ledger.TypeExpense, Balance: d("250")},
	})
	if !pl.Net.Equal(d("-180")) || pl.Profit() {
		t.Fatalf("expected loss of 180 got %s", pl.Net)
	}
	net := pl.Lines[len(pl.Lines)-1]
	if net.Name != "Net Loss" || !net.Amount.Equal(d("180")) {
		t.Fatalf("unexpected net line %+v", net)
	}
	returns := findLine(t, pl.Lines, "Sales Returns")
	if !returns.Amount.Equal(d("-30")) || !returns.Anomaly {
		t.Fatalf("debit balance on income must stay negative and flagged: %+v", returns)
	}
	if !findLine(t, pl.Lines, "Sales Accounts").Amount.Equal(d("70")) {
		t.Fatalf("subtotal must include the signed anomaly")
	}
}

func TestEmptyStatementsYieldPlaceholder(t *testing.T) {
	tb := BuildTrialBalance(nil)
	if len(tb.Lines) != 1 || tb.Lines[0].Name != PlaceholderText || tb.Lines[0].Sequence != 10 {
		t.Fatalf("unexpected empty trial balance %+v", tb.Lines)
	}
	pl := BuildProfitAndLoss([]AccountBalance{{AccountID: 1, Name: "Sales", Type: ledger.TypeIncome, Balance: d("0.001")}})
	if len(pl.Lines) != 1 || pl.Lines[0].Name != PlaceholderText {
		t.Fatalf("unexpected empty profit and loss %+v", pl.Lines)
	}
}

func TestBuildBalanceSheetScenario(t *testing.T) {
	var cash []AccountBalance
	for _, acc := range scenario() {
		if acc.Name == "Cash" {
			cash = append(cash, acc)
		}
	}
	bs := BuildBalanceSheet(BalanceSheetInput{Accounts: cash, PeriodNet: d("600")})

	capital := findLine(t, bs.Lines, "Capital Account")
	if !capital.IsGroup || !capital.Amount.Equal(d("600")) {
		t.Fatalf("expected capital 600 got %+v", capital)
	}
	profit := findLine(t, bs.Lines, "Net Profit")
	if !profit.IsNetResult || profit.Level != 1 || !profit.Amount.Equal(d("600")) {
		t.Fatalf("unexpected net profit line %+v", profit)
	}
	current := findLine(t, bs.Lines, "Current Assets")
	if !current.Amount.Equal(d("600")) {
		t.Fatalf("expected current assets 600 got %s", current.Amount)
	}
	if !bs.TotalLiabilities.Equal(d("600")) || !bs.TotalAssets.Equal(d("600")) || !bs.Total.Equal(d("600")) {
		t.Fatalf("unexpected totals L=%s A=%s T=%s", bs.TotalLiabilities, bs.TotalAssets, bs.Total)
	}
	if !bs.Balanced {
		t.Fatalf("expected balanced sheet")
	}
	last := bs.Lines[len(bs.Lines)-1]
	if !last.IsTotal || last.Name != "Total" {
		t.Fatalf("last line must be the total")
	}
}

func TestBalanceSheetTautologyWithOpeningResult(t *testing.T) {
	// Capital 1000 brought in, 300 profit last year, 200 loss this year,
	// 50 owed to a supplier, cash 1000 and a 150 debtor.
	in := BalanceSheetInput{
		Accounts: []AccountBalance{
			{AccountID: 1, Code: "3000", Name: "Owner Capital", Type: ledger.TypeEquity, Balance: d("-1000")},
			{AccountID: 2, Code: "2100", Name: "Acme Supplies", Type: ledger.TypeLiabilityPayable, Balance: d("-50")},
			{AccountID: 3, Code: "1000", Name: "Cash", Type: ledger.TypeAssetCash, Balance: d("1000")},
			{AccountID: 4, Code: "1100", Name: "Debtors", Type: ledger.TypeAssetReceivable, Balance: d("150")},
		},
		OpeningNet: d("300"),
		PeriodNet:  d("-200"),
	}
	bs := BuildBalanceSheet(in)
	if !bs.TotalLiabilities.Equal(d("1150")) || !bs.TotalAssets.Equal(d("1150")) {
		t.Fatalf("expected both sides 1150 got L=%s A=%s", bs.TotalLiabilities, bs.TotalAssets)
	}
	if !findLine(t, bs.Lines, "Capital Account").Amount.Equal(d("1100")) {
		t.Fatalf("capital must absorb opening and period results")
	}
	loss := findLine(t, bs.Lines, "Net Loss")
	if !loss.Amount.Equal(d("-200")) {
		t.Fatalf("net loss reduces capital, got %s", loss.Amount)
	}
	if !findLine(t, bs.Lines, OpeningProfitLabel).Amount.Equal(d("300")) {
		t.Fatalf("missing opening result line")
	}
	cl := findLine(t, bs.Lines, "Current Liabilities")
	if !cl.Amount.Equal(d("50")) {
		t.Fatalf("creditors roll into current liabilities, got %s", cl.Amount)
	}
	for _, l := range bs.Lines {
		if l.Name == "Sundry Creditors" || l.Name == "Cash-in-Hand" {
			t.Fatalf("sub-group %q must not appear on the balance sheet", l.Name)
		}
	}
}

func TestBalanceSheetMinimalWhenEmpty(t *testing.T) {
	bs := BuildBalanceSheet(BalanceSheetInput{})
	if len(bs.Lines) != 2 {
		t.Fatalf("expected capital header and total, got %d lines", len(bs.Lines))
	}
	if bs.Lines[0].Name != "Capital Account" || !bs.Lines[0].Amount.IsZero() {
		t.Fatalf("capital header must always be emitted: %+v", bs.Lines[0])
	}
	if !bs.Lines[1].IsTotal {
		t.Fatalf("expected total line")
	}
}

func TestBalanceSheetTotalIsLargerSide(t *testing.T) {
	bs := BuildBalanceSheet(BalanceSheetInput{
		Accounts:  []AccountBalance{{AccountID: 1, Code: "1000", Name: "Cash", Type: ledger.TypeAssetCash, Balance: d("900")}},
		PeriodNet: d("600"),
	})
	if !bs.Total.Equal(d("900")) || bs.Balanced {
		t.Fatalf("expected total 900 and unbalanced, got %s %v", bs.Total, bs.Balanced)
	}
}

func TestHorizontalBalanceSheetAlignsTotals(t *testing.T) {
	hbs := BuildHorizontalBalanceSheet(BalanceSheetInput{
		Accounts: []AccountBalance{
			{AccountID: 1, Code: "1500", Name: "Building", Type: ledger.TypeAssetFixed, Balance: d("400")},
			{AccountID: 2, Code: "1000", Name: "Cash", Type: ledger.TypeAssetCash, Balance: d("200")},
		},
		PeriodNet: d("600"),
	})
	if len(hbs.Liabilities) != 5 || len(hbs.Assets) != 5 {
		t.Fatalf("expected 5/5 lines got %d/%d", len(hbs.Liabilities), len(hbs.Assets))
	}
	if !hbs.Liabilities[4].IsTotal || !hbs.Assets[4].IsTotal {
		t.Fatalf("total lines must share the last row")
	}
	if !hbs.Liabilities[2].IsSpacer() || !hbs.Liabilities[3].IsSpacer() {
		t.Fatalf("padding must sit before the total")
	}
	for i := range hbs.Liabilities {
		if hbs.Liabilities[i].Side != SideLiabilities || hbs.Assets[i].Side != SideAssets {
			t.Fatalf("row %d has the wrong side", i)
		}
		if hbs.Liabilities[i].Sequence != (i+1)*10 || hbs.Assets[i].Sequence != (i+1)*10 {
			t.Fatalf("row %d is not resequenced", i)
		}
	}
	if !hbs.Total.Equal(d("600")) || !hbs.Liabilities[4].Amount.Equal(d("600")) || !hbs.Assets[4].Amount.Equal(d("600")) {
		t.Fatalf("unexpected total %s", hbs.Total)
	}
}

func TestHorizontalBalanceSheetColumnTotalsOwnSide(t *testing.T) {
	hbs := BuildHorizontalBalanceSheet(BalanceSheetInput{
		Accounts:  []AccountBalance{{AccountID: 1, Code: "1000", Name: "Cash", Type: ledger.TypeAssetCash, Balance: d("900")}},
		PeriodNet: d("600"),
	})
	left := hbs.Liabilities[len(hbs.Liabilities)-1]
	right := hbs.Assets[len(hbs.Assets)-1]
	if !left.IsTotal || !right.IsTotal {
		t.Fatalf("total lines must close both columns")
	}
	if !left.Amount.Equal(d("600")) || !right.Amount.Equal(d("900")) {
		t.Fatalf("expected column totals 600/900 got %s/%s", left.Amount, right.Amount)
	}
	if !hbs.Total.Equal(d("900")) || hbs.Balanced {
		t.Fatalf("expected larger side 900 and unbalanced, got %s %v", hbs.Total, hbs.Balanced)
	}
}

func TestBalanceSheetKeepsAccountsOnTheirSide(t *testing.T) {
	in := BalanceSheetInput{
		Accounts: []AccountBalance{
			{AccountID: 1, Code: "1000", Name: "Cash", Type: ledger.TypeAssetCash, Balance: d("5000")},
			{AccountID: 2, Code: "2500", Name: "HDFC Bank Loan", Type: ledger.TypeLiabilityNonCurrent, Balance: d("-3000")},
			{AccountID: 3, Code: "2200", Name: "Customer Advances", Type: ledger.TypeLiabilityCurrent, Balance: d("-2000")},
			{AccountID: 4, Code: "1400", Name: "Advance Tax", Type: ledger.TypeAssetCurrent, Balance: d("700")},
			{AccountID: 5, Code: "3000", Name: "Owner Equity", Type: ledger.TypeEquity, Balance: d("-700")},
		},
	}
	bs := BuildBalanceSheet(in)
	if !bs.TotalLiabilities.Equal(d("5700")) || !bs.TotalAssets.Equal(d("5700")) || !bs.Total.Equal(d("5700")) {
		t.Fatalf("expected both sides 5700 got L=%s A=%s T=%s", bs.TotalLiabilities, bs.TotalAssets, bs.Total)
	}
	if !bs.Balanced {
		t.Fatalf("expected balanced sheet")
	}
	if loans := findLine(t, bs.Lines, "Loans (Liability)"); !loans.Amount.Equal(d("3000")) {
		t.Fatalf("bank loan belongs to loans, got %s", loans.Amount)
	}
	if cl := findLine(t, bs.Lines, "Current Liabilities"); !cl.Amount.Equal(d("2000")) {
		t.Fatalf("customer advances belong to current liabilities, got %s", cl.Amount)
	}
	if ca := findLine(t, bs.Lines, "Current Assets"); !ca.Amount.Equal(d("5700")) {
		t.Fatalf("advance tax belongs to current assets, got %s", ca.Amount)
	}
	for _, l := range bs.Lines {
		if l.IsTotal || l.IsGroup || l.IsSpacer() {
			continue
		}
		if l.Amount.IsNegative() {
			t.Fatalf("line %q shows a negative amount %s", l.Name, l.Amount)
		}
	}
}

func TestPadToAlign(t *testing.T) {
	left := []Line{{Name: "Capital Account", IsGroup: true}, {Name: "Net Profit", IsNetResult: true}, {Name: "Total", IsTotal: true}}
	right := []Line{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}, {Name: "Total", IsTotal: true}}

	l, r := PadToAlign(left, right)
	if len(l) != len(r) {
		t.Fatalf("expected equal lengths got %d/%d", len(l), len(r))
	}
	if l[len(l)-1].Name != "Total" || r[len(r)-1].Name != "Total" {
		t.Fatalf("totals must stay last")
	}
	if len(left) != 3 {
		t.Fatalf("input slice must not be modified")
	}

	same, other := PadToAlign(nil, nil)
	if len(same) != 0 || len(other) != 0 {
		t.Fatalf("expected empty output")
	}
}

func TestRegenerationIsIdempotent(t *testing.T) {
	forward := scenario()
	reversed := []AccountBalance{forward[2], forward[1], forward[0]}

	render := func(accounts []AccountBalance) string {
		out, err := json.Marshal(struct {
			TB TrialBalance
			PL ProfitAndLoss
			BS HorizontalBalanceSheet
		}{
			TB: BuildTrialBalance(accounts),
			PL: BuildProfitAndLoss(accounts),
			BS: BuildHorizontalBalanceSheet(BalanceSheetInput{Accounts: accounts, PeriodNet: d("600")}),
		})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return string(out)
	}

	first := render(forward)
	if second := render(forward); first != second {
		t.Fatalf("regeneration changed output")
	}
	if third := render(reversed); first != third {
		t.Fatalf("input order changed output")
	}
}

func TestKindMetadata(t *testing.T) {
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	if got := Filename(KindProfitAndLoss, from, to); got != "Profit_Loss_01042024_31032025" {
		t.Fatalf("unexpected filename %s", got)
	}
	if got := Filename(KindTrialBalance, from, to); got != "Trial_Balance_31032025" {
		t.Fatalf("unexpected filename %s", got)
	}
	if got := Subtitle(KindBalanceSheet, from, to); got != "As on 31-Mar-2025" {
		t.Fatalf("unexpected subtitle %s", got)
	}
	if k, ok := ParseKind("balance-sheet-horizontal"); !ok || k != KindBalanceSheetHorizontal {
		t.Fatalf("parse kind failed")
	}
	if _, ok := ParseKind("cash_flow"); ok {
		t.Fatalf("unknown kind accepted")
	}
}
