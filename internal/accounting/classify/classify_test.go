package classify

import (
	"testing"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/ledger"

	_ "github.com/odyssey-erp/odyssey-reports/testing"
)

func TestClassifyNameRulesBeforeType(t *testing.T) {
	cases := []struct {
		name string
		typ  ledger.AccountType
		want Group
	}{
		{"Sundry Creditor - ACME", ledger.TypeLiabilityCurrent, SundryCreditors},
		{"Outstanding Payments", ledger.TypeLiabilityCurrent, CurrentLiabilities},
		{"Outstanding Receipts", ledger.TypeAssetCurrent, CurrentAssets},
		{"Customer Receivable", ledger.TypeAssetCurrent, SundryDebtors},
		{"HDFC Bank", ledger.TypeAssetCurrent, BankAccounts},
		{"Petty Cash", ledger.TypeAssetCurrent, CashInHand},
		{"Owner's Capital", ledger.TypeEquity, CapitalAccount},
		{"GST Output", ledger.TypeLiabilityCurrent, DutiesAndTaxes},
		{"Provision for Gratuity", ledger.TypeLiabilityCurrent, Provisions},
		{"Term Loan", ledger.TypeLiabilityNonCurrent, Loans},
		{"Closing Stock", ledger.TypeAssetCurrent, StockInHand},
		{"Security Deposit", ledger.TypeAssetNonCurrent, Deposits},
		{"Service Revenue", ledger.TypeIncomeOther, SalesAccounts},
		{"Cost of Goods Sold", ledger.TypeExpenseDirectCost, PurchaseAccounts},
		{"Purchase", ledger.TypeExpense, PurchaseAccounts},
	}
	for _, tc := range cases {
		got := Classify(ledger.Account{Name: tc.name, Type: tc.typ})
		if got != tc.want {
			t.Fatalf("%q (%s): expected %s got %s", tc.name, tc.typ, tc.want, got)
		}
	}
}

func TestClassifyCompoundPhraseWinsOverGeneric(t *testing.T) {
	// "Outstanding Payment to Vendor" contains "vendor" but must not become a creditor.
	got := Classify(ledger.Account{Name: "Outstanding Payment to Vendor", Type: ledger.TypeLiabilityPayable})
	if got != CurrentLiabilities {
		t.Fatalf("expected Current Liabilities got %s", got)
	}
}

func TestClassifyRulesStayOnTheirStatement(t *testing.T) {
	cases := []struct {
		name string
		typ  ledger.AccountType
		want Group
	}{
		{"Bank Charges", ledger.TypeExpense, DirectExpenses},
		{"Interest on Bank Deposit", ledger.TypeIncomeOther, IndirectIncomes},
		{"Sales Tax Payable", ledger.TypeLiabilityCurrent, SundryCreditors},
		{"Cash Discount Received", ledger.TypeIncomeOther, IndirectIncomes},
	}
	for _, tc := range cases {
		if got := Classify(ledger.Account{Name: tc.name, Type: tc.typ}); got != tc.want {
			t.Fatalf("%q: expected %s got %s", tc.name, tc.want, got)
		}
	}
}

func TestClassifyRulesStayOnTheAccountSide(t *testing.T) {
	cases := []struct {
		name string
		typ  ledger.AccountType
		want Group
	}{
		{"HDFC Bank Loan", ledger.TypeLiabilityNonCurrent, Loans},
		{"Customer Advances", ledger.TypeLiabilityCurrent, CurrentLiabilities},
		{"Advance Tax", ledger.TypeAssetCurrent, Deposits},
		{"Cash Credit from Bank", ledger.TypeLiabilityCurrent, CurrentLiabilities},
		{"Supplier Advance", ledger.TypeAssetPrepayment, Deposits},
	}
	for _, tc := range cases {
		got := Classify(ledger.Account{Name: tc.name, Type: tc.typ})
		if got != tc.want {
			t.Fatalf("%q (%s): expected %s got %s", tc.name, tc.typ, tc.want, got)
		}
		if got.Section() != sideOf(tc.typ) {
			t.Fatalf("%q crossed to %s", tc.name, got.Section())
		}
	}
}

func sideOf(typ ledger.AccountType) Section {
	if typ.Nature() == ledger.NatureAsset {
		return SectionAssets
	}
	return SectionLiabilities
}

func TestClassifyTypeFallback(t *testing.T) {
	cases := map[ledger.AccountType]Group{
		ledger.TypeAssetReceivable:     SundryDebtors,
		ledger.TypeAssetCash:           CashInHand,
		ledger.TypeAssetFixed:          FixedAssets,
		ledger.TypeAssetNonCurrent:     FixedAssets,
		ledger.TypeLiabilityPayable:    SundryCreditors,
		ledger.TypeLiabilityNonCurrent: Loans,
		ledger.TypeEquityUnaffected:    CapitalAccount,
		ledger.TypeIncome:              SalesAccounts,
		ledger.TypeExpenseDepreciation: IndirectExpenses,
		ledger.AccountType("liability_accrued"): CurrentLiabilities,
		ledger.AccountType("asset_other"):       CurrentAssets,
		ledger.AccountType("equity_reserve"):    CapitalAccount,
		ledger.AccountType("suspense"):          Miscellaneous,
		ledger.TypeOffBalance:                   Miscellaneous,
	}
	for typ, want := range cases {
		if got := Classify(ledger.Account{Name: "Account 42", Type: typ}); got != want {
			t.Fatalf("%s: expected %s got %s", typ, want, got)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	acc := ledger.Account{ID: 7, Name: "Trade Receivables", Type: ledger.TypeAssetReceivable}
	first := Classify(acc)
	for i := 0; i < 50; i++ {
		if got := Classify(acc); got != first {
			t.Fatalf("classification changed on call %d: %s vs %s", i, got, first)
		}
	}
	acc.ID = 8
	acc.Code = "9999"
	if got := Classify(acc); got != first {
		t.Fatalf("classification must depend only on name and type")
	}
}

func TestGroupPrimaryAndSection(t *testing.T) {
	for _, g := range Groups() {
		p := g.Primary()
		if g.Section() != p.Section() {
			t.Fatalf("%s rolls into %s on a different side", g, p)
		}
		if p.Primary() != p {
			t.Fatalf("primary of %s is not stable", g)
		}
	}
	if CashInHand.Primary() != CurrentAssets || DutiesAndTaxes.Primary() != CurrentLiabilities {
		t.Fatalf("unexpected roll-up")
	}
	if len(TrialBalanceOrder) != 20 {
		t.Fatalf("expected 20 groups got %d", len(TrialBalanceOrder))
	}
}
