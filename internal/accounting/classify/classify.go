// Package classify maps ledger accounts onto the fixed set of report groups.
//
// The cascade is evaluated top to bottom and the first match wins: display-name
// keyword rules, then the native type table, then a fallback on the account
// nature. Compound phrases sit ahead of the generic keywords they contain.
package classify

import (
	"strings"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/ledger"
)

// Rule assigns Group to accounts whose lower-cased name contains any keyword.
type Rule struct {
	Group    Group
	Keywords []string
}

// Matches reports whether the lower-cased name hits one of the keywords.
func (r Rule) Matches(lowerName string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lowerName, kw) {
			return true
		}
	}
	return false
}

// NameRules is the ordered keyword cascade.
var NameRules = []Rule{
	{Group: CurrentLiabilities, Keywords: []string{"outstanding payment"}},
	{Group: CurrentAssets, Keywords: []string{"outstanding receipt"}},
	{Group: SundryDebtors, Keywords: []string{"debtor", "receivable", "customer"}},
	{Group: SundryCreditors, Keywords: []string{"creditor", "payable", "supplier", "vendor"}},
	{Group: BankAccounts, Keywords: []string{"bank"}},
	{Group: CashInHand, Keywords: []string{"cash", "petty"}},
	{Group: CapitalAccount, Keywords: []string{"capital"}},
	{Group: DutiesAndTaxes, Keywords: []string{"tax", "gst", "vat", "tds", "duty"}},
	{Group: Provisions, Keywords: []string{"provision"}},
	{Group: Loans, Keywords: []string{"loan", "borrowing", "debt"}},
	{Group: StockInHand, Keywords: []string{"inventory", "stock"}},
	{Group: Deposits, Keywords: []string{"deposit", "prepaid", "prepayment", "advance"}},
	{Group: SalesAccounts, Keywords: []string{"sale", "revenue", "service"}},
	{Group: PurchaseAccounts, Keywords: []string{"purchase", "cost of goods", "cogs"}},
}

// TypeFallback maps native type tags to their default group.
var TypeFallback = map[ledger.AccountType]Group{
	ledger.TypeAssetReceivable:     SundryDebtors,
	ledger.TypeAssetCash:           CashInHand,
	ledger.TypeAssetCurrent:        CurrentAssets,
	ledger.TypeAssetPrepayment:     CurrentAssets,
	ledger.TypeAssetFixed:          FixedAssets,
	ledger.TypeAssetNonCurrent:     FixedAssets,
	ledger.TypeLiabilityPayable:    SundryCreditors,
	ledger.TypeLiabilityCurrent:    CurrentLiabilities,
	ledger.TypeLiabilityCreditCard: CurrentLiabilities,
	ledger.TypeLiabilityNonCurrent: Loans,
	ledger.TypeEquity:              CapitalAccount,
	ledger.TypeEquityUnaffected:    CapitalAccount,
	ledger.TypeIncome:              SalesAccounts,
	ledger.TypeIncomeOther:         IndirectIncomes,
	ledger.TypeExpense:             DirectExpenses,
	ledger.TypeExpenseDirectCost:   DirectExpenses,
	ledger.TypeExpenseDepreciation: IndirectExpenses,
}

// Classify returns the report group of an account. It depends only on the
// account name and native type.
func Classify(acc ledger.Account) Group {
	nature := acc.Type.Nature()
	if nature == ledger.NatureOffBalance {
		return Miscellaneous
	}

	name := strings.ToLower(acc.Name)
	for _, rule := range NameRules {
		if !inScope(rule.Group, nature) {
			continue
		}
		if rule.Matches(name) {
			return rule.Group
		}
	}

	if g, ok := TypeFallback[acc.Type]; ok {
		return g
	}
	if nature == ledger.NatureEquity {
		return CapitalAccount
	}

	switch nature {
	case ledger.NatureLiability:
		return CurrentLiabilities
	case ledger.NatureAsset:
		return CurrentAssets
	default:
		return Miscellaneous
	}
}

// inScope keeps keyword rules on the side implied by the account nature. A
// "Bank Charges" expense stays on the profit and loss statement and a
// "Bank Loan" liability never becomes a bank account.
func inScope(g Group, nature ledger.Nature) bool {
	switch nature {
	case ledger.NatureAsset:
		return g.Section() == SectionAssets
	case ledger.NatureLiability, ledger.NatureEquity:
		return g.Section() == SectionLiabilities
	case ledger.NatureIncome:
		return g.Section() == SectionIncome
	case ledger.NatureExpense:
		return g.Section() == SectionExpenses
	default:
		return true
	}
}
