// Package ledger reads aggregated postings from the host ledger store. It never
// writes: accounts, journal entries and settlements are owned by the host system.
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the native account type tag supplied by the host ledger.
type AccountType string

const (
	TypeAssetReceivable     AccountType = "asset_receivable"
	TypeAssetCash           AccountType = "asset_cash"
	TypeAssetCurrent        AccountType = "asset_current"
	TypeAssetNonCurrent     AccountType = "asset_non_current"
	TypeAssetPrepayment     AccountType = "asset_prepayment"
	TypeAssetFixed          AccountType = "asset_fixed"
	TypeLiabilityPayable    AccountType = "liability_payable"
	TypeLiabilityCreditCard AccountType = "liability_credit_card"
	TypeLiabilityCurrent    AccountType = "liability_current"
	TypeLiabilityNonCurrent AccountType = "liability_non_current"
	TypeEquity              AccountType = "equity"
	TypeEquityUnaffected    AccountType = "equity_unaffected"
	TypeIncome              AccountType = "income"
	TypeIncomeOther         AccountType = "income_other"
	TypeExpense             AccountType = "expense"
	TypeExpenseDepreciation AccountType = "expense_depreciation"
	TypeExpenseDirectCost   AccountType = "expense_direct_cost"
	TypeOffBalance          AccountType = "off_balance"
)

// AllTypes lists every native type tag known to the host ledger.
var AllTypes = []AccountType{
	TypeAssetReceivable, TypeAssetCash, TypeAssetCurrent, TypeAssetNonCurrent,
	TypeAssetPrepayment, TypeAssetFixed,
	TypeLiabilityPayable, TypeLiabilityCreditCard, TypeLiabilityCurrent, TypeLiabilityNonCurrent,
	TypeEquity, TypeEquityUnaffected,
	TypeIncome, TypeIncomeOther,
	TypeExpense, TypeExpenseDepreciation, TypeExpenseDirectCost,
	TypeOffBalance,
}

// Nature is the accounting nature implied by a native type tag.
type Nature int

const (
	NatureUnknown Nature = iota
	NatureAsset
	NatureLiability
	NatureEquity
	NatureIncome
	NatureExpense
	NatureOffBalance
)

// String implements fmt.Stringer.
func (n Nature) String() string {
	switch n {
	case NatureAsset:
		return "asset"
	case NatureLiability:
		return "liability"
	case NatureEquity:
		return "equity"
	case NatureIncome:
		return "income"
	case NatureExpense:
		return "expense"
	case NatureOffBalance:
		return "off_balance"
	default:
		return "unknown"
	}
}

// Nature derives the accounting nature from the tag prefix so that tags added by
// newer host versions still land on the right side.
func (t AccountType) Nature() Nature {
	s := strings.ToLower(string(t))
	switch {
	case s == string(TypeOffBalance):
		return NatureOffBalance
	case strings.HasPrefix(s, "asset"):
		return NatureAsset
	case strings.HasPrefix(s, "liability"):
		return NatureLiability
	case strings.HasPrefix(s, "equity"):
		return NatureEquity
	case strings.HasPrefix(s, "income"):
		return NatureIncome
	case strings.HasPrefix(s, "expense"):
		return NatureExpense
	default:
		return NatureUnknown
	}
}

// Settleable reports whether balances of this type are tracked per document.
func (t AccountType) Settleable() bool {
	return t == TypeAssetReceivable || t == TypeLiabilityPayable
}

// BalanceSheetTypes are the account types shown on the balance sheet.
func BalanceSheetTypes() []AccountType {
	return typesWhere(func(n Nature) bool {
		return n == NatureAsset || n == NatureLiability || n == NatureEquity
	})
}

// ProfitLossTypes are the account types shown on the profit and loss statement.
func ProfitLossTypes() []AccountType {
	return typesWhere(func(n Nature) bool {
		return n == NatureIncome || n == NatureExpense
	})
}

// TrialBalanceTypes is every type except off-balance.
func TrialBalanceTypes() []AccountType {
	return typesWhere(func(n Nature) bool { return n != NatureOffBalance })
}

func typesWhere(keep func(Nature) bool) []AccountType {
	out := make([]AccountType, 0, len(AllTypes))
	for _, t := range AllTypes {
		if keep(t.Nature()) {
			out = append(out, t)
		}
	}
	return out
}

// Account is a chart-of-accounts entry read from the host ledger.
type Account struct {
	ID        int64       `json:"id" yaml:"id"`
	CompanyID int64       `json:"company_id" yaml:"company_id"`
	Code      string      `json:"code" yaml:"code"`
	Name      string      `json:"name" yaml:"name"`
	Type      AccountType `json:"type" yaml:"type"`
	Reconcile bool        `json:"reconcile" yaml:"reconcile"`
}

// EntryState is the lifecycle state of a journal entry.
type EntryState string

const (
	StateDraft    EntryState = "draft"
	StatePosted   EntryState = "posted"
	StateCanceled EntryState = "cancel"
)

// DocumentType is the kind of journal entry a posting belongs to.
type DocumentType string

const (
	DocEntry           DocumentType = "entry"
	DocCustomerInvoice DocumentType = "out_invoice"
	DocVendorBill      DocumentType = "in_invoice"
	DocCustomerRefund  DocumentType = "out_refund"
	DocVendorRefund    DocumentType = "in_refund"
	DocSalesReceipt    DocumentType = "out_receipt"
	DocPurchaseReceipt DocumentType = "in_receipt"
)

// DocumentTypes lists the entry kinds whose receivable/payable lines carry a residual.
var DocumentTypes = []DocumentType{
	DocCustomerInvoice, DocVendorBill, DocCustomerRefund,
	DocVendorRefund, DocSalesReceipt, DocPurchaseReceipt,
}

// IsDocument reports whether the entry kind is an invoice, bill, refund or receipt.
func (d DocumentType) IsDocument() bool {
	for _, t := range DocumentTypes {
		if d == t {
			return true
		}
	}
	return false
}

// Totals holds the aggregated debit and credit of one account.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Net returns debit minus credit.
func (t Totals) Net() decimal.Decimal {
	return t.Debit.Sub(t.Credit)
}

// AggregateQuery scopes an aggregate read. A zero DateFrom means no lower bound.
type AggregateQuery struct {
	CompanyID  int64
	AccountIDs []int64
	DateFrom   time.Time
	DateTo     time.Time
	PostedOnly bool
}

// ResidualQuery scopes an outstanding-document read.
type ResidualQuery struct {
	CompanyID  int64
	AccountIDs []int64
	AsOf       time.Time
}

// Source is the read-only view of the host ledger consumed by the balance engine.
type Source interface {
	// AccountsByType lists company accounts whose native type is in types.
	AccountsByType(ctx context.Context, companyID int64, types []AccountType) ([]Account, error)
	// Aggregate sums debit and credit per account. Accounts without postings are absent.
	Aggregate(ctx context.Context, q AggregateQuery) (map[int64]Totals, error)
	// Residuals sums, per account, the unsettled part of each posted document line
	// dated on or before AsOf. Documents whose residual is within 0.01 of zero are skipped.
	Residuals(ctx context.Context, q ResidualQuery) (map[int64]decimal.Decimal, error)
}

// DocumentThreshold is the residual magnitude at or below which a document counts as settled.
var DocumentThreshold = decimal.New(1, -2)

func typeStrings(types []AccountType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func documentStrings() []string {
	out := make([]string, len(DocumentTypes))
	for i, d := range DocumentTypes {
		out[i] = string(d)
	}
	return out
}
