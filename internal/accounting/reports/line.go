package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/classify"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/ledger"
)

// PlaceholderText is the single line emitted when a statement has nothing to show.
const PlaceholderText = "No transactions in this period"

// sequenceStep is the gap between consecutive line sequence numbers.
const sequenceStep = 10

// Side places a line on one column of the horizontal balance sheet.
type Side string

const (
	SideNone        Side = ""
	SideLiabilities Side = "liabilities"
	SideAssets      Side = "assets"
)

// Line is one row of an assembled statement. Level 0 rows are group headers,
// totals and net results; level 1 rows are accounts or capital sub-lines.
type Line struct {
	Sequence    int             `json:"sequence"`
	Level       int             `json:"level"`
	Name        string          `json:"name"`
	Code        string          `json:"code,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	IsGroup     bool            `json:"is_group"`
	IsTotal     bool            `json:"is_total"`
	IsNetResult bool            `json:"is_net_result"`
	Anomaly     bool            `json:"anomaly,omitempty"`
	Side        Side            `json:"side,omitempty"`
}

// IsSpacer reports whether the line is blank padding.
func (l Line) IsSpacer() bool {
	return l.Name == "" && !l.IsGroup && !l.IsTotal && !l.IsNetResult
}

// AccountBalance is an account with its raw debit minus credit balance.
type AccountBalance struct {
	AccountID int64
	Code      string
	Name      string
	Type      ledger.AccountType
	Balance   decimal.Decimal
}

// Group classifies the account.
func (a AccountBalance) Group() classify.Group {
	return classify.Classify(ledger.Account{ID: a.AccountID, Code: a.Code, Name: a.Name, Type: a.Type})
}

// FromBalances pairs accounts with their computed balances. Accounts without
// postings get a zero balance and are dropped later by the materiality filter.
func FromBalances(accounts []ledger.Account, b balances.Balances) []AccountBalance {
	out := make([]AccountBalance, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, AccountBalance{
			AccountID: acc.ID,
			Code:      acc.Code,
			Name:      acc.Name,
			Type:      acc.Type,
			Balance:   b.Get(acc.ID),
		})
	}
	return out
}

// assembly threads the running sequence through one statement build.
type assembly struct {
	seq   int
	side  Side
	lines []Line
}

func newAssembly(side Side) *assembly {
	return &assembly{side: side}
}

// emit appends a line and returns its index.
func (a *assembly) emit(l Line) int {
	a.seq += sequenceStep
	l.Sequence = a.seq
	l.Side = a.side
	a.lines = append(a.lines, l)
	return len(a.lines) - 1
}

func (a *assembly) placeholder() {
	a.emit(Line{Name: PlaceholderText})
}

// bucket drops negligible balances and files the rest under key(account),
// each bucket sorted by code then name.
func bucket(accounts []AccountBalance, key func(AccountBalance) (classify.Group, bool)) map[classify.Group][]AccountBalance {
	out := make(map[classify.Group][]AccountBalance)
	for _, acc := range accounts {
		if balances.Negligible(acc.Balance) {
			continue
		}
		g, ok := key(acc)
		if !ok {
			continue
		}
		out[g] = append(out[g], acc)
	}
	for _, members := range out {
		sortAccounts(members)
	}
	return out
}

func sortAccounts(members []AccountBalance) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Code != members[j].Code {
			return members[i].Code < members[j].Code
		}
		if members[i].Name != members[j].Name {
			return members[i].Name < members[j].Name
		}
		return members[i].AccountID < members[j].AccountID
	})
}

func maxAbs(a, b decimal.Decimal) decimal.Decimal {
	return decimal.Max(a.Abs(), b.Abs())
}
