// Package balances turns aggregated ledger postings into per-account balances
// and the period profit or loss.
package balances

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/ledger"
)

// Policy selects how receivable and payable accounts are balanced.
type Policy string

const (
	// PolicyOutstanding balances receivables and payables by the unsettled
	// residual of each posted document.
	PolicyOutstanding Policy = "outstanding"
	// PolicyFull uses the full debit minus credit history like any other account.
	PolicyFull Policy = "full"
)

// ParsePolicy resolves a configured policy name. Empty selects PolicyOutstanding.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyOutstanding:
		return PolicyOutstanding, nil
	case PolicyFull:
		return PolicyFull, nil
	default:
		return "", fmt.Errorf("balances: unknown policy %q", raw)
	}
}

// Balances maps account id to the raw debit minus credit balance.
type Balances map[int64]decimal.Decimal

// Get returns the balance of an account, zero when absent.
func (b Balances) Get(accountID int64) decimal.Decimal {
	if v, ok := b[accountID]; ok {
		return v
	}
	return decimal.Zero
}

// ClosingQuery requests balances as of a date. A zero Policy uses the engine default.
type ClosingQuery struct {
	CompanyID int64
	Accounts  []ledger.Account
	AsOf      time.Time
	Policy    Policy
}

// PeriodQuery requests the profit or loss of a date range. A zero From means
// everything up to To.
type PeriodQuery struct {
	CompanyID int64
	Accounts  []ledger.Account
	From      time.Time
	To        time.Time
}

// PeriodResult carries per-account period balances and the net result.
type PeriodResult struct {
	Raw          Balances
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	// Net is income minus expense. Positive is a profit.
	Net decimal.Decimal
}

// Profit reports whether the period closed with a non-negative result.
func (r PeriodResult) Profit() bool {
	return !r.Net.IsNegative()
}

// Engine computes balances from a ledger source.
type Engine struct {
	source ledger.Source
	policy Policy
}

// NewEngine constructs an Engine. An empty policy selects PolicyOutstanding.
func NewEngine(source ledger.Source, policy Policy) *Engine {
	if policy == "" {
		policy = PolicyOutstanding
	}
	return &Engine{source: source, policy: policy}
}

// Policy returns the default outstanding policy of the engine.
func (e *Engine) Policy() Policy {
	return e.policy
}

// ClosingBalances returns debit minus credit per account over every posted
// entry up to and including AsOf. Receivable and payable accounts follow the
// query policy.
func (e *Engine) ClosingBalances(ctx context.Context, q ClosingQuery) (Balances, error) {
	result := make(Balances)
	if len(q.Accounts) == 0 {
		return result, nil
	}
	policy := q.Policy
	if policy == "" {
		policy = e.policy
	}

	var plain, settleable []int64
	for _, acc := range q.Accounts {
		if policy == PolicyOutstanding && acc.Type.Settleable() {
			settleable = append(settleable, acc.ID)
			continue
		}
		plain = append(plain, acc.ID)
	}

	totals, err := e.source.Aggregate(ctx, ledger.AggregateQuery{
		CompanyID:  q.CompanyID,
		AccountIDs: plain,
		DateTo:     q.AsOf,
		PostedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("balances: closing aggregate: %w", err)
	}
	for id, tot := range totals {
		result[id] = tot.Net()
	}

	if len(settleable) > 0 {
		residuals, err := e.source.Residuals(ctx, ledger.ResidualQuery{
			CompanyID:  q.CompanyID,
			AccountIDs: settleable,
			AsOf:       q.AsOf,
		})
		if err != nil {
			return nil, fmt.Errorf("balances: residuals: %w", err)
		}
		for id, residual := range residuals {
			result[id] = residual
		}
	}
	return result, nil
}

// PeriodResult computes income as credit minus debit and expense as debit minus
// credit over the range. Accounts below the materiality threshold do not count
// towards the totals so the net matches what the statement shows.
func (e *Engine) PeriodResult(ctx context.Context, q PeriodQuery) (PeriodResult, error) {
	res := PeriodResult{
		Raw:          make(Balances),
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Net:          decimal.Zero,
	}
	ids := make([]int64, 0, len(q.Accounts))
	for _, acc := range q.Accounts {
		ids = append(ids, acc.ID)
	}
	if len(ids) == 0 {
		return res, nil
	}

	totals, err := e.source.Aggregate(ctx, ledger.AggregateQuery{
		CompanyID:  q.CompanyID,
		AccountIDs: ids,
		DateFrom:   q.From,
		DateTo:     q.To,
		PostedOnly: true,
	})
	if err != nil {
		return PeriodResult{}, fmt.Errorf("balances: period aggregate: %w", err)
	}

	for _, acc := range q.Accounts {
		tot, ok := totals[acc.ID]
		if !ok {
			continue
		}
		raw := tot.Net()
		res.Raw[acc.ID] = raw
		if Negligible(raw) {
			continue
		}
		switch acc.Type.Nature() {
		case ledger.NatureIncome:
			res.TotalIncome = res.TotalIncome.Add(raw.Neg())
		case ledger.NatureExpense:
			res.TotalExpense = res.TotalExpense.Add(raw)
		}
	}
	res.Net = res.TotalIncome.Sub(res.TotalExpense)
	return res, nil
}
