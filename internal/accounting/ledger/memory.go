package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Posting is one debit or credit line of a journal entry.
type Posting struct {
	ID        int64
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Entry is a dated journal entry with its postings.
type Entry struct {
	ID        int64
	CompanyID int64
	Date      time.Time
	State     EntryState
	Type      DocumentType
	Postings  []Posting
}

// Settlement links a debit posting to a credit posting for a settled amount.
type Settlement struct {
	DebitPostingID  int64
	CreditPostingID int64
	Amount          decimal.Decimal
	Date            time.Time
}

// MemorySource is an in-process ledger used by offline fixtures and tests.
type MemorySource struct {
	mu          sync.RWMutex
	accounts    []Account
	entries     []Entry
	settlements []Settlement
}

// NewMemorySource constructs an empty in-memory ledger.
func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

// AddAccount registers a chart-of-accounts entry.
func (m *MemorySource) AddAccount(acc Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = append(m.accounts, acc)
}

// AddEntry records a journal entry.
func (m *MemorySource) AddEntry(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// AddSettlement records a settlement between two postings.
func (m *MemorySource) AddSettlement(s Settlement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements = append(m.settlements, s)
}

// AccountsByType implements Source.
func (m *MemorySource) AccountsByType(ctx context.Context, companyID int64, types []AccountType) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[AccountType]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Account
	for _, acc := range m.accounts {
		if acc.CompanyID != companyID {
			continue
		}
		if _, ok := want[acc.Type]; !ok {
			continue
		}
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Aggregate implements Source.
func (m *MemorySource) Aggregate(ctx context.Context, q AggregateQuery) (map[int64]Totals, error) {
	result := make(map[int64]Totals)
	if len(q.AccountIDs) == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := idSet(q.AccountIDs)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, entry := range m.entries {
		if entry.CompanyID != q.CompanyID {
			continue
		}
		if q.PostedOnly && entry.State != StatePosted {
			continue
		}
		if !q.DateFrom.IsZero() && entry.Date.Before(q.DateFrom) {
			continue
		}
		if !q.DateTo.IsZero() && entry.Date.After(q.DateTo) {
			continue
		}
		for _, p := range entry.Postings {
			if _, ok := ids[p.AccountID]; !ok {
				continue
			}
			tot := result[p.AccountID]
			tot.Debit = tot.Debit.Add(p.Debit)
			tot.Credit = tot.Credit.Add(p.Credit)
			result[p.AccountID] = tot
		}
	}
	return result, nil
}

// Residuals implements Source.
func (m *MemorySource) Residuals(ctx context.Context, q ResidualQuery) (map[int64]decimal.Decimal, error) {
	result := make(map[int64]decimal.Decimal)
	if len(q.AccountIDs) == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := idSet(q.AccountIDs)
	m.mu.RLock()
	defer m.mu.RUnlock()

	debitSettled := make(map[int64]decimal.Decimal)
	creditSettled := make(map[int64]decimal.Decimal)
	for _, s := range m.settlements {
		if !q.AsOf.IsZero() && s.Date.After(q.AsOf) {
			continue
		}
		debitSettled[s.DebitPostingID] = debitSettled[s.DebitPostingID].Add(s.Amount)
		creditSettled[s.CreditPostingID] = creditSettled[s.CreditPostingID].Add(s.Amount)
	}

	for _, entry := range m.entries {
		if entry.CompanyID != q.CompanyID || entry.State != StatePosted || !entry.Type.IsDocument() {
			continue
		}
		if !q.AsOf.IsZero() && entry.Date.After(q.AsOf) {
			continue
		}
		perAccount := make(map[int64]decimal.Decimal)
		for _, p := range entry.Postings {
			if _, ok := ids[p.AccountID]; !ok {
				continue
			}
			perAccount[p.AccountID] = perAccount[p.AccountID].Add(postingResidual(p, debitSettled, creditSettled))
		}
		for accountID, residual := range perAccount {
			if residual.Abs().LessThanOrEqual(DocumentThreshold) {
				continue
			}
			result[accountID] = result[accountID].Add(residual)
		}
	}
	return result, nil
}

// postingResidual is the signed unsettled part of a posting: a debit posting
// shrinks by settlements that reference it on the debit side, a credit posting
// by settlements on the credit side.
func postingResidual(p Posting, debitSettled, creditSettled map[int64]decimal.Decimal) decimal.Decimal {
	amount := p.Debit.Sub(p.Credit)
	switch amount.Sign() {
	case 1:
		return amount.Sub(debitSettled[p.ID])
	case -1:
		return amount.Add(creditSettled[p.ID])
	default:
		return decimal.Zero
	}
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var _ Source = (*MemorySource)(nil)
