package reports

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/classify"
)

// TrialBalance is the assembled trial balance.
type TrialBalance struct {
	Lines       []Line          `json:"lines"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	// Difference is TotalDebit minus TotalCredit.
	Difference decimal.Decimal `json:"difference"`
	Balanced   bool            `json:"balanced"`
}

// BuildTrialBalance groups closing balances in trial balance order. A positive
// balance lands in the debit column and a negative one in the credit column.
// Group headers carry both column subtotals and the final line holds the
// literal debit and credit sums.
func BuildTrialBalance(accounts []AccountBalance) TrialBalance {
	buckets := bucket(accounts, func(a AccountBalance) (classify.Group, bool) {
		return a.Group(), true
	})

	asm := newAssembly(SideNone)
	result := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	if len(buckets) == 0 {
		asm.placeholder()
		result.Lines = asm.lines
		result.Difference = decimal.Zero
		result.Balanced = true
		return result
	}

	for _, g := range classify.TrialBalanceOrder {
		members := buckets[g]
		if len(members) == 0 {
			continue
		}
		header := asm.emit(Line{Level: 0, Name: g.String(), IsGroup: true})
		groupDebit, groupCredit := decimal.Zero, decimal.Zero
		for _, acc := range members {
			line := Line{Level: 1, Name: acc.Name, Code: acc.Code, Amount: acc.Balance}
			if acc.Balance.IsPositive() {
				line.Debit = acc.Balance
				groupDebit = groupDebit.Add(acc.Balance)
			} else {
				line.Credit = acc.Balance.Neg()
				groupCredit = groupCredit.Add(line.Credit)
			}
			asm.emit(line)
		}
		asm.lines[header].Debit = groupDebit
		asm.lines[header].Credit = groupCredit
		asm.lines[header].Amount = groupDebit.Sub(groupCredit)
		result.TotalDebit = result.TotalDebit.Add(groupDebit)
		result.TotalCredit = result.TotalCredit.Add(groupCredit)
	}

	asm.emit(Line{
		Level:   0,
		Name:    "Total",
		Debit:   result.TotalDebit,
		Credit:  result.TotalCredit,
		Amount:  result.TotalDebit.Sub(result.TotalCredit),
		IsTotal: true,
	})
	result.Lines = asm.lines
	result.Difference = result.TotalDebit.Sub(result.TotalCredit)
	result.Balanced = balances.Negligible(result.Difference)
	return result
}
