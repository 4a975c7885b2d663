package reports

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/classify"
)

// ProfitAndLoss is the assembled profit and loss statement.
type ProfitAndLoss struct {
	Lines        []Line          `json:"lines"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	// Net is income minus expense.
	Net decimal.Decimal `json:"net"`
}

// Profit reports whether the statement closes with a non-negative result.
func (p ProfitAndLoss) Profit() bool {
	return !p.Net.IsNegative()
}

// NetLabel returns "Net Profit" or "Net Loss".
func NetLabel(net decimal.Decimal) string {
	if net.IsNegative() {
		return "Net Loss"
	}
	return "Net Profit"
}

// BuildProfitAndLoss lays out period balances with expense groups first, then
// income groups, then the net result. Amounts are in natural sign; an account
// against its natural side stays negative and is flagged.
func BuildProfitAndLoss(accounts []AccountBalance) ProfitAndLoss {
	buckets := bucket(accounts, func(a AccountBalance) (classify.Group, bool) {
		g := a.Group()
		s := g.Section()
		return g, s == classify.SectionIncome || s == classify.SectionExpenses
	})

	asm := newAssembly(SideNone)
	result := ProfitAndLoss{TotalIncome: decimal.Zero, TotalExpense: decimal.Zero, Net: decimal.Zero}
	if len(buckets) == 0 {
		asm.placeholder()
		result.Lines = asm.lines
		return result
	}

	for _, g := range classify.ProfitAndLossOrder {
		members := buckets[g]
		if len(members) == 0 {
			continue
		}
		subtotal := emitGroup(asm, g, members)
		if g.Section() == classify.SectionIncome {
			result.TotalIncome = result.TotalIncome.Add(subtotal)
		} else {
			result.TotalExpense = result.TotalExpense.Add(subtotal)
		}
	}

	result.Net = result.TotalIncome.Sub(result.TotalExpense)
	asm.emit(Line{
		Level:       0,
		Name:        NetLabel(result.Net),
		Amount:      result.Net.Abs(),
		IsNetResult: true,
	})
	result.Lines = asm.lines
	return result
}

// emitGroup writes a group header followed by its accounts in natural sign and
// returns the subtotal.
func emitGroup(asm *assembly, g classify.Group, members []AccountBalance) decimal.Decimal {
	header := asm.emit(Line{Level: 0, Name: g.String(), IsGroup: true})
	subtotal := decimal.Zero
	for _, acc := range members {
		amount := balances.Natural(g.Section(), acc.Balance)
		asm.emit(Line{
			Level:   1,
			Name:    acc.Name,
			Code:    acc.Code,
			Amount:  amount,
			Anomaly: balances.Anomalous(amount),
		})
		subtotal = subtotal.Add(amount)
	}
	asm.lines[header].Amount = subtotal
	return subtotal
}
