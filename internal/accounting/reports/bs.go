package reports

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/classify"
)

// OpeningProfitLabel names the capital sub-line for results earned before the period.
const OpeningProfitLabel = "Opening Profit & Loss"

// BalanceSheetInput carries closing balances and the results folded into capital.
type BalanceSheetInput struct {
	Accounts []AccountBalance
	// PeriodNet is the profit (positive) or loss (negative) of the report period.
	PeriodNet decimal.Decimal
	// OpeningNet is the result accumulated before the period start.
	OpeningNet decimal.Decimal
}

// BalanceSheet is the vertical balance sheet.
type BalanceSheet struct {
	Lines            []Line          `json:"lines"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	// Total is the larger of the two sides in absolute terms.
	Total    decimal.Decimal `json:"total"`
	Balanced bool            `json:"balanced"`
}

// HorizontalBalanceSheet keeps liabilities and assets in two aligned columns.
type HorizontalBalanceSheet struct {
	Liabilities      []Line          `json:"liabilities"`
	Assets           []Line          `json:"assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	// Total is the larger side; the column total lines carry their own sums.
	Total    decimal.Decimal `json:"total"`
	Balanced bool            `json:"balanced"`
}

// BuildBalanceSheet lays out liabilities (capital first) followed by assets and
// a single total line. Sub-groups roll into their primary group. The capital
// header is always present and absorbs the opening and period results.
func BuildBalanceSheet(in BalanceSheetInput) BalanceSheet {
	buckets := balanceSheetBuckets(in.Accounts)
	asm := newAssembly(SideNone)
	liabilities := emitLiabilities(asm, buckets, in)
	assets := emitAssets(asm, buckets)
	total := maxAbs(liabilities, assets)
	asm.emit(Line{Level: 0, Name: "Total", Amount: total, IsTotal: true})
	return BalanceSheet{
		Lines:            asm.lines,
		TotalLiabilities: liabilities,
		TotalAssets:      assets,
		Total:            total,
		Balanced:         balances.Negligible(liabilities.Sub(assets)),
	}
}

// BuildHorizontalBalanceSheet assembles the two sides independently and pads
// the shorter one so both total lines share a row. Each column totals its own
// side so an unbalanced ledger shows two different figures.
func BuildHorizontalBalanceSheet(in BalanceSheetInput) HorizontalBalanceSheet {
	buckets := balanceSheetBuckets(in.Accounts)

	left := newAssembly(SideLiabilities)
	liabilities := emitLiabilities(left, buckets, in)
	right := newAssembly(SideAssets)
	assets := emitAssets(right, buckets)

	left.emit(Line{Level: 0, Name: "Total", Amount: liabilities.Abs(), IsTotal: true})
	right.emit(Line{Level: 0, Name: "Total", Amount: assets.Abs(), IsTotal: true})

	l, r := PadToAlign(left.lines, right.lines)
	return HorizontalBalanceSheet{
		Liabilities:      l,
		Assets:           r,
		TotalLiabilities: liabilities,
		TotalAssets:      assets,
		Total:            maxAbs(liabilities, assets),
		Balanced:         balances.Negligible(liabilities.Sub(assets)),
	}
}

// PadToAlign inserts blank lines before the trailing line of the shorter list
// until both lists have the same length, then renumbers each list. The inputs
// are not modified.
func PadToAlign(left, right []Line) ([]Line, []Line) {
	return padTo(left, len(right)), padTo(right, len(left))
}

func padTo(lines []Line, other int) []Line {
	out := make([]Line, 0, max(len(lines), other))
	missing := other - len(lines)
	if missing <= 0 || len(lines) == 0 {
		out = append(out, lines...)
		return resequence(out)
	}
	side := lines[len(lines)-1].Side
	out = append(out, lines[:len(lines)-1]...)
	for i := 0; i < missing; i++ {
		out = append(out, Line{Side: side})
	}
	out = append(out, lines[len(lines)-1])
	return resequence(out)
}

func resequence(lines []Line) []Line {
	for i := range lines {
		lines[i].Sequence = (i + 1) * sequenceStep
	}
	return lines
}

func balanceSheetBuckets(accounts []AccountBalance) map[classify.Group][]AccountBalance {
	return bucket(accounts, func(a AccountBalance) (classify.Group, bool) {
		g := a.Group()
		return g.Primary(), g.Section().BalanceSheet()
	})
}

// emitLiabilities writes the capital group, the results folded into it and the
// remaining liability groups. It returns the side total in natural sign.
func emitLiabilities(asm *assembly, buckets map[classify.Group][]AccountBalance, in BalanceSheetInput) decimal.Decimal {
	total := decimal.Zero
	for _, g := range classify.LiabilitiesOrder {
		members := buckets[g]
		if g != classify.CapitalAccount {
			if len(members) > 0 {
				total = total.Add(emitGroup(asm, g, members))
			}
			continue
		}

		subtotal := emitGroup(asm, g, members)
		header := len(asm.lines) - len(members) - 1
		if balances.Significant(in.OpeningNet) {
			asm.emit(Line{Level: 1, Name: OpeningProfitLabel, Amount: in.OpeningNet})
			subtotal = subtotal.Add(in.OpeningNet)
		}
		if balances.Significant(in.PeriodNet) {
			asm.emit(Line{Level: 1, Name: NetLabel(in.PeriodNet), Amount: in.PeriodNet, IsNetResult: true})
			subtotal = subtotal.Add(in.PeriodNet)
		}
		asm.lines[header].Amount = subtotal
		total = total.Add(subtotal)
	}
	return total
}

func emitAssets(asm *assembly, buckets map[classify.Group][]AccountBalance) decimal.Decimal {
	total := decimal.Zero
	for _, g := range classify.AssetsOrder {
		if members := buckets[g]; len(members) > 0 {
			total = total.Add(emitGroup(asm, g, members))
		}
	}
	return total
}
