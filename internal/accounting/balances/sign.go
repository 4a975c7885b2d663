package balances

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/classify"
)

// Threshold is the materiality cutoff: balances below it are treated as zero.
var Threshold = decimal.New(1, -2)

// Negligible reports whether |d| is below the materiality threshold.
func Negligible(d decimal.Decimal) bool {
	return d.Abs().LessThan(Threshold)
}

// Significant reports whether |d| exceeds the threshold. Net result lines use
// this stricter test.
func Significant(d decimal.Decimal) bool {
	return d.Abs().GreaterThan(Threshold)
}

// Natural converts a raw debit-minus-credit balance into the natural sign of the
// section: assets and expenses stay as-is, liabilities, equity and income flip.
// A negative result is a balance against the natural side and is kept signed.
func Natural(section classify.Section, raw decimal.Decimal) decimal.Decimal {
	if section.DebitNatural() {
		return raw
	}
	return raw.Neg()
}

// Anomalous reports whether a natural-signed amount sits on the wrong side.
func Anomalous(natural decimal.Decimal) bool {
	return natural.IsNegative() && !Negligible(natural)
}
