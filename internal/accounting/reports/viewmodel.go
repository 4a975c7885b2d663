package reports

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies a statement layout.
type Kind string

const (
	KindTrialBalance           Kind = "trial_balance"
	KindProfitAndLoss          Kind = "profit_loss"
	KindBalanceSheet           Kind = "balance_sheet"
	KindBalanceSheetHorizontal Kind = "balance_sheet_horizontal"
)

// Kinds lists every statement layout.
var Kinds = []Kind{KindTrialBalance, KindProfitAndLoss, KindBalanceSheet, KindBalanceSheetHorizontal}

// ParseKind resolves a kind name, accepting dashes in place of underscores.
func ParseKind(raw string) (Kind, bool) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_"))
	for _, known := range Kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Title is the heading printed above the statement.
func (k Kind) Title() string {
	switch k {
	case KindTrialBalance:
		return "Trial Balance"
	case KindProfitAndLoss:
		return "Profit & Loss"
	case KindBalanceSheet, KindBalanceSheetHorizontal:
		return "Balance Sheet"
	default:
		return string(k)
	}
}

// Document is the presentation view of one generated statement.
type Document struct {
	Kind        Kind
	CompanyName string
	Subtitle    string
	Filename    string
	// Lines holds the single-column statements and the liabilities column of
	// the horizontal balance sheet; Right holds its assets column.
	Lines []Line
	Right []Line
}

// Subtitle formats the date caption of a statement.
func Subtitle(k Kind, from, to time.Time) string {
	if k == KindProfitAndLoss {
		return fmt.Sprintf("From %s To %s", from.Format("02-Jan-2006"), to.Format("02-Jan-2006"))
	}
	return "As on " + to.Format("02-Jan-2006")
}

// Filename is the download name without extension.
func Filename(k Kind, from, to time.Time) string {
	const layout = "02012006"
	switch k {
	case KindTrialBalance:
		return "Trial_Balance_" + to.Format(layout)
	case KindProfitAndLoss:
		return "Profit_Loss_" + from.Format(layout) + "_" + to.Format(layout)
	case KindBalanceSheetHorizontal:
		return "Balance_Sheet_Horizontal_" + to.Format(layout)
	default:
		return "Balance_Sheet_" + to.Format(layout)
	}
}
