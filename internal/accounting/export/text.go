package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
)

// TextRenderer prints documents as aligned plain text for terminals.
type TextRenderer struct {
	group string
	point string
}

// NewTextRenderer builds a renderer that groups digits for the given locale.
// An undefined tag falls back to English.
func NewTextRenderer(tag language.Tag) *TextRenderer {
	if tag == language.Und {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	return &TextRenderer{
		group: strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%d", 1000), "1"), "000"),
		point: strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%.1f", 1.5), "1"), "5"),
	}
}

// Amount formats an amount with two decimals and digit grouping. The digits
// come from the decimal itself so large amounts keep their precision.
func (r *TextRenderer) Amount(d decimal.Decimal) string {
	digits, neg := strings.CutPrefix(d.StringFixed(2), "-")
	whole, frac, _ := strings.Cut(digits, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(r.group)
		}
		b.WriteRune(c)
	}
	b.WriteString(r.point)
	b.WriteString(frac)
	return b.String()
}

// Render writes the document heading and lines.
func (r *TextRenderer) Render(w io.Writer, doc reports.Document) error {
	if doc.CompanyName != "" {
		if _, err := fmt.Fprintln(w, doc.CompanyName); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s\n%s\n\n", doc.Kind.Title(), doc.Subtitle); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	switch doc.Kind {
	case reports.KindTrialBalance:
		fmt.Fprintln(tw, "Particulars\t\tDebit\tCredit\t")
		for _, l := range doc.Lines {
			fmt.Fprintf(tw, "%s\t\t%s\t%s\t\n", r.label(l), r.blankZero(l.Debit), r.blankZero(l.Credit))
		}
	case reports.KindBalanceSheetHorizontal:
		left, right := reports.PadToAlign(doc.Lines, doc.Right)
		fmt.Fprintln(tw, "Liabilities\t\tAmount\t\tAssets\t\tAmount\t")
		for i := range left {
			fmt.Fprintf(tw, "%s\t\t%s\t\t%s\t\t%s\t\n", r.label(left[i]), r.cell(left[i]), r.label(right[i]), r.cell(right[i]))
		}
	default:
		fmt.Fprintln(tw, "Particulars\t\tAmount\t")
		for _, l := range doc.Lines {
			fmt.Fprintf(tw, "%s\t\t%s\t\n", r.label(l), r.cell(l))
		}
	}
	return tw.Flush()
}

func (r *TextRenderer) label(l reports.Line) string {
	return strings.Repeat("  ", l.Level) + l.Name
}

func (r *TextRenderer) cell(l reports.Line) string {
	if l.IsSpacer() || l.Name == reports.PlaceholderText {
		return ""
	}
	return r.Amount(l.Amount)
}

func (r *TextRenderer) blankZero(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return r.Amount(d)
}
