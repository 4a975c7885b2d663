// Package export renders assembled statements for download. It consumes report
// lines only and never recomputes balances.
package export

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
)

// WriteCSV writes a document as CSV. Trial balances get debit and credit
// columns, horizontal balance sheets are written side by side.
func WriteCSV(w io.Writer, doc reports.Document) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	var err error
	switch doc.Kind {
	case reports.KindTrialBalance:
		err = writeTrialBalanceCSV(writer, doc.Lines)
	case reports.KindBalanceSheetHorizontal:
		err = writeHorizontalCSV(writer, doc.Lines, doc.Right)
	default:
		err = writeAmountCSV(writer, doc.Lines)
	}
	if err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeTrialBalanceCSV(writer *csv.Writer, lines []reports.Line) error {
	if err := writer.Write([]string{"Particulars", "Code", "Debit", "Credit"}); err != nil {
		return err
	}
	for _, l := range lines {
		if err := writer.Write([]string{l.Name, l.Code, plain(l.Debit), plain(l.Credit)}); err != nil {
			return err
		}
	}
	return nil
}

func writeAmountCSV(writer *csv.Writer, lines []reports.Line) error {
	if err := writer.Write([]string{"Particulars", "Code", "Amount"}); err != nil {
		return err
	}
	for _, l := range lines {
		if err := writer.Write([]string{l.Name, l.Code, plain(l.Amount)}); err != nil {
			return err
		}
	}
	return nil
}

func writeHorizontalCSV(writer *csv.Writer, left, right []reports.Line) error {
	if err := writer.Write([]string{"Liabilities", "Amount", "Assets", "Amount"}); err != nil {
		return err
	}
	left, right = reports.PadToAlign(left, right)
	for i := range left {
		if err := writer.Write([]string{
			left[i].Name, cell(left[i]),
			right[i].Name, cell(right[i]),
		}); err != nil {
			return err
		}
	}
	return nil
}

func cell(l reports.Line) string {
	if l.IsSpacer() {
		return ""
	}
	return plain(l.Amount)
}

func plain(d decimal.Decimal) string {
	return d.StringFixed(2)
}
