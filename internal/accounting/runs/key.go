// Package runs persists generated statement line sets. Each key owns at most one
// run; regenerating replaces the previous run as a whole.
package runs

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
)

const dateLayout = "2006-01-02"

// Key identifies a statement request. From is zero for the trial balance.
type Key struct {
	Kind      reports.Kind `json:"kind"`
	CompanyID int64        `json:"company_id"`
	From      time.Time    `json:"from"`
	To        time.Time    `json:"to"`
}

// String renders the key in a stable form usable as a cache or lock suffix.
func (k Key) String() string {
	from := "-"
	if !k.From.IsZero() {
		from = k.From.Format(dateLayout)
	}
	return fmt.Sprintf("%s:%d:%s:%s", k.Kind, k.CompanyID, from, k.To.Format(dateLayout))
}

// Normalize truncates both dates to calendar days in UTC and clears From for the
// trial balance, which only depends on the closing date.
func (k Key) Normalize() Key {
	k.To = day(k.To)
	if k.Kind == reports.KindTrialBalance {
		k.From = time.Time{}
	} else {
		k.From = day(k.From)
	}
	return k
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Run is one generated statement. Horizontal balance sheets store both columns
// in Lines, told apart by Line.Side.
type Run struct {
	ID          uuid.UUID      `json:"id"`
	Key         Key            `json:"key"`
	GeneratedAt time.Time      `json:"generated_at"`
	Lines       []reports.Line `json:"lines"`
}

// Side returns the lines of one column in sequence order.
func (r Run) Side(side reports.Side) []reports.Line {
	var out []reports.Line
	for _, l := range r.Lines {
		if l.Side == side {
			out = append(out, l)
		}
	}
	return out
}
