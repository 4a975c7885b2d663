package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/runs"
)

var (
	// ErrValidation marks every rejected report request.
	ErrValidation = errors.New("accounting: invalid report request")
	// ErrCompanyRequired indicates a missing company scope.
	ErrCompanyRequired = fmt.Errorf("%w: company required", ErrValidation)
	// ErrInvalidDateRange indicates a start date after the end date or a missing end date.
	ErrInvalidDateRange = fmt.Errorf("%w: start date must not be after end date", ErrValidation)
	// ErrUnknownReport indicates an unsupported report kind.
	ErrUnknownReport = fmt.Errorf("%w: unknown report", ErrValidation)
	// ErrUnbalancedTrialBalance is returned in strict mode when debit and credit totals differ.
	ErrUnbalancedTrialBalance = errors.New("accounting: trial balance does not balance")
	// ErrGenerationInProgress indicates another worker holds the generation lock of a key.
	ErrGenerationInProgress = errors.New("accounting: report generation already running")
)

// TrialBalanceRequest asks for closing balances of every account as of a date.
type TrialBalanceRequest struct {
	CompanyID int64     `json:"company_id" validate:"required,gt=0"`
	AsOf      time.Time `json:"as_of" validate:"required"`
}

// PeriodRequest asks for the profit and loss over a closed date range.
type PeriodRequest struct {
	CompanyID int64     `json:"company_id" validate:"required,gt=0"`
	From      time.Time `json:"from" validate:"required"`
	To        time.Time `json:"to" validate:"required"`
}

// BalanceSheetRequest asks for a balance sheet as of To. From marks the start of
// the current period; results before it are shown as opening profit and loss.
type BalanceSheetRequest struct {
	CompanyID  int64     `json:"company_id" validate:"required,gt=0"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to" validate:"required"`
	Horizontal bool      `json:"horizontal"`
}

// RunStore persists generated line sets.
type RunStore interface {
	Replace(ctx context.Context, run runs.Run) error
	Latest(ctx context.Context, key runs.Key) (runs.Run, error)
}

func checkRange(from, to time.Time) error {
	if to.IsZero() {
		return ErrInvalidDateRange
	}
	if !from.IsZero() && from.After(to) {
		return ErrInvalidDateRange
	}
	return nil
}

// checkPeriod additionally requires a start date.
func checkPeriod(from, to time.Time) error {
	if from.IsZero() {
		return ErrInvalidDateRange
	}
	return checkRange(from, to)
}
