package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the host ledger tables through pgx.
type PostgresSource struct {
	db Querier
}

// NewPostgresSource constructs a PostgresSource.
func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

const accountsByTypeSQL = `SELECT id, company_id, code, name, account_type, reconcile
FROM accounts
WHERE company_id = $1 AND account_type = ANY($2)
ORDER BY code, id`

// AccountsByType implements Source.
func (s *PostgresSource) AccountsByType(ctx context.Context, companyID int64, types []AccountType) ([]Account, error) {
	rows, err := s.db.Query(ctx, accountsByTypeSQL, companyID, typeStrings(types))
	if err != nil {
		return nil, fmt.Errorf("ledger: accounts by type: %w", err)
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.Reconcile); err != nil {
			return nil, fmt.Errorf("ledger: scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

const aggregateSQL = `SELECT l.account_id, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.company_id = $1
  AND l.account_id = ANY($2)
  AND ($3::date IS NULL OR e.date >= $3::date)
  AND ($4::date IS NULL OR e.date <= $4::date)
  AND (NOT $5 OR e.state = 'posted')
GROUP BY l.account_id`

// Aggregate implements Source with a single grouped query.
func (s *PostgresSource) Aggregate(ctx context.Context, q AggregateQuery) (map[int64]Totals, error) {
	result := make(map[int64]Totals)
	if len(q.AccountIDs) == 0 {
		return result, nil
	}
	rows, err := s.db.Query(ctx, aggregateSQL, q.CompanyID, q.AccountIDs, nullDate(q.DateFrom), nullDate(q.DateTo), q.PostedOnly)
	if err != nil {
		return nil, fmt.Errorf("ledger: aggregate: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			accountID int64
			tot       Totals
		)
		if err := rows.Scan(&accountID, &tot.Debit, &tot.Credit); err != nil {
			return nil, fmt.Errorf("ledger: scan aggregate: %w", err)
		}
		result[accountID] = tot
	}
	return result, rows.Err()
}

const residualsSQL = `WITH line_residual AS (
  SELECT l.entry_id, l.account_id,
    CASE
      WHEN l.debit - l.credit > 0 THEN (l.debit - l.credit) - COALESCE((
        SELECT SUM(s.amount) FROM settlements s WHERE s.debit_line_id = l.id AND s.date <= $3::date), 0)
      WHEN l.debit - l.credit < 0 THEN (l.debit - l.credit) + COALESCE((
        SELECT SUM(s.amount) FROM settlements s WHERE s.credit_line_id = l.id AND s.date <= $3::date), 0)
      ELSE 0
    END AS residual
  FROM journal_lines l
  JOIN journal_entries e ON e.id = l.entry_id
  WHERE e.company_id = $1
    AND l.account_id = ANY($2)
    AND e.state = 'posted'
    AND e.move_type = ANY($4)
    AND e.date <= $3::date
), document_residual AS (
  SELECT entry_id, account_id, SUM(residual) AS residual
  FROM line_residual
  GROUP BY entry_id, account_id
)
SELECT account_id, SUM(residual)
FROM document_residual
WHERE ABS(residual) > $5
GROUP BY account_id`

// Residuals implements Source. Settlement is evaluated as of q.AsOf so that a
// historical balance sheet shows what was owed on that date.
func (s *PostgresSource) Residuals(ctx context.Context, q ResidualQuery) (map[int64]decimal.Decimal, error) {
	result := make(map[int64]decimal.Decimal)
	if len(q.AccountIDs) == 0 {
		return result, nil
	}
	rows, err := s.db.Query(ctx, residualsSQL, q.CompanyID, q.AccountIDs, q.AsOf, documentStrings(), DocumentThreshold)
	if err != nil {
		return nil, fmt.Errorf("ledger: residuals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			accountID int64
			residual  decimal.Decimal
		)
		if err := rows.Scan(&accountID, &residual); err != nil {
			return nil, fmt.Errorf("ledger: scan residual: %w", err)
		}
		result[accountID] = residual
	}
	return result, rows.Err()
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ Source = (*PostgresSource)(nil)
