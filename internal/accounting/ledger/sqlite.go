package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
)

// sqliteSchema mirrors the host ledger tables. Amounts are stored as decimal
// text and summed in Go so no precision is lost to REAL arithmetic.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY,
	company_id INTEGER NOT NULL,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	account_type TEXT NOT NULL,
	reconcile INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS journal_entries (
	id INTEGER PRIMARY KEY,
	company_id INTEGER NOT NULL,
	date TEXT NOT NULL,
	state TEXT NOT NULL DEFAULT 'posted',
	move_type TEXT NOT NULL DEFAULT 'entry'
);
CREATE TABLE IF NOT EXISTS journal_lines (
	id INTEGER PRIMARY KEY,
	entry_id INTEGER NOT NULL REFERENCES journal_entries(id),
	account_id INTEGER NOT NULL REFERENCES accounts(id),
	debit TEXT NOT NULL DEFAULT '0',
	credit TEXT NOT NULL DEFAULT '0'
);
CREATE TABLE IF NOT EXISTS settlements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	debit_line_id INTEGER NOT NULL REFERENCES journal_lines(id),
	credit_line_id INTEGER NOT NULL REFERENCES journal_lines(id),
	amount TEXT NOT NULL,
	date TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_lines_account ON journal_lines(account_id);
CREATE INDEX IF NOT EXISTS idx_journal_entries_company_date ON journal_entries(company_id, date);
`

// SQLiteSource reads an offline ledger file.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating when missing) a SQLite ledger file with foreign keys
// and WAL enabled.
func OpenSQLite(path string) (*SQLiteSource, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: initialise schema: %w", err)
	}
	return &SQLiteSource{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the ledger file location.
func (s *SQLiteSource) Path() string {
	return s.path
}

// Import copies every account, entry and settlement of a memory ledger into the file.
func (s *SQLiteSource) Import(ctx context.Context, src *MemorySource) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	src.mu.RLock()
	defer src.mu.RUnlock()
	for _, a := range src.accounts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO accounts (id, company_id, code, name, account_type, reconcile) VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.CompanyID, a.Code, a.Name, string(a.Type), a.Reconcile); err != nil {
			return fmt.Errorf("ledger: import account %d: %w", a.ID, err)
		}
	}
	for _, e := range src.entries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO journal_entries (id, company_id, date, state, move_type) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.CompanyID, e.Date.Format(fixtureDateLayout), string(e.State), string(e.Type)); err != nil {
			return fmt.Errorf("ledger: import entry %d: %w", e.ID, err)
		}
		for _, p := range e.Postings {
			if _, err := tx.ExecContext(ctx, `INSERT INTO journal_lines (id, entry_id, account_id, debit, credit) VALUES (?, ?, ?, ?, ?)`,
				p.ID, e.ID, p.AccountID, p.Debit.String(), p.Credit.String()); err != nil {
				return fmt.Errorf("ledger: import line %d: %w", p.ID, err)
			}
		}
	}
	for _, st := range src.settlements {
		if _, err := tx.ExecContext(ctx, `INSERT INTO settlements (debit_line_id, credit_line_id, amount, date) VALUES (?, ?, ?, ?)`,
			st.DebitPostingID, st.CreditPostingID, st.Amount.String(), st.Date.Format(fixtureDateLayout)); err != nil {
			return fmt.Errorf("ledger: import settlement: %w", err)
		}
	}
	return tx.Commit()
}

// AccountsByType implements Source.
func (s *SQLiteSource) AccountsByType(ctx context.Context, companyID int64, types []AccountType) ([]Account, error) {
	if len(types) == 0 {
		return nil, nil
	}
	args := []any{companyID}
	for _, t := range types {
		args = append(args, string(t))
	}
	query := `SELECT id, company_id, code, name, account_type, reconcile FROM accounts
WHERE company_id = ? AND account_type IN (` + placeholders(len(types)) + `) ORDER BY code, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: accounts by type: %w", err)
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var (
			a       Account
			accType string
		)
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &accType, &a.Reconcile); err != nil {
			return nil, fmt.Errorf("ledger: scan account: %w", err)
		}
		a.Type = AccountType(accType)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Aggregate implements Source.
func (s *SQLiteSource) Aggregate(ctx context.Context, q AggregateQuery) (map[int64]Totals, error) {
	result := make(map[int64]Totals)
	if len(q.AccountIDs) == 0 {
		return result, nil
	}
	var sb strings.Builder
	sb.WriteString(`SELECT l.account_id, l.debit, l.credit FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.company_id = ? AND l.account_id IN (`)
	sb.WriteString(placeholders(len(q.AccountIDs)))
	sb.WriteString(`)`)
	args := []any{q.CompanyID}
	for _, id := range q.AccountIDs {
		args = append(args, id)
	}
	if !q.DateFrom.IsZero() {
		sb.WriteString(` AND e.date >= ?`)
		args = append(args, q.DateFrom.Format(fixtureDateLayout))
	}
	if !q.DateTo.IsZero() {
		sb.WriteString(` AND e.date <= ?`)
		args = append(args, q.DateTo.Format(fixtureDateLayout))
	}
	if q.PostedOnly {
		sb.WriteString(` AND e.state = 'posted'`)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: aggregate: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			accountID     int64
			debit, credit string
		)
		if err := rows.Scan(&accountID, &debit, &credit); err != nil {
			return nil, fmt.Errorf("ledger: scan line: %w", err)
		}
		d, err := decimal.NewFromString(debit)
		if err != nil {
			return nil, fmt.Errorf("ledger: account %d debit: %w", accountID, err)
		}
		c, err := decimal.NewFromString(credit)
		if err != nil {
			return nil, fmt.Errorf("ledger: account %d credit: %w", accountID, err)
		}
		tot := result[accountID]
		tot.Debit = tot.Debit.Add(d)
		tot.Credit = tot.Credit.Add(c)
		result[accountID] = tot
	}
	return result, rows.Err()
}

// Residuals implements Source.
func (s *SQLiteSource) Residuals(ctx context.Context, q ResidualQuery) (map[int64]decimal.Decimal, error) {
	result := make(map[int64]decimal.Decimal)
	if len(q.AccountIDs) == 0 {
		return result, nil
	}
	asOf := q.AsOf.Format(fixtureDateLayout)
	if q.AsOf.IsZero() {
		asOf = time.Now().Format(fixtureDateLayout)
	}

	debitSettled, creditSettled, err := s.settledByLine(ctx, asOf)
	if err != nil {
		return nil, err
	}

	docs := DocumentTypes
	args := []any{q.CompanyID, asOf}
	for _, d := range docs {
		args = append(args, string(d))
	}
	for _, id := range q.AccountIDs {
		args = append(args, id)
	}
	query := `SELECT l.id, l.entry_id, l.account_id, l.debit, l.credit FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.company_id = ? AND e.state = 'posted' AND e.date <= ?
  AND e.move_type IN (` + placeholders(len(docs)) + `)
  AND l.account_id IN (` + placeholders(len(q.AccountIDs)) + `)
ORDER BY l.entry_id, l.account_id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: residual lines: %w", err)
	}
	defer rows.Close()

	type docKey struct{ entry, account int64 }
	perDocument := make(map[docKey]decimal.Decimal)
	for rows.Next() {
		var (
			p             Posting
			entryID       int64
			debit, credit string
		)
		if err := rows.Scan(&p.ID, &entryID, &p.AccountID, &debit, &credit); err != nil {
			return nil, fmt.Errorf("ledger: scan residual line: %w", err)
		}
		if p.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("ledger: line %d debit: %w", p.ID, err)
		}
		if p.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("ledger: line %d credit: %w", p.ID, err)
		}
		key := docKey{entry: entryID, account: p.AccountID}
		perDocument[key] = perDocument[key].Add(postingResidual(p, debitSettled, creditSettled))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for key, residual := range perDocument {
		if residual.Abs().LessThanOrEqual(DocumentThreshold) {
			continue
		}
		result[key.account] = result[key.account].Add(residual)
	}
	return result, nil
}

func (s *SQLiteSource) settledByLine(ctx context.Context, asOf string) (map[int64]decimal.Decimal, map[int64]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT debit_line_id, credit_line_id, amount FROM settlements WHERE date <= ?`, asOf)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: settlements: %w", err)
	}
	defer rows.Close()
	debitSettled := make(map[int64]decimal.Decimal)
	creditSettled := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			debitLine, creditLine int64
			raw                   string
		)
		if err := rows.Scan(&debitLine, &creditLine, &raw); err != nil {
			return nil, nil, fmt.Errorf("ledger: scan settlement: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger: settlement amount: %w", err)
		}
		debitSettled[debitLine] = debitSettled[debitLine].Add(amount)
		creditSettled[creditLine] = creditSettled[creditLine].Add(amount)
	}
	return debitSettled, creditSettled, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var _ Source = (*SQLiteSource)(nil)
