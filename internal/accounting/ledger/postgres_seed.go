package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PostgresSchema creates the subset of the host ledger tables that
// PostgresSource reads. Real deployments already own these tables; the schema
// exists for local databases and fixtures.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id BIGINT PRIMARY KEY,
	company_id BIGINT NOT NULL,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	account_type TEXT NOT NULL,
	reconcile BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS journal_entries (
	id BIGINT PRIMARY KEY,
	company_id BIGINT NOT NULL,
	date DATE NOT NULL,
	state TEXT NOT NULL DEFAULT 'posted',
	move_type TEXT NOT NULL DEFAULT 'entry'
);
CREATE TABLE IF NOT EXISTS journal_lines (
	id BIGINT PRIMARY KEY,
	entry_id BIGINT NOT NULL REFERENCES journal_entries(id) ON DELETE CASCADE,
	account_id BIGINT NOT NULL REFERENCES accounts(id),
	debit NUMERIC(20,4) NOT NULL DEFAULT 0,
	credit NUMERIC(20,4) NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS settlements (
	id BIGSERIAL PRIMARY KEY,
	debit_line_id BIGINT NOT NULL REFERENCES journal_lines(id) ON DELETE CASCADE,
	credit_line_id BIGINT NOT NULL REFERENCES journal_lines(id) ON DELETE CASCADE,
	amount NUMERIC(20,4) NOT NULL,
	date DATE NOT NULL
);
CREATE INDEX IF NOT EXISTS journal_lines_account_idx ON journal_lines(account_id);
CREATE INDEX IF NOT EXISTS journal_entries_company_date_idx ON journal_entries(company_id, date);`

// SeedPostgres writes every account, entry and settlement of a memory ledger
// in one batch. Rows with an existing id are left untouched.
func SeedPostgres(ctx context.Context, tx pgx.Tx, src *MemorySource) error {
	src.mu.RLock()
	defer src.mu.RUnlock()

	batch := &pgx.Batch{}
	for _, a := range src.accounts {
		batch.Queue(`INSERT INTO accounts (id, company_id, code, name, account_type, reconcile)
VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			a.ID, a.CompanyID, a.Code, a.Name, string(a.Type), a.Reconcile)
	}
	for _, e := range src.entries {
		batch.Queue(`INSERT INTO journal_entries (id, company_id, date, state, move_type)
VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			e.ID, e.CompanyID, e.Date, string(e.State), string(e.Type))
		for _, p := range e.Postings {
			batch.Queue(`INSERT INTO journal_lines (id, entry_id, account_id, debit, credit)
VALUES ($1, $2, $3, $4::numeric, $5::numeric) ON CONFLICT (id) DO NOTHING`,
				p.ID, e.ID, p.AccountID, p.Debit.String(), p.Credit.String())
		}
	}
	for _, st := range src.settlements {
		batch.Queue(`INSERT INTO settlements (debit_line_id, credit_line_id, amount, date)
VALUES ($1, $2, $3::numeric, $4)`,
			st.DebitPostingID, st.CreditPostingID, st.Amount.String(), st.Date)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("ledger: seed postgres: %w", err)
	}
	return nil
}
