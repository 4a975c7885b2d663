package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/db"
)

// ErrRunNotFound indicates no run has been stored for a key.
var ErrRunNotFound = errors.New("runs: run not found")

// Schema creates the run tables.
const Schema = `
CREATE TABLE IF NOT EXISTS report_runs (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	company_id BIGINT NOT NULL,
	date_from DATE,
	date_to DATE NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS report_runs_key_idx
	ON report_runs (kind, company_id, COALESCE(date_from, '0001-01-01'::date), date_to);
CREATE TABLE IF NOT EXISTS report_lines (
	run_id UUID NOT NULL REFERENCES report_runs(id) ON DELETE CASCADE,
	side TEXT NOT NULL DEFAULT '',
	sequence INT NOT NULL,
	level INT NOT NULL,
	name TEXT NOT NULL,
	code TEXT NOT NULL DEFAULT '',
	amount NUMERIC(20,4) NOT NULL DEFAULT 0,
	debit NUMERIC(20,4) NOT NULL DEFAULT 0,
	credit NUMERIC(20,4) NOT NULL DEFAULT 0,
	is_group BOOLEAN NOT NULL DEFAULT FALSE,
	is_total BOOLEAN NOT NULL DEFAULT FALSE,
	is_net_result BOOLEAN NOT NULL DEFAULT FALSE,
	anomaly BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (run_id, side, sequence)
);`

var lineColumns = []string{
	"run_id", "side", "sequence", "level", "name", "code", "amount", "debit", "credit",
	"is_group", "is_total", "is_net_result", "anomaly",
}

// Store persists runs in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the run tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("runs: ensure schema: %w", err)
	}
	return nil
}

// Replace deletes the previous run of the key and writes the new one in a
// single transaction, so readers see either the old set or the new set.
func (s *Store) Replace(ctx context.Context, run Run) error {
	if s == nil || s.pool == nil {
		return errors.New("runs: store not initialised")
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM report_runs
WHERE kind = $1 AND company_id = $2 AND date_from IS NOT DISTINCT FROM $3 AND date_to = $4`,
			string(run.Key.Kind), run.Key.CompanyID, nullDate(run.Key.From), run.Key.To); err != nil {
			return fmt.Errorf("runs: delete previous: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO report_runs (id, kind, company_id, date_from, date_to, generated_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
			run.ID, string(run.Key.Kind), run.Key.CompanyID, nullDate(run.Key.From), run.Key.To, run.GeneratedAt); err != nil {
			return fmt.Errorf("runs: insert run: %w", err)
		}
		rows := make([][]any, 0, len(run.Lines))
		for _, l := range run.Lines {
			rows = append(rows, []any{
				run.ID, string(l.Side), l.Sequence, l.Level, l.Name, l.Code,
				numeric(l.Amount), numeric(l.Debit), numeric(l.Credit), l.IsGroup, l.IsTotal, l.IsNetResult, l.Anomaly,
			})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"report_lines"}, lineColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("runs: copy lines: %w", err)
		}
		return nil
	})
}

// Latest loads the stored run of a key. Header and lines are read from one
// snapshot so a concurrent Replace is never observed half way.
func (s *Store) Latest(ctx context.Context, key Key) (Run, error) {
	if s == nil || s.pool == nil {
		return Run{}, errors.New("runs: store not initialised")
	}
	run := Run{Key: key}
	err := db.WithSnapshot(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT id, generated_at FROM report_runs
WHERE kind = $1 AND company_id = $2 AND date_from IS NOT DISTINCT FROM $3 AND date_to = $4`,
			string(key.Kind), key.CompanyID, nullDate(key.From), key.To).Scan(&run.ID, &run.GeneratedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRunNotFound
		}
		if err != nil {
			return fmt.Errorf("runs: load run: %w", err)
		}

		rows, err := tx.Query(ctx, `SELECT side, sequence, level, name, code, amount, debit, credit,
       is_group, is_total, is_net_result, anomaly
FROM report_lines WHERE run_id = $1 ORDER BY side DESC, sequence`, run.ID)
		if err != nil {
			return fmt.Errorf("runs: load lines: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				l    reports.Line
				side string
			)
			if err := rows.Scan(&side, &l.Sequence, &l.Level, &l.Name, &l.Code, &l.Amount, &l.Debit, &l.Credit,
				&l.IsGroup, &l.IsTotal, &l.IsNetResult, &l.Anomaly); err != nil {
				return fmt.Errorf("runs: scan line: %w", err)
			}
			l.Side = reports.Side(side)
			run.Lines = append(run.Lines, l)
		}
		return rows.Err()
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// numeric converts for COPY, which only speaks the binary format.
func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
