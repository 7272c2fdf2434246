// Package postgres implements the ledger store on a PostgreSQL pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"despesas/internal/core"
	"despesas/internal/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    id          BIGSERIAL PRIMARY KEY,
    user_id     TEXT NOT NULL,
    kind        TEXT NOT NULL CHECK (kind IN ('expense', 'income')),
    amount      NUMERIC(18, 4) NOT NULL,
    category    TEXT NOT NULL DEFAULT '',
    date        DATE NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_records_user_date ON records (user_id, date DESC);
CREATE TABLE IF NOT EXISTS budgets (
    user_id    TEXT NOT NULL,
    month_key  TEXT NOT NULL,
    amount     NUMERIC(18, 4) NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, month_key)
);`

// Store implements ledger.Store on a pgx connection pool. Amounts are
// NUMERIC columns scanned as text so they reach the core as exact
// decimals.
type Store struct {
	pool *pgxpool.Pool
}

var _ ledger.Store = (*Store)(nil)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) FetchRecords(ctx context.Context, userID string) ([]core.RawRecord, error) {
	if userID == "" {
		return nil, ledger.ErrNotAuthenticated
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, kind, amount::text, category, to_char(date, 'YYYY-MM-DD'), description
		 FROM records WHERE user_id = $1 ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", ledger.ErrStoreUnavailable)
	}
	defer rows.Close()

	var records []core.RawRecord
	for rows.Next() {
		var rec core.RawRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Amount, &rec.Category, &rec.Date, &rec.Description); err != nil {
			slog.WarnContext(ctx, "Skipping unreadable record row", "user_id", userID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", ledger.ErrStoreUnavailable)
	}
	return records, nil
}

func (s *Store) FetchBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	if userID == "" {
		return nil, ledger.ErrNotAuthenticated
	}
	rows, err := s.pool.Query(ctx,
		`SELECT month_key, amount::text FROM budgets WHERE user_id = $1 ORDER BY month_key`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", ledger.ErrStoreUnavailable)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var key, amount string
		if err := rows.Scan(&key, &amount); err != nil {
			slog.WarnContext(ctx, "Skipping unreadable budget row", "user_id", userID, "error", err)
			continue
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			slog.WarnContext(ctx, "Skipping budget with malformed amount",
				"user_id", userID, "month_key", key, "amount", amount)
			continue
		}
		budgets = append(budgets, core.Budget{MonthKey: core.MonthKey(key), Amount: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read budgets: %w", ledger.ErrStoreUnavailable)
	}
	return budgets, nil
}

func (s *Store) CreateRecord(ctx context.Context, userID string, raw core.RawRecord) (string, error) {
	if userID == "" {
		return "", ledger.ErrNotAuthenticated
	}
	rec, err := raw.Parse()
	if err != nil {
		return "", err
	}
	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO records (user_id, kind, amount, category, date, description)
		 VALUES ($1, $2, $3::numeric, $4, $5::date, $6) RETURNING id::text`,
		userID, string(rec.Kind), rec.Amount.String(), rec.Category, rec.Date.String(), rec.Description).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", ledger.ErrStoreUnavailable)
	}
	return id, nil
}

func (s *Store) UpdateRecord(ctx context.Context, userID, id string, raw core.RawRecord) error {
	if userID == "" {
		return ledger.ErrNotAuthenticated
	}
	raw.ID = id
	rec, err := raw.Parse()
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE records SET kind = $1, amount = $2::numeric, category = $3, date = $4::date, description = $5
		 WHERE id::text = $6 AND user_id = $7`,
		string(rec.Kind), rec.Amount.String(), rec.Category, rec.Date.String(), rec.Description, id, userID)
	if err != nil {
		return fmt.Errorf("update record: %w", ledger.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ledger.ErrNotAuthenticated
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM records WHERE id::text = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete record: %w", ledger.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

func (s *Store) UpsertBudget(ctx context.Context, userID string, key core.MonthKey, amount decimal.Decimal) error {
	if userID == "" {
		return ledger.ErrNotAuthenticated
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO budgets (user_id, month_key, amount, updated_at)
		 VALUES ($1, $2, $3::numeric, now())
		 ON CONFLICT (user_id, month_key)
		 DO UPDATE SET amount = EXCLUDED.amount, updated_at = now()`,
		userID, string(key), amount.String())
	if err != nil {
		return fmt.Errorf("upsert budget: %w", ledger.ErrStoreUnavailable)
	}
	return nil
}
