package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"despesas/internal/core"
	"despesas/internal/ledger"
)

// SQLiteRepository implements ledger.Store on a local SQLite database.
// Amounts are stored as exact decimal text and dates as YYYY-MM-DD text;
// parsing back into the working representation happens at the core
// boundary.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) FetchRecords(ctx context.Context, userID string) ([]core.RawRecord, error) {
	if userID == "" {
		return nil, ledger.ErrNotAuthenticated
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, amount, category, date, description
		 FROM records WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", ledger.ErrStoreUnavailable)
	}
	defer rows.Close()

	var records []core.RawRecord
	for rows.Next() {
		var id int64
		var rec core.RawRecord
		if err := rows.Scan(&id, &rec.Kind, &rec.Amount, &rec.Category, &rec.Date, &rec.Description); err != nil {
			slog.WarnContext(ctx, "Skipping unreadable record row", "user_id", userID, "error", err)
			continue
		}
		rec.ID = strconv.FormatInt(id, 10)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", ledger.ErrStoreUnavailable)
	}
	return records, nil
}

func (r *SQLiteRepository) FetchBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	if userID == "" {
		return nil, ledger.ErrNotAuthenticated
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT month_key, amount FROM budgets WHERE user_id = ? ORDER BY month_key`, userID)
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

func (r *SQLiteRepository) CreateRecord(ctx context.Context, userID string, raw core.RawRecord) (string, error) {
	if userID == "" {
		return "", ledger.ErrNotAuthenticated
	}
	rec, err := raw.Parse()
	if err != nil {
		return "", err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO records (user_id, kind, amount, category, date, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, string(rec.Kind), rec.Amount.String(), rec.Category, rec.Date.String(), rec.Description)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", ledger.ErrStoreUnavailable)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("record id: %w", ledger.ErrStoreUnavailable)
	}

	slog.InfoContext(ctx, "Record saved",
		"id", id,
		"user_id", userID,
		"kind", rec.Kind,
		"amount", rec.Amount.String(),
		"date", rec.Date.String())

	return strconv.FormatInt(id, 10), nil
}

func (r *SQLiteRepository) UpdateRecord(ctx context.Context, userID, id string, raw core.RawRecord) error {
	if userID == "" {
		return ledger.ErrNotAuthenticated
	}
	raw.ID = id
	rec, err := raw.Parse()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE records SET kind = ?, amount = ?, category = ?, date = ?, description = ?
		 WHERE id = ? AND user_id = ?`,
		string(rec.Kind), rec.Amount.String(), rec.Category, rec.Date.String(), rec.Description, id, userID)
	if err != nil {
		return fmt.Errorf("update record: %w", ledger.ErrStoreUnavailable)
	}
	return requireAffected(res, id)
}

func (r *SQLiteRepository) DeleteRecord(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ledger.ErrNotAuthenticated
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete record: %w", ledger.ErrStoreUnavailable)
	}
	return requireAffected(res, id)
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, userID string, key core.MonthKey, amount decimal.Decimal) error {
	if userID == "" {
		return ledger.ErrNotAuthenticated
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, month_key, amount, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, month_key)
		 DO UPDATE SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP`,
		userID, string(key), amount.String())
	if err != nil {
		return fmt.Errorf("upsert budget: %w", ledger.ErrStoreUnavailable)
	}

	slog.InfoContext(ctx, "Budget upserted",
		"user_id", userID,
		"month_key", key,
		"amount", amount.String())

	return nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", ledger.ErrStoreUnavailable)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// Healthy reports whether the database answers a ping.
func (r *SQLiteRepository) Healthy(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return errors.Join(ledger.ErrStoreUnavailable, err)
	}
	return nil
}
