// Package ledger defines the boundary contract between the aggregation
// engine and whatever stores a user's records and budgets.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"despesas/internal/core"
)

var (
	// ErrStoreUnavailable signals a transient failure reaching the
	// backing store. The coordinator treats it as a fetch failure and
	// fails closed.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	// ErrNotAuthenticated signals that the store rejected the session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound signals that a record id does not exist for the user.
	ErrNotFound = errors.New("record not found")
)

// Store is the port every ledger backend implements. All data is scoped
// per authenticated identity; fetches return raw rows so numeric and
// date validation happens in exactly one place, at the core boundary.
type Store interface {
	FetchRecords(ctx context.Context, userID string) ([]core.RawRecord, error)
	FetchBudgets(ctx context.Context, userID string) ([]core.Budget, error)

	CreateRecord(ctx context.Context, userID string, raw core.RawRecord) (id string, err error)
	UpdateRecord(ctx context.Context, userID, id string, raw core.RawRecord) error
	DeleteRecord(ctx context.Context, userID, id string) error

	// UpsertBudget writes the monthly ceiling, last write wins.
	UpsertBudget(ctx context.Context, userID string, key core.MonthKey, amount decimal.Decimal) error
}
