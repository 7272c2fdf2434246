// Package services orchestrates the ledger store, the aggregation engine
// and the event stream.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"despesas/internal/core"
	"despesas/internal/ledger"
)

// Status is the coordinator's published state machine position.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// DiagnosticLoadFailed is the user-facing message published on fetch
// failure.
const DiagnosticLoadFailed = "could not load financial data"

// Snapshot is the view published to the UI layer: the sorted record set,
// the budgets, the derived summary and the coordinator status.
type Snapshot struct {
	Status     Status
	Records    []core.LedgerRecord
	Budgets    []core.Budget
	Summary    core.FinancialSummary
	Diagnostic string
}

// Coordinator owns the current record and budget set for one user
// session, keeps the derived summary in sync with it and exposes both to
// the UI layer. Aggregation itself is pure and synchronous; the only
// suspension point is the store fetch, so refreshes are serialized by a
// sequence number and an older fetch can never overwrite a newer one.
type Coordinator struct {
	store ledger.Store
	now   func() time.Time

	mu     sync.Mutex
	userID string
	seq    uint64 // latest started fetch
	snap   Snapshot
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock substitutes the reference clock, used by tests to pin the
// current month.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator builds a coordinator over an injected store. The store
// is an explicit dependency so tests can substitute an in-memory one.
func NewCoordinator(store ledger.Store, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store: store,
		now:   time.Now,
		snap:  idleSnapshot(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func idleSnapshot() Snapshot {
	return Snapshot{Status: StatusIdle, Summary: core.ZeroSummary()}
}

// SetUser switches the active identity. Logout resets to an idle, zeroed
// snapshot and supersedes any in-flight fetch; login triggers a fresh
// load for the new identity.
func (c *Coordinator) SetUser(ctx context.Context, userID string) error {
	c.mu.Lock()
	c.userID = userID
	c.seq++ // supersede anything in flight
	if userID == "" {
		c.snap = idleSnapshot()
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh runs one fetch-and-aggregate cycle: fetch records and budgets
// concurrently, parse and sort, aggregate, publish. On fetch failure the
// published state is cleared rather than left stale.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	userID := c.userID
	if userID == "" {
		// No active identity: an all-zero summary, not an error state.
		c.snap = idleSnapshot()
		c.mu.Unlock()
		return nil
	}
	c.seq++
	seq := c.seq
	c.snap.Status = StatusLoading
	c.mu.Unlock()

	var (
		raw     []core.RawRecord
		budgets []core.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		raw, err = c.store.FetchRecords(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = c.store.FetchBudgets(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if seq < c.seq {
			// A newer fetch superseded this one; discard silently.
			return nil
		}
		slog.ErrorContext(ctx, "Ledger fetch failed", "user_id", userID, "error", err)
		c.snap = Snapshot{
			Status:     StatusFailed,
			Summary:    core.ZeroSummary(),
			Diagnostic: DiagnosticLoadFailed,
		}
		return fmt.Errorf("fetch ledger: %w", err)
	}

	records, malformed := core.ParseRecords(raw)
	core.SortByDateDesc(records)
	summary := core.Aggregate(records, budgets, core.DateOf(c.now()))
	summary.Excluded += malformed

	var diagnostic string
	if summary.Excluded > 0 {
		diagnostic = fmt.Sprintf("%d malformed records excluded from totals", summary.Excluded)
		slog.WarnContext(ctx, "Malformed records excluded from aggregation",
			"user_id", userID, "excluded", summary.Excluded)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.seq {
		return nil
	}
	c.snap = Snapshot{
		Status:     StatusReady,
		Records:    records,
		Budgets:    budgets,
		Summary:    summary,
		Diagnostic: diagnostic,
	}
	return nil
}

// Snapshot returns the currently published view.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snap
	snap.Records = append([]core.LedgerRecord(nil), c.snap.Records...)
	snap.Budgets = append([]core.Budget(nil), c.snap.Budgets...)
	return snap
}
