// Package worker keeps exported summaries in step with the ledger by
// reacting to change events and by running a periodic fallback refresh.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"despesas/internal/amqp"
	"despesas/internal/core"
	"despesas/internal/export"
	"despesas/internal/ledger"
	"despesas/internal/services"
)

// RefreshWorker rebuilds per-user financial summaries when ledger events
// arrive and exports the result.
type RefreshWorker struct {
	store  ledger.Store
	writer export.SummaryWriter
	now    func() time.Time

	mu           sync.Mutex
	coordinators map[string]*services.Coordinator
}

// Option configures a RefreshWorker.
type Option func(*RefreshWorker)

// WithClock overrides the reference time used for monthly aggregation.
func WithClock(now func() time.Time) Option {
	return func(w *RefreshWorker) {
		w.now = now
	}
}

// NewRefreshWorker creates a worker over a ledger store. The writer is
// optional; without one the worker only refreshes the in-memory summaries.
func NewRefreshWorker(store ledger.Store, writer export.SummaryWriter, opts ...Option) *RefreshWorker {
	w := &RefreshWorker{
		store:        store,
		writer:       writer,
		now:          time.Now,
		coordinators: make(map[string]*services.Coordinator),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *RefreshWorker) coordinatorFor(ctx context.Context, userID string) (*services.Coordinator, error) {
	w.mu.Lock()
	coord, ok := w.coordinators[userID]
	if !ok {
		coord = services.NewCoordinator(w.store, services.WithClock(w.now))
		w.coordinators[userID] = coord
	}
	w.mu.Unlock()

	if !ok {
		if err := coord.SetUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return coord, nil
}

// HandleLedgerEvent processes a single ledger change event: the affected
// user's summary is recomputed and, when an export destination is
// configured, pushed out.
func (w *RefreshWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"user_id", msg.UserID,
		"record_id", msg.RecordID,
		"action", msg.Action)

	coord, err := w.coordinatorFor(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("coordinator for user: %w", err)
	}

	if err := coord.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh summary: %w", err)
	}

	snap := coord.Snapshot()
	if snap.Status != services.StatusReady {
		return fmt.Errorf("summary not ready after refresh: %s", snap.Status)
	}

	return w.exportSnapshot(ctx, msg.UserID, snap)
}

// RefreshAll recomputes every known user's summary. This is the ticker
// fallback for events lost while the worker was down.
func (w *RefreshWorker) RefreshAll(ctx context.Context) error {
	w.mu.Lock()
	users := make([]string, 0, len(w.coordinators))
	for userID := range w.coordinators {
		users = append(users, userID)
	}
	w.mu.Unlock()

	if len(users) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Running periodic summary refresh", "users", len(users))

	var failed int
	for _, userID := range users {
		coord, err := w.coordinatorFor(ctx, userID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get coordinator", "user_id", userID, "error", err)
			failed++
			continue
		}
		if err := coord.Refresh(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh summary", "user_id", userID, "error", err)
			failed++
			continue
		}
		snap := coord.Snapshot()
		if snap.Status != services.StatusReady {
			failed++
			continue
		}
		if err := w.exportSnapshot(ctx, userID, snap); err != nil {
			slog.ErrorContext(ctx, "Failed to export summary", "user_id", userID, "error", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("periodic refresh: %d of %d users failed", failed, len(users))
	}
	return nil
}

// Run consumes ledger events until the context is cancelled, refreshing
// on a timer as a safety net. consume is typically amqp.Client.ConsumeLedgerEvents;
// a nil consume leaves only the ticker path active.
func (w *RefreshWorker) Run(ctx context.Context, consume func(context.Context, func(context.Context, *amqp.LedgerEventMessage) error) error, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	errCh := make(chan error, 1)
	if consume != nil {
		go func() {
			errCh <- consume(ctx, w.HandleLedgerEvent)
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("event consumer stopped: %w", err)
			}
			return nil
		case <-ticker.C:
			if err := w.RefreshAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic refresh failed", "error", err)
			}
		}
	}
}

func (w *RefreshWorker) exportSnapshot(ctx context.Context, userID string, snap services.Snapshot) error {
	if w.writer == nil {
		return nil
	}

	monthKey := core.DateOf(w.now()).MonthKey()
	if err := w.writer.AppendSummary(ctx, monthKey, snap.Summary); err != nil {
		return fmt.Errorf("export summary: %w", err)
	}

	slog.InfoContext(ctx, "Exported summary",
		"user_id", userID,
		"month_key", string(monthKey))
	return nil
}
