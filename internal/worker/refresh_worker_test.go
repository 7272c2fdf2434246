package worker

import (
	"context"
	"testing"
	"time"

	"despesas/internal/amqp"
	"despesas/internal/core"
	exportmem "despesas/internal/export/memory"
	ledgermem "despesas/internal/ledger/memory"
)

func june20() time.Time {
	return time.Date(2025, time.June, 20, 12, 0, 0, 0, time.UTC)
}

func seedLedger(t *testing.T, store *ledgermem.Store, userID string) {
	t.Helper()
	ctx := context.Background()
	records := []core.RawRecord{
		{Kind: "expense", Amount: "100", Category: "Food", Date: "2025-06-01"},
		{Kind: "expense", Amount: "25", Category: "Transport", Date: "2025-06-15"},
		{Kind: "income", Amount: "1000", Date: "2025-06-01"},
	}
	for _, raw := range records {
		if _, err := store.CreateRecord(ctx, userID, raw); err != nil {
			t.Fatalf("CreateRecord() error = %v", err)
		}
	}
}

func TestRefreshWorker_HandleLedgerEvent(t *testing.T) {
	store := ledgermem.New()
	writer := exportmem.New()
	seedLedger(t, store, "user-1")

	w := NewRefreshWorker(store, writer, WithClock(june20))

	msg := amqp.NewLedgerEvent("user-1", "mem:1", amqp.ActionRecordCreated)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent() error = %v", err)
	}

	entries := writer.Entries()
	if len(entries) != 1 {
		t.Fatalf("Entries() len = %d, want 1", len(entries))
	}

	entry := entries[0]
	if entry.MonthKey != core.MonthKey("2025-06") {
		t.Errorf("exported MonthKey = %v, want 2025-06", entry.MonthKey)
	}
	if got := entry.Summary.TotalBalance.String(); got != "875" {
		t.Errorf("exported TotalBalance = %v, want 875", got)
	}
	if got := entry.Summary.MonthlyExpenseTotal.String(); got != "-125" {
		t.Errorf("exported MonthlyExpenseTotal = %v, want -125", got)
	}
	if len(entry.Summary.Distribution) != 2 {
		t.Errorf("exported Distribution len = %d, want 2", len(entry.Summary.Distribution))
	}
}

func TestRefreshWorker_HandleLedgerEventWithoutWriter(t *testing.T) {
	store := ledgermem.New()
	seedLedger(t, store, "user-1")

	w := NewRefreshWorker(store, nil, WithClock(june20))

	msg := amqp.NewLedgerEvent("user-1", "mem:1", amqp.ActionRecordUpdated)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent() error = %v", err)
	}
}

func TestRefreshWorker_RefreshAll(t *testing.T) {
	store := ledgermem.New()
	writer := exportmem.New()
	seedLedger(t, store, "user-1")
	seedLedger(t, store, "user-2")

	w := NewRefreshWorker(store, writer, WithClock(june20))

	ctx := context.Background()
	for _, userID := range []string{"user-1", "user-2"} {
		msg := amqp.NewLedgerEvent(userID, "mem:1", amqp.ActionRecordCreated)
		if err := w.HandleLedgerEvent(ctx, msg); err != nil {
			t.Fatalf("HandleLedgerEvent(%s) error = %v", userID, err)
		}
	}

	if err := w.RefreshAll(ctx); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}

	// Two exports from the events plus two from the sweep.
	if got := len(writer.Entries()); got != 4 {
		t.Errorf("Entries() len = %d, want 4", got)
	}
}

func TestRefreshWorker_RefreshAllNoUsers(t *testing.T) {
	w := NewRefreshWorker(ledgermem.New(), exportmem.New(), WithClock(june20))

	if err := w.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
}
