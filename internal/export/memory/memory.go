// Package memory provides an in-process summary writer used in tests
// and when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"despesas/internal/core"
	ports "despesas/internal/export"
)

// Entry is one exported summary.
type Entry struct {
	MonthKey core.MonthKey
	Summary  core.FinancialSummary
}

// Writer collects exported summaries in memory.
type Writer struct {
	mu      sync.Mutex
	entries []Entry
}

var _ ports.SummaryWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

func (w *Writer) AppendSummary(_ context.Context, monthKey core.MonthKey, summary core.FinancialSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, Entry{MonthKey: monthKey, Summary: summary})
	return nil
}

// Entries returns a copy of everything exported so far.
func (w *Writer) Entries() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}
