// Package export pushes computed financial summaries to external
// destinations such as Google Sheets.
package export

import (
	"context"

	"despesas/internal/core"
)

// SummaryWriter appends a month's financial summary to a destination.
type SummaryWriter interface {
	AppendSummary(ctx context.Context, monthKey core.MonthKey, summary core.FinancialSummary) error
}
