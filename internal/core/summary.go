package core

import "github.com/shopspring/decimal"

// FinancialSummary is the derived view over a user's complete ledger.
// It is never persisted; it is fully determined by the record and budget
// sets plus the reference date it was computed against.
type FinancialSummary struct {
	TotalBalance        decimal.Decimal
	MonthlyExpenseTotal decimal.Decimal // expenses are negative, so <= 0
	RemainingBudget     decimal.Decimal // may be negative on overspend
	TotalIncome         decimal.Decimal
	Distribution        []CategorySlice
	Excluded            int // records dropped for failing validation
}

// Aggregate computes the financial summary for a ledger against a
// reference date. The pass is a single order-independent decimal sum;
// records failing validation are excluded and counted rather than
// aborting the aggregation.
//
// A record contributes to MonthlyExpenseTotal when its calendar month and
// year equal the reference date's. The budget is matched by MonthKey
// string equality; if duplicates exist the first encountered wins,
// never a sum of both.
func Aggregate(records []LedgerRecord, budgets []Budget, now Date) FinancialSummary {
	summary := FinancialSummary{
		TotalBalance:        decimal.Zero,
		MonthlyExpenseTotal: decimal.Zero,
		TotalIncome:         decimal.Zero,
	}

	for _, r := range records {
		if err := r.Validate(); err != nil {
			summary.Excluded++
			continue
		}
		summary.TotalBalance = summary.TotalBalance.Add(r.Amount)
		if r.Kind == Income {
			summary.TotalIncome = summary.TotalIncome.Add(r.Amount)
		}
		if r.Kind == Expense && r.Date.SameMonth(now) {
			summary.MonthlyExpenseTotal = summary.MonthlyExpenseTotal.Add(r.Amount)
		}
	}

	budget := decimal.Zero
	for _, b := range budgets {
		if b.MonthKey == now.MonthKey() {
			budget = b.Amount
			break
		}
	}
	summary.RemainingBudget = budget.Add(summary.MonthlyExpenseTotal)
	summary.Distribution = CategoryDistribution(records)
	return summary
}

// ZeroSummary is the all-zero summary published when no identity is
// active.
func ZeroSummary() FinancialSummary {
	return FinancialSummary{
		TotalBalance:        decimal.Zero,
		MonthlyExpenseTotal: decimal.Zero,
		RemainingBudget:     decimal.Zero,
		TotalIncome:         decimal.Zero,
	}
}
