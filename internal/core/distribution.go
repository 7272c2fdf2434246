package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategorySlice is one row of the expense-by-category breakdown.
type CategorySlice struct {
	Category string
	Value    decimal.Decimal // sum of absolute expense amounts
	Percent  decimal.Decimal // share of the grand total, 2 decimal places
}

var hundred = decimal.NewFromInt(100)

// CategoryDistribution turns a set of ledger records into a normalized
// percentage breakdown by category. Only expense records with a strictly
// negative amount qualify; everything else is excluded, not zero-weighted.
//
// Percentages are rounded independently per category, so the column need
// not sum to exactly 100. The result is ordered descending by absolute
// value; categories with equal values keep first-encountered order.
func CategoryDistribution(records []LedgerRecord) []CategorySlice {
	sums := make(map[string]decimal.Decimal)
	var order []string
	total := decimal.Zero

	for _, r := range records {
		if r.Kind != Expense || !r.Amount.IsNegative() {
			continue
		}
		value := r.Amount.Neg()
		category := NormalizeCategory(r.Category)
		if _, seen := sums[category]; !seen {
			order = append(order, category)
		}
		sums[category] = sums[category].Add(value)
		total = total.Add(value)
	}

	if total.IsZero() {
		return nil
	}

	slices := make([]CategorySlice, 0, len(order))
	for _, category := range order {
		value := sums[category]
		slices = append(slices, CategorySlice{
			Category: category,
			Value:    value,
			Percent:  value.Div(total).Mul(hundred).Round(2),
		})
	}

	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Value.GreaterThan(slices[j].Value)
	})
	return slices
}
