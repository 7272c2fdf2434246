package core

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func referenceScenario() ([]LedgerRecord, []Budget, Date) {
	records := []LedgerRecord{
		expense("e1", "Food", "-100", NewDate(2025, 6, 1)),
		expense("e2", "Food", "-50", NewDate(2025, 7, 1)),
		expense("e3", "Transport", "-25", NewDate(2025, 6, 15)),
		income("i1", "1000", NewDate(2025, 6, 1)),
	}
	budgets := []Budget{{MonthKey: "2025-06", Amount: decimal.NewFromInt(300)}}
	return records, budgets, NewDate(2025, 6, 20)
}

func TestAggregateReferenceScenario(t *testing.T) {
	records, budgets, now := referenceScenario()
	got := Aggregate(records, budgets, now)

	if !got.TotalBalance.Equal(decimal.NewFromInt(825)) {
		t.Errorf("TotalBalance = %s, want 825", got.TotalBalance)
	}
	if !got.MonthlyExpenseTotal.Equal(decimal.NewFromInt(-125)) {
		t.Errorf("MonthlyExpenseTotal = %s, want -125", got.MonthlyExpenseTotal)
	}
	if !got.RemainingBudget.Equal(decimal.NewFromInt(175)) {
		t.Errorf("RemainingBudget = %s, want 175", got.RemainingBudget)
	}
	if !got.TotalIncome.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("TotalIncome = %s, want 1000", got.TotalIncome)
	}
	// Distribution pools July Food with June Food: it is computed over
	// every expense record passed in, not month-filtered.
	if len(got.Distribution) != 2 {
		t.Fatalf("Distribution has %d slices, want 2", len(got.Distribution))
	}
	if got.Distribution[0].Category != "Food" || !got.Distribution[0].Value.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Distribution[0] = %+v, want Food/150", got.Distribution[0])
	}
	if got.Excluded != 0 {
		t.Errorf("Excluded = %d, want 0", got.Excluded)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	records, budgets, now := referenceScenario()
	want := Aggregate(records, budgets, now)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]LedgerRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := Aggregate(shuffled, budgets, now)
		if !got.TotalBalance.Equal(want.TotalBalance) ||
			!got.MonthlyExpenseTotal.Equal(want.MonthlyExpenseTotal) ||
			!got.RemainingBudget.Equal(want.RemainingBudget) ||
			!got.TotalIncome.Equal(want.TotalIncome) {
			t.Fatalf("aggregation changed under reordering: got %+v, want %+v", got, want)
		}
	}
}

func TestAggregateNoBudgetForMonth(t *testing.T) {
	records := []LedgerRecord{
		expense("e1", "Food", "-80", NewDate(2025, 6, 5)),
	}
	got := Aggregate(records, nil, NewDate(2025, 6, 20))
	// Missing budget is treated as a zero ceiling, so remaining equals
	// the (negative) monthly expense total.
	if !got.RemainingBudget.Equal(decimal.NewFromInt(-80)) {
		t.Errorf("RemainingBudget = %s, want -80", got.RemainingBudget)
	}
	if !got.RemainingBudget.Equal(got.MonthlyExpenseTotal) {
		t.Errorf("RemainingBudget = %s, MonthlyExpenseTotal = %s; want equal", got.RemainingBudget, got.MonthlyExpenseTotal)
	}
}

func TestAggregateOverspendIsNegative(t *testing.T) {
	records := []LedgerRecord{
		expense("e1", "Food", "-500", NewDate(2025, 6, 5)),
	}
	budgets := []Budget{{MonthKey: "2025-06", Amount: decimal.NewFromInt(300)}}
	got := Aggregate(records, budgets, NewDate(2025, 6, 20))
	if !got.RemainingBudget.Equal(decimal.NewFromInt(-200)) {
		t.Errorf("RemainingBudget = %s, want -200", got.RemainingBudget)
	}
}

func TestAggregateDuplicateBudgetsPicksFirst(t *testing.T) {
	records := []LedgerRecord{
		expense("e1", "Food", "-100", NewDate(2025, 6, 5)),
	}
	budgets := []Budget{
		{MonthKey: "2025-06", Amount: decimal.NewFromInt(300)},
		{MonthKey: "2025-06", Amount: decimal.NewFromInt(999)},
	}
	got := Aggregate(records, budgets, NewDate(2025, 6, 20))
	// First encountered wins; duplicates are never summed.
	if !got.RemainingBudget.Equal(decimal.NewFromInt(200)) {
		t.Errorf("RemainingBudget = %s, want 200", got.RemainingBudget)
	}
}

func TestAggregateExcludesInvalidRecords(t *testing.T) {
	records := []LedgerRecord{
		expense("good", "Food", "-10", NewDate(2025, 6, 5)),
		{ID: "no-date", Kind: Expense, Amount: decimal.NewFromInt(-99)},
		{ID: "bad-kind", Kind: "transfer", Amount: decimal.NewFromInt(-99), Date: NewDate(2025, 6, 5)},
	}
	got := Aggregate(records, nil, NewDate(2025, 6, 20))
	if got.Excluded != 2 {
		t.Errorf("Excluded = %d, want 2", got.Excluded)
	}
	if !got.TotalBalance.Equal(decimal.NewFromInt(-10)) {
		t.Errorf("TotalBalance = %s, want -10 (invalid records must not contribute)", got.TotalBalance)
	}
}

func TestAggregateEmptyLedger(t *testing.T) {
	got := Aggregate(nil, nil, NewDate(2025, 6, 20))
	if !got.TotalBalance.IsZero() || !got.RemainingBudget.IsZero() || len(got.Distribution) != 0 {
		t.Errorf("Aggregate(nil) = %+v, want all-zero summary", got)
	}
}
