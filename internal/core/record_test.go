package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRawRecordParse(t *testing.T) {
	cases := []struct {
		name  string
		raw   RawRecord
		want  string // expected amount, empty when an error is expected
		kind  RecordKind
		cat   string
		errIs error
	}{
		{
			name: "valid expense",
			raw:  RawRecord{ID: "1", Kind: "expense", Amount: "-42.50", Category: "Food", Date: "2025-06-01"},
			want: "-42.5", kind: Expense, cat: "Food",
		},
		{
			name: "positive expense is negated at the boundary",
			raw:  RawRecord{ID: "2", Kind: "Expense", Amount: "10", Category: "Food", Date: "2025-06-01"},
			want: "-10", kind: Expense, cat: "Food",
		},
		{
			name: "valid income",
			raw:  RawRecord{ID: "3", Kind: "income", Amount: "1000.00", Date: "2025-06-01"},
			want: "1000", kind: Income, cat: Uncategorized,
		},
		{
			name: "blank category normalized",
			raw:  RawRecord{ID: "4", Kind: "expense", Amount: "-1", Category: "  ", Date: "2025-06-01"},
			want: "-1", kind: Expense, cat: Uncategorized,
		},
		{
			name:  "negative income rejected",
			raw:   RawRecord{ID: "5", Kind: "income", Amount: "-5", Date: "2025-06-01"},
			errIs: ErrInvalidAmount,
		},
		{
			name:  "unparseable amount",
			raw:   RawRecord{ID: "6", Kind: "expense", Amount: "abc", Date: "2025-06-01"},
			errIs: ErrInvalidAmount,
		},
		{
			name:  "unparseable date",
			raw:   RawRecord{ID: "7", Kind: "expense", Amount: "-1", Date: "01/06/2025"},
			errIs: ErrInvalidDate,
		},
		{
			name:  "unknown kind",
			raw:   RawRecord{ID: "8", Kind: "transfer", Amount: "-1", Date: "2025-06-01"},
			errIs: ErrInvalidKind,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := tc.raw.Parse()
			if tc.errIs != nil {
				if !errors.Is(err, tc.errIs) {
					t.Fatalf("Parse() error = %v, want %v", err, tc.errIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if rec.Amount.String() != tc.want {
				t.Errorf("Parse() amount = %s, want %s", rec.Amount, tc.want)
			}
			if rec.Kind != tc.kind {
				t.Errorf("Parse() kind = %s, want %s", rec.Kind, tc.kind)
			}
			if rec.Category != tc.cat {
				t.Errorf("Parse() category = %q, want %q", rec.Category, tc.cat)
			}
		})
	}
}

func TestParseRecordsCountsMalformed(t *testing.T) {
	raw := []RawRecord{
		{ID: "a", Kind: "expense", Amount: "-1", Date: "2025-06-01"},
		{ID: "b", Kind: "expense", Amount: "oops", Date: "2025-06-01"},
		{ID: "c", Kind: "income", Amount: "2", Date: "2025-06-02"},
		{ID: "d", Kind: "income", Amount: "2", Date: "not-a-date"},
	}
	records, malformed := ParseRecords(raw)
	if len(records) != 2 || malformed != 2 {
		t.Fatalf("ParseRecords() = %d records, %d malformed; want 2, 2", len(records), malformed)
	}
}

func TestMonthKey(t *testing.T) {
	if got := NewDate(2025, 6, 20).MonthKey(); got != "2025-06" {
		t.Errorf("MonthKey() = %q, want 2025-06", got)
	}
	if _, err := ParseMonthKey("2025-13"); err == nil {
		t.Error("ParseMonthKey(2025-13) expected error")
	}
	if mk, err := ParseMonthKey(" 2025-01 "); err != nil || mk != "2025-01" {
		t.Errorf("ParseMonthKey() = %q, %v; want 2025-01", mk, err)
	}
}

func TestSameMonth(t *testing.T) {
	ref := NewDate(2025, 6, 20)
	cases := []struct {
		d    Date
		want bool
	}{
		{NewDate(2025, 6, 1), true},
		{NewDate(2025, 6, 30), true},
		{NewDate(2025, 7, 1), false},
		{NewDate(2024, 6, 20), false}, // same month, different year
	}
	for i, tc := range cases {
		if got := tc.d.SameMonth(ref); got != tc.want {
			t.Errorf("case %d: SameMonth(%s) = %v, want %v", i, tc.d, got, tc.want)
		}
	}
}

func TestSortByDateDescStable(t *testing.T) {
	records := []LedgerRecord{
		{ID: "old", Kind: Expense, Amount: decimal.NewFromInt(-1), Date: NewDate(2025, 1, 1)},
		{ID: "tie-a", Kind: Expense, Amount: decimal.NewFromInt(-1), Date: NewDate(2025, 6, 1)},
		{ID: "tie-b", Kind: Expense, Amount: decimal.NewFromInt(-1), Date: NewDate(2025, 6, 1)},
		{ID: "new", Kind: Expense, Amount: decimal.NewFromInt(-1), Date: NewDate(2025, 7, 1)},
	}
	SortByDateDesc(records)
	gotIDs := []string{records[0].ID, records[1].ID, records[2].ID, records[3].ID}
	wantIDs := []string{"new", "tie-a", "tie-b", "old"}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("SortByDateDesc() order = %v, want %v", gotIDs, wantIDs)
		}
	}
}
