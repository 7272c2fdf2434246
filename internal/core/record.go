// Package core holds the financial aggregation engine: the ledger record
// and budget models plus the pure computations that derive summaries and
// category distributions from them. Nothing in this package performs I/O.
package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense RecordKind = "expense"
	Income  RecordKind = "income"
)

// Uncategorized is the label assigned to records without a category.
const Uncategorized = "Uncategorized"

type (
	// RecordKind discriminates between the two transaction types.
	RecordKind string

	// Date is a calendar date with no time component.
	Date struct {
		time.Time
	}

	// MonthKey identifies a calendar month as "YYYY-MM".
	MonthKey string

	// LedgerRecord is a single income or expense entry in the working
	// representation: expense amounts are negative, income amounts
	// positive. Callers crossing the boundary apply this sign convention
	// before handing records to the aggregator.
	LedgerRecord struct {
		ID          string
		Kind        RecordKind
		Amount      decimal.Decimal
		Category    string
		Date        Date
		Description string
	}

	// Budget is the spending ceiling for one calendar month. At most one
	// budget exists per month; upserts are last-write-wins.
	Budget struct {
		MonthKey MonthKey
		Amount   decimal.Decimal
	}

	// RawRecord is a ledger record as it arrives from a storage row or a
	// form, before numeric and date validation.
	RawRecord struct {
		ID          string
		Kind        string
		Amount      string
		Category    string
		Date        string
		Description string
	}
)

var (
	ErrInvalidKind   = errors.New("invalid record kind")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month key")
)

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// MonthKey returns the "YYYY-MM" identifier of the date's month.
func (d Date) MonthKey() MonthKey {
	return MonthKey(d.Format("2006-01"))
}

// SameMonth reports whether both dates fall in the same calendar month
// and year. This is a local calendar comparison, not a rolling window.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// ParseMonthKey validates a "YYYY-MM" string.
func ParseMonthKey(s string) (MonthKey, error) {
	if _, err := time.Parse("2006-01", strings.TrimSpace(s)); err != nil {
		return "", ErrInvalidMonth
	}
	return MonthKey(strings.TrimSpace(s)), nil
}

// NormalizeCategory trims the label and substitutes Uncategorized for
// blank input.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Uncategorized
	}
	return s
}

// ParseKind validates a kind string, tolerating case differences.
func ParseKind(s string) (RecordKind, error) {
	switch RecordKind(strings.ToLower(strings.TrimSpace(s))) {
	case Expense:
		return Expense, nil
	case Income:
		return Income, nil
	default:
		return "", ErrInvalidKind
	}
}

// Parse converts a raw record into a validated LedgerRecord. Amounts must
// be exact decimals and dates proper calendar dates; the sign convention
// is enforced here so the aggregator never sees a positive expense or a
// negative income.
func (r RawRecord) Parse() (LedgerRecord, error) {
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return LedgerRecord{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return LedgerRecord{}, fmt.Errorf("record %s: %w", r.ID, ErrInvalidAmount)
	}
	if kind == Expense && amount.IsPositive() {
		amount = amount.Neg()
	}
	if kind == Income && amount.IsNegative() {
		return LedgerRecord{}, fmt.Errorf("record %s: %w", r.ID, ErrInvalidAmount)
	}
	date, err := ParseDate(r.Date)
	if err != nil {
		return LedgerRecord{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return LedgerRecord{
		ID:          r.ID,
		Kind:        kind,
		Amount:      amount,
		Category:    NormalizeCategory(r.Category),
		Date:        date,
		Description: strings.TrimSpace(r.Description),
	}, nil
}

// ParseRecords converts a batch of raw records, keeping the good ones and
// counting the malformed. A record that cannot be parsed never aborts the
// batch; the count feeds the summary diagnostic.
func ParseRecords(raw []RawRecord) (records []LedgerRecord, malformed int) {
	records = make([]LedgerRecord, 0, len(raw))
	for _, r := range raw {
		rec, err := r.Parse()
		if err != nil {
			malformed++
			continue
		}
		records = append(records, rec)
	}
	return records, malformed
}

// Validate checks the invariants a record must hold to take part in
// aggregation.
func (r LedgerRecord) Validate() error {
	if r.Kind != Expense && r.Kind != Income {
		return ErrInvalidKind
	}
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	if r.Kind == Income && r.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// SortByDateDesc orders records newest first. The sort is stable so
// records sharing a date keep their insertion order between runs.
func SortByDateDesc(records []LedgerRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date.Time)
	})
}
