// Package invoice turns uploaded invoice documents into ledger record
// drafts by calling an external extraction service.
package invoice

import (
	"errors"

	"github.com/shopspring/decimal"

	"despesas/internal/core"
)

// MaxFileSize is the hard ceiling on uploaded invoice documents.
const MaxFileSize = 5 << 20 // 5 MB

var (
	ErrFileTooLarge     = errors.New("invoice file exceeds size limit")
	ErrEmptyFile        = errors.New("invoice file is empty")
	ErrExtractionFailed = errors.New("invoice extraction failed")
)

// Draft is a partially filled record proposal. Every field is optional:
// the extractor returns whatever it could read from the document and the
// caller completes the rest before saving.
type Draft struct {
	Description *string `json:"description,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	Date        *string `json:"date,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// Empty reports whether the extractor produced no usable fields.
func (d Draft) Empty() bool {
	return d.Description == nil && d.Amount == nil && d.Date == nil && d.Category == nil
}

// ToRawRecord converts the draft into a raw expense record, leaving
// missing fields blank for the caller to fill in.
func (d Draft) ToRawRecord() core.RawRecord {
	raw := core.RawRecord{Kind: string(core.Expense)}
	if d.Description != nil {
		raw.Description = *d.Description
	}
	if d.Amount != nil {
		if amt, err := decimal.NewFromString(*d.Amount); err == nil {
			raw.Amount = amt.String()
		}
	}
	if d.Date != nil {
		raw.Date = *d.Date
	}
	if d.Category != nil {
		raw.Category = *d.Category
	}
	return raw
}
