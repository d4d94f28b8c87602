package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SummaryKind separates the uninvested cash leg of an account from its
// per-symbol holdings.
type SummaryKind string

const (
	SummaryCash    SummaryKind = "CASH"
	SummaryHolding SummaryKind = "SUMMARY"
)

// Summary is the materialized running total for one
// (account, kind, symbol, currency) key. Invariant: quantity and amount
// always equal the signed sum of all non-deleted transactions against
// that key. All mutations happen through atomic increments inside the
// same database transaction as the transaction write.
type Summary struct {
	ID        uint        `gorm:"primaryKey"`
	AccountID string      `gorm:"size:36;not null;uniqueIndex:idx_summary_key"`
	Kind      SummaryKind `gorm:"size:16;not null;uniqueIndex:idx_summary_key"`
	Symbol    string      `gorm:"size:32;uniqueIndex:idx_summary_key"` // empty for cash legs
	Currency  string      `gorm:"size:8;not null;uniqueIndex:idx_summary_key"`

	Quantity decimal.Decimal `gorm:"type:decimal(30,10);not null"`
	Amount   decimal.Decimal `gorm:"type:decimal(30,10);not null"`

	IsDeleted bool `gorm:"index;not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Account Account `gorm:"constraint:OnDelete:CASCADE"`
}
