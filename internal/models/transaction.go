package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType carries the direction of a transaction. Quantity and
// amount are stored unsigned; the sign convention lives in the ledger
// engine.
type TransactionType string

const (
	TxDeposit    TransactionType = "DEPOSIT"
	TxWithdrawal TransactionType = "WITHDRAWAL"
	TxBuy        TransactionType = "BUY"
	TxSell       TransactionType = "SELL"
)

// Transaction is an append-style record against an account. Edits and
// deletes are expressed as compensating adjustments to the account's
// summaries, never as silent overwrites; IsDeleted excludes a row from
// reconciliation without losing it.
type Transaction struct {
	ID        string `gorm:"primaryKey;size:36"`
	AccountID string `gorm:"index;size:36;not null"`

	Symbol   string          `gorm:"size:32;index"` // priced assets only
	Type     TransactionType `gorm:"size:16;not null"`
	Quantity decimal.Decimal `gorm:"type:decimal(30,10);not null"`
	Amount   decimal.Decimal `gorm:"type:decimal(30,10);not null"`
	Currency string          `gorm:"size:8;not null"`

	TransactionDate time.Time `gorm:"index;not null"`
	Note            string    `gorm:"size:255"`

	// Manual revaluation fields for ETC / LIABILITIES holdings, which
	// have no market price feed. Nil means "not yet revalued" and falls
	// back to cost basis, which is distinct from an actual zero.
	CurrentPrice    *decimal.Decimal `gorm:"type:decimal(30,10)"`
	RemainingAmount *decimal.Decimal `gorm:"type:decimal(30,10)"`

	IsDeleted bool `gorm:"index;not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Account Account `gorm:"constraint:OnDelete:CASCADE"`
}
