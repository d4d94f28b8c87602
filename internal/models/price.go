package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceHistoryPoint is one observed market price for a symbol, quoted in
// Currency. Append-only; the oracle serves the newest point per symbol.
type PriceHistoryPoint struct {
	ID        uint            `gorm:"primaryKey"`
	Symbol    string          `gorm:"size:32;index:idx_price_symbol_ts;not null"`
	Price     decimal.Decimal `gorm:"type:decimal(30,10);not null"`
	Currency  string          `gorm:"size:8;not null"`
	Timestamp time.Time       `gorm:"index:idx_price_symbol_ts;not null"`

	CreatedAt time.Time
}
