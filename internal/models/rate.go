package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRateSnapshot is one fetched set of exchange rates relative to
// Base. Rows are append-only: the refresh job inserts new snapshots and
// readers always take the most recent one; no snapshot is ever mutated.
type ExchangeRateSnapshot struct {
	ID   uint   `gorm:"primaryKey"`
	Base string `gorm:"size:8;not null"`

	// Rates is a JSON object mapping currency code to units of that
	// currency per one unit of Base.
	Rates string `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"index"`
}

// RateMap decodes the stored rates into decimals.
func (s *ExchangeRateSnapshot) RateMap() (map[string]decimal.Decimal, error) {
	m := make(map[string]decimal.Decimal)
	if err := json.Unmarshal([]byte(s.Rates), &m); err != nil {
		return nil, fmt.Errorf("decode rate snapshot %d: %w", s.ID, err)
	}
	return m, nil
}
