package fx

import (
	"errors"
	"fmt"
	"time"

	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Snapshot is a decoded exchange-rate snapshot. Rates map a currency
// code to units of that currency per one unit of Base.
type Snapshot struct {
	Base      string
	Rates     map[string]decimal.Decimal
	CreatedAt time.Time
}

// Rate returns the rate for a currency code and whether it is present.
// The base currency itself always resolves to 1.
func (s *Snapshot) Rate(currency string) (decimal.Decimal, bool) {
	if currency == s.Base {
		if _, ok := s.Rates[currency]; !ok {
			return decimal.NewFromInt(1), true
		}
	}
	r, ok := s.Rates[currency]
	return r, ok
}

// Provider serves the single most recent exchange-rate snapshot.
//
// The snapshot is memoized, so a dashboard render pricing N holdings
// issues one query no matter how many conversions it performs. Build a
// fresh Provider per request and discard it afterwards.
type Provider struct {
	db *gorm.DB

	loaded bool
	snap   *Snapshot
	err    error
}

// NewProvider returns a request-scoped provider over db.
func NewProvider(db *gorm.DB) *Provider {
	return &Provider{db: db}
}

// Latest returns the most recently created snapshot, or nil when no
// snapshot has ever been written. The first call hits the database;
// later calls return the memoized result.
func (p *Provider) Latest() (*Snapshot, error) {
	if p.loaded {
		return p.snap, p.err
	}
	p.loaded = true

	var row models.ExchangeRateSnapshot
	err := p.db.Order("created_at DESC, id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		p.err = fmt.Errorf("load rate snapshot: %w", err)
		return nil, p.err
	}

	rates, err := row.RateMap()
	if err != nil {
		p.err = err
		return nil, p.err
	}
	p.snap = &Snapshot{Base: row.Base, Rates: rates, CreatedAt: row.CreatedAt}
	return p.snap, nil
}

// Convert converts amount from source into target using the latest
// snapshot. Degrades to zero on missing data, see Snapshot-level Convert.
func (p *Provider) Convert(target, source string, amount decimal.Decimal) (decimal.Decimal, error) {
	if source != "" && target == source {
		return amount, nil // no lookup, no precision loss
	}
	snap, err := p.Latest()
	if err != nil {
		return decimal.Zero, err
	}
	return Convert(snap, target, source, amount), nil
}
