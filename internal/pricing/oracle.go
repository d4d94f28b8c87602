package pricing

import (
	"fmt"

	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"gorm.io/gorm"
)

// Oracle serves the latest known market price per symbol.
//
// Lookups are batched: callers collect the distinct symbols they need
// and make one LatestPrices call, which issues a single
// max-timestamp-per-group query and fans the rows back out. Symbols
// with no price history are simply absent from the result.
type Oracle struct {
	db *gorm.DB
}

// NewOracle returns an oracle reading from db.
func NewOracle(db *gorm.DB) *Oracle {
	return &Oracle{db: db}
}

// LatestPrices returns the newest price point for each requested symbol.
func (o *Oracle) LatestPrices(symbols []string) (map[string]models.PriceHistoryPoint, error) {
	out := make(map[string]models.PriceHistoryPoint, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	latest := o.db.Model(&models.PriceHistoryPoint{}).
		Select("symbol AS sym, MAX(timestamp) AS max_ts").
		Where("symbol IN ?", symbols).
		Group("symbol")

	var rows []models.PriceHistoryPoint
	err := o.db.Model(&models.PriceHistoryPoint{}).
		Joins("JOIN (?) latest ON price_history_points.symbol = latest.sym AND price_history_points.timestamp = latest.max_ts", latest).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load latest prices: %w", err)
	}

	for _, row := range rows {
		// two points can share the max timestamp; keep the newest row
		if prev, ok := out[row.Symbol]; ok && prev.ID > row.ID {
			continue
		}
		out[row.Symbol] = row
	}
	return out, nil
}

// LatestPrice is the single-symbol convenience form of LatestPrices.
// The second return is false when the symbol has no price history.
func (o *Oracle) LatestPrice(symbol string) (models.PriceHistoryPoint, bool, error) {
	points, err := o.LatestPrices([]string{symbol})
	if err != nil {
		return models.PriceHistoryPoint{}, false, err
	}
	p, ok := points[symbol]
	return p, ok, nil
}
