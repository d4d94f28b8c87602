package jobs

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/AIP-project/portfolia-backend-sub000/internal/config"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const priceLockKey = "price-refresh"

// PriceRefresher appends fresh PriceHistoryPoints for every symbol that
// is currently held in a live summary. Stale prices are preferable to
// an error, so every failure here is log-and-continue.
type PriceRefresher struct {
	db      *gorm.DB
	locker  *Locker
	cli     *http.Client
	url     string
	lockTTL time.Duration
}

// NewPriceRefresher builds a refresher from config.
func NewPriceRefresher(db *gorm.DB, locker *Locker, cfg config.PricesConfig) *PriceRefresher {
	url := cfg.URL
	if url == "" {
		url = "https://query2.finance.yahoo.com/v8/finance/chart"
	}
	ttl := time.Duration(cfg.LockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PriceRefresher{
		db:      db,
		locker:  locker,
		cli:     &http.Client{Timeout: 8 * time.Second},
		url:     url,
		lockTTL: ttl,
	}
}

// Run executes one refresh attempt over all live symbols. A held lock
// is a silent skip; per-symbol fetch failures are logged and skipped.
func (p *PriceRefresher) Run() {
	if !p.locker.Acquire(priceLockKey, p.lockTTL) {
		log.Printf("price refresh: lock held elsewhere, skipping run")
		return
	}
	defer p.locker.Release(priceLockKey)

	symbols, err := p.liveSymbols()
	if err != nil {
		log.Printf("price refresh: %v", err)
		return
	}

	var stored int
	for _, sym := range symbols {
		point, err := p.fetch(sym)
		if err != nil {
			log.Printf("price refresh: %s: %v", sym, err)
			continue
		}
		if err := p.db.Create(&point).Error; err != nil {
			log.Printf("price refresh: store %s: %v", sym, err)
			continue
		}
		stored++
	}
	log.Printf("price refresh: stored %d/%d symbols", stored, len(symbols))
}

// liveSymbols returns the distinct symbols of non-deleted holdings.
func (p *PriceRefresher) liveSymbols() ([]string, error) {
	var symbols []string
	err := p.db.Model(&models.Summary{}).
		Distinct("symbol").
		Where("kind = ? AND symbol <> '' AND is_deleted = ?", models.SummaryHolding, false).
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}
	return symbols, nil
}

// fetch reads the latest quote for one symbol from the chart endpoint.
func (p *PriceRefresher) fetch(symbol string) (models.PriceHistoryPoint, error) {
	url := fmt.Sprintf("%s/%s?interval=1m&range=1d", p.url, symbol)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return models.PriceHistoryPoint{}, err
	}
	req.Header.Set("User-Agent", "portfolia-backend/1.0")

	resp, err := p.cli.Do(req)
	if err != nil {
		return models.PriceHistoryPoint{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.PriceHistoryPoint{}, fmt.Errorf("chart http %d", resp.StatusCode)
	}

	var raw struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Currency           string  `json:"currency"`
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					RegularMarketTime  int64   `json:"regularMarketTime"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.PriceHistoryPoint{}, err
	}
	if len(raw.Chart.Result) == 0 {
		return models.PriceHistoryPoint{}, fmt.Errorf("no chart result")
	}

	meta := raw.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return models.PriceHistoryPoint{}, fmt.Errorf("no usable price")
	}
	asOf := time.Unix(meta.RegularMarketTime, 0)
	if meta.RegularMarketTime == 0 {
		asOf = time.Now()
	}
	currency := meta.Currency
	if currency == "" {
		currency = "USD"
	}
	return models.PriceHistoryPoint{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(meta.RegularMarketPrice),
		Currency:  currency,
		Timestamp: asOf,
	}, nil
}
