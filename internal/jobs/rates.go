package jobs

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/AIP-project/portfolia-backend-sub000/internal/config"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"gorm.io/gorm"
)

const rateLockKey = "rate-refresh"

// RateRefresher periodically fetches exchange rates and appends a new
// snapshot. It never rewrites old snapshots; readers keep serving the
// previous one until the insert lands, so a fetch failure only means
// slightly staler rates.
type RateRefresher struct {
	db      *gorm.DB
	locker  *Locker
	cli     *http.Client
	base    string
	url     string
	lockTTL time.Duration
}

// NewRateRefresher builds a refresher from config.
func NewRateRefresher(db *gorm.DB, locker *Locker, cfg config.RatesConfig) *RateRefresher {
	base := strings.ToUpper(strings.TrimSpace(cfg.Base))
	if base == "" {
		base = "USD"
	}
	url := cfg.URL
	if url == "" {
		url = "https://open.er-api.com/v6/latest"
	}
	ttl := time.Duration(cfg.LockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RateRefresher{
		db:      db,
		locker:  locker,
		cli:     &http.Client{Timeout: 8 * time.Second},
		base:    base,
		url:     url,
		lockTTL: ttl,
	}
}

// Run executes one refresh attempt. A held lock is a silent skip, and a
// fetch failure is logged and swallowed: refresh failures are non-fatal
// to the serving path.
func (r *RateRefresher) Run() {
	if !r.locker.Acquire(rateLockKey, r.lockTTL) {
		log.Printf("rate refresh: lock held elsewhere, skipping run")
		return
	}
	defer r.locker.Release(rateLockKey)

	if err := r.refresh(); err != nil {
		log.Printf("rate refresh failed: %v", err)
	}
}

func (r *RateRefresher) refresh() error {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/%s", r.url, r.base), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "portfolia-backend/1.0")

	resp, err := r.cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rates http %d", resp.StatusCode)
	}

	var raw struct {
		Result   string             `json:"result"`
		BaseCode string             `json:"base_code"`
		Rates    map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return err
	}
	if raw.Result != "success" || len(raw.Rates) == 0 {
		return fmt.Errorf("rates payload: result=%q with %d rates", raw.Result, len(raw.Rates))
	}

	encoded, err := json.Marshal(raw.Rates)
	if err != nil {
		return err
	}
	base := raw.BaseCode
	if base == "" {
		base = r.base
	}
	snap := models.ExchangeRateSnapshot{Base: base, Rates: string(encoded)}
	if err := r.db.Create(&snap).Error; err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	log.Printf("rate refresh: stored snapshot %d (%s, %d currencies)", snap.ID, base, len(raw.Rates))
	return nil
}
