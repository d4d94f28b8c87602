package jobs

import (
	"time"

	"github.com/AIP-project/portfolia-backend-sub000/internal/config"

	"gorm.io/gorm"
)

// Start launches the refresh loops. Each job fires once at startup and
// then on its configured interval; overlap across processes is handled
// by the lock, not by the ticker.
func Start(db *gorm.DB, cfg *config.Config) {
	locker := NewLocker(db)

	rates := NewRateRefresher(db, locker, cfg.Rates)
	go loop(rates.Run, intervalOf(cfg.Rates.IntervalMinutes, 60))

	prices := NewPriceRefresher(db, locker, cfg.Prices)
	go loop(prices.Run, intervalOf(cfg.Prices.IntervalMinutes, 30))
}

func intervalOf(minutes, fallback int) time.Duration {
	if minutes <= 0 {
		minutes = fallback
	}
	return time.Duration(minutes) * time.Minute
}

func loop(run func(), every time.Duration) {
	run()
	t := time.NewTicker(every)
	defer t.Stop()
	for range t.C {
		run()
	}
}
