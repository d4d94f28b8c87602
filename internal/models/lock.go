package models

import "time"

// JobLock backs the distributed mutual-exclusion used by scheduled
// refresh jobs: holding a row means holding the lock until ExpiresAt.
// Expired rows may be stolen by the next acquirer.
type JobLock struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Owner     string    `gorm:"size:64;not null"` // e.g. UUID per process
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}
