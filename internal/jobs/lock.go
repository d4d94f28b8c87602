package jobs

import (
	"time"

	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Locker is the distributed mutual-exclusion primitive for scheduled
// jobs, backed by the job_locks table: holding a live row means holding
// the lock. Expired rows are stolen by the next acquirer, so a crashed
// holder only blocks until its TTL runs out.
type Locker struct {
	db    *gorm.DB
	owner string
}

// NewLocker returns a locker with a process-unique owner id.
func NewLocker(db *gorm.DB) *Locker {
	return &Locker{db: db, owner: uuid.NewString()}
}

// Acquire takes the lock for key, valid for ttl. A false return means
// another holder has it; callers skip their run rather than wait.
func (l *Locker) Acquire(key string, ttl time.Duration) bool {
	now := time.Now()

	// clear an expired row first; the primary key makes the insert the
	// actual point of contention
	l.db.Where("key = ? AND expires_at <= ?", key, now).Delete(&models.JobLock{})

	row := models.JobLock{Key: key, Owner: l.owner, ExpiresAt: now.Add(ttl)}
	return l.db.Create(&row).Error == nil
}

// Release drops the lock if this locker still holds it.
func (l *Locker) Release(key string) bool {
	res := l.db.Where("key = ? AND owner = ?", key, l.owner).Delete(&models.JobLock{})
	return res.Error == nil && res.RowsAffected > 0
}
