package entities

import "time"

// SchedulerLock is a named mutual exclusion row shared by every process
// using the same database. An expired lock may be taken over.
type SchedulerLock struct {
	Name       string    `gorm:"primaryKey;size:100" json:"name"`
	Owner      string    `gorm:"size:64" json:"owner"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string {
	return "scheduler_locks"
}

func (l *SchedulerLock) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
