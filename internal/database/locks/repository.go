// Package locks stores named scheduler locks so that only one process runs a
// scheduled command at a time.
package locks

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/feedimport/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Acquire takes the lock for owner until now+ttl. A lock held by another
// owner is only taken over once it expired. Owners may re-acquire their own
// lock to extend it.
func (r *Repository) Acquire(ctx context.Context, name, owner string, ttl time.Duration, now time.Time) (bool, error) {
	lock := entities.SchedulerLock{
		Name:       name,
		Owner:      owner,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	acquired := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entities.SchedulerLock
		err := tx.Where("name = ?", name).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
			acquired = result.RowsAffected == 1
			return result.Error
		}
		if err != nil {
			return err
		}

		if current.Owner != owner && !current.IsExpired(now) {
			return nil
		}

		result := tx.Model(&entities.SchedulerLock{}).
			Where("name = ? AND owner = ?", name, current.Owner).
			Updates(map[string]any{
				"owner":       owner,
				"acquired_at": lock.AcquiredAt,
				"expires_at":  lock.ExpiresAt,
			})
		acquired = result.RowsAffected == 1
		return result.Error
	})
	return acquired, err
}

// Release drops the lock if owner still holds it.
func (r *Repository) Release(ctx context.Context, name, owner string) error {
	return r.db.WithContext(ctx).
		Where("name = ? AND owner = ?", name, owner).
		Delete(&entities.SchedulerLock{}).Error
}

// Get returns the lock row, or nil when nobody holds it.
func (r *Repository) Get(ctx context.Context, name string) (*entities.SchedulerLock, error) {
	var lock entities.SchedulerLock
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&lock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lock, nil
}
