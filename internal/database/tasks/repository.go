// Package tasks provides database operations for import tasks.
//
// # Usage
//
//	repo := tasks.NewRepository(db)
//	ids, err := repo.ListDueIDs(time.Now(), 4*time.Hour)
package tasks

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/feedimport/internal/entities"
)

// ErrTaskNotFound is returned when no task matches the lookup.
var ErrTaskNotFound = errors.New("task not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(task *entities.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	return r.db.Create(task).Error
}

func (r *Repository) Save(task *entities.Task) error {
	return r.db.Save(task).Error
}

func (r *Repository) GetByID(id uint) (*entities.Task, error) {
	var task entities.Task
	err := r.db.First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *Repository) GetByCode(code string) (*entities.Task, error) {
	var task entities.Task
	err := r.db.Where("code = ?", code).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: code %q", ErrTaskNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns every task ordered by id.
func (r *Repository) List() ([]entities.Task, error) {
	var tasks []entities.Task
	err := r.db.Order("id ASC").Find(&tasks).Error
	return tasks, err
}

// ListDueIDs returns the ids of tasks whose schedule has elapsed. A task
// still flagged in progress is only returned once its last start is older
// than staleTimeout.
//
// The candidate set is narrowed in SQL and the time arithmetic is done with
// Task.IsDue, since sqlite stores timestamps as text.
func (r *Repository) ListDueIDs(now time.Time, staleTimeout time.Duration) ([]uint, error) {
	var candidates []entities.Task
	err := r.db.Where("active = ? AND period IS NOT NULL", true).Order("id ASC").Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	var ids []uint
	for i := range candidates {
		if candidates[i].IsDue(now, staleTimeout) {
			ids = append(ids, candidates[i].ID)
		}
	}
	return ids, nil
}

// Claim marks a due task as in progress. It returns false when another
// process claimed the task first or the task is no longer due. The import
// time the task had before the claim is returned for Release.
func (r *Repository) Claim(id uint, now time.Time, staleTimeout time.Duration) (bool, *time.Time, error) {
	claimed := false
	var previous *time.Time
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var task entities.Task
		if err := tx.First(&task, id).Error; err != nil {
			return err
		}
		if !task.IsDue(now, staleTimeout) {
			return nil
		}

		result := tx.Model(&entities.Task{}).
			Where("id = ? AND in_progress = ?", id, task.InProgress).
			Updates(map[string]any{
				"in_progress": true,
				"imported_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		claimed = result.RowsAffected == 1
		previous = task.ImportedAt
		return nil
	})
	return claimed, previous, err
}

// Release hands a claimed task back: it is no longer in progress and its
// import time is restored, so the task stays due.
func (r *Repository) Release(id uint, importedAt *time.Time) error {
	return r.db.Model(&entities.Task{}).
		Where("id = ? AND in_progress = ?", id, true).
		Updates(map[string]any{
			"in_progress": false,
			"imported_at": importedAt,
		}).Error
}

// UpdateRunState writes only the run bookkeeping columns of a task.
func (r *Repository) UpdateRunState(task *entities.Task) error {
	return r.db.Model(&entities.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]any{
			"in_progress": task.InProgress,
			"imported_at": task.ImportedAt,
			"statistics":  task.Statistics,
		}).Error
}

// Upsert creates the task or updates the task with the same code. Run state
// of an existing task is preserved.
func (r *Repository) Upsert(task *entities.Task) (bool, error) {
	if task.Code == "" {
		return false, errors.New("task code is required for upsert")
	}
	if err := task.Validate(); err != nil {
		return false, err
	}

	existing, err := r.GetByCode(task.Code)
	if errors.Is(err, ErrTaskNotFound) {
		return true, r.db.Create(task).Error
	}
	if err != nil {
		return false, err
	}

	task.ID = existing.ID
	task.CreatedAt = existing.CreatedAt
	task.InProgress = existing.InProgress
	task.ImportedAt = existing.ImportedAt
	task.Statistics = existing.Statistics
	return false, r.db.Save(task).Error
}
