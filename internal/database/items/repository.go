// Package items provides the import ledger: one record per source entry and
// payload version of a task.
//
// Writes go through the shared database.UnitOfWork and become visible to
// lookups immediately, before the batch is flushed.
package items

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/feedimport/internal/database"
	"github.com/mrlokans/feedimport/internal/entities"
)

const table = "items"

type Repository struct {
	db  *gorm.DB
	uow *database.UnitOfWork
}

func NewRepository(db *gorm.DB, uow *database.UnitOfWork) *Repository {
	return &Repository{db: db, uow: uow}
}

// Get returns the item with the given id, or nil when there is none.
func (r *Repository) Get(ctx context.Context, id string) (*entities.Item, error) {
	if pending, ok := r.uow.Pending(database.Key(table, id)); ok {
		return pending.(*entities.Item), nil
	}

	var item entities.Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetImportedItem returns the item holding the given payload version of an
// entry. When that version was never seen, the latest version of the entry
// is returned instead so its target and hashes can be compared. Nil means
// the entry is new to the task.
func (r *Repository) GetImportedItem(ctx context.Context, taskID uint, entryID, itemID string) (*entities.Item, error) {
	item, err := r.Get(ctx, itemID)
	if err != nil || item != nil {
		return item, err
	}

	var latest *entities.Item
	r.uow.Range(func(_ string, model any) bool {
		if pending, ok := model.(*entities.Item); ok && pending.TaskID == taskID && pending.EntryID == entryID {
			latest = pending
		}
		return true
	})
	if latest != nil {
		return latest, nil
	}

	var stored entities.Item
	err = r.db.WithContext(ctx).
		Where("task_id = ? AND entry_id = ?", taskID, entryID).
		Order("updated_at DESC").
		First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Save buffers the item until the next flush.
func (r *Repository) Save(_ context.Context, item *entities.Item) error {
	r.uow.Persist(database.Key(table, item.ID), item)
	return nil
}

// ListScheduledIDs returns up to limit ids of items waiting for the
// scheduled item run, oldest first. A zero taskID matches every task.
func (r *Repository) ListScheduledIDs(ctx context.Context, limit int, taskID uint) ([]string, error) {
	query := r.db.WithContext(ctx).Model(&entities.Item{}).
		Where("status_id = ?", entities.ItemStatusScheduled).
		Order("created_at ASC")
	if taskID > 0 {
		query = query.Where("task_id = ?", taskID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ids []string
	err := query.Pluck("id", &ids).Error
	return ids, err
}

// ListVersions returns every stored version of an entry, newest first.
func (r *Repository) ListVersions(ctx context.Context, taskID uint, entryID string) ([]entities.Item, error) {
	var versions []entities.Item
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND entry_id = ?", taskID, entryID).
		Order("updated_at DESC").
		Find(&versions).Error
	return versions, err
}

// CountByTask returns the number of stored items of a task.
func (r *Repository) CountByTask(ctx context.Context, taskID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Item{}).Where("task_id = ?", taskID).Count(&count).Error
	return count, err
}
