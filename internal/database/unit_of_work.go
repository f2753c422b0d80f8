package database

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
)

// UnitOfWork buffers model writes and commits them together on Flush.
// Models are keyed by table and primary key: persisting the same key twice
// keeps the latest model at its original position.
//
// A UnitOfWork is not safe for concurrent use. Import runs own one each.
type UnitOfWork struct {
	db      *gorm.DB
	order   []string
	pending map[string]any
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{
		db:      db,
		pending: make(map[string]any),
	}
}

// Key builds the buffer key of a model.
func Key(table, id string) string {
	return table + ":" + id
}

// Persist schedules model to be saved on the next Flush.
func (u *UnitOfWork) Persist(key string, model any) {
	if _, ok := u.pending[key]; !ok {
		u.order = append(u.order, key)
	}
	u.pending[key] = model
}

// Pending returns a buffered model by key.
func (u *UnitOfWork) Pending(key string) (any, bool) {
	model, ok := u.pending[key]
	return model, ok
}

// Range calls fn for each buffered model in insertion order until fn returns false.
func (u *UnitOfWork) Range(fn func(key string, model any) bool) {
	for _, key := range u.order {
		if !fn(key, u.pending[key]) {
			return
		}
	}
}

func (u *UnitOfWork) Len() int {
	return len(u.order)
}

// Flush saves every buffered model in a single transaction and clears the
// buffer. On failure the buffer is kept so the caller may inspect it.
func (u *UnitOfWork) Flush(ctx context.Context) error {
	if len(u.order) == 0 {
		return nil
	}

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range u.order {
			if err := tx.Save(u.pending[key]).Error; err != nil {
				return fmt.Errorf("failed to save %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("UnitOfWork: flushed %d models", len(u.order))
	u.Clear()
	return nil
}

// Clear drops every buffered model without saving it.
func (u *UnitOfWork) Clear() {
	u.order = nil
	u.pending = make(map[string]any)
}
