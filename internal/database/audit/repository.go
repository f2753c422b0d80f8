package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/feedimport/internal/entities"
)

const defaultLimit = 50

// Filter narrows a listing of audit events. Zero fields match every event.
type Filter struct {
	TaskID    uint
	EventType entities.AuditEventType
	Status    entities.AuditStatus
	Limit     int
	Offset    int
}

func (f Filter) scope(query *gorm.DB) *gorm.DB {
	if f.TaskID != 0 {
		query = query.Where("task_id = ?", f.TaskID)
	}
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	return query
}

func (f Filter) window() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 {
		limit = defaultLimit
	}
	return limit, max(offset, 0)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores the event, stamping it with the current time when unset.
func (r *Repository) Create(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// List returns one page of matching events, newest first, along with the
// number of all matching events.
func (r *Repository) List(filter Filter) ([]entities.AuditEvent, int64, error) {
	query := filter.scope(r.db.Model(&entities.AuditEvent{}))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	limit, offset := filter.window()
	var events []entities.AuditEvent
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// DeleteBefore removes events created before cutoff.
func (r *Repository) DeleteBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
