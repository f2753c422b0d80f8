package entities

import "time"

type AuditEventType string

const (
	AuditEventTaskImport   AuditEventType = "task_import"
	AuditEventItemImport   AuditEventType = "item_import"
	AuditEventTaskLoad     AuditEventType = "task_load"
	AuditEventAuditCleanup AuditEventType = "audit_cleanup"
)

type AuditStatus string

const (
	AuditStatusStarted AuditStatus = "started"
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TaskID      *uint          `gorm:"index" json:"task_id,omitempty"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`      // e.g. "task_run", "scheduled_items"
	Description string         `gorm:"size:500" json:"description"` // Human-readable summary
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
