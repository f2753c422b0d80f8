package tasks

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// DefaultAuditRetentionDays applies when a cleanup task carries no retention.
const DefaultAuditRetentionDays = 30

// AuditEventCleaner deletes audit events older than the given age.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// CleanupAuditEventsTask prunes the run history kept by the audit trail.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_audit_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention:   finishedJobs(),
	}
}

func (t CleanupAuditEventsTask) days() int {
	if t.RetentionDays > 0 {
		return t.RetentionDays
	}
	return DefaultAuditRetentionDays
}

// CleanupAuditEventsProcessor deletes audit events past the task's retention.
// The cleaner may fail transiently, so the queue retries the job.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(_ context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return errors.New("audit event cleaner not configured")
		}

		days := task.days()
		deleted, err := cleaner.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			log.Printf("[TASK] Audit cleanup failed: %v", err)
			return err
		}
		if deleted > 0 {
			log.Printf("[TASK] Removed %d audit events older than %d days", deleted, days)
		}
		return nil
	}
}

func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner))
}
