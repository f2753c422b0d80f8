package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/feedimport/internal/database/audit"
	"github.com/mrlokans/feedimport/internal/entities"
)

const maxErrorLength = 500

// Service provides high-level audit logging functionality. It also listens
// to task runs, recording one event when a run starts and one when it ends.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.Create(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.Create(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every event passed to LogAsync is written.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) BeforeImport(_ context.Context, task *entities.Task) {
	taskID := task.ID
	s.LogAsync(&entities.AuditEvent{
		TaskID:      &taskID,
		EventType:   entities.AuditEventTaskImport,
		Action:      "task_run",
		Description: fmt.Sprintf("Started import of %s", task.Title),
		Status:      entities.AuditStatusStarted,
	})
}

func (s *Service) AfterImport(_ context.Context, task *entities.Task, stats *entities.ImportStatistics, err error) {
	taskID := task.ID
	event := &entities.AuditEvent{
		TaskID:      &taskID,
		EventType:   entities.AuditEventTaskImport,
		Action:      "task_run",
		Description: fmt.Sprintf("Finished import of %s", task.Title),
		Status:      entities.AuditStatusSuccess,
	}
	if stats != nil {
		event.Metadata = encodeMetadata(stats)
	}
	if err != nil {
		event.Description = fmt.Sprintf("Import of %s failed", task.Title)
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxErrorLength)
	}
	s.LogAsync(event)
}

// LogScheduledItems records a scheduled item run.
func (s *Service) LogScheduledItems(imported, failed int, stopped bool, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventItemImport,
		Action:      "scheduled_items",
		Description: fmt.Sprintf("Imported %d scheduled items, %d failed", imported, failed),
		Metadata: encodeMetadata(map[string]any{
			"imported": imported,
			"failed":   failed,
			"stopped":  stopped,
		}),
		Status: entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxErrorLength)
	}
	s.LogAsync(event)
}

// LogTaskLoad records the load of a task definition file.
func (s *Service) LogTaskLoad(source string, created, updated int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventTaskLoad,
		Action:      "task_load",
		Description: fmt.Sprintf("Loaded tasks from %s", source),
		Metadata:    encodeMetadata(map[string]any{"created": created, "updated": updated}),
		Status:      entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxErrorLength)
	}
	s.LogAsync(event)
}

// Events lists recorded events, newest first.
func (s *Service) Events(filter audit.Filter) ([]entities.AuditEvent, int64, error) {
	return s.repo.List(filter)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteBefore(cutoff)
}

func encodeMetadata(v any) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
