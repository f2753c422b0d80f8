package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/feedimport/internal/locks"
	"github.com/mrlokans/feedimport/internal/services"
)

// ScheduledItemsRunner maps items recorded as scheduled.
type ScheduledItemsRunner interface {
	RunScheduled(ctx context.Context, opts services.ScheduledRunOptions) (services.ScheduledRunResult, error)
}

// ScheduledItemsReporter is told about the outcome of each run.
type ScheduledItemsReporter interface {
	LogScheduledItems(imported, failed int, stopped bool, err error)
}

// ImportScheduledItemsTask maps a batch of scheduled ledger items.
type ImportScheduledItemsTask struct {
	Batch         int  `json:"batch,omitempty"`
	TaskID        uint `json:"task_id,omitempty"`
	PeriodSeconds int  `json:"period_seconds,omitempty"`
	All           bool `json:"all,omitempty"`
}

// Config returns the queue configuration for scheduled item runs.
func (t ImportScheduledItemsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_scheduled_items",
		MaxAttempts: 1,
		Timeout:     2 * time.Hour,
		Retention:   finishedJobs(),
	}
}

// ImportScheduledItemsProcessor creates a processor function for
// ImportScheduledItemsTask. A run that finds the lock taken is a no-op.
func ImportScheduledItemsProcessor(runner ScheduledItemsRunner, reporter ScheduledItemsReporter) backlite.QueueProcessor[ImportScheduledItemsTask] {
	return func(ctx context.Context, task ImportScheduledItemsTask) error {
		if runner == nil {
			return fmt.Errorf("scheduled item runner not configured")
		}

		result, err := runner.RunScheduled(ctx, services.ScheduledRunOptions{
			Batch:  task.Batch,
			TaskID: task.TaskID,
			Period: time.Duration(task.PeriodSeconds) * time.Second,
			All:    task.All,
		})
		if errors.Is(err, locks.ErrLocked) {
			log.Printf("[TASK] Scheduled item run skipped: another run holds the lock")
			return nil
		}
		if reporter != nil {
			reporter.LogScheduledItems(result.Imported, result.Failed, result.Stopped, err)
		}
		if err != nil {
			return fmt.Errorf("import scheduled items: %w", err)
		}

		log.Printf("[TASK] Imported %d scheduled items, %d failed", result.Imported, result.Failed)
		return nil
	}
}

// NewImportScheduledItemsQueue creates a backlite queue for scheduled item runs.
func NewImportScheduledItemsQueue(runner ScheduledItemsRunner, reporter ScheduledItemsReporter) backlite.Queue {
	return backlite.NewQueue(ImportScheduledItemsProcessor(runner, reporter))
}
