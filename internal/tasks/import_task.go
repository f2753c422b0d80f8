package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/importers"
)

// TaskImporter runs the import of one task.
type TaskImporter interface {
	ImportTask(ctx context.Context, taskID uint, opts importers.RunOptions) (*entities.ImportStatistics, error)
}

// ImportTask runs one import task in a worker. The task was claimed by the
// dispatcher, so a failed run is not retried: the next schedule picks it up.
type ImportTask struct {
	TaskID uint  `json:"task_id"`
	Pages  []int `json:"pages,omitempty"`
	Force  bool  `json:"force,omitempty"`
}

// Config returns the queue configuration for task imports.
func (t ImportTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_task",
		MaxAttempts: 1,
		Timeout:     4 * time.Hour,
		Retention:   finishedJobs(),
	}
}

// ImportTaskProcessor creates a processor function for ImportTask.
func ImportTaskProcessor(runner TaskImporter) backlite.QueueProcessor[ImportTask] {
	return func(ctx context.Context, task ImportTask) error {
		if runner == nil {
			return fmt.Errorf("task importer not configured")
		}

		stats, err := runner.ImportTask(ctx, task.TaskID, importers.RunOptions{Pages: task.Pages, Force: task.Force})
		if err != nil {
			return fmt.Errorf("import task %d: %w", task.TaskID, err)
		}

		log.Printf("[TASK] Imported task %d: %d records, %d created, %d updated, %d errors",
			task.TaskID, stats.All, stats.Created, stats.Updated, stats.Errors)
		return nil
	}
}

// NewImportTaskQueue creates a backlite queue for task imports.
func NewImportTaskQueue(runner TaskImporter) backlite.Queue {
	return backlite.NewQueue(ImportTaskProcessor(runner))
}

// Dispatcher enqueues claimed tasks on the import queue.
type Dispatcher struct {
	client *Client
}

func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) DispatchTaskImport(_ context.Context, taskID uint) error {
	_, err := d.client.Enqueue(ImportTask{TaskID: taskID})
	return err
}
