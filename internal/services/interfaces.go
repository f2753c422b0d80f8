package services

import (
	"context"
	"time"

	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/importers"
)

// TaskStore is the task persistence used by the runners.
type TaskStore interface {
	GetByID(id uint) (*entities.Task, error)
	ListDueIDs(now time.Time, staleTimeout time.Duration) ([]uint, error)
	Claim(id uint, now time.Time, staleTimeout time.Duration) (bool, *time.Time, error)
	Release(id uint, importedAt *time.Time) error
	UpdateRunState(task *entities.Task) error
}

// ScheduledItemStore is the part of the ledger the scheduled item run reads.
type ScheduledItemStore interface {
	Get(ctx context.Context, id string) (*entities.Item, error)
	ListScheduledIDs(ctx context.Context, limit int, taskID uint) ([]string, error)
}

// ImporterProvider builds a ready to run importer for a task.
type ImporterProvider interface {
	ForTask(task *entities.Task) (*importers.Importer, error)
}

// TaskListener is notified around every task run.
type TaskListener interface {
	BeforeImport(ctx context.Context, task *entities.Task)
	AfterImport(ctx context.Context, task *entities.Task, stats *entities.ImportStatistics, err error)
}

// Dispatcher hands a claimed task over to a background worker.
type Dispatcher interface {
	DispatchTaskImport(ctx context.Context, taskID uint) error
}
