package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.uber.org/multierr"

	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/importers"
	"github.com/mrlokans/feedimport/internal/locks"
	"github.com/mrlokans/feedimport/internal/metrics"
)

// ImportTasksLock guards the selection and run of due tasks.
const ImportTasksLock = "import:tasks"

type RunnerConfig struct {
	// StaleTimeout after which an in-progress task is considered crashed.
	StaleTimeout time.Duration

	// LockTTL bounds how long a crashed process keeps the command lock.
	LockTTL time.Duration
}

// TaskRunner runs task imports and keeps the task run state up to date.
type TaskRunner struct {
	tasks      TaskStore
	importers  ImporterProvider
	locker     locks.Locker
	listeners  []TaskListener
	dispatcher Dispatcher
	config     RunnerConfig
	now        func() time.Time
}

func NewTaskRunner(tasks TaskStore, importers ImporterProvider, locker locks.Locker, config RunnerConfig, listeners ...TaskListener) *TaskRunner {
	if config.StaleTimeout <= 0 {
		config.StaleTimeout = 4 * time.Hour
	}
	if config.LockTTL <= 0 {
		config.LockTTL = config.StaleTimeout
	}
	return &TaskRunner{
		tasks:     tasks,
		importers: importers,
		locker:    locker,
		listeners: listeners,
		config:    config,
		now:       time.Now,
	}
}

// SetDispatcher enables DispatchDueTasks.
func (r *TaskRunner) SetDispatcher(d Dispatcher) {
	r.dispatcher = d
}

// ImportTask runs one task. The task is flagged in progress for the
// duration of the run and the flag is cleared whatever the outcome.
func (r *TaskRunner) ImportTask(ctx context.Context, taskID uint, opts importers.RunOptions) (*entities.ImportStatistics, error) {
	task, err := r.tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}

	task.MarkStarted(r.now())
	if err := r.tasks.UpdateRunState(task); err != nil {
		return nil, fmt.Errorf("failed to mark task %d as started: %w", task.ID, err)
	}
	for _, l := range r.listeners {
		l.BeforeImport(ctx, task)
	}

	log.Printf("TaskRunner: importing task %d (%s) from %s", task.ID, task.Title, task.Link)
	stats, runErr := r.run(ctx, task, opts)

	if runErr != nil {
		task.MarkFinished(nil)
	} else {
		task.MarkFinished(stats)
	}
	if err := r.tasks.UpdateRunState(task); err != nil {
		runErr = multierr.Append(runErr, fmt.Errorf("failed to store run state of task %d: %w", task.ID, err))
	}

	for _, l := range r.listeners {
		l.AfterImport(ctx, task, stats, runErr)
	}

	if runErr != nil {
		metrics.TaskRuns.WithLabelValues("failed").Inc()
		log.Printf("TaskRunner: task %d failed: %v", task.ID, runErr)
		return stats, runErr
	}
	metrics.TaskRuns.WithLabelValues("success").Inc()
	log.Printf("TaskRunner: task %d finished: %d records, %d created, %d updated, %d errors",
		task.ID, stats.All, stats.Created, stats.Updated, stats.Errors)
	return stats, nil
}

func (r *TaskRunner) run(ctx context.Context, task *entities.Task, opts importers.RunOptions) (*entities.ImportStatistics, error) {
	importer, err := r.importers.ForTask(task)
	if err != nil {
		return nil, err
	}
	return importer.ImportTask(ctx, opts)
}

// RunTasks imports the given tasks under the command lock. A failing task
// does not stop the others; all failures are returned together.
func (r *TaskRunner) RunTasks(ctx context.Context, ids []uint, opts importers.RunOptions) error {
	return locks.WithLock(ctx, r.locker, ImportTasksLock, r.config.LockTTL, func() error {
		return r.importAll(ctx, ids, opts, false)
	})
}

// RunDueTasks imports every due task under the command lock.
func (r *TaskRunner) RunDueTasks(ctx context.Context, opts importers.RunOptions) error {
	return locks.WithLock(ctx, r.locker, ImportTasksLock, r.config.LockTTL, func() error {
		ids, err := r.tasks.ListDueIDs(r.now(), r.config.StaleTimeout)
		if err != nil {
			return fmt.Errorf("failed to list due tasks: %w", err)
		}
		if len(ids) == 0 {
			log.Println("TaskRunner: no due tasks")
			return nil
		}
		return r.importAll(ctx, ids, opts, true)
	})
}

func (r *TaskRunner) importAll(ctx context.Context, ids []uint, opts importers.RunOptions, claim bool) error {
	var errs error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if claim {
			claimed, _, err := r.tasks.Claim(id, r.now(), r.config.StaleTimeout)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("task %d: %w", id, err))
				continue
			}
			if !claimed {
				log.Printf("TaskRunner: task %d was claimed by another process", id)
				continue
			}
		}
		if _, err := r.ImportTask(ctx, id, opts); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("task %d: %w", id, err))
		}
	}
	return errs
}

// DispatchDueTasks claims every due task and hands it to the dispatcher.
// It returns the number of dispatched tasks.
func (r *TaskRunner) DispatchDueTasks(ctx context.Context) (int, error) {
	if r.dispatcher == nil {
		return 0, errors.New("no task dispatcher configured")
	}

	dispatched := 0
	err := locks.WithLock(ctx, r.locker, ImportTasksLock, r.config.LockTTL, func() error {
		ids, err := r.tasks.ListDueIDs(r.now(), r.config.StaleTimeout)
		if err != nil {
			return fmt.Errorf("failed to list due tasks: %w", err)
		}

		var errs error
		for _, id := range ids {
			claimed, previous, err := r.tasks.Claim(id, r.now(), r.config.StaleTimeout)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("task %d: %w", id, err))
				continue
			}
			if !claimed {
				continue
			}
			if err := r.dispatcher.DispatchTaskImport(ctx, id); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("task %d: %w", id, err))
				if err := r.tasks.Release(id, previous); err != nil {
					log.Printf("TaskRunner: failed to release task %d: %v", id, err)
				}
				continue
			}
			dispatched++
		}
		return errs
	})
	return dispatched, err
}
