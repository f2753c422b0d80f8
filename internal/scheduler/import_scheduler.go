// Package scheduler triggers import work on cron schedules. Due tasks are
// claimed and handed to the background queue; scheduled item runs and
// audit cleanup are enqueued as queue jobs.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/feedimport/internal/tasks"
)

const (
	JobDueTasks       = "due_tasks"
	JobScheduledItems = "scheduled_items"
	JobAuditCleanup   = "audit_cleanup"
)

type Config struct {
	Enabled bool

	TasksSchedule   string
	ItemsSchedule   string
	CleanupSchedule string

	// ItemsPeriod is the wall-clock budget of one scheduled item run.
	ItemsPeriod time.Duration

	ItemsBatch         int
	AuditRetentionDays int
}

// TaskDispatcher claims due tasks and enqueues their imports.
type TaskDispatcher interface {
	DispatchDueTasks(ctx context.Context) (int, error)
}

// Enqueuer adds jobs to the background queue.
type Enqueuer interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
}

// ImportScheduler runs the import jobs on their cron schedules.
type ImportScheduler struct {
	config     Config
	dispatcher TaskDispatcher
	queue      Enqueuer

	cron       *cron.Cron
	entries    map[string]cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewImportScheduler(config Config, dispatcher TaskDispatcher, queue Enqueuer) *ImportScheduler {
	return &ImportScheduler{
		config:     config,
		dispatcher: dispatcher,
		queue:      queue,
		cron:       cron.New(cron.WithParser(scheduleParser)),
		entries:    map[string]cron.EntryID{},
	}
}

// Start registers the jobs and starts the cron loop when scheduling is enabled.
func (s *ImportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("Import scheduler: disabled")
		return nil
	}

	jobs := map[string]string{
		JobDueTasks:       s.config.TasksSchedule,
		JobScheduledItems: s.config.ItemsSchedule,
		JobAuditCleanup:   s.config.CleanupSchedule,
	}
	for name, schedule := range jobs {
		if schedule == "" {
			continue
		}
		if err := ValidateSchedule(schedule); err != nil {
			return fmt.Errorf("invalid cron schedule '%s' for %s: %w", schedule, name, err)
		}
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	for name, schedule := range jobs {
		if schedule == "" {
			log.Printf("Import scheduler: %s job has no schedule, skipping", name)
			continue
		}
		name := name
		entryID, err := s.cron.AddFunc(schedule, func() { s.run(cancelCtx, name) })
		if err != nil {
			s.cancelFunc()
			return fmt.Errorf("failed to schedule %s job: %w", name, err)
		}
		s.entries[name] = entryID
		log.Printf("Import scheduler: %s job scheduled '%s' (%s)", name, schedule, Describe(schedule))
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Import scheduler: started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *ImportScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	done := s.cron.Stop()
	<-done.Done()

	for name, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false

	log.Printf("Import scheduler: stopped")
}

// RunNow runs a job immediately, outside of its schedule.
func (s *ImportScheduler) RunNow(ctx context.Context, name string) error {
	switch name {
	case JobDueTasks, JobScheduledItems, JobAuditCleanup:
		return s.runJob(ctx, name)
	default:
		return fmt.Errorf("unknown scheduler job %q", name)
	}
}

func (s *ImportScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRuns returns the next activation of every scheduled job.
func (s *ImportScheduler) NextRuns() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	next := make(map[string]time.Time, len(s.entries))
	if !s.isRunning {
		return next
	}
	for name, id := range s.entries {
		next[name] = s.cron.Entry(id).Next
	}
	return next
}

func (s *ImportScheduler) run(ctx context.Context, name string) {
	if err := s.runJob(ctx, name); err != nil {
		log.Printf("Import scheduler: %s job failed: %v", name, err)
	}
}

func (s *ImportScheduler) runJob(ctx context.Context, name string) error {
	switch name {
	case JobDueTasks:
		count, err := s.dispatcher.DispatchDueTasks(ctx)
		if count > 0 {
			log.Printf("Import scheduler: dispatched %d due tasks", count)
		}
		return err
	case JobScheduledItems:
		_, err := s.queue.Enqueue(tasks.ImportScheduledItemsTask{
			Batch:         s.config.ItemsBatch,
			PeriodSeconds: int(s.config.ItemsPeriod / time.Second),
			All:           true,
		})
		return err
	case JobAuditCleanup:
		_, err := s.queue.Enqueue(tasks.CleanupAuditEventsTask{RetentionDays: s.config.AuditRetentionDays})
		return err
	}
	return nil
}
