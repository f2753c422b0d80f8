package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/feedimport/internal/tasks"
)

type fakeDispatcher struct {
	calls int
	err   error
}

func (d *fakeDispatcher) DispatchDueTasks(context.Context) (int, error) {
	d.calls++
	return 1, d.err
}

type fakeQueue struct {
	jobs []backlite.Task
}

func (q *fakeQueue) Enqueue(jobs ...backlite.Task) ([]string, error) {
	q.jobs = append(q.jobs, jobs...)
	return []string{"id"}, nil
}

func testConfig() Config {
	return Config{
		Enabled:            true,
		TasksSchedule:      "*/5 * * * *",
		ItemsSchedule:      "*/10 * * * *",
		CleanupSchedule:    "0 3 * * *",
		ItemsPeriod:        10 * time.Minute,
		ItemsBatch:         500,
		AuditRetentionDays: 14,
	}
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.Error(t, ValidateSchedule("every five minutes"))
	assert.Error(t, ValidateSchedule("0 */5 * * * *"))
}

func TestNextRunTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 2, 0, 0, time.UTC)
	next, err := NextRunTime("*/5 * * * *", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC), next)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Every 5 minutes", Describe("*/5 * * * *"))
	assert.Equal(t, "Custom schedule: 1 2 * * *", Describe("1 2 * * *"))
}

func TestImportScheduler_StartStop(t *testing.T) {
	s := NewImportScheduler(testConfig(), &fakeDispatcher{}, &fakeQueue{})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.NextRuns()
	assert.Len(t, next, 3)
	assert.True(t, next[JobDueTasks].After(time.Now()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Empty(t, s.NextRuns())
}

func TestImportScheduler_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	s := NewImportScheduler(cfg, &fakeDispatcher{}, &fakeQueue{})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestImportScheduler_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.ItemsSchedule = "sometimes"
	s := NewImportScheduler(cfg, &fakeDispatcher{}, &fakeQueue{})

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "scheduled_items")
	assert.False(t, s.IsRunning())
}

func TestImportScheduler_StopsWithContext(t *testing.T) {
	s := NewImportScheduler(testConfig(), &fakeDispatcher{}, &fakeQueue{})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestImportScheduler_RunNow(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	queue := &fakeQueue{}
	s := NewImportScheduler(testConfig(), dispatcher, queue)
	ctx := context.Background()

	require.NoError(t, s.RunNow(ctx, JobDueTasks))
	assert.Equal(t, 1, dispatcher.calls)

	require.NoError(t, s.RunNow(ctx, JobScheduledItems))
	require.NoError(t, s.RunNow(ctx, JobAuditCleanup))
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, tasks.ImportScheduledItemsTask{Batch: 500, PeriodSeconds: 600, All: true}, queue.jobs[0])
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 14}, queue.jobs[1])

	dispatcher.err = errors.New("database is locked")
	assert.Error(t, s.RunNow(ctx, JobDueTasks))
	assert.Error(t, s.RunNow(ctx, "unknown"))
}
