package tasks

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/feedimport/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	dbPath := "./test_tasks_" + t.Name() + ".db"
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Task{})
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func intPtr(v int) *int { return &v }

func newTask(code string, period *int) *entities.Task {
	task := &entities.Task{
		Code:         code,
		Title:        "Task " + code,
		Link:         "https://example.com/" + code + ".json",
		ImporterCode: "article",
		ReaderCode:   "json",
		Period:       period,
		Active:       true,
	}
	_ = task.SetImporterOptions(entities.ImporterOptions{ItemHashIDFields: []string{"id"}})
	return task
}

func TestRepository_CreateAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)

	task := newTask("news", intPtr(3600))
	require.NoError(t, repo.Create(task))
	assert.NotZero(t, task.ID)

	byID, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "news", byID.Code)

	byCode, err := repo.GetByCode("news")
	require.NoError(t, err)
	assert.Equal(t, task.ID, byCode.ID)

	_, err = repo.GetByID(999)
	assert.True(t, errors.Is(err, ErrTaskNotFound))

	t.Run("invalid task is rejected", func(t *testing.T) {
		err := repo.Create(&entities.Task{Title: "missing link"})
		assert.Error(t, err)
	})
}

func TestRepository_ListDueIDs(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)

	now := time.Now()
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	neverRun := newTask("never", intPtr(3600))
	recent := newTask("recent", intPtr(3600))
	recent.ImportedAt = ago(10 * time.Minute)
	elapsed := newTask("elapsed", intPtr(3600))
	elapsed.ImportedAt = ago(2 * time.Hour)
	running := newTask("running", intPtr(3600))
	running.InProgress = true
	running.ImportedAt = ago(2 * time.Hour)
	stale := newTask("stale", intPtr(3600))
	stale.InProgress = true
	stale.ImportedAt = ago(5 * time.Hour)
	manual := newTask("manual", nil)

	for _, task := range []*entities.Task{neverRun, recent, elapsed, running, stale, manual} {
		require.NoError(t, repo.Create(task))
	}

	inactive := newTask("inactive", intPtr(3600))
	require.NoError(t, repo.Create(inactive))
	require.NoError(t, db.Model(inactive).Update("active", false).Error)

	ids, err := repo.ListDueIDs(now, 4*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []uint{neverRun.ID, elapsed.ID, stale.ID}, ids)
}

func TestRepository_Claim(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)

	task := newTask("claim", intPtr(3600))
	require.NoError(t, repo.Create(task))

	now := time.Now()
	claimed, previous, err := repo.Claim(task.ID, now, 4*time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Nil(t, previous)

	claimed, _, err = repo.Claim(task.ID, now, 4*time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed, "a running task cannot be claimed twice")

	stored, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.True(t, stored.InProgress)
	require.NotNil(t, stored.ImportedAt)
}

func TestRepository_Release(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)

	task := newTask("release", intPtr(3600))
	require.NoError(t, repo.Create(task))
	now := time.Now()

	t.Run("never run task is due again", func(t *testing.T) {
		claimed, previous, err := repo.Claim(task.ID, now, 4*time.Hour)
		require.NoError(t, err)
		require.True(t, claimed)

		require.NoError(t, repo.Release(task.ID, previous))

		stored, err := repo.GetByID(task.ID)
		require.NoError(t, err)
		assert.False(t, stored.InProgress)
		assert.Nil(t, stored.ImportedAt)

		ids, err := repo.ListDueIDs(now, 4*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, []uint{task.ID}, ids)
	})

	t.Run("previous import time is restored", func(t *testing.T) {
		earlier := now.Add(-2 * time.Hour).UTC().Truncate(time.Second)
		task.ImportedAt = &earlier
		require.NoError(t, repo.UpdateRunState(task))

		claimed, previous, err := repo.Claim(task.ID, now, 4*time.Hour)
		require.NoError(t, err)
		require.True(t, claimed)
		require.NotNil(t, previous)
		assert.True(t, earlier.Equal(*previous))

		require.NoError(t, repo.Release(task.ID, previous))

		stored, err := repo.GetByID(task.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ImportedAt)
		assert.True(t, earlier.Equal(*stored.ImportedAt))
	})
}

func TestRepository_UpdateRunState(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)

	task := newTask("state", intPtr(3600))
	require.NoError(t, repo.Create(task))

	task.MarkStarted(time.Now())
	task.Title = "not persisted"
	require.NoError(t, repo.UpdateRunState(task))

	task.MarkFinished((&entities.ImportStatistics{}).SetAll(4).IncrementCreated(4))
	require.NoError(t, repo.UpdateRunState(task))

	stored, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.False(t, stored.InProgress)
	assert.NotNil(t, stored.ImportedAt)
	assert.Equal(t, 4, stored.GetStatistics().Created)
	assert.Equal(t, "Task state", stored.Title)
}

func TestRepository_Upsert(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)

	task := newTask("feed", intPtr(3600))
	created, err := repo.Upsert(task)
	require.NoError(t, err)
	assert.True(t, created)

	now := time.Now()
	task.MarkStarted(now)
	require.NoError(t, repo.UpdateRunState(task))

	changed := newTask("feed", intPtr(7200))
	changed.Title = "Renamed"
	created, err = repo.Upsert(changed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, task.ID, changed.ID)

	stored, err := repo.GetByCode("feed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)
	assert.Equal(t, 7200, *stored.Period)
	assert.True(t, stored.InProgress)

	_, err = repo.Upsert(newTask("", nil))
	assert.Error(t, err)
}
