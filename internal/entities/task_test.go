package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func validTask() *Task {
	task := &Task{
		Title:        "News",
		Link:         "https://example.com/feed.json",
		ImporterCode: "article",
		ReaderCode:   "json",
		Active:       true,
	}
	_ = task.SetImporterOptions(ImporterOptions{ItemHashIDFields: []string{"id"}})
	return task
}

func TestTask_PreparedLink(t *testing.T) {
	t.Run("non paginated link is returned as is", func(t *testing.T) {
		task := &Task{Link: "https://example.com/{page}.json"}
		assert.Equal(t, "https://example.com/{page}.json", task.PreparedLink(3))
	})

	t.Run("default placeholder", func(t *testing.T) {
		task := &Task{Link: "https://example.com/items?page={page}", PaginatedLink: true}
		assert.Equal(t, "https://example.com/items?page=2", task.PreparedLink(2))
	})

	t.Run("custom placeholder", func(t *testing.T) {
		task := &Task{Link: "https://example.com/p/%P%", PaginatedLink: true, PageParameter: "%P%"}
		assert.Equal(t, "https://example.com/p/5", task.PreparedLink(5))
	})

	t.Run("first page defaults to one", func(t *testing.T) {
		assert.Equal(t, 1, (&Task{}).FirstPage())
		assert.Equal(t, 3, (&Task{FirstPageValue: 3}).FirstPage())
	})
}

func TestTask_Validate(t *testing.T) {
	t.Run("valid task", func(t *testing.T) {
		assert.NoError(t, validTask().Validate())
	})

	t.Run("missing required fields", func(t *testing.T) {
		err := (&Task{}).Validate()
		var verr *TaskValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "Title")
		assert.Contains(t, verr.Fields, "Link")
		assert.Contains(t, verr.Fields, "ImporterCode")
		assert.Contains(t, verr.Fields, "ReaderCode")
	})

	t.Run("paginated link without placeholder", func(t *testing.T) {
		task := validTask()
		task.PaginatedLink = true
		err := task.Validate()
		var verr *TaskValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields["Link"], "{page}")
	})

	t.Run("period below minimum", func(t *testing.T) {
		task := validTask()
		task.Period = intPtr(600)
		err := task.Validate()
		var verr *TaskValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "Period")

		task.Period = intPtr(MinPeriod)
		assert.NoError(t, task.Validate())
	})

	t.Run("empty identity fields", func(t *testing.T) {
		task := validTask()
		require.NoError(t, task.SetImporterOptions(ImporterOptions{}))
		err := task.Validate()
		var verr *TaskValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, ErrNoIdentityFields.Error(), verr.Fields["ImporterOptions"])
	})
}

func TestTask_SetImporterOptions(t *testing.T) {
	task := &Task{}
	opts := ImporterOptions{ItemHashIDFields: []string{"id"}, DataPath: "items"}
	require.NoError(t, task.SetImporterOptions(opts))
	hash := task.ImporterOptionsHash
	assert.Len(t, hash, 40)

	decoded, err := task.GetImporterOptions()
	require.NoError(t, err)
	assert.Equal(t, opts.DataPath, decoded.DataPath)
	assert.Equal(t, opts.ItemHashIDFields, decoded.ItemHashIDFields)

	t.Run("force does not change the hash", func(t *testing.T) {
		opts.Force = true
		require.NoError(t, task.SetImporterOptions(opts))
		assert.Equal(t, hash, task.ImporterOptionsHash)
	})

	t.Run("sync data changes the hash", func(t *testing.T) {
		opts.SyncData = true
		require.NoError(t, task.SetImporterOptions(opts))
		assert.NotEqual(t, hash, task.ImporterOptionsHash)
	})
}

func TestTask_Statistics(t *testing.T) {
	task := &Task{}
	assert.Equal(t, ImportStatistics{}, task.GetStatistics())

	now := time.Now()
	task.MarkStarted(now)
	assert.True(t, task.InProgress)
	require.NotNil(t, task.ImportedAt)

	stats := (&ImportStatistics{}).SetAll(3).IncrementCreated(2).IncrementErrors(1)
	task.MarkFinished(stats)
	assert.False(t, task.InProgress)
	assert.Equal(t, *stats, task.GetStatistics())
}

func TestTask_IsDue(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stale := 4 * time.Hour
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"never imported", Task{Active: true, Period: intPtr(3600)}, true},
		{"inactive", Task{Active: false, Period: intPtr(3600)}, false},
		{"not scheduled", Task{Active: true}, false},
		{"period not elapsed", Task{Active: true, Period: intPtr(3600), ImportedAt: at(30 * time.Minute)}, false},
		{"period elapsed", Task{Active: true, Period: intPtr(3600), ImportedAt: at(2 * time.Hour)}, true},
		{"in progress recently", Task{Active: true, Period: intPtr(3600), InProgress: true, ImportedAt: at(2 * time.Hour)}, false},
		{"stale in progress", Task{Active: true, Period: intPtr(3600), InProgress: true, ImportedAt: at(5 * time.Hour)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsDue(now, stale))
		})
	}
}
