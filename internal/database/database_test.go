package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/feedimport/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()
	dbPath := "./test_" + t.Name() + ".db"
	db, err := NewDatabase(dbPath, logger.Silent)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func TestDatabase_Stats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, db.Ping())

	task := &entities.Task{Title: "Feed", Link: "https://example.com", ImporterCode: "article", ReaderCode: "rss"}
	require.NoError(t, db.DB.Create(task).Error)

	for i, status := range []entities.ItemStatus{entities.ItemStatusCreated, entities.ItemStatusCreated, entities.ItemStatusError} {
		item := entities.NewItem(task.ID, string(rune('a'+i)))
		item.StatusID = status
		require.NoError(t, db.DB.Create(item).Error)
	}

	tasks, items, articles, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), tasks)
	assert.Equal(t, int64(3), items)
	assert.Equal(t, int64(0), articles)

	counts, err := db.ItemStatusCounts(task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[entities.ItemStatusCreated])
	assert.Equal(t, int64(1), counts[entities.ItemStatusError])

	counts, err = db.ItemStatusCounts(task.ID + 1)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestUnitOfWork(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	uow := NewUnitOfWork(db.DB)

	t.Run("buffers until flush", func(t *testing.T) {
		article := entities.NewArticle()
		article.Title = "First"
		key := Key("articles", article.ID)
		uow.Persist(key, article)

		pending, ok := uow.Pending(key)
		require.True(t, ok)
		assert.Same(t, article, pending)
		assert.Equal(t, 1, uow.Len())

		var count int64
		db.DB.Model(&entities.Article{}).Count(&count)
		assert.Equal(t, int64(0), count)

		require.NoError(t, uow.Flush(ctx))
		assert.Equal(t, 0, uow.Len())

		db.DB.Model(&entities.Article{}).Count(&count)
		assert.Equal(t, int64(1), count)
		assert.False(t, article.IsNew())
	})

	t.Run("persisting the same key twice keeps one entry", func(t *testing.T) {
		article := entities.NewArticle()
		article.Title = "Draft"
		key := Key("articles", article.ID)
		uow.Persist(key, article)
		article.Title = "Final"
		uow.Persist(key, article)
		assert.Equal(t, 1, uow.Len())

		var keys []string
		uow.Range(func(k string, _ any) bool {
			keys = append(keys, k)
			return true
		})
		assert.Equal(t, []string{key}, keys)

		require.NoError(t, uow.Flush(ctx))

		var stored entities.Article
		require.NoError(t, db.DB.First(&stored, "id = ?", article.ID).Error)
		assert.Equal(t, "Final", stored.Title)
	})

	t.Run("saving an existing row updates it", func(t *testing.T) {
		var stored entities.Article
		require.NoError(t, db.DB.Where("title = ?", "Final").First(&stored).Error)

		stored.Summary = "updated"
		uow.Persist(Key("articles", stored.ID), &stored)
		require.NoError(t, uow.Flush(ctx))

		var count int64
		db.DB.Model(&entities.Article{}).Count(&count)
		assert.Equal(t, int64(2), count)

		var reloaded entities.Article
		require.NoError(t, db.DB.First(&reloaded, "id = ?", stored.ID).Error)
		assert.Equal(t, "updated", reloaded.Summary)
	})

	t.Run("clear drops pending models", func(t *testing.T) {
		article := entities.NewArticle()
		article.Title = "Dropped"
		uow.Persist(Key("articles", article.ID), article)
		uow.Clear()
		require.NoError(t, uow.Flush(ctx))

		var count int64
		db.DB.Model(&entities.Article{}).Where("title = ?", "Dropped").Count(&count)
		assert.Equal(t, int64(0), count)
	})
}
