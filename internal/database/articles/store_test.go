package articles

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/feedimport/internal/database"
	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/importers"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	dbPath := "./test_articles_" + t.Name() + ".db"
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Article{}))

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func newStore(t *testing.T) (*Store, *database.UnitOfWork, func()) {
	t.Helper()
	db, cleanup := setupTestDB(t)
	uow := database.NewUnitOfWork(db)
	return NewStore(db, uow), uow, cleanup
}

func TestStore_ProcessFormAndSave(t *testing.T) {
	store, uow, cleanup := newStore(t)
	defer cleanup()
	ctx := context.Background()

	article := store.New().(*entities.Article)
	assert.True(t, article.IsNew())

	err := store.ProcessForm(article, map[string]any{
		"title":        "First post",
		"link":         "https://example.com/first",
		"rating":       "4.5",
		"featured":     "true",
		"published_at": "2024-03-01T10:00:00Z",
		"author":       map[string]any{"name": "Jane", "email": "jane@example.com"},
		"unknown":      "ignored",
	}, importers.FormOptions{ClearMissing: true})
	require.NoError(t, err)

	assert.Equal(t, "First post", article.Title)
	assert.Equal(t, 4.5, article.Rating)
	assert.True(t, article.Featured)
	assert.Equal(t, "Jane", article.Author.Name)
	require.NotNil(t, article.PublishedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), article.PublishedAt.UTC())

	require.NoError(t, store.Save(ctx, article, false))
	assert.False(t, article.IsNew())
	assert.Equal(t, 1, uow.Len())

	found, err := store.Find(ctx, article.ID)
	require.NoError(t, err)
	assert.Same(t, article, found)

	require.NoError(t, store.Save(ctx, article, true))
	assert.Equal(t, 0, uow.Len())

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := store.Find(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, "First post", stored.(*entities.Article).Title)
}

func TestStore_FindMissing(t *testing.T) {
	store, _, cleanup := newStore(t)
	defer cleanup()

	_, err := store.Find(context.Background(), "missing")
	assert.True(t, errors.Is(err, importers.ErrObjectNotFound))
}

func TestStore_PatchKeepsMissingFields(t *testing.T) {
	store, _, cleanup := newStore(t)
	defer cleanup()

	article := &entities.Article{ID: "a1", Title: "A", Summary: "x", CreatedAt: time.Now()}

	require.NoError(t, store.ProcessForm(article, map[string]any{"title": "B"}, importers.FormOptions{}))
	assert.Equal(t, "B", article.Title)
	assert.Equal(t, "x", article.Summary)

	require.NoError(t, store.ProcessForm(article, map[string]any{"title": "C"}, importers.FormOptions{ClearMissing: true}))
	assert.Equal(t, "C", article.Title)
	assert.Equal(t, "", article.Summary)
	assert.Equal(t, "a1", article.ID)
	assert.False(t, article.CreatedAt.IsZero())
}

func TestStore_ValidationErrors(t *testing.T) {
	store, _, cleanup := newStore(t)
	defer cleanup()

	article := &entities.Article{ID: "a1", Title: "Keep me"}
	err := store.ProcessForm(article, map[string]any{
		"title":  "",
		"link":   "not a url",
		"rating": 9,
		"author": map[string]any{"email": "nope"},
	}, importers.FormOptions{ClearMissing: true})

	var invalid *importers.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Fields, "title")
	assert.Contains(t, invalid.Fields, "link")
	assert.Contains(t, invalid.Fields, "rating")
	assert.Contains(t, invalid.Fields, "author.email")

	// A rejected form leaves the article untouched.
	assert.Equal(t, "Keep me", article.Title)
}

func TestStore_DecodeErrorsAreValidationErrors(t *testing.T) {
	store, _, cleanup := newStore(t)
	defer cleanup()

	article := entities.NewArticle()
	err := store.ProcessForm(article, map[string]any{
		"title":        "T",
		"published_at": "yesterday-ish",
	}, importers.FormOptions{ClearMissing: true})

	var invalid *importers.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Len(t, invalid.Fields, 1)
}

func TestStore_PublishedAtFormats(t *testing.T) {
	store, _, cleanup := newStore(t)
	defer cleanup()

	tests := []struct {
		name  string
		value any
		want  *time.Time
	}{
		{"date only", "2024-03-01", ptr(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))},
		{"rfc1123", "Fri, 01 Mar 2024 10:00:00 GMT", ptr(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))},
		{"unix seconds", float64(1709287200), ptr(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := entities.NewArticle()
			err := store.ProcessForm(article, map[string]any{"title": "T", "published_at": tt.value}, importers.FormOptions{ClearMissing: true})
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, article.PublishedAt)
				return
			}
			require.NotNil(t, article.PublishedAt)
			assert.True(t, tt.want.Equal(*article.PublishedAt))
		})
	}
}

func TestStore_FindByLink(t *testing.T) {
	store, _, cleanup := newStore(t)
	defer cleanup()
	ctx := context.Background()

	article := entities.NewArticle()
	article.Title = "Linked"
	article.Link = "https://example.com/linked"
	require.NoError(t, store.Save(ctx, article, false))

	found, err := store.FindByLink(ctx, article.Link)
	require.NoError(t, err)
	assert.Same(t, article, found)

	require.NoError(t, store.Save(ctx, article, true))
	found, err = store.FindByLink(ctx, article.Link)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, article.ID, found.ID)

	found, err = store.FindByLink(ctx, "https://example.com/other")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func ptr(t time.Time) *time.Time {
	return &t
}
