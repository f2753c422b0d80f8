package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/feedimport/internal/database"
	"github.com/mrlokans/feedimport/internal/database/articles"
	"github.com/mrlokans/feedimport/internal/database/items"
	lockrepo "github.com/mrlokans/feedimport/internal/database/locks"
	"github.com/mrlokans/feedimport/internal/database/tasks"
	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/importers"
	"github.com/mrlokans/feedimport/internal/locks"
	"github.com/mrlokans/feedimport/internal/readers"
)

const staticReaderCode = "static"

type staticReader struct {
	mu    sync.Mutex
	pages map[string][]any
	fail  map[string]bool
}

func (r *staticReader) Code() string     { return staticReaderCode }
func (r *staticReader) DataInRoot() bool { return true }

func (r *staticReader) Read(_ context.Context, link string, _ readers.ReadOptions) (readers.ImportedData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[link] {
		return nil, &readers.ReaderError{Link: link, Msg: "resource not found"}
	}
	return readers.NewMemoryData(r.pages[link], true), nil
}

type recordingListener struct {
	before []uint
	after  []error
	stats  []*entities.ImportStatistics
}

func (l *recordingListener) BeforeImport(_ context.Context, task *entities.Task) {
	l.before = append(l.before, task.ID)
}

func (l *recordingListener) AfterImport(_ context.Context, _ *entities.Task, stats *entities.ImportStatistics, err error) {
	l.after = append(l.after, err)
	l.stats = append(l.stats, stats)
}

type fakeDispatcher struct {
	ids []uint
	err error
}

func (d *fakeDispatcher) DispatchTaskImport(_ context.Context, id uint) error {
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, id)
	return nil
}

type testEnv struct {
	db       *gorm.DB
	tasks    *tasks.Repository
	reader   *staticReader
	factory  *ImporterFactory
	locker   *locks.DatabaseLocker
	listener *recordingListener
	runner   *TaskRunner
	items    *ItemImporter
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "services.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reader := &staticReader{pages: map[string][]any{}, fail: map[string]bool{}}
	registry := readers.NewRegistry()
	registry.Register(readers.Definition{
		Code:  staticReaderCode,
		Title: "Static",
		New: func(readers.Fetcher, any) (readers.Reader, error) {
			return reader, nil
		},
	})

	env := &testEnv{
		db:       db.DB,
		tasks:    tasks.NewRepository(db.DB),
		reader:   reader,
		locker:   locks.NewDatabaseLocker(lockrepo.NewRepository(db.DB)),
		listener: &recordingListener{},
	}
	env.factory = NewImporterFactory(db.DB, readers.NewFactory(registry, nil), nil, nil, importers.Config{})
	env.runner = NewTaskRunner(env.tasks, env.factory, env.locker, RunnerConfig{}, env.listener)
	env.items = NewItemImporter(env.tasks, items.NewRepository(db.DB, database.NewUnitOfWork(db.DB)), env.factory, env.locker, ItemImporterConfig{})
	return env
}

func (e *testEnv) createTask(t *testing.T, code string, opts entities.ImporterOptions) *entities.Task {
	t.Helper()
	period := entities.PeriodHourly
	task := &entities.Task{
		Code:         code,
		Title:        "Task " + code,
		Link:         "static://" + code,
		ImporterCode: "article",
		ReaderCode:   staticReaderCode,
		Period:       &period,
		Active:       true,
	}
	if len(opts.ItemHashIDFields) == 0 {
		opts.ItemHashIDFields = []string{"id"}
	}
	require.NoError(t, task.SetImporterOptions(opts))
	require.NoError(t, e.tasks.Create(task))
	return task
}

func (e *testEnv) countArticles(t *testing.T) int64 {
	t.Helper()
	count, err := articles.NewStore(e.db, database.NewUnitOfWork(e.db)).Count(context.Background())
	require.NoError(t, err)
	return count
}

func newArticle(id, title string) map[string]any {
	return map[string]any{"id": id, "title": title, "link": "https://example.com/" + id}
}

func TestTaskRunner_ImportTask(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, "news", entities.ImporterOptions{})
	env.reader.pages[task.Link] = []any{newArticle("1", "First"), newArticle("2", "Second")}

	stats, err := env.runner.ImportTask(context.Background(), task.ID, importers.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.All)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, int64(2), env.countArticles(t))

	stored, err := env.tasks.GetByID(task.ID)
	require.NoError(t, err)
	assert.False(t, stored.InProgress)
	require.NotNil(t, stored.ImportedAt)
	assert.Equal(t, 2, stored.GetStatistics().Created)

	assert.Equal(t, []uint{task.ID}, env.listener.before)
	require.Len(t, env.listener.after, 1)
	assert.NoError(t, env.listener.after[0])

	stats, err = env.runner.ImportTask(context.Background(), task.ID, importers.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, int64(2), env.countArticles(t))
}

func TestTaskRunner_ImportTaskReaderError(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, "broken", entities.ImporterOptions{})
	env.reader.fail[task.Link] = true

	_, err := env.runner.ImportTask(context.Background(), task.ID, importers.RunOptions{})
	require.Error(t, err)
	var readerErr *readers.ReaderError
	assert.True(t, errors.As(err, &readerErr))

	stored, err := env.tasks.GetByID(task.ID)
	require.NoError(t, err)
	assert.False(t, stored.InProgress)

	require.Len(t, env.listener.after, 1)
	assert.Error(t, env.listener.after[0])
}

func TestTaskRunner_ImportTaskUnknownImporter(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, "misconfigured", entities.ImporterOptions{})
	require.NoError(t, env.db.Model(task).Update("importer_code", "missing").Error)

	_, err := env.runner.ImportTask(context.Background(), task.ID, importers.RunOptions{})
	var cfgErr *importers.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestTaskRunner_RunDueTasksIsolatesFailures(t *testing.T) {
	env := setupTestEnv(t)
	broken := env.createTask(t, "broken", entities.ImporterOptions{})
	healthy := env.createTask(t, "healthy", entities.ImporterOptions{})
	env.reader.fail[broken.Link] = true
	env.reader.pages[healthy.Link] = []any{newArticle("1", "First")}

	err := env.runner.RunDueTasks(context.Background(), importers.RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task 1")
	assert.Equal(t, int64(1), env.countArticles(t))

	ids, err := env.tasks.ListDueIDs(time.Now(), 4*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTaskRunner_RunDueTasksLocked(t *testing.T) {
	env := setupTestEnv(t)
	other := locks.NewDatabaseLocker(lockrepo.NewRepository(env.db))
	ok, err := other.TryLock(context.Background(), ImportTasksLock, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	err = env.runner.RunDueTasks(context.Background(), importers.RunOptions{})
	assert.ErrorIs(t, err, locks.ErrLocked)
}

func TestTaskRunner_DispatchDueTasks(t *testing.T) {
	env := setupTestEnv(t)
	first := env.createTask(t, "first", entities.ImporterOptions{})
	second := env.createTask(t, "second", entities.ImporterOptions{})

	_, err := env.runner.DispatchDueTasks(context.Background())
	require.Error(t, err)

	dispatcher := &fakeDispatcher{}
	env.runner.SetDispatcher(dispatcher)

	count, err := env.runner.DispatchDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []uint{first.ID, second.ID}, dispatcher.ids)

	stored, err := env.tasks.GetByID(first.ID)
	require.NoError(t, err)
	assert.True(t, stored.InProgress)

	count, err = env.runner.DispatchDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTaskRunner_DispatchFailureReleasesTask(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, "first", entities.ImporterOptions{})
	env.runner.SetDispatcher(&fakeDispatcher{err: errors.New("queue is down")})

	count, err := env.runner.DispatchDueTasks(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, count)

	stored, err := env.tasks.GetByID(task.ID)
	require.NoError(t, err)
	assert.False(t, stored.InProgress)
	assert.Nil(t, stored.ImportedAt)

	ids, err := env.tasks.ListDueIDs(time.Now(), 4*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []uint{task.ID}, ids)
}

func TestItemImporter_RunScheduled(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, "deferred", entities.ImporterOptions{Deferred: true})
	env.reader.pages[task.Link] = []any{newArticle("1", "First"), newArticle("2", "Second"), newArticle("3", "")}

	stats, err := env.runner.ImportTask(context.Background(), task.ID, importers.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Scheduled)
	assert.Equal(t, int64(0), env.countArticles(t))

	result, err := env.items.RunScheduled(context.Background(), ScheduledRunOptions{All: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Stopped)
	assert.Equal(t, int64(2), env.countArticles(t))

	ids, err := items.NewRepository(env.db, database.NewUnitOfWork(env.db)).ListScheduledIDs(context.Background(), 10, task.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestItemImporter_RunScheduledThrowErrors(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, "deferred", entities.ImporterOptions{Deferred: true})
	env.reader.pages[task.Link] = []any{newArticle("1", "")}

	_, err := env.runner.ImportTask(context.Background(), task.ID, importers.RunOptions{})
	require.NoError(t, err)

	result, err := env.items.RunScheduled(context.Background(), ScheduledRunOptions{ThrowErrors: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imported with errors")
	assert.Equal(t, 1, result.Failed)
}

func TestItemImporter_RunScheduledStopsWhenBudgetIsSpent(t *testing.T) {
	env := setupTestEnv(t)
	task := env.createTask(t, "deferred", entities.ImporterOptions{Deferred: true})
	env.reader.pages[task.Link] = []any{newArticle("1", "First"), newArticle("2", "Second")}

	_, err := env.runner.ImportTask(context.Background(), task.ID, importers.RunOptions{})
	require.NoError(t, err)

	started := time.Now()
	calls := 0
	env.items.now = func() time.Time {
		calls++
		if calls <= 2 {
			return started
		}
		return started.Add(time.Minute)
	}

	result, err := env.items.RunScheduled(context.Background(), ScheduledRunOptions{Period: time.Minute, All: true})
	require.NoError(t, err)
	assert.True(t, result.Stopped)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, int64(1), env.countArticles(t))
}

func TestItemImporter_ImportItem(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.items.ImportItem(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)

	task := env.createTask(t, "deferred", entities.ImporterOptions{Deferred: true})
	env.reader.pages[task.Link] = []any{newArticle("1", "First")}
	_, err = env.runner.ImportTask(context.Background(), task.ID, importers.RunOptions{})
	require.NoError(t, err)

	ids, err := items.NewRepository(env.db, database.NewUnitOfWork(env.db)).ListScheduledIDs(context.Background(), 10, task.ID)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	item, err := env.items.ImportItem(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, entities.ItemStatusCreated, item.StatusID)
	assert.Equal(t, entities.ArticleObjectType, item.TargetType)
	assert.NotEmpty(t, item.TargetID)
}

func TestItemImporter_RunScheduledSeesTaskChanges(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	task := env.createTask(t, "deferred", entities.ImporterOptions{Deferred: true})

	env.reader.pages[task.Link] = []any{newArticle("1", "First")}
	_, err := env.runner.ImportTask(ctx, task.ID, importers.RunOptions{})
	require.NoError(t, err)
	_, err = env.items.RunScheduled(ctx, ScheduledRunOptions{})
	require.NoError(t, err)

	stored, err := env.tasks.GetByID(task.ID)
	require.NoError(t, err)
	require.NoError(t, stored.SetImporterOptions(entities.ImporterOptions{
		Deferred:         true,
		SyncData:         true,
		ItemHashIDFields: []string{"id"},
	}))
	require.NoError(t, env.tasks.Save(stored))
	require.NotEqual(t, task.ImporterOptionsHash, stored.ImporterOptionsHash)

	env.reader.pages[task.Link] = []any{newArticle("2", "Second")}
	_, err = env.runner.ImportTask(ctx, task.ID, importers.RunOptions{})
	require.NoError(t, err)
	result, err := env.items.RunScheduled(ctx, ScheduledRunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	var mapped []entities.Item
	require.NoError(t, env.db.Where(&entities.Item{TaskID: task.ID, ConfigHash: stored.ImporterOptionsHash}).Find(&mapped).Error)
	require.Len(t, mapped, 1)
	assert.Equal(t, entities.ItemStatusCreated, mapped[0].StatusID)
}

func TestImporterFactory_ImporterCodes(t *testing.T) {
	env := setupTestEnv(t)
	codes, err := env.factory.ImporterCodes()
	require.NoError(t, err)
	assert.Equal(t, []string{"article"}, codes)
}
