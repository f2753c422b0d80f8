package entrypoint

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mrlokans/feedimport/internal/audit"
	"github.com/mrlokans/feedimport/internal/config"
	"github.com/mrlokans/feedimport/internal/database"
	auditrepo "github.com/mrlokans/feedimport/internal/database/audit"
	"github.com/mrlokans/feedimport/internal/database/items"
	lockrepo "github.com/mrlokans/feedimport/internal/database/locks"
	"github.com/mrlokans/feedimport/internal/database/tasks"
	"github.com/mrlokans/feedimport/internal/importers"
	"github.com/mrlokans/feedimport/internal/locks"
	"github.com/mrlokans/feedimport/internal/logging"
	"github.com/mrlokans/feedimport/internal/readers"
	"github.com/mrlokans/feedimport/internal/services"
)

// App holds the collaborators shared by the server and the commands.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *database.Database
	Tasks     *tasks.Repository
	Importers *services.ImporterFactory
	Runner    *services.TaskRunner
	Items     *services.ItemImporter
	Auditor   *audit.Service

	redis *redis.Client
}

// NewApp opens the database and wires the import services. Run summaries
// are written to out.
func NewApp(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}

	db, err := database.NewDatabase(cfg.Database.Path, gormlogger.Warn)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger, DB: db}

	locker, err := app.newLocker()
	if err != nil {
		app.Close()
		return nil, err
	}

	readerFactory := readers.NewFactory(readers.DefaultRegistry(), newFetcher(ctx, cfg))
	app.Importers = services.NewImporterFactory(db.DB, readerFactory, nil, logger, importers.Config{
		BatchLength: cfg.Importer.BatchLength,
		Output:      out,
	})

	app.Tasks = tasks.NewRepository(db.DB)
	app.Auditor = audit.NewService(auditrepo.NewRepository(db.DB))
	app.Runner = services.NewTaskRunner(app.Tasks, app.Importers, locker, services.RunnerConfig{
		StaleTimeout: cfg.Importer.StaleTimeout,
		LockTTL:      cfg.Lock.TTL,
	}, app.Auditor)
	app.Items = services.NewItemImporter(
		app.Tasks,
		items.NewRepository(db.DB, database.NewUnitOfWork(db.DB)),
		app.Importers,
		locker,
		services.ItemImporterConfig{LockTTL: cfg.Lock.TTL},
	)
	return app, nil
}

func (a *App) newLocker() (locks.Locker, error) {
	switch a.Config.Lock.Backend {
	case "", locks.BackendDatabase:
		return locks.NewDatabaseLocker(lockrepo.NewRepository(a.DB.DB)), nil
	case locks.BackendRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		return locks.NewRedisLocker(a.redis, a.Config.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", a.Config.Lock.Backend)
	}
}

func newFetcher(ctx context.Context, cfg *config.Config) readers.Fetcher {
	fetcher := readers.NewMultiFetcher().
		Register(readers.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent), "http", "https").
		Register(readers.FileFetcher{}, "file")

	client, err := readers.NewS3Client(ctx, readers.S3Options{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		UsePathStyle:    cfg.S3.UsePathStyle,
	})
	if err != nil {
		log.Printf("WARNING: s3:// links are disabled: %v", err)
		return fetcher
	}
	return fetcher.Register(readers.NewS3Fetcher(client), "s3")
}

// Close waits for pending audit events and releases every connection.
func (a *App) Close() {
	if a.Auditor != nil {
		a.Auditor.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis client: %v", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
	_ = a.Logger.Sync()
}
