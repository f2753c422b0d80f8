package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/feedimport/internal/config"
	http_controllers "github.com/mrlokans/feedimport/internal/http"
	"github.com/mrlokans/feedimport/internal/scheduler"
	"github.com/mrlokans/feedimport/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    http_controllers.Address(cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop producing and consuming work before the listener goes away
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run starts the long-running service: the import queue, the cron scheduler
// and the operational HTTP endpoints.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting feedimport v%s", version)

	app, err := NewApp(context.Background(), cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer app.Close()

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:            cfg.Tasks.Workers,
			ReleaseAfter:       cfg.Tasks.ReleaseAfter,
			CleanupInterval:    cfg.Tasks.CleanupInterval,
			AuditRetentionDays: cfg.Audit.RetentionDays,
		})
		if err != nil {
			log.Fatalf("Failed to initialize import queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing import queue: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewImportTaskQueue(app.Runner),
			tasks.NewImportScheduledItemsQueue(app.Items, app.Auditor),
			tasks.NewCleanupAuditEventsQueue(app.Auditor),
		)
		app.Runner.SetDispatcher(tasks.NewDispatcher(taskClient))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	schedulerEnabled := cfg.Scheduler.Enabled
	if schedulerEnabled && taskClient == nil {
		log.Printf("WARNING: Scheduler needs the import queue; set TASKS_ENABLED=true to schedule imports")
		schedulerEnabled = false
	}

	var queue scheduler.Enqueuer
	if taskClient != nil {
		queue = taskClient
	}
	importScheduler := scheduler.NewImportScheduler(scheduler.Config{
		Enabled:            schedulerEnabled,
		TasksSchedule:      cfg.Scheduler.TasksSchedule,
		ItemsSchedule:      cfg.Scheduler.ItemsSchedule,
		CleanupSchedule:    cfg.Scheduler.CleanupSchedule,
		ItemsPeriod:        cfg.Scheduler.ItemsPeriod,
		ItemsBatch:         cfg.Importer.ScheduledBatch,
		AuditRetentionDays: cfg.Audit.RetentionDays,
	}, app.Runner, queue)
	if err := importScheduler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	if schedulerEnabled {
		// Catch up on tasks that became due while the service was down
		go func() {
			if err := importScheduler.RunNow(context.Background(), scheduler.JobDueTasks); err != nil {
				log.Printf("Import scheduler: startup dispatch failed: %v", err)
			}
		}()
	}

	health := http_controllers.NewHealthController(app.DB, importScheduler, version)
	if taskClient != nil {
		health.WithQueue(taskClient)
	}
	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Health:         health,
		MetricsEnabled: cfg.Metrics.Enabled,
	})

	onShutdown := func(ctx context.Context) {
		importScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
