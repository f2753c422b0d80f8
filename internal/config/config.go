package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Metrics
		Global
		Database
		Importer
		Scheduler
		Tasks
		Audit
		Lock
		Redis
		S3
		Fetch
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}
	Metrics struct {
		Enabled bool
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Importer struct {
		BatchLength    int           // Records between checkpoint flushes (default: 10)
		StaleTimeout   time.Duration // In-progress tasks older than this are due again (default: 4h)
		ScheduledBatch int           // Scheduled items fetched per round (default: 1000)
	}
	Scheduler struct {
		Enabled         bool
		TasksSchedule   string        // Cron format: "*/5 * * * *" = every 5 minutes
		ItemsSchedule   string        // Cron format: "*/10 * * * *" = every 10 minutes
		ItemsPeriod     time.Duration // Budget of one scheduled item run
		CleanupSchedule string        // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Lock struct {
		Backend string // "database" or "redis"
		TTL     time.Duration
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
	S3 struct {
		Region          string
		Endpoint        string // Custom endpoint for S3 compatible storage
		AccessKeyID     string
		SecretAccessKey string
		UsePathStyle    bool
	}
	Fetch struct {
		Timeout   time.Duration
		UserAgent string
	}
	Log struct {
		Level  string
		Format string // "json" or "console"
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Import engine defaults
	v.SetDefault("import_batch_length", 10)
	v.SetDefault("import_stale_timeout", "4h")
	v.SetDefault("import_scheduled_batch", 1000)

	// Scheduler defaults
	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_tasks_schedule", "*/5 * * * *")
	v.SetDefault("scheduler_items_schedule", "*/10 * * * *")
	v.SetDefault("scheduler_items_period", "10m")
	v.SetDefault("scheduler_cleanup_schedule", "0 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "5h")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("audit_retention_days", 30)

	v.SetDefault("lock_backend", "database")
	v.SetDefault("lock_ttl", "4h")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_prefix", "feedimport:lock:")

	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_use_path_style", false)

	v.SetDefault("fetch_timeout", "30s")
	v.SetDefault("fetch_user_agent", "feedimport/1.0")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Importer: Importer{
			BatchLength:    v.GetInt("IMPORT_BATCH_LENGTH"),
			StaleTimeout:   v.GetDuration("IMPORT_STALE_TIMEOUT"),
			ScheduledBatch: v.GetInt("IMPORT_SCHEDULED_BATCH"),
		},
		Scheduler: Scheduler{
			Enabled:         v.GetBool("SCHEDULER_ENABLED"),
			TasksSchedule:   v.GetString("SCHEDULER_TASKS_SCHEDULE"),
			ItemsSchedule:   v.GetString("SCHEDULER_ITEMS_SCHEDULE"),
			ItemsPeriod:     v.GetDuration("SCHEDULER_ITEMS_PERIOD"),
			CleanupSchedule: v.GetString("SCHEDULER_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Lock: Lock{
			Backend: v.GetString("LOCK_BACKEND"),
			TTL:     v.GetDuration("LOCK_TTL"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		S3: S3{
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    v.GetBool("S3_USE_PATH_STYLE"),
		},
		Fetch: Fetch{
			Timeout:   v.GetDuration("FETCH_TIMEOUT"),
			UserAgent: v.GetString("FETCH_USER_AGENT"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}
