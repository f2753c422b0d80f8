package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// Client runs import work on backlite workers backed by a sqlite queue
// database kept next to the main database.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config

	running atomic.Bool
}

// QueueDBPath derives the queue database path from the main one:
// feedimport.db becomes feedimport-tasks.db in the same directory.
func QueueDBPath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-tasks" + ext
}

// NewClient opens the queue database and installs the backlite schema.
// Queues are registered on the returned client before Start.
func NewClient(mainDBPath string, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	dsn := QueueDBPath(mainDBPath) + "?_journal=WAL&_timeout=5000&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open import queue database: %w", err)
	}
	// Every worker holds a connection while it runs an import.
	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &stdLogger{},
	})
	if err == nil {
		err = client.Install()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up import queue: %w", err)
	}

	return &Client{client: client, db: db, config: cfg}, nil
}

func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start runs the workers until ctx is cancelled or Stop is called. It
// returns immediately; a second call is a no-op.
func (c *Client) Start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	log.Printf("Import queue: started with %d workers", c.config.Workers)
	c.client.Start(ctx)
}

// Stop waits for running imports until ctx expires and reports whether
// all of them finished.
func (c *Client) Stop(ctx context.Context) bool {
	if !c.running.CompareAndSwap(true, false) {
		return true
	}

	log.Println("Import queue: stopping")
	if !c.client.Stop(ctx) {
		log.Println("Import queue: stopped before every running import finished")
		return false
	}
	log.Println("Import queue: stopped")
	return true
}

// Running reports whether workers are processing the queues.
func (c *Client) Running() bool {
	return c.running.Load()
}

// Close closes the queue database. Call it after Stop.
func (c *Client) Close() error {
	return c.db.Close()
}

// Enqueue adds the tasks to their queues and returns their ids.
func (c *Client) Enqueue(tasks ...backlite.Task) ([]string, error) {
	ids, err := c.client.Add(tasks...).Save()
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue tasks: %w", err)
	}
	return ids, nil
}

// Config returns the effective queue configuration.
func (c *Client) Config() Config {
	return c.config
}

// stdLogger routes backlite messages to the process log.
type stdLogger struct{}

func (l *stdLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (l *stdLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
