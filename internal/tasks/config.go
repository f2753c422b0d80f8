package tasks

import (
	"time"

	"github.com/mikestefanello/backlite"
)

// finishedJobs keeps finished jobs for a day, and the payload only of the
// failed ones.
func finishedJobs() *backlite.Retention {
	return &backlite.Retention{
		Duration: 24 * time.Hour,
		Data:     &backlite.RetainData{OnlyFailed: true},
	}
}

// Config holds configuration for the background import queue.
type Config struct {
	// Workers is the number of concurrent queue workers. Default: 2
	Workers int

	// ReleaseAfter is when stuck jobs are released back to the queue. It must
	// exceed the longest import. Default: 5h
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed jobs. Default: 1h
	CleanupInterval time.Duration

	// AuditRetentionDays is how long audit events of import runs are kept. Default: 30
	AuditRetentionDays int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:            2,
		ReleaseAfter:       5 * time.Hour,
		CleanupInterval:    1 * time.Hour,
		AuditRetentionDays: DefaultAuditRetentionDays,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = defaults.ReleaseAfter
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = defaults.CleanupInterval
	}
	if c.AuditRetentionDays <= 0 {
		c.AuditRetentionDays = defaults.AuditRetentionDays
	}
	return c
}
