package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/feedimport/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
	Stats   *StoreStats       `json:"stats,omitempty"`

	// NextRuns maps each scheduled job to its next activation.
	NextRuns map[string]string `json:"next_runs,omitempty"`
}

// StoreStats are the row counts of the import tables.
type StoreStats struct {
	Tasks    int64 `json:"tasks"`
	Items    int64 `json:"items"`
	Articles int64 `json:"articles"`
}

// SchedulerStatus reports whether the cron scheduler is active.
type SchedulerStatus interface {
	IsRunning() bool
	NextRuns() map[string]time.Time
}

// QueueStatus reports whether the background import workers are running.
type QueueStatus interface {
	Running() bool
}

type HealthController struct {
	db        *database.Database
	scheduler SchedulerStatus
	queue     QueueStatus
	version   string
}

func NewHealthController(db *database.Database, scheduler SchedulerStatus, version string) *HealthController {
	return &HealthController{
		db:        db,
		scheduler: scheduler,
		version:   version,
	}
}

// WithQueue adds the import queue to the reported checks.
func (h *HealthController) WithQueue(queue QueueStatus) *HealthController {
	h.queue = queue
	return h
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"
	var stats *StoreStats

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if tasks, items, articles, err := h.db.Stats(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
			stats = &StoreStats{Tasks: tasks, Items: items, Articles: articles}
		}
	} else {
		checks["database"] = "not configured"
	}

	var nextRuns map[string]string
	switch {
	case h.scheduler == nil:
		checks["scheduler"] = "not configured"
	case h.scheduler.IsRunning():
		checks["scheduler"] = "running"
		for name, next := range h.scheduler.NextRuns() {
			if nextRuns == nil {
				nextRuns = make(map[string]string)
			}
			nextRuns[name] = next.Format(time.RFC3339)
		}
	default:
		checks["scheduler"] = "stopped"
	}

	if h.queue != nil {
		checks["queue"] = "stopped"
		if h.queue.Running() {
			checks["queue"] = "running"
		}
	}

	health := HealthResponse{
		Status:   status,
		Time:     time.Now().Format(time.RFC3339),
		Version:  h.version,
		Checks:   checks,
		Stats:    stats,
		NextRuns: nextRuns,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

// Address joins host and port for the HTTP server.
func Address(host string, port int32) string {
	return fmt.Sprintf("%s:%d", host, port)
}
