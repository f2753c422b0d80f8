package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RecordsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedimport_records_total",
		Help: "Processed source records by outcome",
	}, []string{"task", "status"})
	PagesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedimport_pages_fetched_total",
		Help: "Source pages fetched by reader",
	}, []string{"reader"})
	ReaderErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedimport_reader_errors_total",
		Help: "Failed source fetches by reader",
	}, []string{"reader"})
	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedimport_task_run_duration_seconds",
		Help:    "Duration of a full task import run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"task"})
	TaskRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedimport_task_runs_total",
		Help: "Task import runs by result",
	}, []string{"result"})
	ScheduledItemsImported = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedimport_scheduled_items_imported_total",
		Help: "Scheduled ledger items mapped by the item run",
	})
	FlushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "feedimport_flush_duration_seconds",
		Help: "Duration of a batch checkpoint flush",
	})
)

func init() {
	prometheus.MustRegister(
		RecordsProcessed,
		PagesFetched,
		ReaderErrors,
		RunDuration,
		TaskRuns,
		ScheduledItemsImported,
		FlushDuration,
	)
}
