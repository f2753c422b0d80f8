package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordsProcessed(t *testing.T) {
	counter := RecordsProcessed.WithLabelValues("metrics-test", "created")
	before := testutil.ToFloat64(counter)

	counter.Inc()
	counter.Inc()

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestTaskRunsByResult(t *testing.T) {
	TaskRuns.WithLabelValues("success").Inc()

	assert.Equal(t, 1, testutil.CollectAndCount(TaskRuns, "feedimport_task_runs_total"))
}
