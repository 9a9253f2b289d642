package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordRun("training", "completed")
	r.RecordRun("training", "completed")
	r.RecordPicks("training", 40)
	r.RecordError("load_series")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("training", "completed")))
	assert.Equal(t, 40.0, testutil.ToFloat64(r.picksTotal.WithLabelValues("training")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("load_series")))

	r.RecordProgress("r1", 45)
	assert.Equal(t, 45.0, testutil.ToFloat64(r.progress.WithLabelValues("r1")))
	r.RecordProgress("r1", 100)
	assert.Equal(t, 0, testutil.CollectAndCount(r.progress))
}
