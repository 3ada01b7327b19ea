package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry.CoreMetrics())
	require.NotNil(t, registry.PrometheusRegistry())
}

func TestMetricsRecording(t *testing.T) {
	registry := NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	metrics.RecordMessageReceived("RECORD")
	metrics.RecordMessageReceived("RECORD")
	metrics.RecordMessageReceived("STATE")
	metrics.RecordIngested("users")
	metrics.RecordStateObserved()
	metrics.RecordBufferedRows("users", 7)
	metrics.RecordFlush("users", "stream_switch")
	metrics.RecordFileWritten("users")
	metrics.RecordRowsWritten("users", 7)
	metrics.RecordWriteDuration("users", 50*time.Millisecond)
	metrics.RecordError("write")

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.MessagesReceived.WithLabelValues("RECORD")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MessagesReceived.WithLabelValues("STATE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RecordsIngested.WithLabelValues("users")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StatesObserved))
	assert.Equal(t, float64(7), testutil.ToFloat64(metrics.BufferedRows.WithLabelValues("users")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FlushesTotal.WithLabelValues("users", "stream_switch")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FilesWritten.WithLabelValues("users")))
	assert.Equal(t, float64(7), testutil.ToFloat64(metrics.RowsWritten.WithLabelValues("users")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ErrorsTotal.WithLabelValues("write")))
}
