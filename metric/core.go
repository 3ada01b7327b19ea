package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all pipeline-level metrics
type Metrics struct {
	MessagesReceived *prometheus.CounterVec
	RecordsIngested  *prometheus.CounterVec
	StatesObserved   prometheus.Counter
	BufferedRows     *prometheus.GaugeVec
	FlushesTotal     *prometheus.CounterVec
	FilesWritten     *prometheus.CounterVec
	RowsWritten      *prometheus.CounterVec
	WriteDuration    *prometheus.HistogramVec
	ErrorsTotal      *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "target_parquet",
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of input messages received by type",
			},
			[]string{"type"},
		),

		RecordsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "target_parquet",
				Subsystem: "records",
				Name:      "ingested_total",
				Help:      "Total number of records validated, flattened, and enqueued",
			},
			[]string{"stream"},
		),

		StatesObserved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "target_parquet",
				Subsystem: "state",
				Name:      "observed_total",
				Help:      "Total number of STATE messages observed",
			},
		),

		BufferedRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "target_parquet",
				Subsystem: "buffer",
				Name:      "rows",
				Help:      "Rows currently buffered per stream awaiting flush",
			},
			[]string{"stream"},
		),

		FlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "target_parquet",
				Subsystem: "buffer",
				Name:      "flushes_total",
				Help:      "Total buffer flushes by trigger (stream_switch, threshold, eof)",
			},
			[]string{"stream", "trigger"},
		),

		FilesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "target_parquet",
				Subsystem: "writer",
				Name:      "files_total",
				Help:      "Total parquet files written per stream",
			},
			[]string{"stream"},
		),

		RowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "target_parquet",
				Subsystem: "writer",
				Name:      "rows_total",
				Help:      "Total rows encoded to parquet per stream",
			},
			[]string{"stream"},
		),

		WriteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "target_parquet",
				Subsystem: "writer",
				Name:      "duration_seconds",
				Help:      "Batch encode-and-write duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stream"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "target_parquet",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by class",
			},
			[]string{"class"},
		),
	}
}

// RecordMessageReceived increments the received message counter
func (c *Metrics) RecordMessageReceived(messageType string) {
	c.MessagesReceived.WithLabelValues(messageType).Inc()
}

// RecordIngested increments the ingested record counter for a stream
func (c *Metrics) RecordIngested(stream string) {
	c.RecordsIngested.WithLabelValues(stream).Inc()
}

// RecordStateObserved increments the observed state counter
func (c *Metrics) RecordStateObserved() {
	c.StatesObserved.Inc()
}

// RecordBufferedRows sets the buffered row gauge for a stream
func (c *Metrics) RecordBufferedRows(stream string, rows int) {
	c.BufferedRows.WithLabelValues(stream).Set(float64(rows))
}

// RecordFlush increments the flush counter for a stream and trigger
func (c *Metrics) RecordFlush(stream, trigger string) {
	c.FlushesTotal.WithLabelValues(stream, trigger).Inc()
}

// RecordFileWritten increments the file counter for a stream
func (c *Metrics) RecordFileWritten(stream string) {
	c.FilesWritten.WithLabelValues(stream).Inc()
}

// RecordRowsWritten adds to the written row counter for a stream
func (c *Metrics) RecordRowsWritten(stream string, rows int) {
	c.RowsWritten.WithLabelValues(stream).Add(float64(rows))
}

// RecordWriteDuration observes one batch write duration
func (c *Metrics) RecordWriteDuration(stream string, duration time.Duration) {
	c.WriteDuration.WithLabelValues(stream).Observe(duration.Seconds())
}

// RecordError increments the error counter for an error class
func (c *Metrics) RecordError(class string) {
	c.ErrorsTotal.WithLabelValues(class).Inc()
}
