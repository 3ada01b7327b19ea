// Package pipeline sequences the streaming ingestion-to-columnar-batch
// pipeline: one ingestion goroutine classifies, validates, and flattens input
// lines; one buffering goroutine groups flattened rows per stream and decides
// flush points. The two stages are connected by a single bounded FIFO channel
// whose backpressure bounds memory ahead of the writer.
package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/saeedzareian/target-parquet/flatten"
	"github.com/saeedzareian/target-parquet/message"
	"github.com/saeedzareian/target-parquet/metric"
	"github.com/saeedzareian/target-parquet/schemareg"
)

// DefaultChannelCapacity bounds the ingestion-to-buffering hand-off channel.
const DefaultChannelCapacity = 1000

// BatchWriter is the flush target for buffered rows. The batch writer borrows
// the rows for the duration of one flush and never retains them.
type BatchWriter interface {
	WriteBatch(stream string, rows []flatten.Row) ([]string, error)
}

// envelope is the (kind, stream, payload) triple carried on the hand-off
// channel. KindEOF terminates the consumer.
type envelope struct {
	kind          message.Kind
	stream        string
	row           flatten.Row
	schemaKeys    []string
	keyProperties []string
}

// Config holds pipeline configuration
type Config struct {
	// FileSize is the per-stream row threshold before an intra-run flush;
	// zero or negative disables threshold flushing
	FileSize int

	// Separator joins nested keys when flattening; empty selects the default
	Separator string

	// ChannelCapacity bounds the hand-off channel; zero selects the default
	ChannelCapacity int
}

// Pipeline wires the ingestion and buffering stages together
type Pipeline struct {
	cfg     Config
	writer  BatchWriter
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Option configures optional pipeline behavior
type Option func(*Pipeline)

// WithMetrics attaches pipeline metrics
func WithMetrics(metrics *metric.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// New creates a pipeline that flushes batches to the given writer
func New(cfg Config, writer BatchWriter, logger *slog.Logger, opts ...Option) *Pipeline {
	if cfg.Separator == "" {
		cfg.Separator = flatten.DefaultSeparator
	}
	if cfg.ChannelCapacity <= 0 {
		cfg.ChannelCapacity = DefaultChannelCapacity
	}
	p := &Pipeline{
		cfg:    cfg,
		writer: writer,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run consumes line-delimited Singer messages from input until end of stream
// and returns the final safe checkpoint (nil when none). Any parse, protocol,
// validation, or write error aborts the run; no checkpoint is reported on
// failure.
func (p *Pipeline) Run(ctx context.Context, input io.Reader) (json.RawMessage, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handoff := make(chan envelope, p.cfg.ChannelCapacity)

	cons := newConsumer(p.writer, p.cfg.FileSize, p.logger, p.metrics)
	consumerDone := make(chan error, 1)
	go func() {
		err := cons.run(handoff)
		// Unblock the producer if it is parked on a channel send after a
		// consumer failure.
		cancel()
		consumerDone <- err
	}()

	// The producer enqueues EOF even on failure, so the consumer flushes
	// whatever is buffered and exits rather than blocking on the channel.
	prod := newProducer(schemareg.NewRegistry(), handoff, p.cfg.Separator, p.logger, p.metrics)
	checkpoint, producerErr := prod.run(ctx, input)

	consumerErr := <-consumerDone

	if consumerErr != nil {
		return nil, consumerErr
	}
	if producerErr != nil {
		return nil, producerErr
	}
	return checkpoint, nil
}
