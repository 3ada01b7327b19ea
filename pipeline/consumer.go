package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/saeedzareian/target-parquet/errors"
	"github.com/saeedzareian/target-parquet/flatten"
	"github.com/saeedzareian/target-parquet/message"
	"github.com/saeedzareian/target-parquet/metric"
)

// flush triggers, used for logging and metrics
const (
	triggerStreamSwitch = "stream_switch"
	triggerThreshold    = "threshold"
	triggerEOF          = "eof"
)

// streamContext holds everything the buffering stage knows about one stream.
// Contexts are created on the first schema envelope and never deleted during
// a run. The consumer goroutine owns them exclusively.
type streamContext struct {
	schemaKeys    map[string]bool
	keyProperties []string
	buffer        []flatten.Row
	filesWritten  int
}

// consumer is the buffering stage: sole reader of the hand-off channel. It
// appends flattened rows to per-stream buffers and flushes a buffer to the
// batch writer on stream switch, on the row threshold, and at end of input.
type consumer struct {
	writer   BatchWriter
	fileSize int
	streams  map[string]*streamContext
	current  string
	logger   *slog.Logger
	metrics  *metric.Metrics
}

func newConsumer(writer BatchWriter, fileSize int, logger *slog.Logger, metrics *metric.Metrics) *consumer {
	return &consumer{
		writer:   writer,
		fileSize: fileSize,
		streams:  make(map[string]*streamContext),
		logger:   logger,
		metrics:  metrics,
	}
}

// run consumes envelopes until the EOF sentinel (or channel close, when the
// producer aborts early). Either way the currently open buffer is flushed so
// no admitted record is lost behind an explicit flush boundary.
func (c *consumer) run(in <-chan envelope) error {
	for env := range in {
		switch env.kind {
		case message.KindRecord:
			if err := c.handleRecord(env); err != nil {
				return err
			}
		case message.KindSchema:
			c.handleSchema(env)
		case message.KindEOF:
			return c.flushCurrent(triggerEOF)
		}
	}
	return c.flushCurrent(triggerEOF)
}

func (c *consumer) handleRecord(env envelope) error {
	sctx, ok := c.streams[env.stream]
	if !ok {
		// The producer validates record-before-schema; reaching this means
		// the envelope ordering broke.
		return errors.WrapProtocol(
			fmt.Errorf("record envelope for unregistered stream %s: %w", env.stream, errors.ErrProtocol),
			"Consumer", "handleRecord", "stream lookup")
	}

	// Stream switch: flush the open buffer before admitting the new
	// stream's record.
	if c.current != "" && c.current != env.stream {
		if err := c.flush(c.current, triggerStreamSwitch); err != nil {
			return err
		}
	}
	c.current = env.stream

	c.checkSchemaKeys(env.stream, sctx, env.row)
	sctx.buffer = append(sctx.buffer, env.row)
	if c.metrics != nil {
		c.metrics.RecordBufferedRows(env.stream, len(sctx.buffer))
	}

	// Threshold flush keeps the current stream unchanged.
	if c.fileSize > 0 && len(sctx.buffer)%c.fileSize == 0 {
		return c.flush(env.stream, triggerThreshold)
	}
	return nil
}

func (c *consumer) handleSchema(env envelope) {
	keys := make(map[string]bool, len(env.schemaKeys))
	for _, key := range env.schemaKeys {
		keys[key] = true
	}

	if sctx, ok := c.streams[env.stream]; ok {
		// A later schema for the same stream replaces the flattened key set;
		// buffered rows are kept, they were admitted under validation.
		sctx.schemaKeys = keys
		sctx.keyProperties = env.keyProperties
		return
	}
	c.streams[env.stream] = &streamContext{
		schemaKeys:    keys,
		keyProperties: env.keyProperties,
	}
}

// checkSchemaKeys verifies the structural invariant that a record's
// flattened keys are a subset of its stream's flattened schema key set. The
// validator already accepted the record, so a violation is reported but not
// fatal: the writer derives columns from the batch itself.
func (c *consumer) checkSchemaKeys(stream string, sctx *streamContext, row flatten.Row) {
	for key := range row {
		if !sctx.schemaKeys[key] {
			c.logger.Warn("flattened record key outside stream's flattened schema",
				"stream", stream,
				"key", key)
		}
	}
}

func (c *consumer) flushCurrent(trigger string) error {
	if c.current == "" {
		c.logger.Info("no records were retrieved")
		return nil
	}
	return c.flush(c.current, trigger)
}

// flush hands the stream's buffered rows to the batch writer and releases
// the buffer. Stream-to-file association only changes at flush boundaries.
func (c *consumer) flush(stream, trigger string) error {
	sctx := c.streams[stream]
	if sctx == nil || len(sctx.buffer) == 0 {
		return nil
	}

	rows := sctx.buffer
	// Drop the reference before writing so the rows' memory is released as
	// soon as the writer is done with them.
	sctx.buffer = nil

	c.logger.Info("flushing stream buffer",
		"stream", stream,
		"rows", len(rows),
		"trigger", trigger)
	if c.metrics != nil {
		c.metrics.RecordFlush(stream, trigger)
		c.metrics.RecordBufferedRows(stream, 0)
	}

	paths, err := c.writer.WriteBatch(stream, rows)
	if err != nil {
		return err
	}
	sctx.filesWritten += len(paths)

	c.logger.Info("flush complete",
		"stream", stream,
		"files", len(paths),
		"total_files", sctx.filesWritten)
	return nil
}
