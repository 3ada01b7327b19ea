package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/saeedzareian/target-parquet/errors"
	"github.com/saeedzareian/target-parquet/flatten"
	"github.com/saeedzareian/target-parquet/message"
	"github.com/saeedzareian/target-parquet/metric"
	"github.com/saeedzareian/target-parquet/schemareg"
)

// maxLineSize bounds a single input line. Taps emit one JSON object per
// line; 20MB accommodates wide records without unbounded growth.
const maxLineSize = 20 * 1024 * 1024

// producer is the ingestion stage: it reads lines, classifies them,
// validates and flattens records, and enqueues envelopes on the hand-off
// channel. It is the channel's only writer and owns the validator registry
// and the checkpoint tracker; the buffering stage is never touched directly.
type producer struct {
	registry  *schemareg.Registry
	out       chan<- envelope
	separator string
	tracker   *Tracker
	logger    *slog.Logger
	metrics   *metric.Metrics
}

func newProducer(
	registry *schemareg.Registry,
	out chan<- envelope,
	separator string,
	logger *slog.Logger,
	metrics *metric.Metrics,
) *producer {
	return &producer{
		registry:  registry,
		out:       out,
		separator: separator,
		tracker:   NewTracker(),
		logger:    logger,
		metrics:   metrics,
	}
}

// run ingests until end of input and returns the final safe checkpoint. The
// hand-off channel is always terminated, by an EOF envelope and by closing,
// so the consumer never blocks after the producer returns.
func (p *producer) run(ctx context.Context, input io.Reader) (json.RawMessage, error) {
	defer close(p.out)

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			p.enqueueEOF(ctx)
			return nil, errors.Wrap(err, "Producer", "run", "ingest")
		}
		if err := p.handleLine(ctx, scanner.Bytes()); err != nil {
			p.enqueueEOF(ctx)
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		p.enqueueEOF(ctx)
		return nil, errors.WrapParse(err, "Producer", "run", "read input")
	}

	p.enqueueEOF(ctx)
	return p.tracker.Checkpoint(), nil
}

func (p *producer) handleLine(ctx context.Context, line []byte) error {
	msg, err := message.Classify(line)
	if err != nil {
		return err
	}

	kind := msg.Kind()
	if p.metrics != nil {
		p.metrics.RecordMessageReceived(kind.String())
	}

	switch kind {
	case message.KindRecord:
		return p.handleRecord(ctx, msg)
	case message.KindSchema:
		return p.handleSchema(ctx, msg)
	case message.KindState:
		p.handleState(msg)
		return nil
	default:
		p.logger.Warn("skipping unknown message type",
			"type", msg.Type,
			"stream", msg.Stream)
		return nil
	}
}

func (p *producer) handleRecord(ctx context.Context, msg *message.Message) error {
	// Validation runs on the unflattened record shape.
	if err := p.registry.Validate(msg.Stream, msg.Record); err != nil {
		return err
	}

	row, err := flatten.Record(msg.Record, p.separator)
	if err != nil {
		return err
	}

	if err := p.enqueue(ctx, envelope{
		kind:   message.KindRecord,
		stream: msg.Stream,
		row:    row,
	}); err != nil {
		return err
	}

	// A checkpoint is only trustworthy when no record has been enqueued
	// since it was emitted.
	p.tracker.ObserveRecord()
	if p.metrics != nil {
		p.metrics.RecordIngested(msg.Stream)
	}
	return nil
}

func (p *producer) handleSchema(ctx context.Context, msg *message.Message) error {
	if err := p.registry.Register(msg.Stream, msg.Schema, msg.KeyProperties); err != nil {
		return err
	}

	properties, err := msg.SchemaProperties()
	if err != nil {
		return err
	}
	keys, err := flatten.Schema(properties, p.separator)
	if err != nil {
		return err
	}

	p.logger.Info("registered schema",
		"stream", msg.Stream,
		"flattened_fields", len(keys),
		"key_properties", msg.KeyProperties)

	return p.enqueue(ctx, envelope{
		kind:          message.KindSchema,
		stream:        msg.Stream,
		schemaKeys:    keys,
		keyProperties: msg.KeyProperties,
	})
}

func (p *producer) handleState(msg *message.Message) {
	p.logger.Debug("observed state message",
		"value", string(msg.Value),
		"observed_at", time.Now().UTC().Format(time.RFC3339Nano))
	p.tracker.ObserveState(msg.Value)
	if p.metrics != nil {
		p.metrics.RecordStateObserved()
	}
}

// enqueue blocks when the channel is full: ingestion backpressure rather
// than dropping or buffering elsewhere.
func (p *producer) enqueue(ctx context.Context, env envelope) error {
	select {
	case p.out <- env:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "Producer", "enqueue", "hand-off")
	}
}

func (p *producer) enqueueEOF(ctx context.Context) {
	select {
	case p.out <- envelope{kind: message.KindEOF}:
	case <-ctx.Done():
	}
}
