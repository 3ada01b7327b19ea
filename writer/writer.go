// Package writer implements the batch writer: it converts a flushed batch of
// flattened rows into one or more compressed parquet files on disk.
package writer

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/saeedzareian/target-parquet/errors"
	"github.com/saeedzareian/target-parquet/flatten"
	"github.com/saeedzareian/target-parquet/metric"
)

// SubBatchSize is the fixed row count per output file part. Splitting a flush
// into sub-batches bounds peak memory during encoding.
const SubBatchSize = 20000

// codecEntry maps a configured compression name to its parquet codec and the
// extension appended after ".parquet" in file names.
type codecEntry struct {
	codec     compress.Codec
	extension string
}

var codecTable = map[string]codecEntry{
	"SNAPPY": {&parquet.Snappy, ".snappy"},
	"GZIP":   {&parquet.Gzip, ".gz"},
	"BROTLI": {&parquet.Brotli, ".br"},
	"ZSTD":   {&parquet.Zstd, ".zstd"},
	"LZ4":    {&parquet.Lz4Raw, ".lz4"},
}

// SupportedCompressionMethods lists the recognized codec names
func SupportedCompressionMethods() []string {
	names := make([]string, 0, len(codecTable))
	for name := range codecTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config holds writer configuration
type Config struct {
	// DestinationPath is the directory files are written under
	DestinationPath string

	// CompressionMethod is the configured codec name; empty means none
	CompressionMethod string

	// StreamsInSeparateFolder selects per-stream subdirectories instead of
	// stream-prefixed file names
	StreamsInSeparateFolder bool
}

// Writer writes row batches as parquet file parts
type Writer struct {
	destinationPath string
	separateFolders bool
	codec           compress.Codec
	extension       string
	subBatchSize    int
	logger          *slog.Logger
	metrics         *metric.Metrics

	// now and shuffle are injectable for deterministic tests
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

// Option configures optional writer behavior
type Option func(*Writer)

// WithMetrics attaches pipeline metrics to the writer
func WithMetrics(metrics *metric.Metrics) Option {
	return func(w *Writer) {
		w.metrics = metrics
	}
}

// WithClock overrides the timestamp source used in file names
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// WithShuffle overrides the row shuffle used before encoding
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(w *Writer) {
		w.shuffle = shuffle
	}
}

// WithSubBatchSize overrides the rows-per-file-part limit
func WithSubBatchSize(size int) Option {
	return func(w *Writer) {
		if size > 0 {
			w.subBatchSize = size
		}
	}
}

// NewWriter creates a batch writer. An unsupported compression method
// degrades to no compression with a warning rather than failing the run.
func NewWriter(cfg Config, logger *slog.Logger, opts ...Option) *Writer {
	w := &Writer{
		destinationPath: cfg.DestinationPath,
		separateFolders: cfg.StreamsInSeparateFolder,
		subBatchSize:    SubBatchSize,
		logger:          logger,
		now:             time.Now,
		shuffle:         rand.Shuffle,
	}

	if cfg.CompressionMethod != "" {
		entry, ok := codecTable[strings.ToUpper(cfg.CompressionMethod)]
		if ok {
			w.codec = entry.codec
			w.extension = entry.extension
		} else {
			logger.Warn("unsupported compression method, writing uncompressed",
				"compression_method", cfg.CompressionMethod,
				"supported", SupportedCompressionMethods())
		}
	}

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Initialize creates the destination directory
func (w *Writer) Initialize() error {
	if err := os.MkdirAll(w.destinationPath, 0755); err != nil {
		return errors.WrapWrite(err, "Writer", "Initialize", "create destination directory")
	}
	return nil
}

// WriteBatch writes one flushed batch for a stream, split into sub-batch file
// parts, and returns the paths written. The column set is the union of keys
// across the rows of this batch only. Row order is randomized before encoding.
// The parquet schema derived for the first sub-batch is reused for every
// subsequent sub-batch so a single flush never mixes column typings.
//
// Any encode or filesystem error aborts the run; file parts already written
// for this batch are left on disk.
func (w *Writer) WriteBatch(stream string, rows []flatten.Row) ([]string, error) {
	if len(rows) == 0 {
		return nil, errors.WrapWrite(errors.ErrEmptyBatch, "Writer", "WriteBatch", "check batch")
	}

	started := w.now()
	columns := collectColumns(rows)
	w.logger.Info("writing batch",
		"stream", stream,
		"rows", len(rows),
		"columns", len(columns))

	base, err := w.basePath(stream, started)
	if err != nil {
		return nil, err
	}

	w.shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})

	var schema *parquet.Schema
	var paths []string
	for offset := 0; offset < len(rows); offset += w.subBatchSize {
		end := offset + w.subBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		subBatch := rows[offset:end]

		if schema == nil {
			schema = deriveSchema(stream, columns, subBatch)
		}

		path := fmt.Sprintf("%s.%d.parquet%s", base, offset, w.extension)
		if err := w.writePart(path, schema, subBatch); err != nil {
			return nil, err
		}
		paths = append(paths, path)

		if w.metrics != nil {
			w.metrics.RecordFileWritten(stream)
			w.metrics.RecordRowsWritten(stream, len(subBatch))
		}
		w.logger.Debug("wrote parquet file part",
			"stream", stream,
			"path", path,
			"rows", len(subBatch))
	}

	if w.metrics != nil {
		w.metrics.RecordWriteDuration(stream, time.Since(started))
	}
	return paths, nil
}

// basePath builds "<dir>/<stream><separator><timestamp>" and creates the
// per-stream subdirectory on first use when the folder layout is configured.
func (w *Writer) basePath(stream string, started time.Time) (string, error) {
	timestamp := formatTimestamp(started.UTC())
	if w.separateFolders {
		dir := filepath.Join(w.destinationPath, stream)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", errors.WrapWrite(err, "Writer", "WriteBatch", "create stream directory")
		}
		return filepath.Join(dir, timestamp), nil
	}
	return filepath.Join(w.destinationPath, stream+"-"+timestamp), nil
}

func formatTimestamp(t time.Time) string {
	return fmt.Sprintf("%s-%06d", t.Format("20060102_150405"), t.Nanosecond()/1000)
}

func (w *Writer) writePart(path string, schema *parquet.Schema, rows []flatten.Row) error {
	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return errors.WrapWrite(err, "Writer", "WriteBatch", "create file part")
	}

	options := []parquet.WriterOption{schema}
	if w.codec != nil {
		options = append(options, parquet.Compression(w.codec))
	}

	pw := parquet.NewGenericWriter[map[string]any](file, options...)
	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		records[i] = map[string]any(row)
	}
	if _, err := pw.Write(records); err != nil {
		_ = file.Close()
		return errors.WrapWrite(err, "Writer", "WriteBatch", "encode sub-batch")
	}
	if err := pw.Close(); err != nil {
		_ = file.Close()
		return errors.WrapWrite(err, "Writer", "WriteBatch", "finalize file part")
	}
	if err := file.Close(); err != nil {
		return errors.WrapWrite(err, "Writer", "WriteBatch", "close file part")
	}
	return nil
}

// collectColumns returns the sorted union of keys across all rows of a batch
func collectColumns(rows []flatten.Row) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for key := range row {
			seen[key] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}

// deriveSchema infers an optional leaf node per column from the first
// non-null value observed in the sub-batch. Columns with no non-null value
// default to optional strings.
func deriveSchema(stream string, columns []string, rows []flatten.Row) *parquet.Schema {
	group := parquet.Group{}
	for _, column := range columns {
		group[column] = parquet.Optional(leafNode(firstValue(rows, column)))
	}
	return parquet.NewSchema(stream, group)
}

func firstValue(rows []flatten.Row, column string) any {
	for _, row := range rows {
		if value, ok := row[column]; ok && value != nil {
			return value
		}
	}
	return nil
}

func leafNode(value any) parquet.Node {
	switch value.(type) {
	case bool:
		return parquet.Leaf(parquet.BooleanType)
	case float64:
		return parquet.Leaf(parquet.DoubleType)
	case int, int32, int64:
		return parquet.Int(64)
	default:
		return parquet.String()
	}
}
