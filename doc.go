// Package targetparquet is a Singer target that consumes line-delimited
// Singer protocol messages on standard input and materializes them as
// compressed parquet files on disk, grouped by stream and partitioned by
// batch size.
//
// # Architecture
//
// The pipeline has two stages connected by a single bounded FIFO channel:
//
//   - Ingestion: reads stdin line by line, classifies each message
//     (SCHEMA / RECORD / STATE), validates records against their stream's
//     JSON Schema, flattens nested structures into flat column mappings,
//     and enqueues envelopes. Blocks when the channel is full
//     (backpressure).
//   - Buffering/writing: sole consumer of the channel. Groups flattened
//     rows per stream and flushes a stream's buffer on stream switch, on a
//     configured row threshold, and at end of input. A flush hands the rows
//     to the batch writer, which shuffles them, splits them into fixed-size
//     sub-batches, and writes each sub-batch as a parquet file part.
//
// STATE messages feed the checkpoint tracker; the last STATE observed with
// no subsequent RECORD is emitted on stdout as the run's final checkpoint.
//
// # Packages
//
//   - message: Singer message model and line classifier
//   - schemareg: per-stream JSON Schema validator registry
//   - flatten: record and schema flattening engine
//   - pipeline: producer/consumer orchestration, buffers, checkpoint
//   - writer: parquet batch writer (sub-batches, compression, file naming)
//   - config: JSON configuration file
//   - errors: the pipeline's fatal error taxonomy
//   - metric: prometheus pipeline metrics
//   - diag, usage: best-effort side tasks (memory reporter, usage ping)
//
// The design is fail-fast: parse, protocol, validation, and write errors
// abort the run with a non-zero exit status and no checkpoint. The only
// resilience is at the margins: unknown message types are skipped and the
// usage ping swallows all errors.
package targetparquet
