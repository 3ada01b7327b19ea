package writer

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saeedzareian/target-parquet/errors"
	"github.com/saeedzareian/target-parquet/flatten"
)

var fixedTime = time.Date(2024, 3, 15, 10, 30, 0, 123456000, time.UTC)

func fixedClock() time.Time { return fixedTime }

func noShuffle(int, func(i, j int)) {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testWriter(t *testing.T, cfg Config, opts ...Option) *Writer {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock), WithShuffle(noShuffle)}, opts...)
	w := NewWriter(cfg, discardLogger(), opts...)
	require.NoError(t, w.Initialize())
	return w
}

func openParquet(t *testing.T, path string) *parquet.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	stat, err := f.Stat()
	require.NoError(t, err)
	pf, err := parquet.OpenFile(f, stat.Size())
	require.NoError(t, err)
	return pf
}

func TestWriteBatchSingleFile(t *testing.T) {
	dir := t.TempDir()
	w := testWriter(t, Config{DestinationPath: dir})

	rows := []flatten.Row{
		{"id": float64(1), "name": "ada"},
		{"id": float64(2), "name": "grace"},
	}

	paths, err := w.WriteBatch("users", rows)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	expected := filepath.Join(dir, "users-20240315_103000-123456.0.parquet")
	assert.Equal(t, expected, paths[0])

	pf := openParquet(t, paths[0])
	assert.Equal(t, int64(2), pf.NumRows())

	fields := pf.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}
	assert.Equal(t, []string{"id", "name"}, names)
}

func TestWriteBatchSubBatchSplit(t *testing.T) {
	dir := t.TempDir()
	w := testWriter(t, Config{DestinationPath: dir}, WithSubBatchSize(2))

	rows := []flatten.Row{
		{"id": float64(1)},
		{"id": float64(2)},
		{"id": float64(3)},
		{"id": float64(4)},
		{"id": float64(5)},
	}

	paths, err := w.WriteBatch("events", rows)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	assert.Contains(t, paths[0], "events-20240315_103000-123456.0.parquet")
	assert.Contains(t, paths[1], "events-20240315_103000-123456.2.parquet")
	assert.Contains(t, paths[2], "events-20240315_103000-123456.4.parquet")

	total := int64(0)
	for _, path := range paths {
		total += openParquet(t, path).NumRows()
	}
	assert.Equal(t, int64(5), total)

	// Every part of one flush carries the schema derived from the first
	// sub-batch.
	first := openParquet(t, paths[0]).Schema()
	for _, path := range paths[1:] {
		assert.Equal(t, first.String(), openParquet(t, path).Schema().String())
	}
}

func TestWriteBatchColumnUnion(t *testing.T) {
	dir := t.TempDir()
	w := testWriter(t, Config{DestinationPath: dir})

	rows := []flatten.Row{
		{"a": float64(1)},
		{"b": "only-in-second"},
	}

	paths, err := w.WriteBatch("mixed", rows)
	require.NoError(t, err)

	fields := openParquet(t, paths[0]).Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestWriteBatchStreamsInSeparateFolder(t *testing.T) {
	dir := t.TempDir()
	w := testWriter(t, Config{DestinationPath: dir, StreamsInSeparateFolder: true})

	paths, err := w.WriteBatch("users", []flatten.Row{{"id": float64(1)}})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	expected := filepath.Join(dir, "users", "20240315_103000-123456.0.parquet")
	assert.Equal(t, expected, paths[0])

	info, err := os.Stat(filepath.Join(dir, "users"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteBatchCompression(t *testing.T) {
	tests := []struct {
		method    string
		extension string
	}{
		{"SNAPPY", ".snappy"},
		{"gzip", ".gz"},
		{"Zstd", ".zstd"},
	}

	for _, test := range tests {
		t.Run(test.method, func(t *testing.T) {
			dir := t.TempDir()
			w := testWriter(t, Config{DestinationPath: dir, CompressionMethod: test.method})

			paths, err := w.WriteBatch("users", []flatten.Row{{"id": float64(1)}})
			require.NoError(t, err)
			require.Len(t, paths, 1)

			assert.Equal(t, "20240315_103000-123456.0.parquet"+test.extension,
				filepath.Base(paths[0])[len("users-"):])
			assert.Equal(t, int64(1), openParquet(t, paths[0]).NumRows())
		})
	}
}

func TestUnsupportedCompressionDegradesToNone(t *testing.T) {
	dir := t.TempDir()
	w := testWriter(t, Config{DestinationPath: dir, CompressionMethod: "LZO"})

	paths, err := w.WriteBatch("users", []flatten.Row{{"id": float64(1)}})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	// No compression extension on the file name.
	assert.Equal(t, "users-20240315_103000-123456.0.parquet", filepath.Base(paths[0]))
}

func TestWriteBatchEmpty(t *testing.T) {
	w := testWriter(t, Config{DestinationPath: t.TempDir()})

	_, err := w.WriteBatch("users", nil)
	require.Error(t, err)
	assert.True(t, errors.IsWrite(err))
}

func TestWriteBatchMixedScalarTypes(t *testing.T) {
	dir := t.TempDir()
	w := testWriter(t, Config{DestinationPath: dir})

	rows := []flatten.Row{
		{"count": float64(3), "active": true, "name": "ada", "tags": "['a', 'b']", "missing": nil},
		{"count": float64(4), "active": false, "name": "grace", "tags": "['c']"},
	}

	paths, err := w.WriteBatch("users", rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), openParquet(t, paths[0]).NumRows())
}

func TestSupportedCompressionMethods(t *testing.T) {
	assert.Equal(t, []string{"BROTLI", "GZIP", "LZ4", "SNAPPY", "ZSTD"}, SupportedCompressionMethods())
}
