package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/volimport/config"
	"github.com/xtxerr/volimport/internal/errors"
)

// CompressionType selects the Parquet page codec.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

var codecs = [...]struct {
	name  string
	codec compress.Codec
}{
	CompressionNone:   {"none", &parquet.Uncompressed},
	CompressionSnappy: {"snappy", &parquet.Snappy},
	CompressionZstd:   {"zstd", &parquet.Zstd},
	CompressionLZ4:    {"lz4", &parquet.Lz4Raw},
	CompressionGzip:   {"gzip", &parquet.Gzip},
}

func (c CompressionType) String() string {
	if c < 0 || int(c) >= len(codecs) {
		return codecs[CompressionNone].name
	}
	return codecs[c].name
}

func (c CompressionType) codec() compress.Codec {
	if c < 0 || int(c) >= len(codecs) {
		return codecs[CompressionNone].codec
	}
	return codecs[c].codec
}

// ParseCompressionType parses a codec name. An empty string means none.
func ParseCompressionType(s string) (CompressionType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return CompressionNone, nil
	}
	for c, entry := range codecs {
		if entry.name == name {
			return CompressionType(c), nil
		}
	}
	return CompressionNone, errors.NewInvalidValue("compression", s, "must be one of snappy, zstd, lz4, gzip, none")
}

// Options configures a Writer.
type Options struct {
	Compression CompressionType

	// RowGroupSize caps the rows per row group. Zero keeps the library
	// default.
	RowGroupSize int

	// PageSize is the page buffer size in bytes. Zero keeps the library
	// default.
	PageSize int
}

// DefaultOptions returns the options used when the config sets none.
func DefaultOptions() Options {
	c, _ := ParseCompressionType(config.DefaultExportCompression)
	return Options{
		Compression:  c,
		RowGroupSize: 100_000,
		PageSize:     1 << 20,
	}
}

func (o Options) writerOptions() []parquet.WriterOption {
	opts := []parquet.WriterOption{parquet.Compression(o.Compression.codec())}
	if o.PageSize > 0 {
		opts = append(opts, parquet.PageBufferSize(o.PageSize))
	}
	if o.RowGroupSize > 0 {
		opts = append(opts, parquet.MaxRowsPerRowGroup(int64(o.RowGroupSize)))
	}
	return opts
}

// ErrWriterClosed is returned by Write after Close.
var ErrWriterClosed = errors.New("parquet writer is closed")

// Writer appends rows of type T to one Parquet file. The schema is derived
// from the parquet struct tags of T. Writer is safe for concurrent use.
type Writer[T any] struct {
	mu   sync.Mutex
	file *os.File
	pw   *parquet.GenericWriter[T]
	rows int64
	done bool
}

// NewWriter creates the file at path and any missing parent directories.
func NewWriter[T any](path string, opts Options) (*Writer[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	return &Writer[T]{file: f, pw: parquet.NewGenericWriter[T](f, opts.writerOptions()...)}, nil
}

// Write appends rows.
func (w *Writer[T]) Write(rows []T) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return ErrWriterClosed
	}
	if len(rows) == 0 {
		return nil
	}

	n, err := w.pw.Write(rows)
	w.rows += int64(n)
	if err != nil {
		return fmt.Errorf("write %s: %w", w.file.Name(), err)
	}
	return nil
}

// Close writes the footer and closes the file. Closing twice is a no-op.
func (w *Writer[T]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return nil
	}
	w.done = true

	err := w.pw.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close %s: %w", w.file.Name(), err)
	}
	return nil
}

// RowCount returns the number of rows written so far.
func (w *Writer[T]) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// ReadAll reads every row of the Parquet file at path.
func ReadAll[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := parquet.NewGenericReader[T](f)
	defer r.Close()

	rows := make([]T, r.NumRows())
	n, err := r.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows[:n], nil
}
