// Package source reads Arrow record batches from Arrow IPC streams, Arrow
// IPC files and Parquet files, optionally wrapped in a gzip, snappy, s2,
// zstd or lz4 frame.
package source

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/makeroftools/perspective/pkg/compression"
	"github.com/makeroftools/perspective/pkg/errors"
)

// Format is the container format of an input.
type Format string

const (
	// FormatAuto detects the format from the input's leading bytes
	FormatAuto Format = "auto"
	// FormatIPCStream is the Arrow IPC streaming format
	FormatIPCStream Format = "arrow-stream"
	// FormatIPCFile is the Arrow IPC file (random access) format
	FormatIPCFile Format = "arrow-file"
	// FormatParquet is Apache Parquet
	FormatParquet Format = "parquet"
)

// Compression is a whole-input compression codec.
type Compression string

const (
	// CompressionAuto detects the codec from the input's frame magic
	CompressionAuto Compression = "auto"
	// CompressionNone reads the input as is
	CompressionNone Compression = "none"
	// CompressionGzip is a gzip member
	CompressionGzip Compression = "gzip"
	// CompressionSnappy is a snappy framed stream
	CompressionSnappy Compression = "snappy"
	// CompressionS2 is an s2 framed stream
	CompressionS2 Compression = "s2"
	// CompressionZstd is a zstd frame
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 is an lz4 frame
	CompressionLZ4 Compression = "lz4"
)

var (
	arrowFileMagic = []byte("ARROW1")
	parquetMagic   = []byte("PAR1")
)

// RecordReader yields the record batches of one input.
type RecordReader interface {
	// Schema returns the schema shared by every batch
	Schema() *arrow.Schema
	// Next returns the next batch, or io.EOF after the last one. The caller
	// owns the returned record and must release it.
	Next(ctx context.Context) (arrow.Record, error)
	// Close releases the reader's resources
	Close() error
	// Format returns the detected container format
	Format() Format
}

// Options configures how an input is opened.
type Options struct {
	Format      Format
	Compression Compression
	// BatchSize is the number of rows per batch read from Parquet
	BatchSize int64
	Allocator memory.Allocator
}

// DefaultOptions returns options that detect format and compression.
func DefaultOptions() Options {
	return Options{
		Format:      FormatAuto,
		Compression: CompressionAuto,
		BatchSize:   64 * 1024,
		Allocator:   memory.DefaultAllocator,
	}
}

// Open reads path ("-" for stdin) and returns a reader over its batches.
func Open(path string, opts Options) (RecordReader, error) {
	if path == "" || path == "-" {
		return NewReader(os.Stdin, opts)
	}

	f, err := os.Open(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").
			WithDetail("path", path)
	}
	defer f.Close()

	return NewReader(f, opts)
}

// NewReader reads r fully, decompresses it and opens the record batches it
// holds. Arrow IPC files and Parquet need random access, so the input is
// buffered in memory.
func NewReader(r io.Reader, opts Options) (RecordReader, error) {
	if opts.Allocator == nil {
		opts.Allocator = memory.DefaultAllocator
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read input")
	}

	data, err = decompress(data, opts.Compression)
	if err != nil {
		return nil, err
	}

	format := opts.Format
	if format == "" || format == FormatAuto {
		format = detectFormat(data)
	}

	switch format {
	case FormatIPCStream:
		return newStreamReader(data, opts)
	case FormatIPCFile:
		return newFileReader(data, opts)
	case FormatParquet:
		return newParquetReader(data, opts)
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown input format %q", format)
	}
}

func detectFormat(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, arrowFileMagic):
		return FormatIPCFile
	case bytes.HasPrefix(data, parquetMagic):
		return FormatParquet
	default:
		return FormatIPCStream
	}
}

func decompress(data []byte, codec Compression) ([]byte, error) {
	algo := compression.Algorithm(codec)
	if codec == "" || codec == CompressionAuto {
		algo = compression.Detect(data)
	}

	comp, err := compression.NewCompressor(&compression.Config{Algorithm: algo})
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown input compression %q", codec)
	}
	return comp.Decompress(data)
}

// checkContext returns ctx.Err() once the context is done.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
