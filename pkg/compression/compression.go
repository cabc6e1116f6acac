// Package compression decodes and encodes whole-input compression frames.
//
// # Overview
//
// Record batch inputs may arrive wrapped in a compression frame. The
// package supports:
//   - Gzip (RFC 1952)
//   - Snappy and S2 framed streams
//   - LZ4 frames
//   - Zstandard frames
//
// Every format carries a magic number, so Detect can pick the codec from
// the first bytes of an input.
//
// # Basic Usage
//
//	algo := compression.Detect(data)
//	comp, err := compression.NewCompressor(&compression.Config{Algorithm: algo})
//	if err != nil {
//	    return err
//	}
//	raw, err := comp.Decompress(data)
package compression

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/makeroftools/perspective/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents the snappy framed stream format
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frames
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard frames
	Zstd Algorithm = "zstd"
	// S2 represents the s2 framed stream format
	S2 Algorithm = "s2"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2}

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic    = []byte{0x04, 0x22, 0x4d, 0x18}
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
	s2Magic     = []byte("\xff\x06\x00\x00S2sTwO")
)

// Detect returns the algorithm whose magic number starts data, or None.
func Detect(data []byte) Algorithm {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	case bytes.HasPrefix(data, lz4Magic):
		return LZ4
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	case bytes.HasPrefix(data, snappyMagic):
		return Snappy
	case bytes.HasPrefix(data, s2Magic):
		return S2
	default:
		return None
	}
}

// Compressor provides compression and decompression functionality.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	Compress(data []byte) ([]byte, error)
	// Decompress decompresses data and returns the original bytes.
	Decompress(data []byte) ([]byte, error)
	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm
}

// NewCompressor creates a compressor for config.Algorithm. A nil config
// means no compression.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = &Config{Algorithm: None}
	}
	switch config.Algorithm {
	case None, "":
		return noneCompressor{}, nil
	case Gzip:
		return gzipCompressor{}, nil
	case Snappy:
		return snappyCompressor{}, nil
	case LZ4:
		return lz4Compressor{}, nil
	case Zstd:
		return newZstdCompressor(), nil
	case S2:
		return s2Compressor{}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"unsupported compression algorithm: %s", config.Algorithm)
	}
}

// readAll drains a decoding reader, wrapping failures as data errors.
func readAll(algo Algorithm, r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil { //nolint:gosec // G110: inputs are trusted local files
		return nil, corrupt(algo, err)
	}
	return buf.Bytes(), nil
}

func corrupt(algo Algorithm, err error) error {
	return errors.Wrap(err, errors.ErrorTypeData, "failed to decompress input").
		WithDetail("algorithm", string(algo))
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Algorithm() Algorithm                   { return None }

// Gzip compressor
type gzipCompressor struct{}

func (gzipCompressor) Algorithm() Algorithm { return Gzip }

func (gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress")
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, corrupt(Gzip, err)
	}
	defer r.Close()
	return readAll(Gzip, r)
}

// Snappy compressor, framed stream format
type snappyCompressor struct{}

func (snappyCompressor) Algorithm() Algorithm { return Snappy }

func (snappyCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress")
	}
	return buf.Bytes(), nil
}

func (snappyCompressor) Decompress(data []byte) ([]byte, error) {
	return readAll(Snappy, snappy.NewReader(bytes.NewReader(data)))
}

// LZ4 compressor
type lz4Compressor struct{}

func (lz4Compressor) Algorithm() Algorithm { return LZ4 }

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress")
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	return readAll(LZ4, lz4.NewReader(bytes.NewReader(data)))
}

// Zstd compressor
type zstdCompressor struct {
	encoderPool sync.Pool
	decoderPool sync.Pool
}

func newZstdCompressor() *zstdCompressor {
	zc := &zstdCompressor{}
	zc.encoderPool.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil)
		return enc
	}
	zc.decoderPool.New = func() interface{} {
		dec, _ := zstd.NewReader(nil)
		return dec
	}
	return zc
}

func (zc *zstdCompressor) Algorithm() Algorithm { return Zstd }

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc := zc.encoderPool.Get().(*zstd.Encoder)
	defer zc.encoderPool.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, corrupt(Zstd, err)
	}
	return out, nil
}

// S2 compressor, framed stream format
type s2Compressor struct{}

func (s2Compressor) Algorithm() Algorithm { return S2 }

func (s2Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := s2.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress")
	}
	return buf.Bytes(), nil
}

func (s2Compressor) Decompress(data []byte) ([]byte, error) {
	return readAll(S2, s2.NewReader(bytes.NewReader(data)))
}
