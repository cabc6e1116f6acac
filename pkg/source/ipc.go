package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/makeroftools/perspective/pkg/errors"
)

const (
	// fileHeaderLen is the leading magic padded to 8 bytes
	fileHeaderLen = 8
	// fileTrailerLen is the int32 footer length followed by the magic
	fileTrailerLen = 10
)

// streamReader reads the Arrow IPC streaming format.
type streamReader struct {
	rdr    *ipc.Reader
	format Format
}

func newStreamReader(data []byte, opts Options) (*streamReader, error) {
	rdr, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(opts.Allocator))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open Arrow IPC stream")
	}
	return &streamReader{rdr: rdr, format: FormatIPCStream}, nil
}

// newFileReader reads the Arrow IPC file format through the stream it
// embeds between the leading magic and the footer. Batches come back in
// file order. ipc.FileReader keeps its dictionary memo after Close, so
// dictionaries read through it would never return to the allocator.
func newFileReader(data []byte, opts Options) (*streamReader, error) {
	body, err := fileStream(data)
	if err != nil {
		return nil, err
	}

	rdr, err := ipc.NewReader(bytes.NewReader(body), ipc.WithAllocator(opts.Allocator))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open Arrow IPC file")
	}
	return &streamReader{rdr: rdr, format: FormatIPCFile}, nil
}

// fileStream returns the stream section of an Arrow IPC file.
func fileStream(data []byte) ([]byte, error) {
	if len(data) < fileHeaderLen+fileTrailerLen ||
		!bytes.HasPrefix(data, arrowFileMagic) || !bytes.HasSuffix(data, arrowFileMagic) {
		return nil, errors.New(errors.ErrorTypeData, "invalid Arrow IPC file: missing magic").
			WithDetail("size", len(data))
	}

	footerLen := int(int32(binary.LittleEndian.Uint32(data[len(data)-fileTrailerLen:])))
	end := len(data) - fileTrailerLen - footerLen
	if footerLen <= 0 || end < fileHeaderLen {
		return nil, errors.New(errors.ErrorTypeData, "invalid Arrow IPC file: bad footer length").
			WithDetail("footer_length", footerLen)
	}
	return data[fileHeaderLen:end], nil
}

func (r *streamReader) Schema() *arrow.Schema { return r.rdr.Schema() }

func (r *streamReader) Format() Format { return r.format }

func (r *streamReader) Next(ctx context.Context) (arrow.Record, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	if !r.rdr.Next() {
		if err := r.rdr.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read Arrow IPC stream")
		}
		return nil, io.EOF
	}

	// The reader releases its current record on the next call.
	rec := r.rdr.Record()
	rec.Retain()
	return rec, nil
}

func (r *streamReader) Close() error {
	r.rdr.Release()
	return nil
}
