// Package json encodes materialized tables with goccy/go-json.
package json

import (
	"bytes"
	"io"
	"math"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/makeroftools/perspective/pkg/accessor"
	"github.com/makeroftools/perspective/pkg/errors"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// columnsDocument is the columns layout, the same shape the JavaScript
// entry point returns.
type columnsDocument struct {
	ColumnPaths   []string       `json:"column_paths"`
	ColumnIndices map[string]int `json:"column_indices"`
	Data          [][]any        `json:"data"`
}

func newEncoder(w io.Writer, pretty bool) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc
}

// WriteColumns writes table as a single document holding its column paths,
// column indices and one array per column.
func WriteColumns(w io.Writer, table *accessor.Table[[]any], pretty bool) error {
	doc := columnsDocument{
		ColumnPaths:   table.ColumnPaths,
		ColumnIndices: table.ColumnIndices,
		Data:          make([][]any, len(table.Data)),
	}
	for i, col := range table.Data {
		out := make([]any, len(col))
		for j, v := range col {
			out[j] = Value(v)
		}
		doc.Data[i] = out
	}

	if err := newEncoder(w, pretty).Encode(doc); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode columns")
	}
	return nil
}

// WriteRows writes table as newline delimited objects, one per row, keyed by
// column name in schema order. A duplicated name appears once and carries the
// value of the column ColumnIndices resolves it to.
func WriteRows(w io.Writer, table *accessor.Table[[]any]) error {
	names := make([]string, 0, len(table.ColumnPaths))
	keys := make([][]byte, 0, len(table.ColumnPaths))
	cols := make([]int, 0, len(table.ColumnPaths))
	seen := make(map[string]bool, len(table.ColumnPaths))
	for _, name := range table.ColumnPaths {
		if seen[name] {
			continue
		}
		seen[name] = true

		key, err := gojson.Marshal(name)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to encode column name").
				WithDetail("column", name)
		}
		names = append(names, name)
		keys = append(keys, key)
		cols = append(cols, table.ColumnIndices[name])
	}

	buf := getBuffer()
	defer putBuffer(buf)
	enc := newEncoder(buf, false)

	for row := 0; row < table.NumRows; row++ {
		buf.Reset()
		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := enc.Encode(Value(table.Data[cols[i]][row])); err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "failed to encode value").
					WithDetail("column", names[i]).
					WithDetail("row", row)
			}
			// Remove trailing newline added by Encode
			buf.Truncate(buf.Len() - 1)
		}
		buf.WriteString("}\n")

		if _, err := w.Write(buf.Bytes()); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write row")
		}
	}
	return nil
}

// Value maps a value host entry to its JSON form. Dates become the epoch
// milliseconds of their midnight and non-finite floats become null.
func Value(v any) any {
	switch v := v.(type) {
	case time.Time:
		return v.UnixMilli()
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	default:
		return v
	}
}
