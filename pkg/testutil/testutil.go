// Package testutil provides testing utilities for perspective
package testutil

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// CheckedAllocator returns an allocator that fails the test if any Arrow
// buffer is still allocated when the test finishes.
func CheckedAllocator(t *testing.T) *memory.CheckedAllocator {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })
	return mem
}

// SymbolType is the dictionary type of the sample "symbol" column.
var SymbolType = &arrow.DictionaryType{
	IndexType: arrow.PrimitiveTypes.Int32,
	ValueType: arrow.BinaryTypes.String,
}

// SampleSchema has one field of every supported logical type.
func SampleSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "flag", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: "qty", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "volume", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "price", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "trade_date", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
		{Name: "ts", Type: arrow.FixedWidthTypes.Timestamp_ms, Nullable: true},
		{Name: "symbol", Type: SymbolType, Nullable: true},
	}, nil)
}

// SampleDate is the first trade_date of the sample record.
var SampleDate = time.Date(2021, time.March, 15, 0, 0, 0, 0, time.UTC)

// SampleRecord builds four rows over SampleSchema:
//
//	flag        true   false   null    true
//	qty         1      -2      3       null
//	volume      100    null    2^40    -7
//	price       1.5    2.25    null    -0.125
//	trade_date  2021-03-15  1970-01-01  null  1969-12-31
//	ts          1615766400000  null  0  -1000
//	symbol      alpha  null    beta    alpha
func SampleRecord(mem memory.Allocator) arrow.Record {
	b := array.NewRecordBuilder(mem, SampleSchema())
	defer b.Release()

	b.Field(0).(*array.BooleanBuilder).AppendValues(
		[]bool{true, false, false, true}, []bool{true, true, false, true})
	b.Field(1).(*array.Int32Builder).AppendValues(
		[]int32{1, -2, 3, 0}, []bool{true, true, true, false})
	b.Field(2).(*array.Int64Builder).AppendValues(
		[]int64{100, 0, 1 << 40, -7}, []bool{true, false, true, true})
	b.Field(3).(*array.Float64Builder).AppendValues(
		[]float64{1.5, 2.25, 0, -0.125}, []bool{true, true, false, true})
	b.Field(4).(*array.Date32Builder).AppendValues(
		[]arrow.Date32{arrow.Date32FromTime(SampleDate), 0, 0, -1}, []bool{true, true, false, true})
	b.Field(5).(*array.TimestampBuilder).AppendValues(
		[]arrow.Timestamp{1615766400000, 0, 0, -1000}, []bool{true, false, true, true})

	symbols := b.Field(6).(*array.BinaryDictionaryBuilder)
	for _, s := range []string{"alpha", "", "beta", "alpha"} {
		if s == "" {
			symbols.AppendNull()
			continue
		}
		if err := symbols.AppendString(s); err != nil {
			panic(err)
		}
	}

	return b.NewRecord()
}

// WriteIPCStream encodes records as an Arrow IPC stream.
func WriteIPCStream(t *testing.T, schema *arrow.Schema, records ...arrow.Record) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("failed to write IPC stream: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close IPC stream: %v", err)
	}
	return buf.Bytes()
}

// WriteIPCFile encodes records as an Arrow IPC file.
func WriteIPCFile(t *testing.T, schema *arrow.Schema, records ...arrow.Record) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema))
	if err != nil {
		t.Fatalf("failed to create IPC file writer: %v", err)
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("failed to write IPC file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close IPC file: %v", err)
	}
	return buf.Bytes()
}
