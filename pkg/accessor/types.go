package accessor

import "time"

// LogicalType is the declared type of a column that the materializer knows
// how to decode.
type LogicalType int

const (
	// Boolean is a bit-packed boolean column
	Boolean LogicalType = iota
	// Int32 is a 32-bit signed integer column
	Int32
	// Int64 is a 64-bit signed integer column, widened to float64
	Int64
	// Float64 is a 64-bit floating point column
	Float64
	// Date is a day-precision date stored as days since the epoch
	Date
	// TimestampMillis is a millisecond timestamp, widened to float64
	TimestampMillis
	// DictionaryString is a utf8 column dictionary-encoded with int32 keys
	DictionaryString
)

var logicalTypeNames = [...]string{
	Boolean:          "boolean",
	Int32:            "int32",
	Int64:            "int64",
	Float64:          "float64",
	Date:             "date",
	TimestampMillis:  "timestamp_ms",
	DictionaryString: "dictionary_string",
}

func (t LogicalType) String() string {
	if t < 0 || int(t) >= len(logicalTypeNames) {
		return "unknown"
	}
	return logicalTypeNames[t]
}

// ColumnSink receives the decoded values of one column in row order and
// produces the host's representation of that column.
type ColumnSink[C any] interface {
	PushBool(v bool)
	PushInt32(v int32)
	PushNumber(v float64)
	PushString(v string)
	// PushDate receives a calendar date. Implementations must build local
	// midnight from the components and never reinterpret a UTC instant.
	PushDate(year int, month time.Month, day int)
	PushNull()
	// Finish returns the completed column. The sink is not used afterwards.
	Finish() C
}

// Host creates column sinks for a particular value system.
type Host[C any] interface {
	NewColumn(nrows int) ColumnSink[C]
}

// Table is a fully materialized record batch.
type Table[C any] struct {
	// ColumnPaths holds one name per schema field, in order, duplicates kept.
	ColumnPaths []string
	// ColumnIndices maps a name to its column; the last duplicate wins.
	ColumnIndices map[string]int
	// Types holds the logical type each column was decoded as.
	Types []LogicalType
	// Data holds one host column per schema field.
	Data    []C
	NumRows int
}

// NumColumns returns the number of materialized columns.
func (t *Table[C]) NumColumns() int {
	return len(t.Data)
}

// Column looks a column up by name.
func (t *Table[C]) Column(name string) (C, bool) {
	idx, ok := t.ColumnIndices[name]
	if !ok {
		var zero C
		return zero, false
	}
	return t.Data[idx], true
}
