package accessor

import (
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/makeroftools/perspective/pkg/errors"
)

// Materialize converts every column of batch into host columns, in schema
// order. A nil schema means batch.Schema().
//
// Materialize panics with an *errors.Error when a column cannot be decoded
// or the batch does not line up with the schema. Every column is classified
// before the host sees any value, so a failure never leaves a partial table.
func Materialize[C any](batch arrow.Record, schema *arrow.Schema, host Host[C]) *Table[C] {
	if schema == nil {
		schema = batch.Schema()
	}

	ncols := schema.NumFields()
	if int(batch.NumCols()) != ncols {
		panic(errors.Newf(errors.ErrorTypeSchemaMismatch,
			"schema has %d fields but record batch has %d columns", ncols, batch.NumCols()))
	}

	nrows := int(batch.NumRows())
	columns := make([]column, ncols)
	for i := 0; i < ncols; i++ {
		arr := batch.Column(i)
		if arr.Len() != nrows {
			panic(errors.Newf(errors.ErrorTypeSchemaMismatch,
				"column %d (%q) has %d rows, record batch has %d", i, schema.Field(i).Name, arr.Len(), nrows))
		}
		columns[i] = classify(i, schema.Field(i), arr)
	}

	table := &Table[C]{
		ColumnPaths:   make([]string, 0, ncols),
		ColumnIndices: make(map[string]int, ncols),
		Types:         make([]LogicalType, 0, ncols),
		Data:          make([]C, 0, ncols),
		NumRows:       nrows,
	}

	for i, col := range columns {
		sink := host.NewColumn(nrows)
		col.accept(decoder[C]{sink: sink})

		name := schema.Field(i).Name
		table.ColumnPaths = append(table.ColumnPaths, name)
		table.ColumnIndices[name] = i
		table.Types = append(table.Types, col.logicalType())
		table.Data = append(table.Data, sink.Finish())
	}

	return table
}

// TryMaterialize is Materialize for callers at the top of a call stack,
// such as a CLI command or an exported wasm function, that must report an
// unsupported column instead of crashing. Only *errors.Error panics are
// recovered; anything else keeps unwinding.
func TryMaterialize[C any](batch arrow.Record, schema *arrow.Schema, host Host[C]) (table *Table[C], err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*errors.Error)
			if !ok {
				panic(r)
			}
			table, err = nil, e
		}
	}()
	return Materialize(batch, schema, host), nil
}

// MaterializeValues materializes batch into Go values, building dates at
// midnight in loc. A nil loc means time.Local.
func MaterializeValues(batch arrow.Record, loc *time.Location) *Table[[]any] {
	return Materialize[[]any](batch, nil, NewValueHost(loc))
}

// SupportedType reports the logical type a field would be decoded as, or an
// error describing why it cannot be.
func SupportedType(field arrow.Field) (LogicalType, error) {
	switch field.Type.ID() {
	case arrow.BOOL:
		return Boolean, nil
	case arrow.INT32:
		return Int32, nil
	case arrow.INT64:
		return Int64, nil
	case arrow.FLOAT64:
		return Float64, nil
	case arrow.DATE32:
		return Date, nil
	case arrow.TIMESTAMP:
		if field.Type.(*arrow.TimestampType).Unit == arrow.Millisecond {
			return TimestampMillis, nil
		}
	case arrow.DICTIONARY:
		dt := field.Type.(*arrow.DictionaryType)
		if dt.IndexType.ID() == arrow.INT32 && dt.ValueType.ID() == arrow.STRING {
			return DictionaryString, nil
		}
	}
	return 0, errors.Newf(errors.ErrorTypeUnsupportedType, "unexpected data type %s", field.Type).
		WithDetail("column", field.Name)
}

// decoder walks a column's rows and forwards each value, or a null for
// every invalid slot, to the sink.
type decoder[C any] struct {
	sink ColumnSink[C]
}

func (d decoder[C]) rows(arr arrow.Array, push func(i int)) {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsValid(i) {
			push(i)
		} else {
			d.sink.PushNull()
		}
	}
}

func (d decoder[C]) visitBoolean(c booleanColumn) {
	d.rows(c.arr, func(i int) { d.sink.PushBool(c.arr.Value(i)) })
}

func (d decoder[C]) visitInt32(c int32Column) {
	d.rows(c.arr, func(i int) { d.sink.PushInt32(c.arr.Value(i)) })
}

func (d decoder[C]) visitInt64(c int64Column) {
	d.rows(c.arr, func(i int) { d.sink.PushNumber(float64(c.arr.Value(i))) })
}

func (d decoder[C]) visitFloat64(c float64Column) {
	d.rows(c.arr, func(i int) { d.sink.PushNumber(c.arr.Value(i)) })
}

func (d decoder[C]) visitDate(c dateColumn) {
	d.rows(c.arr, func(i int) {
		// ToTime is UTC midnight of the day count; only its calendar fields
		// are passed on.
		year, month, day := c.arr.Value(i).ToTime().Date()
		d.sink.PushDate(year, month, day)
	})
}

func (d decoder[C]) visitTimestamp(c timestampColumn) {
	d.rows(c.arr, func(i int) { d.sink.PushNumber(float64(c.arr.Value(i))) })
}

func (d decoder[C]) visitDictionary(c dictionaryColumn) {
	d.rows(c.arr, func(i int) {
		key := int(c.keys.Value(i))
		if c.values.IsNull(key) {
			d.sink.PushNull()
			return
		}
		// String values alias the Arrow buffer; the table must outlive it.
		d.sink.PushString(strings.Clone(c.values.Value(key)))
	})
}
