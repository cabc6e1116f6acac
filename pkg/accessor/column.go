package accessor

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/makeroftools/perspective/pkg/errors"
)

// column is the closed set of decodable columns. Every variant dispatches to
// its own columnVisitor method, so a new variant does not compile until each
// visitor learns about it.
type column interface {
	logicalType() LogicalType
	accept(v columnVisitor)
}

type columnVisitor interface {
	visitBoolean(c booleanColumn)
	visitInt32(c int32Column)
	visitInt64(c int64Column)
	visitFloat64(c float64Column)
	visitDate(c dateColumn)
	visitTimestamp(c timestampColumn)
	visitDictionary(c dictionaryColumn)
}

type booleanColumn struct{ arr *array.Boolean }

type int32Column struct{ arr *array.Int32 }

type int64Column struct{ arr *array.Int64 }

type float64Column struct{ arr *array.Float64 }

type dateColumn struct{ arr *array.Date32 }

type timestampColumn struct{ arr *array.Timestamp }

type dictionaryColumn struct {
	arr    *array.Dictionary
	keys   *array.Int32
	values *array.String
}

func (booleanColumn) logicalType() LogicalType    { return Boolean }
func (int32Column) logicalType() LogicalType      { return Int32 }
func (int64Column) logicalType() LogicalType      { return Int64 }
func (float64Column) logicalType() LogicalType    { return Float64 }
func (dateColumn) logicalType() LogicalType       { return Date }
func (timestampColumn) logicalType() LogicalType  { return TimestampMillis }
func (dictionaryColumn) logicalType() LogicalType { return DictionaryString }

func (c booleanColumn) accept(v columnVisitor)    { v.visitBoolean(c) }
func (c int32Column) accept(v columnVisitor)      { v.visitInt32(c) }
func (c int64Column) accept(v columnVisitor)      { v.visitInt64(c) }
func (c float64Column) accept(v columnVisitor)    { v.visitFloat64(c) }
func (c dateColumn) accept(v columnVisitor)       { v.visitDate(c) }
func (c timestampColumn) accept(v columnVisitor)  { v.visitTimestamp(c) }
func (c dictionaryColumn) accept(v columnVisitor) { v.visitDictionary(c) }

// classify maps a schema field and its array onto a column variant. It
// panics with an *errors.Error when the field's type is not supported or the
// array does not carry the type the field declares.
func classify(idx int, field arrow.Field, arr arrow.Array) column {
	switch field.Type.ID() {
	case arrow.BOOL:
		return booleanColumn{arr: physical[*array.Boolean](idx, field, arr)}
	case arrow.INT32:
		return int32Column{arr: physical[*array.Int32](idx, field, arr)}
	case arrow.INT64:
		return int64Column{arr: physical[*array.Int64](idx, field, arr)}
	case arrow.FLOAT64:
		return float64Column{arr: physical[*array.Float64](idx, field, arr)}
	case arrow.DATE32:
		return dateColumn{arr: physical[*array.Date32](idx, field, arr)}
	case arrow.TIMESTAMP:
		ts := field.Type.(*arrow.TimestampType)
		if ts.Unit != arrow.Millisecond {
			panic(unsupported(idx, field, fmt.Sprintf("timestamp unit %s", ts.Unit)))
		}
		return timestampColumn{arr: physical[*array.Timestamp](idx, field, arr)}
	case arrow.DICTIONARY:
		dt := field.Type.(*arrow.DictionaryType)
		if dt.IndexType.ID() != arrow.INT32 {
			panic(unsupported(idx, field, fmt.Sprintf("dictionary key type %s", dt.IndexType)))
		}
		if dt.ValueType.ID() != arrow.STRING {
			panic(unsupported(idx, field, fmt.Sprintf("dictionary value type %s", dt.ValueType)))
		}
		dict := physical[*array.Dictionary](idx, field, arr)
		return dictionaryColumn{
			arr:    dict,
			keys:   physical[*array.Int32](idx, field, dict.Indices()),
			values: physical[*array.String](idx, field, dict.Dictionary()),
		}
	default:
		panic(unsupported(idx, field, fmt.Sprintf("data type %s", field.Type)))
	}
}

// physical asserts the concrete array behind a field.
func physical[T arrow.Array](idx int, field arrow.Field, arr arrow.Array) T {
	typed, ok := arr.(T)
	if !ok {
		panic(errors.Newf(errors.ErrorTypeSchemaMismatch,
			"column %d (%q) declares %s but holds %T", idx, field.Name, field.Type, arr).
			WithDetail("column", field.Name).
			WithDetail("index", idx))
	}
	return typed
}

func unsupported(idx int, field arrow.Field, what string) *errors.Error {
	return errors.Newf(errors.ErrorTypeUnsupportedType,
		"column %d (%q): unexpected %s", idx, field.Name, what).
		WithDetail("column", field.Name).
		WithDetail("index", idx).
		WithDetail("type", field.Type.String())
}
