// Package accessor materializes Arrow record batches into per-column
// sequences of dynamically typed values for hosts that have no columnar
// model of their own.
//
// # Overview
//
// A record batch is decoded column by column, in schema order. Every column
// is decoded according to its declared logical type and pushed, row by row,
// into a ColumnSink supplied by the Host. Invalid slots are pushed as nulls
// no matter which bits sit in the value buffer underneath them.
//
// Supported logical types:
//
//	boolean                       -> PushBool
//	int32                         -> PushInt32
//	int64                         -> PushNumber (widened to float64)
//	float64                       -> PushNumber
//	date32                        -> PushDate (calendar year, month, day)
//	timestamp[ms, any zone]       -> PushNumber (epoch milliseconds as float64)
//	dictionary<int32, utf8>       -> PushString
//
// Any other type is a programming or schema error. Materialize panics with
// an *errors.Error of type ErrorTypeUnsupportedType before any host column
// is created; TryMaterialize turns that panic into an error at the top of
// the call stack.
//
// # Dates
//
// Dates reach the sink as calendar components rather than instants. Each
// host builds local midnight from the components in its own time zone, so
// a zone offset is applied exactly once.
//
// # Precision
//
// int64 and millisecond timestamps lose precision above 2^53 because hosts
// such as JavaScript only have float64 numbers.
//
// # Basic Usage
//
//	table := accessor.MaterializeValues(record, time.Local)
//	for i, name := range table.ColumnPaths {
//	    fmt.Println(name, table.Types[i], table.Data[i])
//	}
package accessor
