package accessor

import (
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeroftools/perspective/pkg/errors"
	"github.com/makeroftools/perspective/pkg/testutil"
)

func newRecord(t *testing.T, fields []arrow.Field, cols ...arrow.Array) arrow.Record {
	t.Helper()
	require.NotEmpty(t, cols)

	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(cols[0].Len()))
	for _, c := range cols {
		c.Release()
	}
	return rec
}

func int32Array(mem memory.Allocator, values []int32, valid []bool) arrow.Array {
	b := array.NewInt32Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewArray()
}

func stringArray(mem memory.Allocator, values ...string) arrow.Array {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}

func TestMaterializeSampleRecord(t *testing.T) {
	mem := testutil.CheckedAllocator(t)
	rec := testutil.SampleRecord(mem)
	defer rec.Release()

	loc := time.FixedZone("UTC-5", -5*60*60)
	table := MaterializeValues(rec, loc)

	require.Equal(t, 7, table.NumColumns())
	assert.Equal(t, 4, table.NumRows)
	assert.Equal(t, []string{"flag", "qty", "volume", "price", "trade_date", "ts", "symbol"}, table.ColumnPaths)
	assert.Equal(t, []LogicalType{Boolean, Int32, Int64, Float64, Date, TimestampMillis, DictionaryString}, table.Types)
	for i, name := range table.ColumnPaths {
		assert.Equal(t, i, table.ColumnIndices[name])
		assert.Len(t, table.Data[i], 4, name)
	}

	assert.Equal(t, []any{true, false, nil, true}, table.Data[0])
	assert.Equal(t, []any{int32(1), int32(-2), int32(3), nil}, table.Data[1])
	assert.Equal(t, []any{float64(100), nil, float64(1 << 40), float64(-7)}, table.Data[2])
	assert.Equal(t, []any{1.5, 2.25, nil, -0.125}, table.Data[3])
	assert.Equal(t, []any{float64(1615766400000), nil, float64(0), float64(-1000)}, table.Data[5])
	assert.Equal(t, []any{"alpha", nil, "beta", "alpha"}, table.Data[6])

	dates := table.Data[4]
	assert.Nil(t, dates[2])
	assert.Equal(t, time.Date(2021, time.March, 15, 0, 0, 0, 0, loc), dates[0])
	assert.Equal(t, time.Date(1970, time.January, 1, 0, 0, 0, 0, loc), dates[1])
	assert.Equal(t, time.Date(1969, time.December, 31, 0, 0, 0, 0, loc), dates[3])
}

func TestMaterializeOutlivesRecord(t *testing.T) {
	mem := testutil.CheckedAllocator(t)
	rec := testutil.SampleRecord(mem)
	table := MaterializeValues(rec, time.UTC)
	rec.Release()

	symbols, ok := table.Column("symbol")
	require.True(t, ok)
	assert.Equal(t, []any{"alpha", nil, "beta", "alpha"}, symbols)
}

func TestDateIsLocalMidnight(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	zones := []*time.Location{
		time.UTC,
		time.FixedZone("UTC-10", -10*60*60),
		time.FixedZone("UTC+14", 14*60*60),
		time.FixedZone("UTC+5:30", 5*60*60+30*60),
	}

	for _, loc := range zones {
		t.Run(loc.String(), func(t *testing.T) {
			b := array.NewDate32Builder(mem)
			b.Append(arrow.Date32FromTime(time.Date(2021, time.March, 15, 0, 0, 0, 0, time.UTC)))
			rec := newRecord(t, []arrow.Field{{Name: "d", Type: arrow.FixedWidthTypes.Date32}}, b.NewArray())
			b.Release()
			defer rec.Release()

			table := MaterializeValues(rec, loc)
			got, ok := table.Data[0][0].(time.Time)
			require.True(t, ok)

			assert.Equal(t, 2021, got.Year())
			assert.Equal(t, time.March, got.Month())
			assert.Equal(t, 15, got.Day())
			assert.Zero(t, got.Hour())
			assert.Zero(t, got.Minute())
			assert.Equal(t, loc, got.Location())
		})
	}
}

func TestInvalidSlotsIgnorePhysicalValues(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	keys := int32Array(mem, []int32{1, 999, 0}, []bool{true, false, true})
	assert.Equal(t, int32(999), keys.(*array.Int32).Value(1))

	values := stringArray(mem, "alpha", "beta")
	dict := array.NewDictionaryArray(testutil.SymbolType, keys, values)
	keys.Release()
	values.Release()

	ints := int32Array(mem, []int32{7, 999, 9}, []bool{true, false, true})
	rec := newRecord(t, []arrow.Field{
		{Name: "n", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "s", Type: testutil.SymbolType, Nullable: true},
	}, ints, dict)
	defer rec.Release()

	table := MaterializeValues(rec, time.UTC)
	assert.Equal(t, []any{int32(7), nil, int32(9)}, table.Data[0])
	assert.Equal(t, []any{"beta", nil, "alpha"}, table.Data[1])
}

func TestDictionaryDecode(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	keys := int32Array(mem, []int32{0, 0, 1, 0}, []bool{true, false, true, true})
	values := stringArray(mem, "alpha", "beta")
	dict := array.NewDictionaryArray(testutil.SymbolType, keys, values)
	keys.Release()
	values.Release()

	rec := newRecord(t, []arrow.Field{{Name: "s", Type: testutil.SymbolType, Nullable: true}}, dict)
	defer rec.Release()

	table := MaterializeValues(rec, time.UTC)
	assert.Equal(t, []any{"alpha", nil, "beta", "alpha"}, table.Data[0])
}

func TestDictionaryNullValueIsNull(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	keys := int32Array(mem, []int32{0, 1}, nil)
	vb := array.NewStringBuilder(mem)
	vb.Append("alpha")
	vb.AppendNull()
	values := vb.NewArray()
	vb.Release()

	dict := array.NewDictionaryArray(testutil.SymbolType, keys, values)
	keys.Release()
	values.Release()

	rec := newRecord(t, []arrow.Field{{Name: "s", Type: testutil.SymbolType, Nullable: true}}, dict)
	defer rec.Release()

	assert.Equal(t, []any{"alpha", nil}, MaterializeValues(rec, time.UTC).Data[0])
}

func TestWideningIsLossyBeyond53Bits(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	b := array.NewInt64Builder(mem)
	b.AppendValues([]int64{1 << 53, 1<<53 + 1, math.MaxInt64}, nil)
	rec := newRecord(t, []arrow.Field{{Name: "big", Type: arrow.PrimitiveTypes.Int64}}, b.NewArray())
	b.Release()
	defer rec.Release()

	col := MaterializeValues(rec, time.UTC).Data[0]
	assert.Equal(t, float64(1<<53), col[0])
	assert.Equal(t, float64(1<<53), col[1])
	assert.Equal(t, float64(math.MaxInt64), col[2])
}

func TestEmptyRecord(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	rec := newRecord(t, []arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int32}}, int32Array(mem, nil, nil))
	defer rec.Release()

	table := MaterializeValues(rec, time.UTC)
	assert.Equal(t, []string{"n"}, table.ColumnPaths)
	assert.Zero(t, table.NumRows)
	assert.Empty(t, table.Data[0])
}

func TestDuplicateNamesLastIndexWins(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	rec := newRecord(t, []arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Int32},
		{Name: "y", Type: arrow.PrimitiveTypes.Int32},
		{Name: "x", Type: arrow.PrimitiveTypes.Int32},
	},
		int32Array(mem, []int32{1}, nil),
		int32Array(mem, []int32{2}, nil),
		int32Array(mem, []int32{3}, nil),
	)
	defer rec.Release()

	table := MaterializeValues(rec, time.UTC)
	assert.Equal(t, []string{"x", "y", "x"}, table.ColumnPaths)
	assert.Equal(t, 2, table.ColumnIndices["x"])
	assert.Equal(t, 1, table.ColumnIndices["y"])

	x, ok := table.Column("x")
	require.True(t, ok)
	assert.Equal(t, []any{int32(3)}, x)

	_, ok = table.Column("z")
	assert.False(t, ok)
}

// countingHost records how many columns were requested.
type countingHost struct {
	ValueHost
	columns int
}

func (h *countingHost) NewColumn(nrows int) ColumnSink[[]any] {
	h.columns++
	return h.ValueHost.NewColumn(nrows)
}

func TestUnsupportedTypeIsFatal(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	i16 := array.NewInt16Builder(mem)
	i16.AppendValues([]int16{1, 2}, nil)

	rec := newRecord(t, []arrow.Field{
		{Name: "ok", Type: arrow.PrimitiveTypes.Int32},
		{Name: "small", Type: arrow.PrimitiveTypes.Int16},
	}, int32Array(mem, []int32{1, 2}, nil), i16.NewArray())
	i16.Release()
	defer rec.Release()

	host := &countingHost{ValueHost: NewValueHost(time.UTC)}
	assert.Panics(t, func() { Materialize[[]any](rec, nil, host) })
	assert.Zero(t, host.columns, "no column may be built before the failure")

	table, err := TryMaterialize[[]any](rec, nil, host)
	assert.Nil(t, table)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedType))
	assert.Contains(t, err.Error(), `"small"`)
	assert.Contains(t, err.Error(), "int16")
}

func TestUnsupportedVariants(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	tests := []struct {
		name  string
		build func() (arrow.DataType, arrow.Array)
		msg   string
	}{
		{
			name: "int8 dictionary keys",
			build: func() (arrow.DataType, arrow.Array) {
				dt := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int8, ValueType: arrow.BinaryTypes.String}
				kb := array.NewInt8Builder(mem)
				kb.AppendValues([]int8{0}, nil)
				keys := kb.NewArray()
				kb.Release()
				values := stringArray(mem, "alpha")
				dict := array.NewDictionaryArray(dt, keys, values)
				keys.Release()
				values.Release()
				return dt, dict
			},
			msg: "dictionary key type",
		},
		{
			name: "int32 keys over int64 values",
			build: func() (arrow.DataType, arrow.Array) {
				dt := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: arrow.PrimitiveTypes.Int64}
				keys := int32Array(mem, []int32{0}, nil)
				vb := array.NewInt64Builder(mem)
				vb.Append(42)
				values := vb.NewArray()
				vb.Release()
				dict := array.NewDictionaryArray(dt, keys, values)
				keys.Release()
				values.Release()
				return dt, dict
			},
			msg: "dictionary value type",
		},
		{
			name: "second timestamps",
			build: func() (arrow.DataType, arrow.Array) {
				dt := arrow.FixedWidthTypes.Timestamp_s
				b := array.NewTimestampBuilder(mem, dt.(*arrow.TimestampType))
				b.Append(1)
				defer b.Release()
				return dt, b.NewArray()
			},
			msg: "timestamp unit",
		},
		{
			name: "plain utf8",
			build: func() (arrow.DataType, arrow.Array) {
				return arrow.BinaryTypes.String, stringArray(mem, "alpha")
			},
			msg: "data type utf8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, arr := tt.build()
			rec := newRecord(t, []arrow.Field{{Name: "c", Type: dt}}, arr)
			defer rec.Release()

			_, err := TryMaterialize[[]any](rec, nil, NewValueHost(time.UTC))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedType))
			assert.Contains(t, err.Error(), tt.msg)

			_, err = SupportedType(arrow.Field{Name: "c", Type: dt})
			assert.Error(t, err)
		})
	}
}

func TestSchemaMismatchIsFatal(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	rec := newRecord(t, []arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int32}}, int32Array(mem, []int32{1}, nil))
	defer rec.Release()

	twoFields := arrow.NewSchema([]arrow.Field{
		{Name: "n", Type: arrow.PrimitiveTypes.Int32},
		{Name: "m", Type: arrow.PrimitiveTypes.Int32},
	}, nil)
	_, err := TryMaterialize[[]any](rec, twoFields, NewValueHost(time.UTC))
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))

	wrongType := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Float64}}, nil)
	_, err = TryMaterialize[[]any](rec, wrongType, NewValueHost(time.UTC))
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))
}

func TestTryMaterializeRepanicsForeignPanics(t *testing.T) {
	mem := testutil.CheckedAllocator(t)

	rec := newRecord(t, []arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int32}}, int32Array(mem, []int32{1}, nil))
	defer rec.Release()

	assert.PanicsWithValue(t, "sink exploded", func() {
		_, _ = TryMaterialize[[]any](rec, nil, panickingHost{})
	})
}

type panickingHost struct{}

func (panickingHost) NewColumn(int) ColumnSink[[]any] { panic("sink exploded") }

func TestSupportedType(t *testing.T) {
	for i, f := range testutil.SampleSchema().Fields() {
		lt, err := SupportedType(f)
		require.NoError(t, err, f.Name)
		assert.Equal(t, LogicalType(i), lt)
	}

	_, err := SupportedType(arrow.Field{Name: "f", Type: arrow.PrimitiveTypes.Float32})
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedType))
}

func TestLogicalTypeString(t *testing.T) {
	assert.Equal(t, "boolean", Boolean.String())
	assert.Equal(t, "timestamp_ms", TimestampMillis.String())
	assert.Equal(t, "dictionary_string", DictionaryString.String())
	assert.Equal(t, "unknown", LogicalType(99).String())
}
