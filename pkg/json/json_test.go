package json

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeroftools/perspective/pkg/accessor"
	"github.com/makeroftools/perspective/pkg/testutil"
)

func duplicateTable() *accessor.Table[[]any] {
	return &accessor.Table[[]any]{
		ColumnPaths:   []string{"x", "d", "x"},
		ColumnIndices: map[string]int{"x": 2, "d": 1},
		Types: []accessor.LogicalType{
			accessor.Int32, accessor.Date, accessor.Float64,
		},
		Data: [][]any{
			{int32(1), nil},
			{testutil.SampleDate, nil},
			{1.5, math.NaN()},
		},
		NumRows: 2,
	}
}

func TestWriteColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteColumns(&buf, duplicateTable(), false))

	assert.JSONEq(t, `{
		"column_paths": ["x", "d", "x"],
		"column_indices": {"x": 2, "d": 1},
		"data": [[1, null], [1615766400000, null], [1.5, null]]
	}`, buf.String())
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestWriteColumnsPretty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteColumns(&buf, duplicateTable(), true))

	assert.Contains(t, buf.String(), "\n  \"column_paths\"")
}

func TestWriteRowsResolvesDuplicates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, duplicateTable()))

	assert.Equal(t,
		"{\"x\":1.5,\"d\":1615766400000}\n{\"x\":null,\"d\":null}\n",
		buf.String())
}

func TestWriteRowsSampleRecord(t *testing.T) {
	mem := testutil.CheckedAllocator(t)
	rec := testutil.SampleRecord(mem)
	defer rec.Release()

	table := accessor.MaterializeValues(rec, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, table))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	var first map[string]any
	require.NoError(t, gojson.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, map[string]any{
		"flag":       true,
		"qty":        float64(1),
		"volume":     float64(100),
		"price":      1.5,
		"trade_date": float64(1615766400000),
		"ts":         float64(1615766400000),
		"symbol":     "alpha",
	}, first)

	var last map[string]any
	require.NoError(t, gojson.Unmarshal([]byte(lines[3]), &last))
	assert.Equal(t, float64(-86400000), last["trade_date"])
	assert.Nil(t, last["qty"])
}

func TestWriteRowsEscaping(t *testing.T) {
	table := &accessor.Table[[]any]{
		ColumnPaths:   []string{`a"b`},
		ColumnIndices: map[string]int{`a"b`: 0},
		Types:         []accessor.LogicalType{accessor.DictionaryString},
		Data:          [][]any{{"<tag>&"}},
		NumRows:       1,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, table))
	assert.Equal(t, "{\"a\\\"b\":\"<tag>&\"}\n", buf.String())
}

func TestValue(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	assert.Equal(t, int64(0), Value(time.Unix(0, 0)))
	assert.Equal(t, int64(1615780800000), Value(time.Date(2021, time.March, 15, 0, 0, 0, 0, ny)))
	assert.Nil(t, Value(math.Inf(1)))
	assert.Nil(t, Value(math.Inf(-1)))
	assert.Equal(t, 2.5, Value(2.5))
	assert.Equal(t, "s", Value("s"))
	assert.Nil(t, Value(nil))
}
