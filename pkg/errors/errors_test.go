package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrorTypeUnsupportedType, "int16 is not supported")

	assert.Equal(t, "unsupported_type: int16 is not supported", err.Error())
	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestNewCapturesStack")
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeSchemaMismatch, "expected %d columns, got %d", 3, 2)
	assert.Equal(t, "schema_mismatch: expected 3 columns, got 2", err.Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeFile, "ignored"))

	err := Wrap(io.ErrUnexpectedEOF, ErrorTypeFile, "failed to read input")
	assert.Equal(t, "file: failed to read input: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeData, "bad value")
	outer := Wrap(inner, ErrorTypeInternal, "conversion failed")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, IsType(outer, ErrorTypeInternal))
}

func TestIsTypeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("batch 3: %w", New(ErrorTypeUnsupportedType, "int16"))

	assert.True(t, IsType(err, ErrorTypeUnsupportedType))
	assert.False(t, IsType(err, ErrorTypeConfig))
	assert.False(t, IsType(io.EOF, ErrorTypeUnsupportedType))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "int16", e.Message)
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeUnsupportedType, "unsupported").
		WithDetail("column", "price").
		WithDetail("index", 2)

	assert.Equal(t, "price", err.Details["column"])
	assert.Equal(t, 2, err.Details["index"])
}
