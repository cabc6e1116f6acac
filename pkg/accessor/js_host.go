//go:build js && wasm

package accessor

import (
	"syscall/js"
	"time"
)

// JSHost materializes columns as JavaScript arrays. Dates are built with
// the Date(year, monthIndex, day) constructor, which the browser interprets
// in its local zone.
type JSHost struct {
	array js.Value
	date  js.Value
}

// NewJSHost returns a host bound to the global Array and Date constructors.
func NewJSHost() JSHost {
	return JSHost{
		array: js.Global().Get("Array"),
		date:  js.Global().Get("Date"),
	}
}

// NewColumn implements Host.
func (h JSHost) NewColumn(nrows int) ColumnSink[js.Value] {
	return &jsColumn{arr: h.array.New(), date: h.date}
}

type jsColumn struct {
	arr  js.Value
	date js.Value
}

func (c *jsColumn) PushBool(v bool)      { c.arr.Call("push", v) }
func (c *jsColumn) PushInt32(v int32)    { c.arr.Call("push", int(v)) }
func (c *jsColumn) PushNumber(v float64) { c.arr.Call("push", v) }
func (c *jsColumn) PushString(v string)  { c.arr.Call("push", v) }
func (c *jsColumn) PushNull()            { c.arr.Call("push", js.Null()) }

func (c *jsColumn) PushDate(year int, month time.Month, day int) {
	c.arr.Call("push", c.date.New(year, int(month)-1, day))
}

func (c *jsColumn) Finish() js.Value {
	return c.arr
}

// ToJS converts a table into {column_paths, column_indices, data}.
func ToJS(t *Table[js.Value]) js.Value {
	paths := js.Global().Get("Array").New()
	for _, p := range t.ColumnPaths {
		paths.Call("push", p)
	}

	indices := js.Global().Get("Object").New()
	for name, idx := range t.ColumnIndices {
		indices.Set(name, idx)
	}

	data := js.Global().Get("Array").New()
	for _, col := range t.Data {
		data.Call("push", col)
	}

	out := js.Global().Get("Object").New()
	out.Set("column_paths", paths)
	out.Set("column_indices", indices)
	out.Set("data", data)
	return out
}
