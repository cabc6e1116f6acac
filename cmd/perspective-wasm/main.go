//go:build js && wasm

// Command perspective-wasm exposes the materializer to JavaScript as
// perspectiveArrowToColumns(bytes: Uint8Array).
package main

import (
	"bytes"
	"context"
	"io"
	"syscall/js"

	"github.com/makeroftools/perspective/pkg/accessor"
	"github.com/makeroftools/perspective/pkg/errors"
	"github.com/makeroftools/perspective/pkg/source"
)

func main() {
	js.Global().Set("perspectiveArrowToColumns", js.FuncOf(arrowToColumns))
	select {}
}

// arrowToColumns materializes the first record batch of an Arrow IPC
// payload into {column_paths, column_indices, data}, or returns {error}.
func arrowToColumns(_ js.Value, args []js.Value) any {
	if len(args) != 1 || args[0].Type() != js.TypeObject {
		return errorResult(errors.New(errors.ErrorTypeValidation, "expected a Uint8Array"))
	}

	buf := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(buf, args[0])

	r, err := source.NewReader(bytes.NewReader(buf), source.DefaultOptions())
	if err != nil {
		return errorResult(err)
	}
	defer r.Close()

	rec, err := r.Next(context.Background())
	if err == io.EOF {
		return errorResult(errors.New(errors.ErrorTypeData, "input holds no record batch"))
	}
	if err != nil {
		return errorResult(err)
	}
	defer rec.Release()

	table, err := accessor.TryMaterialize[js.Value](rec, r.Schema(), accessor.NewJSHost())
	if err != nil {
		return errorResult(err)
	}
	return accessor.ToJS(table)
}

func errorResult(err error) js.Value {
	obj := js.Global().Get("Object").New()
	obj.Set("error", err.Error())
	return obj
}
