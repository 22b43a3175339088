//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/closset/vectorcore/internal/editor"
	"github.com/closset/vectorcore/internal/ops"
)

var session *editor.Session

func main() {
	session = editor.NewSession("doc_local", editor.DefaultOptions())

	// Create the editor API object
	vectorCore := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	vectorCore.Set("loadDocument", js.FuncOf(loadDocument))
	vectorCore.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	vectorCore.Set("exec", js.FuncOf(exec))

	// --- Queries (frontend ← editor) ---
	vectorCore.Set("render", js.FuncOf(render))
	vectorCore.Set("getDocument", js.FuncOf(getDocument))
	vectorCore.Set("getOperations", js.FuncOf(getOperations))

	// Register on global scope
	js.Global().Set("vectorCore", vectorCore)

	// Signal that WASM is ready
	js.Global().Set("vectorCoreReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) any {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing document JSON"})
	}

	warnings, err := session.LoadDocument([]byte(args[0].String()))
	if err != nil {
		return errorResult(err)
	}
	list := make([]any, len(warnings))
	for i, w := range warnings {
		list[i] = w
	}
	return js.ValueOf(map[string]any{"ok": true, "warnings": list})
}

func loadSampleDocument(this js.Value, args []js.Value) any {
	session.LoadSampleDocument()
	return js.ValueOf(map[string]any{"ok": true})
}

// exec runs a named editor operation: exec(op, argsJSON) returns
// {ok, result} where result is JSON, or {error}.
func exec(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing operation"})
	}
	op := ops.Operation{Op: args[0].String()}
	if len(args) > 1 && args[1].Type() == js.TypeString {
		op.Args = json.RawMessage(args[1].String())
	}

	result, err := ops.Apply(session, op)
	if err != nil {
		return errorResult(err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]any{"ok": true, "result": string(data)})
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	return js.ValueOf(session.Render())
}

func getDocument(this js.Value, args []js.Value) any {
	return js.ValueOf(session.DocumentJSON())
}

func getOperations(this js.Value, args []js.Value) any {
	names := ops.Names()
	list := make([]any, len(names))
	for i, n := range names {
		list[i] = n
	}
	return js.ValueOf(list)
}
