package sandbox

import (
	"github.com/dop251/goja"
)

// installHostGlobal exposes the panehost object to document scripts:
//
//	panehost.postMessage(payload)  queue a message to the embedder
//	panehost.onMessage(handler)    register an inbound message handler
//	panehost.getState()            read the retained state document
//	panehost.setState(state)       replace the retained state document
//
// Must be called with r.host set.
func (r *Runtime) installHostGlobal() error {
	host := r.vm.NewObject()

	host.Set("postMessage", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(r.vm.NewTypeError("postMessage requires a payload"))
		}
		payload := asObject(call.Arguments[0].Export())
		if err := r.host.PostMessage(payload); err != nil {
			panic(r.vm.NewGoError(err))
		}
		return goja.Undefined()
	})

	host.Set("onMessage", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(r.vm.NewTypeError("onMessage requires a function"))
		}
		fn, ok := goja.AssertFunction(call.Arguments[0])
		if !ok {
			panic(r.vm.NewTypeError("onMessage argument must be a function"))
		}
		r.handlers = append(r.handlers, fn)
		return goja.Undefined()
	})

	host.Set("getState", func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue(r.host.GetState())
	})

	host.Set("setState", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(r.vm.NewTypeError("setState requires a state object"))
		}
		state := asObject(call.Arguments[0].Export())
		if err := r.host.SetState(state); err != nil {
			panic(r.vm.NewGoError(err))
		}
		return goja.Undefined()
	})

	return r.vm.Set("panehost", host)
}

// asObject coerces an exported script value into a payload map. Scalars are
// wrapped so the wire shape stays an object.
func asObject(val interface{}) map[string]interface{} {
	if m, ok := val.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{"data": val}
}
