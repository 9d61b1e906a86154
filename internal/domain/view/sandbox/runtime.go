package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// ErrRuntimeClosed indicates an execution attempt against a closed runtime.
var ErrRuntimeClosed = errors.New("runtime is closed")

// Runtime wraps a goja VM with security controls. A view with script
// execution enabled owns one runtime for the lifetime of its current
// document; one-shot executions borrow runtimes from a Pool.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	host   Host
	mu     sync.Mutex

	// Message handlers registered via panehost.onMessage
	handlers []goja.Callable

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex

	// Interrupt channel
	interrupt chan struct{}
}

// New creates a new sandboxed runtime
func New(config Config) (*Runtime, error) {
	vm := goja.New()

	r := &Runtime{
		vm:        vm,
		config:    config,
		console:   []LogEntry{},
		interrupt: make(chan struct{}),
	}

	if config.MaxMemoryMB > 0 {
		vm.SetMaxCallStackSize(1024)
	}

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}

	return r, nil
}

// NewWithHost creates a runtime bound to a view's host surface. The
// panehost global is only installed when a host is present.
func NewWithHost(config Config, host Host) (*Runtime, error) {
	r, err := New(config)
	if err != nil {
		return nil, err
	}
	r.host = host
	if err := r.installHostGlobal(); err != nil {
		return nil, err
	}
	return r, nil
}

// Execute runs script source with timeout and resource limits.
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.run(ctx, func() (goja.Value, error) {
		return r.vm.RunString(script)
	})
}

// Deliver invokes every registered message handler with the payload. A
// document that registered no handlers consumes the message silently.
func (r *Runtime) Deliver(ctx context.Context, payload map[string]interface{}) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handlers := r.handlers
	return r.run(ctx, func() (goja.Value, error) {
		arg := r.vm.ToValue(payload)
		var last goja.Value = goja.Undefined()
		for _, handler := range handlers {
			val, err := handler(goja.Undefined(), arg)
			if err != nil {
				return nil, err
			}
			last = val
		}
		return last, nil
	})
}

// HandlerCount reports how many message handlers the current document
// registered.
func (r *Runtime) HandlerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// run executes fn under the interrupt and console discipline shared by
// Execute and Deliver. Caller must hold r.mu.
func (r *Runtime) run(ctx context.Context, fn func() (goja.Value, error)) (*Result, error) {
	if r.vm == nil {
		return nil, ErrRuntimeClosed
	}

	start := time.Now()
	result := &Result{
		Console: []LogEntry{},
	}

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	// The watcher must read the channel this run owns, not the field: the
	// field is replaced below while the watcher may still be selecting.
	interrupt := r.interrupt
	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-interrupt:
			return
		}
	}()

	// Clear console
	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	val, err := fn()

	// Stop interrupt goroutine
	close(interrupt)
	r.interrupt = make(chan struct{})

	result.Duration = time.Since(start)

	if err != nil {
		// A fired interrupt poisons the VM for the next run unless cleared
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			r.vm.ClearInterrupt()
		}
		result.Error = err
		return result, err
	}

	result.Value = r.exportValue(val)

	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	return result, nil
}

// setupGlobals configures global objects and security
func (r *Runtime) setupGlobals() error {
	// Remove dangerous globals
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	// Setup console if enabled
	if r.config.EnableConsole {
		console := r.vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		r.vm.Set("console", console)
	}

	// Setup timers (no-op for security)
	r.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	r.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	return nil
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// exportValue converts goja value to Go value
func (r *Runtime) exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// Reset clears the runtime state
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = goja.New()
	r.handlers = nil
	r.console = []LogEntry{}
	if err := r.setupGlobals(); err != nil {
		return err
	}
	if r.host != nil {
		return r.installHostGlobal()
	}
	return nil
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.handlers = nil
	r.console = nil
	return nil
}
