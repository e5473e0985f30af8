package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/bearcattt/scramjet/internal/domain/sandbox"
)

// Runtime wraps a goja VM with security controls and a sandboxed window
// surface
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex

	// Interrupt channel
	interrupt chan struct{}
}

// New creates a new script runtime
func New(config Config) (*Runtime, error) {
	vm := goja.New()

	r := &Runtime{
		vm:        vm,
		config:    config,
		console:   []LogEntry{},
		interrupt: make(chan struct{}),
	}

	if config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStack)
	}

	// Setup global objects
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}

	return r, nil
}

// Execute runs JavaScript code with a timeout. When a client is given, its
// window surface is bound into the VM as the window global, so scripts see
// the sandboxed view: open returns proxies, foreign reads come back null.
func (r *Runtime) Execute(ctx context.Context, script string, client *sandbox.Client) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := &Result{
		Console: []LogEntry{},
	}

	// Setup timeout
	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	// Setup interrupt handler
	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-r.interrupt:
			return
		}
	}()

	// Clear console
	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	// Bind the window surface if provided
	if client != nil {
		r.bindWindow(client)
	}

	// Execute script
	val, err := r.vm.RunString(script)

	// Stop interrupt goroutine
	close(r.interrupt)
	r.interrupt = make(chan struct{})

	// Allow reuse after an interrupt fired late or the run was cut short.
	r.vm.ClearInterrupt()

	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err
		return result, err
	}

	// Extract result value
	result.Value = r.exportValue(val)

	// Collect console output
	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	return result, nil
}

// bindWindow installs the client's proxy as the script's window global. A
// bare open alias mirrors the browser global scope.
func (r *Runtime) bindWindow(client *sandbox.Client) {
	b := newBinder(r.vm, client.Manager())
	windowObj := b.bindProxy(client.Proxy())

	r.vm.Set("window", windowObj)
	r.vm.Set("self", windowObj)
	if obj, ok := windowObj.(*goja.Object); ok {
		r.vm.Set("open", obj.Get("open"))
	}
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

// Reset clears the runtime state, dropping all bindings
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = goja.New()
	if r.config.MaxCallStack > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}
	r.console = []LogEntry{}
	return r.setupGlobals()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	return nil
}
