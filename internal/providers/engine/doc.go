/*
Package engine provides JavaScript execution for sandboxed windows.

# Overview

The engine runs untrusted scripts inside isolated goja runtimes. Each
runtime has:

  - CPU limits (execution timeout, interrupt polling)
  - API restrictions (disabled Node.js, filesystem, network)
  - Console capture for returning script output
  - A window binding backed by a sandboxed client's global proxy

# Architecture

The engine operates in three layers:

 1. Runtime: goja VM with isolated global scope
 2. Binder: maps global proxies and frame elements to script objects
 3. Pool: fixed set of runtimes reset and reused between scripts

# Window Binding

When a script executes on behalf of a sandboxed client, the client's
global proxy becomes the script's window. Every proxy binds to exactly
one script object per run, so reference equality inside the script
mirrors proxy identity:

	window.open('https://a.example/', 'w') === window.open('', 'w')

Calls to window.open, window.opener and window.frameElement route
through the proxy, so scripts observe the same trust boundary as host
callers: foreign windows read as null.

# Usage Example

	runtime, err := New(Config{
		Timeout: 5 * time.Second,
	})

	result, err := runtime.Execute(ctx, script, client)
	if err != nil {
		log.Error("Execution failed:", err)
	}

# Integration

The engine integrates with:
  - Sandbox manager for window proxies
  - Session handlers for script endpoints
  - Monitoring for execution metrics
*/
package engine
