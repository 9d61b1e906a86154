/*
Package sandbox provides JavaScript execution sandboxing for view scripts.

# Overview

The sandbox system enables safe execution of untrusted view JavaScript within
isolated runtimes using the goja JavaScript engine. Each sandbox has:

  - Memory limits (configurable heap size)
  - CPU limits (execution timeout, interrupt polling)
  - API restrictions (disabled Node.js, filesystem, network)
  - Host bridge exposed as the panehost global for message passing

# Architecture

The sandbox operates in layers:

 1. Runtime: goja VM with isolated global scope
 2. Host bridge: panehost.postMessage / panehost.onMessage for controlled
    communication with the embedding host
 3. State access: panehost.getState / panehost.setState backed by the view's
    retained state document

# Security Model

Sandboxed code cannot:
  - Access filesystem or network directly
  - Execute native code or spawn processes
  - Break out of the VM through prototype pollution
  - Consume excessive memory or CPU time

All host interactions go through the panehost bridge with validation.

# Usage Example

	rt := NewWithHost(DefaultConfig(), host)

	result, err := rt.Execute(ctx, script)
	if err != nil {
		log.Error("Execution failed:", err)
	}

	// Later, deliver a host message to registered handlers.
	_, err = rt.Deliver(ctx, payload)

# Runtimes vs Pool

A view with scripting enabled owns a dedicated runtime bound to its host so
that onMessage handlers persist across deliveries. The Pool serves one-shot,
hostless executions only; pooled runtimes are reset between uses and never
carry handlers or host bindings.

# Performance

  - ~1-2ms startup overhead per sandbox
  - ~50MB memory footprint per instance
  - Sub-millisecond bridge calls
  - Automatic garbage collection
*/
package sandbox
