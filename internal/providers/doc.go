// Package providers implements the host services callable from views.
//
// Each provider satisfies service.Provider and exposes a small set of dotted
// tools (fetch.get, state.set, system.info, ...). Providers run on behalf of
// a specific view: the calling view's identity arrives in the execution
// context after the bridge layer has validated the request.
//
// Available Providers:
//   - Fetch: proxied outbound HTTPS for view scripts, with retry, circuit
//     breaking, shared rate limiting, and a response size cap
//   - State: get/set/clear of the per-view persisted state document
//   - System: read-only host information and runtime statistics
//   - Script: one-shot sandboxed evaluation on the shared runtime pool
//
// Provider Interface:
//   - Definition(): Returns service metadata and tool definitions
//   - Execute(): Executes a tool with parameters and context
package providers
