// Package ws serves the /stream websocket endpoint.
//
// A connection declares one of two roles, by query string or first frame.
// Embedders observe registry-wide events (view.created, view.visibility,
// view.disposed, fan-out of inbound view.message traffic) and post
// host-to-view messages. Renderers attach to a single view and receive its
// document, title, message, visibility, and disposal frames, reporting
// UI-driven visibility and untrusted inbound messages back.
//
// Each connection writes through a bounded queue drained by one goroutine;
// slow readers lose frames rather than stalling the host. Inbound frames are
// size-capped and rate-limited per connection.
package ws
