// Package main is the entry point for the PaneHost server.
//
// PaneHost brokers messages between a host application and sandboxed
// content views. Embedder clients manage views over REST and a
// websocket stream; renderer clients attach to a single view and
// receive its content, title, and visibility in real time.
//
// The server provides:
//   - REST API for view lifecycle, content, presets, and workspaces
//   - A websocket stream for embedders and renderers
//   - Sandboxed script execution inside each view
//   - Workspace snapshots with per-view state persistence
//   - Rate limiting and optional bearer token auth
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 9180 -storage /var/lib/panehost
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
