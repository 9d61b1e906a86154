// Package types provides shared data structures for the PaneHost service.
//
// This package defines core types used across all host components,
// ensuring type safety and consistent data structures.
//
// Core Types:
//   - View: Live sandboxed view instance
//   - Options: Immutable per-view sandbox configuration
//   - Message: Bridge envelope crossing the host/view boundary
//   - Workspace: Snapshot of all live views
//   - Preset: Prebuilt view definition loaded from a manifest
//   - Service, Tool: Host capabilities callable from view scripts
//   - Result: Standard operation result
//
// Request Types:
//   - CreateViewRequest, ContentRequest, TitleRequest, RevealRequest
//   - PostRequest: Host-to-view message send
//   - WSFrame: WebSocket envelope for renderer and embedder streams
//
// State Management:
//   - State: View lifecycle enum (created, visible, hidden, disposed)
//   - Column: Placement hint
//   - ViewStats, BridgeStats: Component statistics
//
// Example Usage:
//
//	view := &types.View{
//	    ID:    string(id.NewViewID()),
//	    Title: "Preview",
//	    State: types.StateVisible,
//	}
package types
