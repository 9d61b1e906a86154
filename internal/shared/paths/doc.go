// Package paths provides standardized filesystem paths.
//
// This package defines the canonical directory structure for everything the
// host persists. All filesystem operations should resolve paths through a
// Layout to ensure consistency.
//
// # Directory Structure
//
//	<root>/
//	  ├── workspaces/   (workspace snapshots, zstd-compressed JSON)
//	  ├── state/        (retained per-view state documents)
//	  ├── presets/      (preset manifests, YAML or TOML)
//	  ├── assets/       (static files served to views)
//	  └── tmp/          (scratch space for atomic writes)
//
// # Usage
//
//	import "github.com/panekit/panekit/internal/shared/paths"
//
//	layout := paths.NewLayout(cfg.Storage.Root)
//
//	// Resolve artifact paths
//	snap := layout.WorkspaceFile("wks_01ARZ3")
//
//	// Validate identifiers before joining
//	if err := paths.ValidateID(id); err != nil {
//	    return err
//	}
package paths
