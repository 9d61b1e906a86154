// Package paths provides standardized filesystem paths for consistent access across the host.
//
// All persistent artifacts (workspace snapshots, retained view state, preset
// manifests) live under a single storage root so deployments relocate with one
// setting. Components never join paths by hand; they go through a Layout.
package paths

import (
	"fmt"
	"path/filepath"
)

// Default storage root used when no override is configured.
const DefaultRoot = "/var/lib/panehost"

// Storage subdirectory names relative to the root
const (
	// WorkspacesDir holds serialized workspace snapshots
	WorkspacesDir = "workspaces"

	// StateDir holds retained per-view state documents
	StateDir = "state"

	// PresetsDir holds preset manifests (YAML or TOML)
	PresetsDir = "presets"

	// AssetsDir holds static files served to views over view-resource URIs
	AssetsDir = "assets"

	// TmpDir holds scratch files for atomic writes
	TmpDir = "tmp"
)

// File extensions for persisted artifacts
const (
	WorkspaceExt = ".workspace.zst"
	StateExt     = ".state.json"
)

// Layout resolves paths under a configured storage root.
type Layout struct {
	Root string
}

// NewLayout returns a Layout rooted at root, falling back to DefaultRoot.
func NewLayout(root string) Layout {
	if root == "" {
		root = DefaultRoot
	}
	return Layout{Root: filepath.Clean(root)}
}

// Workspaces returns the workspace snapshot directory
func (l Layout) Workspaces() string {
	return filepath.Join(l.Root, WorkspacesDir)
}

// State returns the retained view state directory
func (l Layout) State() string {
	return filepath.Join(l.Root, StateDir)
}

// Presets returns the preset manifest directory
func (l Layout) Presets() string {
	return filepath.Join(l.Root, PresetsDir)
}

// Assets returns the static asset directory
func (l Layout) Assets() string {
	return filepath.Join(l.Root, AssetsDir)
}

// Tmp returns the scratch directory for atomic writes
func (l Layout) Tmp() string {
	return filepath.Join(l.Root, TmpDir)
}

// WorkspaceFile returns the snapshot path for a workspace ID
func (l Layout) WorkspaceFile(workspaceID string) string {
	return filepath.Join(l.Workspaces(), workspaceID+WorkspaceExt)
}

// StateFile returns the retained state path for a view hash
func (l Layout) StateFile(viewHash string) string {
	return filepath.Join(l.State(), viewHash+StateExt)
}

// StandardDirectories returns all directories that should exist under the root
func (l Layout) StandardDirectories() []string {
	return []string{
		l.Workspaces(),
		l.State(),
		l.Presets(),
		l.Assets(),
		l.Tmp(),
	}
}

// ValidateID checks if an identifier is safe for path construction
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if filepath.IsAbs(id) {
		return fmt.Errorf("id cannot be an absolute path")
	}
	if filepath.Clean(id) != id {
		return fmt.Errorf("id contains invalid path components")
	}
	if filepath.Base(id) != id {
		return fmt.Errorf("id cannot contain path separators")
	}
	return nil
}
