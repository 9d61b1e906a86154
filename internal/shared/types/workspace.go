package types

import (
	"encoding/json"
	"time"
)

// SavedView captures one view inside a workspace snapshot. Views are matched
// across save/restore cycles by hash, never by live id.
type SavedView struct {
	Hash      string                 `json:"hash"`
	Title     string                 `json:"title"`
	HTML      string                 `json:"html"`
	Options   Options                `json:"options"`
	Column    Column                 `json:"column"`
	Visible   bool                   `json:"visible"`
	Active    bool                   `json:"active"`
	ViewState json.RawMessage        `json:"view_state,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Workspace is a point-in-time snapshot of all live views.
type Workspace struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Views     []SavedView            `json:"views"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// WorkspaceMetadata is the listing form of a snapshot.
type WorkspaceMetadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ViewCount int       `json:"view_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ToMetadata converts a workspace to its listing form.
func (w *Workspace) ToMetadata() WorkspaceMetadata {
	return WorkspaceMetadata{
		ID:        w.ID,
		Name:      w.Name,
		ViewCount: len(w.Views),
		CreatedAt: w.CreatedAt,
	}
}
