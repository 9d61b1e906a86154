package types

// CreateViewRequest is the embedder payload for allocating a view. Hidden
// selects the initial lifecycle branch: a hidden view is registered without
// surfacing and without demoting whatever currently occupies its column.
type CreateViewRequest struct {
	Title    string                 `json:"title" binding:"required"`
	Column   Column                 `json:"column"`
	Hidden   bool                   `json:"hidden,omitempty"`
	HTML     string                 `json:"html,omitempty"`
	Options  Options                `json:"options"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ContentRequest carries a full replacement document.
type ContentRequest struct {
	HTML string `json:"html" binding:"required"`
}

// TitleRequest carries a title update.
type TitleRequest struct {
	Title string `json:"title" binding:"required"`
}

// RevealRequest optionally moves the view to a new column.
type RevealRequest struct {
	Column *Column `json:"column,omitempty"`
}

// PostRequest carries a host-to-view message payload.
type PostRequest struct {
	Payload interface{} `json:"payload"`
}

// SaveWorkspaceRequest names a workspace snapshot.
type SaveWorkspaceRequest struct {
	Name string `json:"name,omitempty"`
}
