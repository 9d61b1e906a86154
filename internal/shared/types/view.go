package types

import "time"

// State represents view lifecycle states
type State string

const (
	StateCreated  State = "created"
	StateVisible  State = "visible"
	StateHidden   State = "hidden"
	StateDisposed State = "disposed"
)

// Valid reports whether the value names a lifecycle state.
func (s State) Valid() bool {
	switch s {
	case StateCreated, StateVisible, StateHidden, StateDisposed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateDisposed
}

// CanTransition reports whether the lifecycle permits moving to the given state.
// Disposed is reachable from every state and is terminal. Visible and hidden
// may re-enter themselves (placement moves, repeated renderer reports).
func (s State) CanTransition(to State) bool {
	if s == StateDisposed {
		return false
	}
	switch to {
	case StateDisposed:
		return true
	case StateVisible, StateHidden:
		return true
	case StateCreated:
		return false
	default:
		return false
	}
}

// Column is a placement hint for where a view surfaces in the host layout.
// Positive values address explicit layout slots; the negative values are
// relative hints resolved by the renderer.
type Column int

const (
	ColumnActive Column = -1
	ColumnBeside Column = -2
)

// MaxColumn bounds explicit layout slots.
const MaxColumn Column = 9

// Valid reports whether the column is an accepted placement hint.
func (c Column) Valid() bool {
	return c == ColumnActive || c == ColumnBeside || (c >= 1 && c <= MaxColumn)
}

// Options fixes a view's sandbox configuration at creation time.
// None of these fields are mutable once the view exists.
type Options struct {
	EnableScripts    bool     `json:"enable_scripts"`
	RetainWhenHidden bool     `json:"retain_when_hidden"`
	ResourceRoots    []string `json:"resource_roots"`
	DenyPatterns     []string `json:"deny_patterns,omitempty"`
}

// View represents a live sandboxed view instance
type View struct {
	ID        string                 `json:"id"`
	Hash      string                 `json:"hash"` // Deterministic hash for identification
	Title     string                 `json:"title"`
	HTML      string                 `json:"html"`
	State     State                  `json:"state"`
	Column    Column                 `json:"column"`
	Options   Options                `json:"options"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Visible reports whether the view is currently rendered.
func (v *View) Visible() bool {
	return v.State == StateVisible
}

// ViewStats contains view manager statistics
type ViewStats struct {
	TotalViews       int     `json:"total_views"`
	VisibleViews     int     `json:"visible_views"`
	HiddenViews      int     `json:"hidden_views"`
	RetainedRuntimes int     `json:"retained_runtimes"`
	ActiveViewID     *string `json:"active_view_id,omitempty"`
	ActiveViewHash   *string `json:"active_view_hash,omitempty"` // View hash for restoration
}
