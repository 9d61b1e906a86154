package providers

import (
	"context"
	"fmt"

	"github.com/panekit/panekit/internal/domain/state"
	"github.com/panekit/panekit/internal/shared/types"
)

// State exposes the per-view persisted state document to view scripts and
// embedders. Documents are keyed by the view's stable hash, so they survive
// content replacement, hide/show cycles, and workspace restores; disposal
// clears them.
type State struct {
	store    *state.Store
	resolver ViewResolver
}

// NewState creates a state provider backed by the host state store.
func NewState(store *state.Store, resolver ViewResolver) *State {
	return &State{store: store, resolver: resolver}
}

// Definition returns service metadata
func (s *State) Definition() types.Service {
	return types.Service{
		ID:          "state",
		Name:        "State Service",
		Description: "Per-view persisted state documents",
		Category:    types.CategoryState,
		Capabilities: []string{
			"get",
			"set",
			"clear",
		},
		Tools: []types.Tool{
			{
				ID:          "state.get",
				Name:        "Get State",
				Description: "Read the calling view's state document",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "state.set",
				Name:        "Set State",
				Description: "Replace the calling view's state document",
				Parameters: []types.Parameter{
					{Name: "value", Type: "object", Description: "New state document", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "state.clear",
				Name:        "Clear State",
				Description: "Delete the calling view's state document",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute runs a state tool
func (s *State) Execute(ctx context.Context, toolID string, params map[string]interface{}, viewCtx *types.Context) (*types.Result, error) {
	hash, err := viewHash(s.resolver, viewCtx)
	if err != nil {
		return Failure(err.Error())
	}

	switch toolID {
	case "state.get":
		return Success(map[string]interface{}{
			"value": s.store.Get(hash),
		})

	case "state.set":
		value := GetMap(params, "value")
		if value == nil {
			return Failure("value parameter required")
		}
		if err := s.store.Set(hash, value); err != nil {
			return Failure(err.Error())
		}
		return Success(map[string]interface{}{"stored": true})

	case "state.clear":
		if err := s.store.Clear(hash); err != nil {
			return Failure(err.Error())
		}
		return Success(map[string]interface{}{"cleared": true})

	default:
		return Failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}
