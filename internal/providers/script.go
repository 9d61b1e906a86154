package providers

import (
	"context"
	"fmt"

	"github.com/panekit/panekit/internal/domain/view/sandbox"
	"github.com/panekit/panekit/internal/shared/types"
)

// Script evaluates standalone code in pooled hostless runtimes. Pooled
// runtimes never see the panehost global, so evaluated code cannot reach any
// view's bridge or state.
type Script struct {
	pool *sandbox.Pool
}

// NewScript creates the script provider over a runtime pool.
func NewScript(pool *sandbox.Pool) *Script {
	return &Script{pool: pool}
}

// Definition returns the service definition.
func (s *Script) Definition() types.Service {
	return types.Service{
		ID:           "script",
		Name:         "Script Evaluation",
		Description:  "One-shot sandboxed script evaluation",
		Category:     types.CategorySystem,
		Capabilities: []string{"eval"},
		Tools: []types.Tool{
			{
				ID:          "script.eval",
				Name:        "Evaluate",
				Description: "Evaluate an expression in an isolated runtime",
				Parameters: []types.Parameter{
					{Name: "code", Type: "string", Description: "Code to evaluate", Required: true},
				},
				Returns: "value",
			},
		},
	}
}

// Execute runs a script tool.
func (s *Script) Execute(ctx context.Context, toolID string, params map[string]interface{}, viewCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "script.eval":
		return s.eval(ctx, params)
	default:
		return Failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (s *Script) eval(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	code, err := GetString(params, "code", true)
	if err != nil {
		return Failure("code parameter required")
	}

	result, err := s.pool.Execute(ctx, code)
	if err != nil {
		return Failure(fmt.Sprintf("execution failed: %v", err))
	}

	data := map[string]interface{}{
		"value":       result.Value,
		"duration_ms": result.Duration.Milliseconds(),
	}
	if len(result.Console) > 0 {
		lines := make([]string, 0, len(result.Console))
		for _, entry := range result.Console {
			lines = append(lines, entry.Level+": "+entry.Message)
		}
		data["console"] = lines
	}
	if result.Error != nil {
		data["error"] = result.Error.Error()
	}
	return Success(data)
}
