package providers

import (
	"fmt"

	"github.com/panekit/panekit/internal/shared/types"
)

// Success creates a successful result
func Success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

// Failure creates a failed result
func Failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}

// GetString extracts a string parameter
func GetString(params map[string]interface{}, key string, required bool) (string, error) {
	val, ok := params[key]
	if !ok || val == nil {
		if required {
			return "", fmt.Errorf("%s parameter required", key)
		}
		return "", nil
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be string", key)
	}

	if required && str == "" {
		return "", fmt.Errorf("%s cannot be empty", key)
	}

	return str, nil
}

// GetBool extracts a bool parameter
func GetBool(params map[string]interface{}, key string, defaultVal bool) bool {
	val, ok := params[key]
	if !ok {
		return defaultVal
	}

	b, ok := val.(bool)
	if !ok {
		return defaultVal
	}

	return b
}

// GetNumber extracts a numeric parameter
func GetNumber(params map[string]interface{}, key string, required bool) (float64, error) {
	val, ok := params[key]
	if !ok || val == nil {
		if required {
			return 0, fmt.Errorf("%s parameter required", key)
		}
		return 0, nil
	}

	switch v := val.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%s must be number", key)
	}
}

// GetMap extracts a map parameter
func GetMap(params map[string]interface{}, key string) map[string]interface{} {
	val, ok := params[key]
	if !ok {
		return nil
	}

	m, ok := val.(map[string]interface{})
	if !ok {
		return nil
	}

	return m
}

// GetStringMap extracts a string-valued map parameter
func GetStringMap(params map[string]interface{}, key string) map[string]string {
	m := GetMap(params, key)
	if m == nil {
		return nil
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		if str, ok := v.(string); ok {
			out[k] = str
		}
	}
	return out
}

// viewHash resolves the calling view's stable hash from the execution
// context. Providers that touch per-view resources require it.
func viewHash(resolver ViewResolver, viewCtx *types.Context) (string, error) {
	if viewCtx == nil || viewCtx.ViewID == nil {
		return "", fmt.Errorf("view context required")
	}
	v, ok := resolver.Get(*viewCtx.ViewID)
	if !ok {
		return "", fmt.Errorf("view not found: %s", *viewCtx.ViewID)
	}
	return v.Hash, nil
}

// ViewResolver resolves live view ids to their snapshots. The view manager
// satisfies this; tests use a stub.
type ViewResolver interface {
	Get(viewID string) (*types.View, bool)
}
