package providers

import (
	"context"
	"testing"

	"github.com/panekit/panekit/internal/domain/state"
	"github.com/panekit/panekit/internal/domain/view/sandbox"
	"github.com/panekit/panekit/internal/infrastructure/config"
	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/shared/paths"
	"github.com/panekit/panekit/internal/shared/types"
)

type stubResolver struct {
	views map[string]*types.View
}

func (r *stubResolver) Get(viewID string) (*types.View, bool) {
	v, ok := r.views[viewID]
	return v, ok
}

func newStateProvider(t *testing.T) (*State, *types.Context) {
	t.Helper()

	store, err := state.New(paths.NewLayout(t.TempDir()), logging.NewNop())
	if err != nil {
		t.Fatalf("Store creation failed: %v", err)
	}

	viewID := "view_01HTEST"
	resolver := &stubResolver{views: map[string]*types.View{
		viewID: {ID: viewID, Hash: "hash-1", Title: "Test"},
	}}

	return NewState(store, resolver), &types.Context{ViewID: &viewID}
}

func TestStateRoundTrip(t *testing.T) {
	p, viewCtx := newStateProvider(t)
	ctx := context.Background()

	result, err := p.Execute(ctx, "state.set", map[string]interface{}{
		"value": map[string]interface{}{"counter": float64(3)},
	}, viewCtx)
	if err != nil || !result.Success {
		t.Fatalf("state.set failed: %v %+v", err, result)
	}

	result, err = p.Execute(ctx, "state.get", nil, viewCtx)
	if err != nil || !result.Success {
		t.Fatalf("state.get failed: %v %+v", err, result)
	}

	value := result.Data["value"].(map[string]interface{})
	if value["counter"] != float64(3) {
		t.Errorf("Expected counter 3, got %v", value["counter"])
	}
}

func TestStateClear(t *testing.T) {
	p, viewCtx := newStateProvider(t)
	ctx := context.Background()

	p.Execute(ctx, "state.set", map[string]interface{}{
		"value": map[string]interface{}{"k": "v"},
	}, viewCtx)

	result, err := p.Execute(ctx, "state.clear", nil, viewCtx)
	if err != nil || !result.Success {
		t.Fatalf("state.clear failed: %v %+v", err, result)
	}

	result, _ = p.Execute(ctx, "state.get", nil, viewCtx)
	value := result.Data["value"].(map[string]interface{})
	if len(value) != 0 {
		t.Errorf("Expected empty state after clear, got %v", value)
	}
}

func TestStateRequiresViewContext(t *testing.T) {
	p, _ := newStateProvider(t)

	result, _ := p.Execute(context.Background(), "state.get", nil, nil)
	if result.Success {
		t.Error("Expected failure without view context")
	}

	unknown := "view_unknown"
	result, _ = p.Execute(context.Background(), "state.get", nil, &types.Context{ViewID: &unknown})
	if result.Success {
		t.Error("Expected failure for unknown view")
	}
}

func TestSystemInfo(t *testing.T) {
	p := NewSystem("1.0.0")

	result, err := p.Execute(context.Background(), "system.info", nil, nil)
	if err != nil || !result.Success {
		t.Fatalf("system.info failed: %v %+v", err, result)
	}
	if result.Data["version"] != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %v", result.Data["version"])
	}

	result, err = p.Execute(context.Background(), "system.runtime", nil, nil)
	if err != nil || !result.Success {
		t.Fatalf("system.runtime failed: %v %+v", err, result)
	}
	if result.Data["goroutines"].(int) < 1 {
		t.Error("Expected at least one goroutine")
	}
}

func TestSystemUnknownTool(t *testing.T) {
	p := NewSystem("1.0.0")

	result, _ := p.Execute(context.Background(), "system.shutdown", nil, nil)
	if result.Success {
		t.Error("Unknown tool should fail")
	}
}

func TestFetchRejectsNonHTTPS(t *testing.T) {
	p := NewFetch(config.Default().Fetch)

	for _, url := range []string{
		"http://example.com/",
		"file:///etc/passwd",
		"ftp://example.com/file",
	} {
		result, _ := p.Execute(context.Background(), "fetch.get", map[string]interface{}{
			"url": url,
		}, nil)
		if result.Success {
			t.Errorf("Expected failure for %s", url)
		}
	}
}

func TestFetchRejectsRestrictedAddresses(t *testing.T) {
	p := NewFetch(config.Default().Fetch)

	// Literal addresses resolve without DNS, so these cases run offline.
	for _, url := range []string{
		"https://127.0.0.1/secrets",
		"https://169.254.169.254/latest/meta-data/",
		"https://10.0.0.5/internal",
		"https://192.168.1.1/router",
		"https://[::1]/secrets",
		"https://0.0.0.0/",
	} {
		result, _ := p.Execute(context.Background(), "fetch.get", map[string]interface{}{
			"url": url,
		}, nil)
		if result.Success {
			t.Errorf("Expected restricted-address failure for %s", url)
		}
	}
}

func TestDecodeBodyPassesBinaryThrough(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	if got := decodeBody("image/png", raw); got != string(raw) {
		t.Errorf("Binary body altered: %q", got)
	}
	if got := decodeBody("text/html; charset=utf-8", []byte("<p>ok</p>")); got != "<p>ok</p>" {
		t.Errorf("UTF-8 text altered: %q", got)
	}
}

func TestFetchRequiresURL(t *testing.T) {
	p := NewFetch(config.Default().Fetch)

	result, _ := p.Execute(context.Background(), "fetch.get", nil, nil)
	if result.Success {
		t.Error("Expected failure without url parameter")
	}
}

func TestScriptEval(t *testing.T) {
	pool, err := sandbox.NewPool(sandbox.DefaultConfig(), 2)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	p := NewScript(pool)
	result, _ := p.Execute(context.Background(), "script.eval", map[string]interface{}{
		"code": "21 * 2",
	}, nil)
	if !result.Success {
		t.Fatalf("eval failed: %v", result.Error)
	}
	if result.Data["value"] != int64(42) {
		t.Errorf("value = %v", result.Data["value"])
	}
}

func TestScriptEvalRequiresCode(t *testing.T) {
	pool, err := sandbox.NewPool(sandbox.DefaultConfig(), 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	result, _ := NewScript(pool).Execute(context.Background(), "script.eval", nil, nil)
	if result.Success {
		t.Error("Expected failure without code parameter")
	}
}
