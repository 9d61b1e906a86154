//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	mockpkg "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/panekit/panekit/internal/domain/bridge"
	"github.com/panekit/panekit/internal/domain/gate"
	"github.com/panekit/panekit/internal/domain/preset"
	"github.com/panekit/panekit/internal/domain/service"
	"github.com/panekit/panekit/internal/domain/state"
	"github.com/panekit/panekit/internal/domain/view"
	"github.com/panekit/panekit/internal/domain/view/sandbox"
	"github.com/panekit/panekit/internal/domain/workspace"
	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/providers"
	"github.com/panekit/panekit/internal/shared/paths"
	"github.com/panekit/panekit/internal/shared/types"
	"github.com/panekit/panekit/tests/helpers/testutil"
)

const testDoc = "<!DOCTYPE html><html><head><title>doc</title></head><body><p>hello</p></body></html>"

// stack wires the full host in process: state store, bridge, gate, view
// registry, service dispatch, presets, and workspace snapshots.
type stack struct {
	store      *state.Store
	bridge     *bridge.Bridge
	gate       *gate.Gate
	views      *view.Manager
	services   *service.Registry
	presets    *preset.Registry
	workspaces *workspace.Manager
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := logging.NewNop()
	layout := paths.NewLayout(t.TempDir())

	store, err := state.New(layout, logger)
	require.NoError(t, err)

	br := bridge.New(bridge.DefaultConfig(), logger)
	g := gate.New(logger)
	views := view.NewManager(view.Config{MaxViews: 16, Sandbox: sandbox.DefaultConfig()},
		br, g, store, logger)

	services := service.NewRegistry()
	require.NoError(t, services.Register(providers.NewSystem("test")))

	dispatcher := service.NewDispatcher(services, br, logger)
	views.Events(func(ev view.Event) {
		if ev.Kind == view.EventCreated {
			_ = dispatcher.Attach(ev.View.ID)
		}
	})

	presets := preset.NewRegistry(layout, logger)
	require.NoError(t, preset.NewSeeder(presets, "", nil).SeedDefaults())

	workspaces, err := workspace.NewManager(views, store, layout, 3, logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		views.DisposeAll(context.Background())
		br.Shutdown()
	})

	return &stack{
		store:      store,
		bridge:     br,
		gate:       g,
		views:      views,
		services:   services,
		presets:    presets,
		workspaces: workspaces,
	}
}

func TestBridgeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newStack(t)
	ctx := context.Background()

	v, err := s.views.Create(ctx, types.CreateViewRequest{Title: "chat", HTML: testDoc})
	require.NoError(t, err)

	// Host-to-view delivery lands on the renderer side.
	toView := make(chan types.Message, 1)
	sub, err := s.bridge.Watch(v.ID, func(msg types.Message) { toView <- msg })
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, s.bridge.Post(ctx, v.ID, map[string]interface{}{"type": "greet"}))

	select {
	case msg := <-toView:
		var payload map[string]interface{}
		require.NoError(t, sonic.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, "greet", payload["type"])
		assert.Equal(t, v.ID, msg.ViewID)
	case <-time.After(2 * time.Second):
		t.Fatal("host-to-view message never delivered")
	}

	// View-to-host delivery lands on the embedder side.
	toHost := make(chan types.Message, 1)
	hostSub, err := s.bridge.Subscribe(v.ID, func(msg types.Message) { toHost <- msg })
	require.NoError(t, err)
	defer hostSub.Cancel()

	require.NoError(t, s.bridge.Send(ctx, v.ID, map[string]interface{}{"type": "reply"}))

	select {
	case msg := <-toHost:
		var payload map[string]interface{}
		require.NoError(t, sonic.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, "reply", payload["type"])
	case <-time.After(2 * time.Second):
		t.Fatal("view-to-host message never delivered")
	}
}

func TestServiceDispatchOverBridge(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newStack(t)
	ctx := context.Background()

	v, err := s.views.Create(ctx, types.CreateViewRequest{Title: "tools", HTML: testDoc})
	require.NoError(t, err)

	replies := make(chan map[string]interface{}, 1)
	sub, err := s.bridge.Watch(v.ID, func(msg types.Message) {
		var payload map[string]interface{}
		if sonic.Unmarshal(msg.Payload, &payload) == nil && payload["type"] == "service.result" {
			replies <- payload
		}
	})
	require.NoError(t, err)
	defer sub.Cancel()

	// Service requests travel the view-to-host direction, the same path a
	// script's panehost.postMessage takes.
	require.NoError(t, s.bridge.Send(ctx, v.ID, map[string]interface{}{
		"type":       "service",
		"tool":       "system.info",
		"request_id": "req-1",
	}))

	select {
	case reply := <-replies:
		assert.Equal(t, true, reply["success"])
		assert.Equal(t, "req-1", reply["request_id"])
		data := reply["data"].(map[string]interface{})
		assert.Equal(t, "panehost", data["service"])
	case <-time.After(2 * time.Second):
		t.Fatal("service result never arrived")
	}
}

func TestRegistryExecutesMockProvider(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newStack(t)
	ctx := context.Background()

	mock := testutil.NewMockServiceProvider(t, "echo")
	mock.On("Execute", mockpkg.Anything, "echo.test", mockpkg.Anything, mockpkg.Anything).
		Return(&types.Result{Success: true, Data: map[string]interface{}{"echoed": true}}, nil)
	require.NoError(t, s.services.Register(mock))

	result, err := s.services.Execute(ctx, "echo.test", map[string]interface{}{"q": 1}, &types.Context{})
	require.NoError(t, err)
	testutil.AssertSuccess(t, result)
	testutil.AssertDataField(t, result, "echoed", true)
}

func TestWorkspaceSaveRestore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newStack(t)
	ctx := context.Background()

	v1, err := s.views.Create(ctx, types.CreateViewRequest{Title: "left", HTML: testDoc, Column: 1})
	require.NoError(t, err)
	_, err = s.views.Create(ctx, types.CreateViewRequest{Title: "scratch", HTML: testDoc, Hidden: true})
	require.NoError(t, err)

	require.NoError(t, s.store.Set(v1.Hash, map[string]interface{}{"draft": "unsent"}))

	ws, err := s.workspaces.Save(ctx, "session")
	require.NoError(t, err)
	assert.Len(t, ws.Views, 2)

	// Restore replaces the live set with the snapshot.
	require.NoError(t, s.workspaces.Restore(ctx, ws.ID))

	visible := s.views.List(nil)
	require.Len(t, visible, 2)

	restored, ok := s.views.FindByHash(v1.Hash)
	require.True(t, ok)
	assert.Equal(t, "left", restored.Title)
	assert.Equal(t, types.StateVisible, restored.State)

	doc := s.store.Get(restored.Hash)
	assert.Equal(t, "unsent", doc["draft"])

	hiddenState := types.StateHidden
	hidden := s.views.List(&hiddenState)
	require.Len(t, hidden, 1)
	assert.Equal(t, "scratch", hidden[0].Title)
}

func TestPresetLaunch(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := newStack(t)
	ctx := context.Background()

	all := s.presets.List(nil)
	require.NotEmpty(t, all, "default presets should be seeded")

	v, err := s.presets.Launch(ctx, all[0].ID, s.views)
	require.NoError(t, err)

	got, ok := s.views.Get(v.ID)
	require.True(t, ok)
	assert.Equal(t, all[0].Title, got.Title)

	_, err = s.presets.Launch(ctx, "no-such-preset", s.views)
	assert.ErrorIs(t, err, preset.ErrNotFound)
}
