package service

import (
	"context"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/panekit/panekit/internal/domain/bridge"
	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/shared/types"
)

func newDispatchFixture(t *testing.T) (*Dispatcher, *bridge.Bridge) {
	t.Helper()
	r := NewRegistry()
	if err := r.Register(&mockProvider{id: "mock"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	br := bridge.New(bridge.DefaultConfig(), logging.NewNop())
	t.Cleanup(br.Shutdown)
	return NewDispatcher(r, br, logging.NewNop()), br
}

func awaitReply(t *testing.T, replies <-chan map[string]interface{}) map[string]interface{} {
	t.Helper()
	select {
	case reply := <-replies:
		return reply
	case <-time.After(2 * time.Second):
		t.Fatal("no service.result arrived")
		return nil
	}
}

func TestDispatchExecutesTool(t *testing.T) {
	d, br := newDispatchFixture(t)

	const viewID = "view_dispatch"
	if err := br.Open(viewID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := d.Attach(viewID); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	replies := make(chan map[string]interface{}, 4)
	if _, err := br.Watch(viewID, func(msg types.Message) {
		var payload map[string]interface{}
		if err := sonic.Unmarshal(msg.Payload, &payload); err == nil {
			replies <- payload
		}
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	err := br.Send(context.Background(), viewID, map[string]interface{}{
		"type":       "service",
		"tool":       "mock.test",
		"request_id": "req-1",
		"params":     map[string]interface{}{},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	reply := awaitReply(t, replies)
	if reply["type"] != "service.result" {
		t.Errorf("type = %v", reply["type"])
	}
	if reply["success"] != true {
		t.Errorf("success = %v", reply["success"])
	}
	if reply["request_id"] != "req-1" {
		t.Errorf("request_id = %v", reply["request_id"])
	}
}

func TestDispatchReportsUnknownTool(t *testing.T) {
	d, br := newDispatchFixture(t)

	const viewID = "view_unknown"
	if err := br.Open(viewID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := d.Attach(viewID); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	replies := make(chan map[string]interface{}, 4)
	if _, err := br.Watch(viewID, func(msg types.Message) {
		var payload map[string]interface{}
		if err := sonic.Unmarshal(msg.Payload, &payload); err == nil {
			replies <- payload
		}
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	err := br.Send(context.Background(), viewID, map[string]interface{}{
		"type": "service",
		"tool": "ghost.tool",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	reply := awaitReply(t, replies)
	if reply["success"] != false {
		t.Errorf("success = %v", reply["success"])
	}
	if reply["error"] == nil {
		t.Error("error missing from failed call")
	}
}

func TestDispatchIgnoresPlainMessages(t *testing.T) {
	d, br := newDispatchFixture(t)

	const viewID = "view_plain"
	if err := br.Open(viewID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := d.Attach(viewID); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	replies := make(chan map[string]interface{}, 4)
	if _, err := br.Watch(viewID, func(msg types.Message) {
		var payload map[string]interface{}
		if err := sonic.Unmarshal(msg.Payload, &payload); err == nil {
			replies <- payload
		}
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	err := br.Send(context.Background(), viewID, map[string]interface{}{
		"type": "chatter",
		"body": "hello",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case reply := <-replies:
		t.Errorf("unexpected reply: %v", reply)
	case <-time.After(200 * time.Millisecond):
	}
}
