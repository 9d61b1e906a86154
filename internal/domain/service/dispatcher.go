package service

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/domain/bridge"
	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/shared/types"
)

// executeTimeout bounds a single tool invocation triggered from a view.
const executeTimeout = 10 * time.Second

// Dispatcher executes service calls arriving over the bridge. View scripts
// and renderer connections request tools with an inbound message of the form
// {type: "service", tool: "name.tool", params: {...}}; the result posts back
// on the same view's host-to-view queue as {type: "service.result", ...}.
type Dispatcher struct {
	registry *Registry
	bridge   *bridge.Bridge
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher over the registry and bridge.
func NewDispatcher(registry *Registry, br *bridge.Bridge, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		registry: registry,
		bridge:   br,
		logger:   logger.Named("dispatch"),
	}
}

// Attach subscribes the dispatcher to a view's inbound traffic. The
// subscription dies with the view's bridge channel; callers never need to
// cancel it explicitly.
func (d *Dispatcher) Attach(viewID string) error {
	_, err := d.bridge.Subscribe(viewID, func(msg types.Message) {
		d.handle(msg)
	})
	return err
}

func (d *Dispatcher) handle(msg types.Message) {
	var payload map[string]interface{}
	if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
		return
	}
	if payload["type"] != "service" {
		return
	}

	tool, _ := payload["tool"].(string)
	params, _ := payload["params"].(map[string]interface{})

	ctx, cancel := context.WithTimeout(context.Background(), executeTimeout)
	defer cancel()

	viewID := msg.ViewID
	result, err := d.registry.Execute(ctx, tool, params, &types.Context{ViewID: &viewID})
	if err != nil {
		d.logger.Debug("Tool execution failed",
			zap.String("view_id", viewID),
			zap.String("tool", tool),
			zap.Error(err))
	}

	reply := map[string]interface{}{
		"type":    "service.result",
		"tool":    tool,
		"success": result != nil && result.Success,
	}
	if rid, ok := payload["request_id"]; ok {
		reply["request_id"] = rid
	}
	if result != nil {
		if result.Data != nil {
			reply["data"] = result.Data
		}
		if result.Error != nil {
			reply["error"] = *result.Error
		}
	} else if err != nil {
		reply["error"] = err.Error()
	}

	if err := d.bridge.Post(ctx, viewID, reply); err != nil {
		d.logger.Debug("Result post failed",
			zap.String("view_id", viewID),
			zap.Error(err))
	}
}
