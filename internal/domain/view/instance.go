package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/domain/bridge"
	"github.com/panekit/panekit/internal/domain/content"
	"github.com/panekit/panekit/internal/domain/view/sandbox"
	"github.com/panekit/panekit/internal/shared/types"
)

// instance is the registry's private mutable record for one view. The
// exported types.View is always a snapshot copy; only the registry mutates
// an instance, and only under its lock.
type instance struct {
	mu   sync.Mutex
	view types.View

	runtime  *sandbox.Runtime
	watchSub *bridge.Subscription

	disposeOnce sync.Once
	disposeSubs map[string]Callback
	visSubs     map[string]Callback
}

func newInstance(v types.View) *instance {
	return &instance{
		view:        v,
		disposeSubs: make(map[string]Callback),
		visSubs:     make(map[string]Callback),
	}
}

// snapshot returns a defensive copy safe to hand outside the registry.
func (inst *instance) snapshot() types.View {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return cloneView(inst.view)
}

func cloneView(v types.View) types.View {
	out := v
	out.Options.ResourceRoots = append([]string(nil), v.Options.ResourceRoots...)
	out.Options.DenyPatterns = append([]string(nil), v.Options.DenyPatterns...)
	if v.Metadata != nil {
		md := make(map[string]interface{}, len(v.Metadata))
		for k, val := range v.Metadata {
			md[k] = val
		}
		out.Metadata = md
	}
	return out
}

// hostBinding is the panehost implementation handed to a view's runtime.
// It routes script calls to the bridge and the state store without touching
// instance locks, so scripts can run while the registry is busy.
type hostBinding struct {
	viewID string
	hash   string
	m      *Manager
}

func (h *hostBinding) PostMessage(payload map[string]interface{}) error {
	return h.m.bridge.Send(context.Background(), h.viewID, payload)
}

func (h *hostBinding) GetState() map[string]interface{} {
	return h.m.store.Get(h.hash)
}

func (h *hostBinding) SetState(doc map[string]interface{}) error {
	return h.m.store.Set(h.hash, doc)
}

// materializeLocked builds the script runtime from the instance's current
// document and attaches it to the bridge. Caller must hold inst.mu. A view
// without scripts, without a document, or with a live runtime is left alone.
func (m *Manager) materializeLocked(ctx context.Context, inst *instance) {
	if inst.view.State.Terminal() {
		return
	}
	if !inst.view.Options.EnableScripts || inst.view.HTML == "" || inst.runtime != nil {
		return
	}

	scripts, err := content.ExtractScripts(inst.view.HTML)
	if err != nil {
		m.logger.Warn("Script extraction failed",
			zap.String("view_id", inst.view.ID),
			zap.Error(err))
		return
	}

	binding := &hostBinding{viewID: inst.view.ID, hash: inst.view.Hash, m: m}
	rt, err := sandbox.NewWithHost(m.config.Sandbox, binding)
	if err != nil {
		m.logger.Error("Runtime creation failed",
			zap.String("view_id", inst.view.ID),
			zap.Error(err))
		return
	}
	inst.runtime = rt
	m.runtimes.Add(1)

	for i, script := range scripts {
		start := time.Now()
		result, err := rt.Execute(ctx, script.Source)
		status := "ok"
		if err != nil {
			status = "error"
			var interrupted *goja.InterruptedError
			if errors.As(err, &interrupted) {
				status = "timeout"
			}
			m.logger.Warn("View script failed",
				zap.String("view_id", inst.view.ID),
				zap.Int("script", i),
				zap.String("status", status),
				zap.Error(err))
		}
		if m.metrics != nil {
			m.metrics.RecordScriptRun(status, time.Since(start))
		}
		if result != nil && len(result.Console) > 0 {
			m.logger.Debug("View script console",
				zap.String("view_id", inst.view.ID),
				zap.Int("script", i),
				zap.Int("entries", len(result.Console)))
		}
	}

	sub, err := m.bridge.Watch(inst.view.ID, func(msg types.Message) {
		var payload map[string]interface{}
		if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
			m.logger.Warn("Undeliverable payload",
				zap.String("view_id", msg.ViewID),
				zap.Error(err))
			return
		}
		if _, err := rt.Deliver(context.Background(), payload); err != nil && !errors.Is(err, sandbox.ErrRuntimeClosed) {
			m.logger.Warn("Script message handler failed",
				zap.String("view_id", msg.ViewID),
				zap.Error(err))
		}
	})
	if err != nil {
		m.logger.Warn("Bridge watch failed",
			zap.String("view_id", inst.view.ID),
			zap.Error(err))
	} else {
		inst.watchSub = sub
	}

	m.updateRuntimeGauge()
}

// teardownLocked releases the instance's runtime and its bridge attachment.
// Caller must hold inst.mu.
func (m *Manager) teardownLocked(inst *instance) {
	if inst.watchSub != nil {
		inst.watchSub.Cancel()
		inst.watchSub = nil
	}
	if inst.runtime != nil {
		inst.runtime.Close()
		inst.runtime = nil
		m.runtimes.Add(-1)
		m.updateRuntimeGauge()
	}
}

func (m *Manager) updateRuntimeGauge() {
	if m.metrics != nil {
		m.metrics.SetRuntimesActive(int(m.runtimes.Load()))
	}
}
