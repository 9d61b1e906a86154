package view

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/shared/id"
	"github.com/panekit/panekit/internal/shared/types"
)

// Reveal brings a non-disposed view to the foreground, optionally moving its
// placement. The revealed view becomes the active view; whatever was visible
// in the target column goes hidden.
func (m *Manager) Reveal(ctx context.Context, viewID string, column *types.Column) error {
	return m.show(ctx, viewID, column)
}

// SetVisibility applies an externally driven visibility change, typically a
// renderer reporting a tab switch or column drag. Hiding a view without
// retention tears its runtime down; showing it again rebuilds the runtime
// from the last assigned document.
func (m *Manager) SetVisibility(viewID string, visible bool, column *types.Column) error {
	if visible {
		return m.show(context.Background(), viewID, column)
	}
	if column != nil && !column.Valid() {
		return fmt.Errorf("invalid column %d", *column)
	}
	return m.hide(viewID)
}

func (m *Manager) show(ctx context.Context, viewID string, column *types.Column) error {
	if column != nil && !column.Valid() {
		return fmt.Errorf("invalid column %d", *column)
	}

	m.mu.Lock()
	inst, ok := m.views[viewID]
	if !ok {
		_, dead := m.tombstones[viewID]
		m.mu.Unlock()
		if dead {
			return ErrDisposed
		}
		return ErrNotFound
	}

	inst.mu.Lock()
	from := inst.view.State
	if !from.CanTransition(types.StateVisible) {
		inst.mu.Unlock()
		m.mu.Unlock()
		if from.Terminal() {
			return ErrDisposed
		}
		return ErrTransition
	}
	resolved := inst.view.Column
	inst.mu.Unlock()
	if column != nil {
		resolved = m.resolveColumnLocked(*column)
	}

	inst.mu.Lock()
	changed := from != types.StateVisible || inst.view.Column != resolved
	inst.view.State = types.StateVisible
	inst.view.Column = resolved
	if changed {
		inst.view.UpdatedAt = time.Now()
	}
	inst.mu.Unlock()

	demoted := m.demoteColumnLocked(resolved, viewID)
	m.activeID = &inst.view.ID
	m.mu.Unlock()

	if m.metrics != nil && from != types.StateVisible {
		m.metrics.RecordViewTransition(string(from), string(types.StateVisible))
	}

	m.finishDemotion(demoted)

	inst.mu.Lock()
	m.materializeLocked(ctx, inst)
	snapshot := cloneView(inst.view)
	callbacks := collectCallbacks(inst.visSubs)
	inst.mu.Unlock()

	if changed {
		for _, fn := range callbacks {
			fn(snapshot)
		}
		m.emit(EventVisibility, snapshot)
	}
	return nil
}

func (m *Manager) hide(viewID string) error {
	m.mu.Lock()
	inst, ok := m.views[viewID]
	if !ok {
		_, dead := m.tombstones[viewID]
		m.mu.Unlock()
		if dead {
			return ErrDisposed
		}
		return ErrNotFound
	}

	inst.mu.Lock()
	from := inst.view.State
	if !from.CanTransition(types.StateHidden) {
		inst.mu.Unlock()
		m.mu.Unlock()
		if from.Terminal() {
			return ErrDisposed
		}
		return ErrTransition
	}
	changed := from != types.StateHidden
	inst.view.State = types.StateHidden
	if changed {
		inst.view.UpdatedAt = time.Now()
	}
	inst.mu.Unlock()

	if m.activeID != nil && *m.activeID == viewID {
		m.activeID = m.nextActiveLocked(viewID)
	}
	m.mu.Unlock()

	if m.metrics != nil && changed {
		m.metrics.RecordViewTransition(string(from), string(types.StateHidden))
	}

	inst.mu.Lock()
	if !inst.view.Options.RetainWhenHidden {
		m.teardownLocked(inst)
	}
	snapshot := cloneView(inst.view)
	callbacks := collectCallbacks(inst.visSubs)
	inst.mu.Unlock()

	if changed {
		for _, fn := range callbacks {
			fn(snapshot)
		}
		m.emit(EventVisibility, snapshot)
	}
	return nil
}

// Dispose irreversibly frees a view: pending bridge deliveries are cancelled
// in both directions, handlers unregister, the script runtime is released,
// persisted state is cleared, and the one-time disposal notification fires.
func (m *Manager) Dispose(ctx context.Context, viewID string) error {
	m.mu.Lock()
	inst, ok := m.views[viewID]
	if !ok {
		_, dead := m.tombstones[viewID]
		m.mu.Unlock()
		if dead {
			return ErrDisposed
		}
		return ErrNotFound
	}
	delete(m.views, viewID)
	m.tombstones[viewID] = struct{}{}
	if m.activeID != nil && *m.activeID == viewID {
		m.activeID = m.nextActiveLocked(viewID)
	}
	total := len(m.views)
	m.mu.Unlock()

	inst.mu.Lock()
	from := inst.view.State
	inst.view.State = types.StateDisposed
	inst.view.UpdatedAt = time.Now()
	m.teardownLocked(inst)
	callbacks := collectCallbacks(inst.disposeSubs)
	inst.disposeSubs = nil
	inst.visSubs = nil
	hash := inst.view.Hash
	snapshot := cloneView(inst.view)
	inst.mu.Unlock()

	m.bridge.Close(viewID)
	m.gate.Remove(viewID)
	if err := m.store.Clear(hash); err != nil {
		m.logger.Warn("State clear failed",
			zap.String("view_id", viewID),
			zap.Error(err))
	}

	if m.metrics != nil {
		m.metrics.RecordViewTransition(string(from), string(types.StateDisposed))
		m.metrics.SetViewsActive(total)
	}

	inst.disposeOnce.Do(func() {
		for _, fn := range callbacks {
			fn(snapshot)
		}
	})
	m.emit(EventDisposed, snapshot)

	m.logger.Info("View disposed",
		zap.String("view_id", viewID),
		zap.String("title", snapshot.Title))
	return nil
}

// DisposeAll disposes every live view, for shutdown and workspace restore.
func (m *Manager) DisposeAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.views))
	for viewID := range m.views {
		ids = append(ids, viewID)
	}
	m.mu.RUnlock()

	for _, viewID := range ids {
		if err := m.Dispose(ctx, viewID); err != nil {
			m.logger.Warn("Dispose failed during sweep",
				zap.String("view_id", viewID),
				zap.Error(err))
		}
	}
}

// OnDispose registers a callback for the view's one-time disposal
// notification.
func (m *Manager) OnDispose(viewID string, fn Callback) (*Subscription, error) {
	return m.subscribe(viewID, fn, func(inst *instance) map[string]Callback { return inst.disposeSubs })
}

// OnVisibility registers a callback for visibility-changed notifications.
func (m *Manager) OnVisibility(viewID string, fn Callback) (*Subscription, error) {
	return m.subscribe(viewID, fn, func(inst *instance) map[string]Callback { return inst.visSubs })
}

func (m *Manager) subscribe(viewID string, fn Callback, pick func(*instance) map[string]Callback) (*Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("callback is required")
	}

	inst, err := m.live(viewID)
	if err != nil {
		return nil, err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.view.State.Terminal() {
		return nil, ErrDisposed
	}

	subID := id.NewSubscriptionID().String()
	pick(inst)[subID] = fn

	return &Subscription{
		id: subID,
		cancel: func() {
			inst.mu.Lock()
			defer inst.mu.Unlock()
			if subs := pick(inst); subs != nil {
				delete(subs, subID)
			}
		},
	}, nil
}

// nextActiveLocked picks a replacement active view after the current one
// leaves the foreground. Caller must hold m.mu.
func (m *Manager) nextActiveLocked(exceptID string) *string {
	for _, inst := range m.views {
		if inst.view.ID == exceptID {
			continue
		}
		inst.mu.Lock()
		visible := inst.view.State == types.StateVisible
		inst.mu.Unlock()
		if visible {
			idCopy := inst.view.ID
			return &idCopy
		}
	}
	return nil
}
