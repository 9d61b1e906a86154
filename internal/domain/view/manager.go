package view

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/domain/bridge"
	"github.com/panekit/panekit/internal/domain/content"
	"github.com/panekit/panekit/internal/domain/gate"
	"github.com/panekit/panekit/internal/domain/state"
	"github.com/panekit/panekit/internal/domain/view/sandbox"
	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/infrastructure/monitoring"
	"github.com/panekit/panekit/internal/shared/id"
	"github.com/panekit/panekit/internal/shared/types"
	"github.com/panekit/panekit/internal/shared/utils"
)

// Config bounds the registry and configures view script runtimes.
type Config struct {
	MaxViews int
	Sandbox  sandbox.Config
}

// DefaultConfig returns registry defaults.
func DefaultConfig() Config {
	return Config{
		MaxViews: 256,
		Sandbox:  sandbox.DefaultConfig(),
	}
}

// Manager owns every live view instance. All mutations serialize through the
// registry lock and the per-instance locks; nothing outside the registry
// holds a mutable reference to an instance.
type Manager struct {
	mu         sync.RWMutex
	views      map[string]*instance
	tombstones map[string]struct{}
	activeID   *string

	config     Config
	bridge     *bridge.Bridge
	gate       *gate.Gate
	store      *state.Store
	identifier *utils.ViewIdentifier
	sanitizer  *content.Sanitizer
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	events     *eventHub
	runtimes   atomic.Int64
}

// NewManager creates a view registry wired to its bridge, gate, and state
// store.
func NewManager(config Config, br *bridge.Bridge, g *gate.Gate, st *state.Store, logger *logging.Logger) *Manager {
	if config.MaxViews <= 0 {
		config.MaxViews = DefaultConfig().MaxViews
	}
	if config.Sandbox.Timeout <= 0 {
		config.Sandbox = sandbox.DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		views:      make(map[string]*instance),
		tombstones: make(map[string]struct{}),
		config:     config,
		bridge:     br,
		gate:       g,
		store:      st,
		identifier: utils.NewViewIdentifier(utils.DefaultHasher()),
		sanitizer:  content.NewSanitizer(),
		logger:     logger.Named("view"),
		events:     newEventHub(),
	}
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create allocates a view instance. The instance enters created and
// immediately moves to its initial visible or hidden state per the placement
// hint. Options and resource roots are fixed here for the view's lifetime.
func (m *Manager) Create(ctx context.Context, req types.CreateViewRequest) (*types.View, error) {
	title := m.sanitizer.Text(req.Title)
	if err := utils.ValidateTitle(title); err != nil {
		return nil, err
	}

	column := req.Column
	if column == 0 {
		column = types.ColumnActive
	}
	if !column.Valid() {
		return nil, fmt.Errorf("invalid column %d", column)
	}

	html := req.HTML
	if html != "" {
		if err := content.Validate(html); err != nil {
			return nil, err
		}
		if !req.Options.EnableScripts {
			stripped, err := content.StripScripts(html)
			if err != nil {
				return nil, fmt.Errorf("content not renderable: %w", err)
			}
			html = stripped
		}
	}

	viewID := id.NewViewID().String()

	if err := m.gate.Register(viewID, req.Options.ResourceRoots, req.Options.DenyPatterns); err != nil {
		return nil, err
	}
	if err := m.bridge.Open(viewID); err != nil {
		m.gate.Remove(viewID)
		return nil, err
	}

	now := time.Now()
	v := cloneView(types.View{
		ID:        viewID,
		Hash:      m.identifier.GenerateHash(title, optionsFingerprint(req.Options), req.Metadata),
		Title:     title,
		HTML:      html,
		State:     types.StateCreated,
		Options:   req.Options,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  req.Metadata,
	})
	inst := newInstance(v)

	m.mu.Lock()
	if len(m.views) >= m.config.MaxViews {
		m.mu.Unlock()
		m.bridge.Close(viewID)
		m.gate.Remove(viewID)
		return nil, fmt.Errorf("%w: %d live views", ErrLimit, m.config.MaxViews)
	}

	initial := types.StateVisible
	if req.Hidden {
		initial = types.StateHidden
	}
	resolved := m.resolveColumnLocked(column)
	inst.view.State = initial
	inst.view.Column = resolved

	var demoted *instance
	if initial == types.StateVisible {
		demoted = m.demoteColumnLocked(resolved, viewID)
		m.activeID = &inst.view.ID
	}

	m.views[viewID] = inst
	total := len(m.views)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncViewsTotal()
		m.metrics.SetViewsActive(total)
		m.metrics.RecordViewTransition(string(types.StateCreated), string(initial))
	}

	m.logger.Info("View created",
		zap.String("view_id", viewID),
		zap.String("title", title),
		zap.String("state", string(initial)),
		zap.Int("column", int(resolved)),
		zap.Bool("scripts", req.Options.EnableScripts))

	m.finishDemotion(demoted)

	if initial == types.StateVisible {
		inst.mu.Lock()
		m.materializeLocked(ctx, inst)
		inst.mu.Unlock()
	}

	snapshot := inst.snapshot()
	m.emit(EventCreated, snapshot)
	return &snapshot, nil
}

// Get retrieves a view by id. Disposed and unknown ids both report absence.
func (m *Manager) Get(viewID string) (*types.View, bool) {
	m.mu.RLock()
	inst, ok := m.views[viewID]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	snapshot := inst.snapshot()
	return &snapshot, true
}

// List returns all live views, optionally filtered by state.
func (m *Manager) List(state *types.State) []*types.View {
	m.mu.RLock()
	instances := make([]*instance, 0, len(m.views))
	for _, inst := range m.views {
		instances = append(instances, inst)
	}
	m.mu.RUnlock()

	views := make([]*types.View, 0, len(instances))
	for _, inst := range instances {
		snapshot := inst.snapshot()
		if state == nil || snapshot.State == *state {
			views = append(views, &snapshot)
		}
	}
	return views
}

// SetTitle replaces the view's display title. The title is sanitized before
// storage; markup never reaches the renderer chrome.
func (m *Manager) SetTitle(viewID, title string) error {
	clean := m.sanitizer.Text(title)
	if err := utils.ValidateTitle(clean); err != nil {
		return err
	}

	inst, err := m.live(viewID)
	if err != nil {
		return err
	}

	inst.mu.Lock()
	if inst.view.State.Terminal() {
		inst.mu.Unlock()
		return ErrDisposed
	}
	inst.view.Title = clean
	inst.view.UpdatedAt = time.Now()
	snapshot := cloneView(inst.view)
	inst.mu.Unlock()

	m.emit(EventTitle, snapshot)
	return nil
}

// Active returns the explicit active view, if any.
func (m *Manager) Active() (*types.View, bool) {
	m.mu.RLock()
	var inst *instance
	if m.activeID != nil {
		inst = m.views[*m.activeID]
	}
	m.mu.RUnlock()

	if inst == nil {
		return nil, false
	}
	snapshot := inst.snapshot()
	return &snapshot, true
}

// FindByHash finds a view by its stable hash, for workspace restoration.
func (m *Manager) FindByHash(hash string) (*types.View, bool) {
	m.mu.RLock()
	instances := make([]*instance, 0, len(m.views))
	for _, inst := range m.views {
		instances = append(instances, inst)
	}
	m.mu.RUnlock()

	for _, inst := range instances {
		snapshot := inst.snapshot()
		if snapshot.Hash == hash {
			return &snapshot, true
		}
	}
	return nil, false
}

// Stats returns registry statistics.
func (m *Manager) Stats() types.ViewStats {
	m.mu.RLock()
	instances := make([]*instance, 0, len(m.views))
	for _, inst := range m.views {
		instances = append(instances, inst)
	}
	var activeID *string
	if m.activeID != nil {
		idCopy := *m.activeID
		activeID = &idCopy
	}
	m.mu.RUnlock()

	stats := types.ViewStats{ActiveViewID: activeID}
	for _, inst := range instances {
		inst.mu.Lock()
		stats.TotalViews++
		switch inst.view.State {
		case types.StateVisible:
			stats.VisibleViews++
		case types.StateHidden:
			stats.HiddenViews++
			if inst.runtime != nil {
				stats.RetainedRuntimes++
			}
		}
		if activeID != nil && inst.view.ID == *activeID {
			hash := inst.view.Hash
			stats.ActiveViewHash = &hash
		}
		inst.mu.Unlock()
	}
	return stats
}

// Liveness reports whether an id is live (nil), disposed, or unknown.
func (m *Manager) Liveness(viewID string) error {
	_, err := m.live(viewID)
	return err
}

// live resolves an id to its instance, distinguishing disposed from unknown.
func (m *Manager) live(viewID string) (*instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if inst, ok := m.views[viewID]; ok {
		return inst, nil
	}
	if _, dead := m.tombstones[viewID]; dead {
		return nil, ErrDisposed
	}
	return nil, ErrNotFound
}

// resolveColumnLocked turns a placement hint into a concrete column.
// Caller must hold m.mu.
func (m *Manager) resolveColumnLocked(hint types.Column) types.Column {
	if hint >= 1 {
		return hint
	}

	base := types.Column(1)
	if m.activeID != nil {
		if inst, ok := m.views[*m.activeID]; ok {
			inst.mu.Lock()
			base = inst.view.Column
			inst.mu.Unlock()
		}
	}

	switch hint {
	case types.ColumnBeside:
		if base < types.MaxColumn {
			return base + 1
		}
		return types.MaxColumn
	default:
		return base
	}
}

// demoteColumnLocked hides whichever view is currently visible in the
// column, making room for an incoming one. Caller must hold m.mu; the
// returned instance still needs finishDemotion after locks are released.
func (m *Manager) demoteColumnLocked(column types.Column, exceptID string) *instance {
	for _, other := range m.views {
		if other.view.ID == exceptID {
			continue
		}
		other.mu.Lock()
		if other.view.State == types.StateVisible && other.view.Column == column {
			other.view.State = types.StateHidden
			other.view.UpdatedAt = time.Now()
			other.mu.Unlock()
			if m.metrics != nil {
				m.metrics.RecordViewTransition(string(types.StateVisible), string(types.StateHidden))
			}
			return other
		}
		other.mu.Unlock()
	}
	return nil
}

// finishDemotion completes a demotion outside the registry lock: retention
// decides whether the hidden view keeps its runtime, then subscribers hear
// about the transition.
func (m *Manager) finishDemotion(demoted *instance) {
	if demoted == nil {
		return
	}

	demoted.mu.Lock()
	if !demoted.view.Options.RetainWhenHidden {
		m.teardownLocked(demoted)
	}
	callbacks := collectCallbacks(demoted.visSubs)
	snapshot := cloneView(demoted.view)
	demoted.mu.Unlock()

	for _, fn := range callbacks {
		fn(snapshot)
	}
	m.emit(EventVisibility, snapshot)
}

func collectCallbacks(subs map[string]Callback) []Callback {
	out := make([]Callback, 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}

func optionsFingerprint(o types.Options) string {
	return fmt.Sprintf("scripts=%t|retain=%t|roots=%s|deny=%s",
		o.EnableScripts,
		o.RetainWhenHidden,
		strings.Join(o.ResourceRoots, ","),
		strings.Join(o.DenyPatterns, ","))
}
