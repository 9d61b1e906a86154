package workspace

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/infrastructure/monitoring"
	"github.com/panekit/panekit/internal/shared/id"
	"github.com/panekit/panekit/internal/shared/paths"
	"github.com/panekit/panekit/internal/shared/types"
	"github.com/panekit/panekit/internal/shared/utils"
)

// gzipMagic identifies legacy gzip-compressed snapshots on read.
var gzipMagic = []byte{0x1f, 0x8b}

// ViewManager is the registry surface the workspace manager drives.
type ViewManager interface {
	List(state *types.State) []*types.View
	Create(ctx context.Context, req types.CreateViewRequest) (*types.View, error)
	DisposeAll(ctx context.Context)
	Reveal(ctx context.Context, viewID string, column *types.Column) error
	FindByHash(hash string) (*types.View, bool)
	Stats() types.ViewStats
}

// StateStore moves persisted view state in and out of snapshots.
type StateStore interface {
	Export(viewHash string) []byte
	Import(viewHash string, data []byte) error
}

// Manager saves and restores workspace snapshots: the full set of live views
// with their documents, options, placement, visibility, and persisted state.
// Snapshots are sonic-encoded JSON compressed with zstd.
type Manager struct {
	workspaces sync.Map
	views      ViewManager
	store      StateStore
	layout     paths.Layout
	level      int
	logger     *logging.Logger
	metrics    *monitoring.Metrics

	mu           sync.RWMutex
	lastSaved    *time.Time
	lastRestored *time.Time
}

// NewManager creates a workspace manager.
func NewManager(views ViewManager, store StateStore, layout paths.Layout, level int, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if level <= 0 {
		level = 3
	}
	for _, dir := range []string{layout.Workspaces(), layout.Tmp()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create workspaces directory: %w", err)
		}
	}
	return &Manager{
		views:  views,
		store:  store,
		layout: layout,
		level:  level,
		logger: logger.Named("workspace"),
	}, nil
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Save captures every live view into a named snapshot and writes it to disk.
func (m *Manager) Save(ctx context.Context, name string) (*types.Workspace, error) {
	if name == "" {
		name = "workspace"
	}
	if err := utils.ValidateName(name, "workspace name"); err != nil {
		return nil, err
	}

	stats := m.views.Stats()
	views := m.views.List(nil)

	saved := make([]types.SavedView, 0, len(views))
	for _, v := range views {
		sv := types.SavedView{
			Hash:     v.Hash,
			Title:    v.Title,
			HTML:     v.HTML,
			Options:  v.Options,
			Column:   v.Column,
			Visible:  v.State == types.StateVisible,
			Metadata: v.Metadata,
		}
		if stats.ActiveViewID != nil && v.ID == *stats.ActiveViewID {
			sv.Active = true
		}
		if data := m.store.Export(v.Hash); data != nil {
			sv.ViewState = data
		}
		saved = append(saved, sv)
	}

	now := time.Now()
	ws := &types.Workspace{
		ID:        id.NewWorkspaceID().String(),
		Name:      name,
		Views:     saved,
		CreatedAt: now,
	}

	if err := m.write(ws); err != nil {
		return nil, err
	}
	m.workspaces.Store(ws.ID, ws)

	m.mu.Lock()
	m.lastSaved = &now
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncWorkspacesSaved()
	}
	m.logger.Info("Workspace saved",
		zap.String("workspace_id", ws.ID),
		zap.String("name", name),
		zap.Int("views", len(saved)))
	return ws, nil
}

// SaveDefault saves a snapshot with the default name.
func (m *Manager) SaveDefault(ctx context.Context) (*types.Workspace, error) {
	return m.Save(ctx, "default")
}

// Get loads a snapshot by ID, from cache or disk.
func (m *Manager) Get(workspaceID string) (*types.Workspace, error) {
	if cached, ok := m.workspaces.Load(workspaceID); ok {
		return cached.(*types.Workspace), nil
	}

	ws, err := m.read(workspaceID)
	if err != nil {
		return nil, err
	}
	m.workspaces.Store(ws.ID, ws)
	return ws, nil
}

// List returns metadata for every snapshot on disk.
func (m *Manager) List() ([]types.WorkspaceMetadata, error) {
	entries, err := os.ReadDir(m.layout.Workspaces())
	if err != nil {
		return nil, fmt.Errorf("read workspaces directory: %w", err)
	}

	var metadata []types.WorkspaceMetadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), paths.WorkspaceExt) {
			continue
		}
		wsID := strings.TrimSuffix(entry.Name(), paths.WorkspaceExt)
		ws, err := m.Get(wsID)
		if err != nil {
			m.logger.Warn("Unreadable workspace skipped",
				zap.String("workspace_id", wsID),
				zap.Error(err))
			continue
		}
		metadata = append(metadata, ws.ToMetadata())
	}
	return metadata, nil
}

// Restore replaces the current set of live views with a snapshot's. Every
// current view is disposed; snapshot views are recreated (hidden ones stay
// hidden), persisted state is re-imported by hash, and the previously active
// view is revealed last by content hash.
func (m *Manager) Restore(ctx context.Context, workspaceID string) error {
	ws, err := m.Get(workspaceID)
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	m.views.DisposeAll(ctx)

	var activeHash *string
	for i := range ws.Views {
		sv := &ws.Views[i]

		// State is keyed by the deterministic view hash, so importing
		// before creation lets scripts see their state on first run.
		if sv.ViewState != nil {
			if err := m.store.Import(sv.Hash, sv.ViewState); err != nil {
				m.logger.Warn("State import failed",
					zap.String("hash", sv.Hash),
					zap.Error(err))
			}
		}

		created, err := m.views.Create(ctx, types.CreateViewRequest{
			Title:    sv.Title,
			Column:   sv.Column,
			Hidden:   !sv.Visible,
			HTML:     sv.HTML,
			Options:  sv.Options,
			Metadata: sv.Metadata,
		})
		if err != nil {
			return fmt.Errorf("restore view %q: %w", sv.Title, err)
		}

		if created.Hash != sv.Hash && sv.ViewState != nil {
			if err := m.store.Import(created.Hash, sv.ViewState); err != nil {
				m.logger.Warn("State re-import failed",
					zap.String("hash", created.Hash),
					zap.Error(err))
			}
		}
		if sv.Active {
			hash := created.Hash
			activeHash = &hash
		}
	}

	if activeHash != nil {
		if v, ok := m.views.FindByHash(*activeHash); ok {
			if err := m.views.Reveal(ctx, v.ID, nil); err != nil {
				m.logger.Warn("Active view reveal failed",
					zap.String("view_id", v.ID),
					zap.Error(err))
			}
		}
	}

	now := time.Now()
	m.mu.Lock()
	m.lastRestored = &now
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncWorkspacesRestored()
	}
	m.logger.Info("Workspace restored",
		zap.String("workspace_id", workspaceID),
		zap.Int("views", len(ws.Views)))
	return nil
}

// Delete removes a snapshot from disk and cache.
func (m *Manager) Delete(workspaceID string) error {
	path := m.layout.WorkspaceFile(workspaceID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete workspace: %w", err)
	}
	m.workspaces.Delete(workspaceID)
	return nil
}

// Stats reports save/restore timestamps for the health endpoint.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	m.workspaces.Range(func(_, _ interface{}) bool {
		count++
		return true
	})

	stats := map[string]interface{}{"cached": count}
	if m.lastSaved != nil {
		stats["last_saved"] = m.lastSaved.Format(time.RFC3339)
	}
	if m.lastRestored != nil {
		stats["last_restored"] = m.lastRestored.Format(time.RFC3339)
	}
	return stats
}

// write serializes and compresses a snapshot, then moves it into place via a
// scratch file so a crash never leaves a torn snapshot behind.
func (m *Manager) write(ws *types.Workspace) error {
	data, err := sonic.Marshal(ws)
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(m.level)))
	if err != nil {
		return fmt.Errorf("create compressor: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("compress workspace: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compress workspace: %w", err)
	}

	scratch := filepath.Join(m.layout.Tmp(), ws.ID+".tmp")
	if err := os.WriteFile(scratch, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write workspace: %w", err)
	}
	if err := os.Rename(scratch, m.layout.WorkspaceFile(ws.ID)); err != nil {
		os.Remove(scratch)
		return fmt.Errorf("place workspace: %w", err)
	}
	return nil
}

// read loads and decompresses a snapshot. Gzip-compressed files are accepted
// for snapshots produced by older hosts.
func (m *Manager) read(workspaceID string) (*types.Workspace, error) {
	raw, err := os.ReadFile(m.layout.WorkspaceFile(workspaceID))
	if err != nil {
		return nil, fmt.Errorf("read workspace: %w", err)
	}

	var data []byte
	if bytes.HasPrefix(raw, gzipMagic) {
		r, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decompress workspace: %w", err)
		}
		defer r.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("decompress workspace: %w", err)
		}
		data = buf.Bytes()
	} else {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create decompressor: %w", err)
		}
		defer dec.Close()
		if data, err = dec.DecodeAll(raw, nil); err != nil {
			return nil, fmt.Errorf("decompress workspace: %w", err)
		}
	}

	var ws types.Workspace
	if err := sonic.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", workspaceID, err)
	}
	if ws.ID == "" {
		return nil, fmt.Errorf("workspace %s has an empty ID", workspaceID)
	}
	return &ws, nil
}
