package preset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/infrastructure/monitoring"
	"github.com/panekit/panekit/internal/shared/paths"
	"github.com/panekit/panekit/internal/shared/types"
	"github.com/panekit/panekit/internal/shared/utils"
)

// ErrNotFound reports an unknown preset id.
var ErrNotFound = errors.New("preset not found")

// ViewCreator allocates live views from presets. The view manager satisfies
// this.
type ViewCreator interface {
	Create(ctx context.Context, req types.CreateViewRequest) (*types.View, error)
}

// Registry holds loaded presets and persists saved ones under the storage
// root as YAML manifests.
type Registry struct {
	presets sync.Map
	layout  paths.Layout
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewRegistry creates a preset registry.
func NewRegistry(layout paths.Layout, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		layout: layout,
		logger: logger.Named("preset"),
	}
}

// WithMetrics adds metrics tracking to the registry.
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// Save stores a preset in memory and writes its manifest to disk.
func (r *Registry) Save(p *types.Preset) error {
	if err := utils.ValidateID(p.ID, "preset id", true); err != nil {
		return err
	}

	p.UpdatedAt = time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}

	data, err := EncodeManifest(p)
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}

	if err := os.MkdirAll(r.layout.Presets(), 0o755); err != nil {
		return fmt.Errorf("create presets directory: %w", err)
	}
	if err := os.WriteFile(r.manifestPath(p.ID), data, 0o644); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}

	r.add(p)
	return nil
}

// add stores a preset in memory only. The seeder uses this for manifests
// that already live on disk.
func (r *Registry) add(p *types.Preset) {
	r.presets.Store(p.ID, p)
	if r.metrics != nil {
		r.metrics.SetPresetsLoaded(r.count())
	}
}

// Get retrieves a preset by ID.
func (r *Registry) Get(id string) (*types.Preset, bool) {
	val, ok := r.presets.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*types.Preset), true
}

// Exists reports whether a preset is loaded.
func (r *Registry) Exists(id string) bool {
	_, ok := r.presets.Load(id)
	return ok
}

// List returns all loaded presets, optionally filtered by tag.
func (r *Registry) List(tag *string) []*types.Preset {
	var presets []*types.Preset
	r.presets.Range(func(_, value interface{}) bool {
		p := value.(*types.Preset)
		if tag == nil || hasTag(p, *tag) {
			presets = append(presets, p)
		}
		return true
	})
	return presets
}

// ListMetadata returns the listing form of all loaded presets.
func (r *Registry) ListMetadata(tag *string) []types.PresetMetadata {
	presets := r.List(tag)
	metadata := make([]types.PresetMetadata, len(presets))
	for i, p := range presets {
		metadata[i] = p.ToMetadata()
	}
	return metadata
}

// Delete removes a preset from memory and disk.
func (r *Registry) Delete(id string) error {
	if err := os.Remove(r.manifestPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete preset: %w", err)
	}
	r.presets.Delete(id)
	if r.metrics != nil {
		r.metrics.SetPresetsLoaded(r.count())
	}
	return nil
}

// Launch instantiates a preset as a live view.
func (r *Registry) Launch(ctx context.Context, id string, views ViewCreator) (*types.View, error) {
	p, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	view, err := views.Create(ctx, types.CreateViewRequest{
		Title:   p.Title,
		Column:  p.Column,
		HTML:    p.HTML,
		Options: p.Options,
		Metadata: map[string]interface{}{
			"preset_id": p.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("launch preset %s: %w", id, err)
	}

	r.logger.Info("Preset launched",
		zap.String("preset_id", id),
		zap.String("view_id", view.ID))
	return view, nil
}

// Stats returns registry statistics.
func (r *Registry) Stats() types.PresetStats {
	stats := types.PresetStats{Tags: make(map[string]int)}
	var lastUpdated *time.Time

	r.presets.Range(func(_, value interface{}) bool {
		p := value.(*types.Preset)
		stats.TotalPresets++
		for _, tag := range p.Tags {
			stats.Tags[tag]++
		}
		if lastUpdated == nil || p.UpdatedAt.After(*lastUpdated) {
			updated := p.UpdatedAt
			lastUpdated = &updated
		}
		return true
	})

	stats.LastUpdated = lastUpdated
	return stats
}

func (r *Registry) count() int {
	n := 0
	r.presets.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func (r *Registry) manifestPath(id string) string {
	return filepath.Join(r.layout.Presets(), id+".preset.yaml")
}

func hasTag(p *types.Preset, tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
