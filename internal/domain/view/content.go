package view

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/domain/content"
	"github.com/panekit/panekit/internal/shared/types"
)

// SetContent replaces the view's document in full. There is no diffing and no
// partial patch: the assigned string becomes the document. The document must
// be complete and well formed; fragments are a validation error. Replacement
// always discards script runtime state, even when the new document equals the
// old one, so repeated assignment of the same string is idempotent with
// respect to rendered state.
func (m *Manager) SetContent(ctx context.Context, viewID, html string) error {
	if err := content.Validate(html); err != nil {
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

	doc := html
	if !inst.view.Options.EnableScripts {
		stripped, err := content.StripScripts(html)
		if err != nil {
			inst.mu.Unlock()
			return fmt.Errorf("content not renderable: %w", err)
		}
		doc = stripped
	}

	m.teardownLocked(inst)
	inst.view.HTML = doc
	inst.view.UpdatedAt = time.Now()
	if inst.view.State == types.StateVisible {
		m.materializeLocked(ctx, inst)
	}
	snapshot := cloneView(inst.view)
	inst.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordContentUpdate(len(doc))
	}

	m.logger.Debug("Content replaced",
		zap.String("view_id", viewID),
		zap.Int("bytes", len(doc)))

	m.emit(EventContent, snapshot)
	return nil
}
