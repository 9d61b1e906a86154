package http

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/panekit/panekit/internal/domain/bridge"
	"github.com/panekit/panekit/internal/domain/content"
	"github.com/panekit/panekit/internal/domain/gate"
	"github.com/panekit/panekit/internal/domain/preset"
	"github.com/panekit/panekit/internal/domain/service"
	"github.com/panekit/panekit/internal/domain/view"
	"github.com/panekit/panekit/internal/domain/workspace"
	"github.com/panekit/panekit/internal/shared/types"
	"github.com/panekit/panekit/internal/shared/utils"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	views      *view.Manager
	bridge     *bridge.Bridge
	gate       *gate.Gate
	services   *service.Registry
	presets    *preset.Registry
	workspaces *workspace.Manager
	hm         *HandlerMetrics
	version    string
	startTime  time.Time
}

// NewHandlers creates a new handler set.
func NewHandlers(
	views *view.Manager,
	br *bridge.Bridge,
	g *gate.Gate,
	services *service.Registry,
	presets *preset.Registry,
	workspaces *workspace.Manager,
	hm *HandlerMetrics,
	version string,
) *Handlers {
	return &Handlers{
		views:      views,
		bridge:     br,
		gate:       g,
		services:   services,
		presets:    presets,
		workspaces: workspaces,
		hm:         hm,
		version:    version,
		startTime:  time.Now(),
	}
}

// fail maps a domain error onto its HTTP status. Disposal and absence are
// distinct conditions with distinct statuses.
func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, view.ErrDisposed):
		status = http.StatusGone
	case errors.Is(err, view.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, view.ErrLimit):
		status = http.StatusInsufficientStorage
	case errors.Is(err, gate.ErrDenied):
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "PaneHost",
		"version": h.version,
	})
}

// Health handles detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"uptime":     time.Since(h.startTime).String(),
		"views":      h.views.Stats(),
		"bridge":     h.bridge.Stats(),
		"presets":    h.presets.Stats(),
		"workspaces": h.workspaces.Stats(),
	})
}

// CreateView creates a new view instance.
func (h *Handlers) CreateView(c *gin.Context) {
	if h.hm != nil {
		defer h.hm.TrackViewOperation("create")()
	}
	var req types.CreateViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.views.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"view": v})
}

// ListViews lists live views, optionally filtered by state.
func (h *Handlers) ListViews(c *gin.Context) {
	var filter *types.State
	if raw := c.Query("state"); raw != "" {
		state := types.State(raw)
		if !state.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown state filter"})
			return
		}
		filter = &state
	}

	c.JSON(http.StatusOK, gin.H{
		"views": h.views.List(filter),
		"stats": h.views.Stats(),
	})
}

// GetView retrieves a single view.
func (h *Handlers) GetView(c *gin.Context) {
	viewID := c.Param("id")
	if err := utils.ValidateID(viewID, "view_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, ok := h.views.Get(viewID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": v})
}

// SetContent replaces a view's document in full.
func (h *Handlers) SetContent(c *gin.Context) {
	if h.hm != nil {
		defer h.hm.TrackViewOperation("set_content")()
	}
	viewID := c.Param("id")
	var req types.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateContent(req.HTML); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.views.SetContent(c.Request.Context(), viewID, req.HTML); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view_id": viewID})
}

// SetTitle updates a view's display title.
func (h *Handlers) SetTitle(c *gin.Context) {
	if h.hm != nil {
		defer h.hm.TrackViewOperation("set_title")()
	}
	viewID := c.Param("id")
	var req types.TitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.views.SetTitle(viewID, req.Title); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view_id": viewID})
}

// Reveal brings a view to the foreground.
func (h *Handlers) Reveal(c *gin.Context) {
	if h.hm != nil {
		defer h.hm.TrackViewOperation("reveal")()
	}
	viewID := c.Param("id")
	var req types.RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.views.Reveal(c.Request.Context(), viewID, req.Column); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view_id": viewID})
}

// PostMessage queues a host-to-view message.
func (h *Handlers) PostMessage(c *gin.Context) {
	if h.hm != nil {
		defer h.hm.TrackBridgeOperation("post")()
	}
	viewID := c.Param("id")
	var req types.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, ok := req.Payload.(map[string]interface{})
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload must be a JSON object"})
		return
	}

	// The bridge accepts posts to disposed views silently, but the embedder
	// API reports disposal explicitly.
	if _, live := h.views.Get(viewID); !live {
		h.fail(c, h.liveError(viewID))
		return
	}

	if err := h.bridge.Post(c.Request.Context(), viewID, payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"view_id": viewID})
}

// Inspect reports a view document's security posture: restriction policy,
// resource references by origin, inline script count, and audit warnings.
func (h *Handlers) Inspect(c *gin.Context) {
	viewID := c.Param("id")
	v, ok := h.views.Get(viewID)
	if !ok {
		h.fail(c, h.liveError(viewID))
		return
	}
	if v.HTML == "" {
		c.JSON(http.StatusOK, gin.H{"view_id": viewID, "empty": true})
		return
	}

	summary, err := content.Inspect(v.HTML)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := content.Audit(v.HTML, summary.HasPolicy, len(v.Options.ResourceRoots) > 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"view_id": viewID,
		"summary": summary,
		"audit":   report,
	})
}

// DisposeView irreversibly frees a view.
func (h *Handlers) DisposeView(c *gin.Context) {
	if h.hm != nil {
		defer h.hm.TrackViewOperation("dispose")()
	}
	viewID := c.Param("id")
	if err := h.views.Dispose(c.Request.Context(), viewID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view_id": viewID})
}

// Asset serves a gate-approved local file to a view's renderer.
func (h *Handlers) Asset(c *gin.Context) {
	viewID := c.Param("id")
	resource := filepath.Clean("/" + c.Param("filepath"))

	if err := h.gate.Check(viewID, resource); err != nil {
		h.fail(c, err)
		return
	}

	info, err := os.Stat(resource)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		return
	}

	mtype, err := mimetype.DetectFile(resource)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resource unreadable"})
		return
	}
	c.Header("Content-Type", mtype.String())
	c.File(resource)
}

// ListPresets lists available presets, optionally filtered by tag.
func (h *Handlers) ListPresets(c *gin.Context) {
	var tag *string
	if raw := c.Query("tag"); raw != "" {
		tag = &raw
	}
	c.JSON(http.StatusOK, gin.H{
		"presets": h.presets.ListMetadata(tag),
		"stats":   h.presets.Stats(),
	})
}

// LaunchPreset instantiates a preset as a live view.
func (h *Handlers) LaunchPreset(c *gin.Context) {
	if h.hm != nil {
		defer h.hm.TrackPresetOperation("launch")()
	}
	presetID := c.Param("id")
	if err := utils.ValidateID(presetID, "preset_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.presets.Launch(c.Request.Context(), presetID, h.views)
	if err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"view": v, "preset_id": presetID})
}

// SaveWorkspace snapshots the current set of live views.
func (h *Handlers) SaveWorkspace(c *gin.Context) {
	if h.hm != nil {
		defer h.hm.TrackWorkspaceOperation("save")()
	}
	var req types.SaveWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := h.workspaces.Save(c.Request.Context(), req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"workspace": ws.ToMetadata()})
}

// ListWorkspaces lists snapshot metadata.
func (h *Handlers) ListWorkspaces(c *gin.Context) {
	list, err := h.workspaces.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": list})
}

// GetWorkspace fetches a full snapshot.
func (h *Handlers) GetWorkspace(c *gin.Context) {
	wsID := c.Param("id")
	if err := utils.ValidateID(wsID, "workspace_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := h.workspaces.Get(wsID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "workspace not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace": ws})
}

// RestoreWorkspace replaces the live views with a snapshot's.
func (h *Handlers) RestoreWorkspace(c *gin.Context) {
	if h.hm != nil {
		defer h.hm.TrackWorkspaceOperation("restore")()
	}
	wsID := c.Param("id")
	if err := h.workspaces.Restore(c.Request.Context(), wsID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace_id": wsID})
}

// DeleteWorkspace removes a snapshot.
func (h *Handlers) DeleteWorkspace(c *gin.Context) {
	wsID := c.Param("id")
	if err := utils.ValidateID(wsID, "workspace_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.workspaces.Delete(wsID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace_id": wsID})
}

// liveError distinguishes a disposed view from an unknown one for endpoints
// that look views up directly.
func (h *Handlers) liveError(viewID string) error {
	if err := h.views.Liveness(viewID); err != nil {
		return err
	}
	return view.ErrNotFound
}
