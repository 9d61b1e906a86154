package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/panekit/panekit/internal/domain/bridge"
	"github.com/panekit/panekit/internal/domain/view"
	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/infrastructure/monitoring"
	"github.com/panekit/panekit/internal/shared/id"
	"github.com/panekit/panekit/internal/shared/types"
)

const (
	// RoleEmbedder streams registry-wide events and posts host-to-view
	// messages.
	RoleEmbedder = "embedder"
	// RoleRenderer attaches to a single view for content, messages, and
	// UI-driven visibility.
	RoleRenderer = "renderer"

	pongWait = 60 * time.Second

	handshakeWait = 10 * time.Second
)

var errUnknownRole = errors.New("first frame must name a role")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by the CORS middleware on the
	// upgrade request itself.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades and serves the /stream endpoint for both roles.
type Handler struct {
	views   *view.Manager
	bridge  *bridge.Bridge
	logger  *logging.Logger
	metrics *monitoring.Metrics

	frameRate  rate.Limit
	frameBurst int
}

// NewHandler creates a websocket handler over the view registry and bridge.
func NewHandler(views *view.Manager, br *bridge.Bridge, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		views:      views,
		bridge:     br,
		logger:     logger.Named("ws"),
		frameRate:  rate.Limit(100),
		frameBurst: 200,
	}
}

// WithMetrics adds metrics tracking to the handler.
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// WithRateLimit overrides the per-connection inbound frame budget.
func (h *Handler) WithRateLimit(perSecond float64, burst int) *Handler {
	if perSecond > 0 {
		h.frameRate = rate.Limit(perSecond)
	}
	if burst > 0 {
		h.frameBurst = burst
	}
	return h
}

// HandleConnection upgrades the request and serves it until the peer goes
// away. Role comes from the query string or, failing that, the first frame.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Upgrade failed", zap.Error(err))
		return
	}

	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	role := c.Query("role")
	viewID := c.Query("view")
	if role == "" {
		role, viewID, err = h.handshake(conn)
		if err != nil {
			conn.WriteJSON(types.WSFrame{Type: "error", Error: err.Error()})
			conn.Close()
			return
		}
	}

	client := newClient(id.NewClientID().String(), role, viewID, conn,
		rate.NewLimiter(h.frameRate, h.frameBurst), h.logger)

	switch role {
	case RoleEmbedder:
		h.serveEmbedder(client)
	case RoleRenderer:
		if _, ok := h.views.Get(viewID); !ok {
			conn.WriteJSON(types.WSFrame{Type: "error", Error: "unknown view"})
			conn.Close()
			return
		}
		h.serveRenderer(client)
	default:
		conn.WriteJSON(types.WSFrame{Type: "error", Error: "unknown role"})
		conn.Close()
	}
}

// handshake reads one frame to learn the connection's role. The frame type
// names the role; a renderer also names its view.
func (h *Handler) handshake(conn *websocket.Conn) (role, viewID string, err error) {
	conn.SetReadDeadline(time.Now().Add(handshakeWait))
	defer conn.SetReadDeadline(time.Now().Add(pongWait))

	var frame types.WSFrame
	if err := conn.ReadJSON(&frame); err != nil {
		return "", "", err
	}
	switch frame.Type {
	case RoleEmbedder, RoleRenderer:
		return frame.Type, frame.ViewID, nil
	default:
		return "", "", errUnknownRole
	}
}

// serveEmbedder streams registry events and inbound view traffic, and
// accepts host-to-view posts.
func (h *Handler) serveEmbedder(c *client) {
	h.trackOpen(c)
	defer h.trackClose(c)

	var mu sync.Mutex
	inbound := make(map[string]*bridge.Subscription)

	attach := func(viewID string) {
		sub, err := h.bridge.Subscribe(viewID, func(msg types.Message) {
			h.push(c, types.WSFrame{
				Type:    "view.message",
				ViewID:  msg.ViewID,
				Payload: decodePayload(msg.Payload),
			})
		})
		if err != nil {
			return
		}
		mu.Lock()
		inbound[viewID] = sub
		mu.Unlock()
	}

	for _, v := range h.views.List(nil) {
		attach(v.ID)
	}

	eventsSub := h.views.Events(func(ev view.Event) {
		switch ev.Kind {
		case view.EventCreated:
			attach(ev.View.ID)
		case view.EventDisposed:
			mu.Lock()
			if sub, ok := inbound[ev.View.ID]; ok {
				sub.Cancel()
				delete(inbound, ev.View.ID)
			}
			mu.Unlock()
		}
		h.push(c, embedderFrame(ev))
	})

	go c.writeLoop()
	h.readLoop(c, h.embedderFrameIn)

	eventsSub.Cancel()
	mu.Lock()
	for _, sub := range inbound {
		sub.Cancel()
	}
	mu.Unlock()
	c.close()
}

// serveRenderer attaches a single view's streams: host-to-view messages,
// content and title changes, visibility, and disposal.
func (h *Handler) serveRenderer(c *client) {
	h.trackOpen(c)
	defer h.trackClose(c)

	watchSub, err := h.bridge.Watch(c.viewID, func(msg types.Message) {
		h.push(c, types.WSFrame{
			Type:    "message",
			ViewID:  msg.ViewID,
			Payload: decodePayload(msg.Payload),
		})
	})
	if err != nil {
		c.sendError("view channel unavailable")
		c.conn.Close()
		return
	}

	eventsSub := h.views.Events(func(ev view.Event) {
		if ev.View.ID != c.viewID {
			return
		}
		switch ev.Kind {
		case view.EventContent:
			h.push(c, types.WSFrame{
				Type:    "content",
				ViewID:  ev.View.ID,
				Payload: map[string]interface{}{"html": ev.View.HTML},
			})
		case view.EventTitle:
			h.push(c, types.WSFrame{
				Type:    "title",
				ViewID:  ev.View.ID,
				Payload: map[string]interface{}{"title": ev.View.Title},
			})
		case view.EventVisibility:
			h.push(c, visibilityFrame(ev.View))
		case view.EventDisposed:
			h.push(c, types.WSFrame{Type: "disposed", ViewID: ev.View.ID})
			c.close()
		}
	})

	go c.writeLoop()
	h.readLoop(c, h.rendererFrameIn)

	eventsSub.Cancel()
	watchSub.Cancel()
	c.close()
}

// readLoop pumps inbound frames through the per-connection rate limiter into
// the role's dispatch function.
func (h *Handler) readLoop(c *client, dispatch func(*client, types.WSFrame)) {
	for {
		var frame types.WSFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Read failed",
					zap.String("client_id", c.id),
					zap.Error(err))
			}
			return
		}
		if !c.limiter.Allow() {
			c.sendError("rate limited")
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", frame.Type)
		}
		dispatch(c, frame)
	}
}

func (h *Handler) embedderFrameIn(c *client, frame types.WSFrame) {
	switch frame.Type {
	case "post":
		if frame.ViewID == "" || frame.Payload == nil {
			c.sendError("post requires view_id and payload")
			return
		}
		if err := h.bridge.Post(context.Background(), frame.ViewID, frame.Payload); err != nil {
			c.sendError(err.Error())
		}
	case "ping":
		h.push(c, types.WSFrame{Type: "pong"})
	default:
		c.sendError("unknown frame type")
	}
}

func (h *Handler) rendererFrameIn(c *client, frame types.WSFrame) {
	switch frame.Type {
	case "message":
		if frame.Payload == nil {
			c.sendError("message requires payload")
			return
		}
		if err := h.bridge.Send(context.Background(), c.viewID, frame.Payload); err != nil {
			c.sendError(err.Error())
		}
	case "visibility":
		if frame.Visible == nil {
			c.sendError("visibility requires visible")
			return
		}
		if err := h.views.SetVisibility(c.viewID, *frame.Visible, frame.Column); err != nil {
			c.sendError(err.Error())
		}
	case "ready":
		v, ok := h.views.Get(c.viewID)
		if !ok {
			h.push(c, types.WSFrame{Type: "disposed", ViewID: c.viewID})
			c.close()
			return
		}
		h.push(c, types.WSFrame{
			Type:    "content",
			ViewID:  v.ID,
			Payload: map[string]interface{}{"html": v.HTML},
		})
		h.push(c, types.WSFrame{
			Type:    "title",
			ViewID:  v.ID,
			Payload: map[string]interface{}{"title": v.Title},
		})
		h.push(c, visibilityFrame(*v))
	case "ping":
		h.push(c, types.WSFrame{Type: "pong"})
	default:
		c.sendError("unknown frame type")
	}
}

func (h *Handler) push(c *client, frame types.WSFrame) {
	if c.enqueue(frame) && h.metrics != nil {
		h.metrics.RecordWSMessage("out", frame.Type)
	}
}

func (h *Handler) trackOpen(c *client) {
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.logger.Info("Client connected",
		zap.String("client_id", c.id),
		zap.String("role", c.role),
		zap.String("view_id", c.viewID))
}

func (h *Handler) trackClose(c *client) {
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	h.logger.Info("Client disconnected",
		zap.String("client_id", c.id),
		zap.String("role", c.role))
}

// embedderFrame maps a registry event to its embedder stream frame.
func embedderFrame(ev view.Event) types.WSFrame {
	switch ev.Kind {
	case view.EventVisibility:
		frame := visibilityFrame(ev.View)
		frame.Type = "view.visibility"
		return frame
	default:
		return types.WSFrame{
			Type:   "view." + string(ev.Kind),
			ViewID: ev.View.ID,
		}
	}
}

func visibilityFrame(v types.View) types.WSFrame {
	visible := v.State == types.StateVisible
	column := v.Column
	return types.WSFrame{
		Type:    "visibility",
		ViewID:  v.ID,
		Visible: &visible,
		Column:  &column,
	}
}

func decodePayload(raw []byte) map[string]interface{} {
	var payload map[string]interface{}
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}
