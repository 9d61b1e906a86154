package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/shared/types"
)

const (
	// writeQueueSize bounds the per-connection outbound buffer. A reader
	// that falls this far behind starts losing frames.
	writeQueueSize = 64

	maxFrameBytes = 64 * 1024

	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// client is one websocket connection, embedder or renderer. Writes go
// through a buffered queue drained by a single goroutine; enqueueing never
// blocks, slow readers drop frames.
type client struct {
	id      string
	role    string
	viewID  string
	conn    *websocket.Conn
	out     chan types.WSFrame
	limiter *rate.Limiter
	logger  *logging.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(id, role, viewID string, conn *websocket.Conn, limiter *rate.Limiter, logger *logging.Logger) *client {
	return &client{
		id:      id,
		role:    role,
		viewID:  viewID,
		conn:    conn,
		out:     make(chan types.WSFrame, writeQueueSize),
		limiter: limiter,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// enqueue queues a frame for delivery. Returns false when the frame was
// dropped because the connection is gone or its queue is full.
func (c *client) enqueue(frame types.WSFrame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- frame:
		return true
	default:
		c.logger.Debug("Frame dropped, write queue full",
			zap.String("client_id", c.id),
			zap.String("frame_type", frame.Type))
		return false
	}
}

// writeLoop drains the outbound queue onto the wire. It owns all writes to
// the connection, including pings.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// close marks the connection dead and releases the write loop. Idempotent.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *client) sendError(msg string) {
	c.enqueue(types.WSFrame{Type: "error", Error: msg})
}
