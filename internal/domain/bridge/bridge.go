package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/infrastructure/monitoring"
	"github.com/panekit/panekit/internal/shared/id"
	"github.com/panekit/panekit/internal/shared/types"
	"github.com/panekit/panekit/internal/shared/utils"
)

var (
	// ErrClosed indicates the bridge has shut down.
	ErrClosed = errors.New("bridge is closed")

	// ErrNoChannel indicates no live channel exists for the view.
	ErrNoChannel = errors.New("no channel for view")

	// ErrInvalidPayload indicates a payload that fails codec validation.
	ErrInvalidPayload = errors.New("invalid message payload")
)

// Config bounds per-view queues and the latency sample window.
type Config struct {
	QueueSize      int
	LatencySamples int
}

// DefaultConfig returns bridge defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:      256,
		LatencySamples: 1024,
	}
}

// Handler consumes one bridge message. Handlers run on the owning view's
// dispatch goroutine, one message at a time, in queue order.
type Handler func(msg types.Message)

// Bridge routes messages between the host and its views. Each open view has
// two FIFO queues (one per direction) drained by dedicated goroutines, so
// delivery order always matches post order per sender. Delivery is
// at-most-once: full queues and disposed views drop, nothing retries.
type Bridge struct {
	config  Config
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu       sync.RWMutex
	channels map[string]*channel
	closed   bool

	posted    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	rejected  atomic.Uint64
	latency   *latencyBuffer
}

// New creates a message bridge.
func New(config Config, logger *logging.Logger) *Bridge {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.LatencySamples <= 0 {
		config.LatencySamples = DefaultConfig().LatencySamples
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bridge{
		config:   config,
		logger:   logger.Named("bridge"),
		channels: make(map[string]*channel),
		latency:  newLatencyBuffer(config.LatencySamples),
	}
}

// WithMetrics attaches metrics collection.
func (b *Bridge) WithMetrics(m *monitoring.Metrics) *Bridge {
	b.metrics = m
	return b
}

// Open creates the message channel for a view. Opening an already open view
// is a no-op.
func (b *Bridge) Open(viewID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if _, exists := b.channels[viewID]; exists {
		return nil
	}

	c := newChannel(viewID, b.config.QueueSize)
	b.channels[viewID] = c
	c.start(b)

	b.logger.Debug("Channel opened", zap.String("view_id", viewID))
	return nil
}

// Close tears down a view's channel: pending deliveries in both directions
// are cancelled and every handler is unregistered. Safe to call for a view
// that was never opened.
func (b *Bridge) Close(viewID string) {
	b.mu.Lock()
	c, exists := b.channels[viewID]
	if exists {
		delete(b.channels, viewID)
	}
	b.mu.Unlock()

	if !exists {
		return
	}

	pendingOut, pendingIn := c.stop()
	b.dropped.Add(uint64(pendingOut + pendingIn))
	if b.metrics != nil {
		for i := 0; i < pendingOut; i++ {
			b.metrics.RecordMessageDropped(string(types.DirectionHostToView), "disposed")
		}
		for i := 0; i < pendingIn; i++ {
			b.metrics.RecordMessageDropped(string(types.DirectionViewToHost), "disposed")
		}
	}
	b.updateSubscriberGauge()

	b.logger.Debug("Channel closed",
		zap.String("view_id", viewID),
		zap.Int("cancelled", pendingOut+pendingIn))
}

// Post sends a host-to-view message. The payload must round-trip through
// JSON and fit the message size cap. Posting to a view that no longer has a
// channel drops silently: at-most-once delivery has no acknowledgment and a
// disposed receiver is not a sender error.
func (b *Bridge) Post(ctx context.Context, viewID string, payload map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := b.encode(payload)
	if err != nil {
		return err
	}

	c, ok := b.lookup(viewID)
	if !ok {
		b.drop(types.DirectionHostToView, "no_channel", viewID)
		return nil
	}

	msg := types.Message{
		ID:         id.NewMessageID().String(),
		ViewID:     viewID,
		Direction:  types.DirectionHostToView,
		Payload:    data,
		EnqueuedAt: time.Now(),
	}

	if !c.enqueueOut(msg) {
		b.drop(types.DirectionHostToView, "queue_full", viewID)
		return nil
	}

	b.posted.Add(1)
	if b.metrics != nil {
		b.metrics.RecordMessagePosted(string(types.DirectionHostToView))
	}
	return nil
}

// Send submits a view-to-host message. Payloads arrive from untrusted view
// scripts or renderer connections, so size, depth, and shape are validated
// before the message reaches any subscriber.
func (b *Bridge) Send(ctx context.Context, viewID string, payload map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := b.encode(payload)
	if err != nil {
		return err
	}
	if err := utils.ValidateMessagePayload(data); err != nil {
		b.rejected.Add(1)
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	c, ok := b.lookup(viewID)
	if !ok {
		b.drop(types.DirectionViewToHost, "no_channel", viewID)
		return nil
	}

	msg := types.Message{
		ID:         id.NewMessageID().String(),
		ViewID:     viewID,
		Direction:  types.DirectionViewToHost,
		Payload:    data,
		EnqueuedAt: time.Now(),
	}

	if !c.enqueueIn(msg) {
		b.drop(types.DirectionViewToHost, "queue_full", viewID)
		return nil
	}

	b.posted.Add(1)
	if b.metrics != nil {
		b.metrics.RecordMessagePosted(string(types.DirectionViewToHost))
	}
	return nil
}

// Shutdown closes every channel and rejects further opens.
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	channels := make([]*channel, 0, len(b.channels))
	for _, c := range b.channels {
		channels = append(channels, c)
	}
	b.channels = make(map[string]*channel)
	b.mu.Unlock()

	for _, c := range channels {
		pendingOut, pendingIn := c.stop()
		b.dropped.Add(uint64(pendingOut + pendingIn))
	}

	b.logger.Info("Bridge shut down", zap.Int("channels", len(channels)))
}

func (b *Bridge) encode(payload map[string]interface{}) ([]byte, error) {
	if payload == nil {
		b.rejected.Add(1)
		return nil, fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}

	data, err := sonic.Marshal(payload)
	if err != nil {
		b.rejected.Add(1)
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(data) > utils.MaxMessageSize {
		b.rejected.Add(1)
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrInvalidPayload, len(data), utils.MaxMessageSize)
	}
	return data, nil
}

func (b *Bridge) lookup(viewID string) (*channel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.channels[viewID]
	return c, ok
}

func (b *Bridge) drop(direction types.Direction, reason, viewID string) {
	b.dropped.Add(1)
	if b.metrics != nil {
		b.metrics.RecordMessageDropped(string(direction), reason)
	}
	b.logger.Debug("Message dropped",
		zap.String("view_id", viewID),
		zap.String("direction", string(direction)),
		zap.String("reason", reason))
}

func (b *Bridge) deliver(msg types.Message, entries []handlerEntry) {
	if len(entries) == 0 {
		b.drop(msg.Direction, "no_consumer", msg.ViewID)
		return
	}

	for _, e := range entries {
		b.invoke(e, msg)
	}

	latency := time.Since(msg.EnqueuedAt)
	b.delivered.Add(1)
	if msg.Direction == types.DirectionHostToView {
		b.latency.Record(float64(latency.Microseconds()) / 1000.0)
	}
	if b.metrics != nil {
		b.metrics.RecordMessageDelivered(string(msg.Direction), latency)
	}
}

// invoke shields the dispatch goroutine from a panicking handler.
func (b *Bridge) invoke(e handlerEntry, msg types.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panic",
				zap.String("view_id", msg.ViewID),
				zap.String("subscription_id", e.id),
				zap.Any("panic", r))
		}
	}()
	e.fn(msg)
}

func (b *Bridge) updateSubscriberGauge() {
	if b.metrics == nil {
		return
	}
	b.metrics.SetBridgeSubscribers(b.subscriberCount())
}

func (b *Bridge) subscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, c := range b.channels {
		total += c.subscriberCount()
	}
	return total
}
