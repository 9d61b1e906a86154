package bridge

import (
	"errors"
	"sync"

	"github.com/panekit/panekit/internal/shared/id"
)

// Subscription is the handle returned by Subscribe and Watch. The holder owns
// cancellation; disposal of the view cancels it implicitly.
type Subscription struct {
	id     string
	once   sync.Once
	cancel func()
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Cancel unregisters the handler. Idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Subscribe registers a host-side handler for messages the view sends. The
// handler runs on the view's dispatch goroutine, once per message, in the
// view's send order.
func (b *Bridge) Subscribe(viewID string, handler Handler) (*Subscription, error) {
	return b.register(viewID, handler, (*channel).addSubscriber)
}

// Watch registers a consumer for host-to-view traffic. The script runtime
// and renderer connections attach here to observe posted messages.
func (b *Bridge) Watch(viewID string, handler Handler) (*Subscription, error) {
	return b.register(viewID, handler, (*channel).addWatcher)
}

func (b *Bridge) register(viewID string, handler Handler, add func(*channel, string, Handler)) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrClosed
	}
	c, ok := b.channels[viewID]
	b.mu.RUnlock()

	if !ok {
		return nil, ErrNoChannel
	}

	subID := id.NewSubscriptionID().String()
	add(c, subID, handler)
	b.updateSubscriberGauge()

	return &Subscription{
		id: subID,
		cancel: func() {
			c.remove(subID)
			b.updateSubscriberGauge()
		},
	}, nil
}
