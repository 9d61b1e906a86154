package view

import (
	"sync"

	"github.com/panekit/panekit/internal/shared/types"
)

// Callback receives a snapshot of the view after a lifecycle event.
type Callback func(view types.View)

// Subscription is the handle for a lifecycle callback. Cancel is idempotent;
// disposal of the view cancels outstanding subscriptions implicitly, and no
// callback ever fires after disposal.
type Subscription struct {
	id     string
	once   sync.Once
	cancel func()
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Cancel unregisters the callback.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}
