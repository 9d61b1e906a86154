package bridge

import (
	"sync"

	"github.com/panekit/panekit/internal/shared/types"
)

type handlerEntry struct {
	id string
	fn Handler
}

// channel owns one view's queues. A single dispatch goroutine per direction
// drains its queue in FIFO order, which is what makes per-sender ordering
// hold without any sequencing on the consumer side.
type channel struct {
	viewID string

	out chan types.Message // host -> view
	in  chan types.Message // view -> host

	enqMu  sync.Mutex
	outSeq uint64
	inSeq  uint64

	subMu  sync.RWMutex
	toView []handlerEntry // watchers of host -> view traffic
	toHost []handlerEntry // subscribers to view -> host traffic

	done chan struct{}
	wg   sync.WaitGroup
}

func newChannel(viewID string, queueSize int) *channel {
	return &channel{
		viewID: viewID,
		out:    make(chan types.Message, queueSize),
		in:     make(chan types.Message, queueSize),
		done:   make(chan struct{}),
	}
}

func (c *channel) start(b *Bridge) {
	c.wg.Add(2)
	go c.dispatch(b, c.out, c.watchers)
	go c.dispatch(b, c.in, c.subscribers)
}

// stop cancels both dispatchers and reports how many queued messages never
// delivered, per direction. Handlers are cleared so no callback fires after
// disposal.
func (c *channel) stop() (pendingOut, pendingIn int) {
	close(c.done)
	c.wg.Wait()

	c.subMu.Lock()
	c.toView = nil
	c.toHost = nil
	c.subMu.Unlock()

	return len(c.out), len(c.in)
}

// enqueueOut appends to the host -> view queue. Reports false when the queue
// is full or the channel is stopping.
func (c *channel) enqueueOut(msg types.Message) bool {
	return c.enqueue(c.out, &c.outSeq, msg)
}

// enqueueIn appends to the view -> host queue.
func (c *channel) enqueueIn(msg types.Message) bool {
	return c.enqueue(c.in, &c.inSeq, msg)
}

// enqueue serializes sequence assignment with the queue append so sequence
// numbers always match queue order. The dispatcher is the only receiver, so
// under enqMu a non-full queue cannot fill before the send lands.
func (c *channel) enqueue(q chan types.Message, seq *uint64, msg types.Message) bool {
	c.enqMu.Lock()
	defer c.enqMu.Unlock()

	select {
	case <-c.done:
		return false
	default:
	}

	if len(q) == cap(q) {
		return false
	}

	*seq++
	msg.Seq = *seq
	q <- msg
	return true
}

func (c *channel) dispatch(b *Bridge, q chan types.Message, snapshot func() []handlerEntry) {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		default:
		}

		select {
		case <-c.done:
			return
		case msg := <-q:
			b.deliver(msg, snapshot())
		}
	}
}

func (c *channel) addWatcher(subID string, fn Handler) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.toView = append(c.toView, handlerEntry{id: subID, fn: fn})
}

func (c *channel) addSubscriber(subID string, fn Handler) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.toHost = append(c.toHost, handlerEntry{id: subID, fn: fn})
}

func (c *channel) remove(subID string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.toView = removeEntry(c.toView, subID)
	c.toHost = removeEntry(c.toHost, subID)
}

func (c *channel) watchers() []handlerEntry {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return append([]handlerEntry(nil), c.toView...)
}

func (c *channel) subscribers() []handlerEntry {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return append([]handlerEntry(nil), c.toHost...)
}

func (c *channel) subscriberCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.toHost)
}

func removeEntry(entries []handlerEntry, subID string) []handlerEntry {
	for i, e := range entries {
		if e.id == subID {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}
