// Package bridge routes messages between the host and its sandboxed views.
//
// Each open view owns two bounded FIFO queues, one per direction, each
// drained by a dedicated dispatch goroutine. That single-consumer layout is
// the entire ordering story: messages reach handlers exactly in the order
// their senders posted them, with no sequencing burden on consumers.
//
// Delivery semantics:
//   - At-most-once. No acknowledgments, no retries.
//   - Posting to a disposed view drops silently with a nil error; the sender
//     cannot observe receiver lifetime through the bridge.
//   - Full queues drop best-effort and count the drop.
//   - Disposal cancels everything still queued in both directions and
//     unregisters all handlers; no callback fires afterwards.
//
// Payloads must round-trip through JSON (sonic) and respect the message size
// cap. View-to-host traffic is untrusted and additionally depth-checked
// before any subscriber sees it.
//
// Example Usage:
//
//	b := bridge.New(bridge.DefaultConfig(), logger).WithMetrics(metrics)
//	b.Open(view.ID)
//
//	sub, err := b.Subscribe(view.ID, func(msg types.Message) {
//		// view -> host traffic
//	})
//	defer sub.Cancel()
//
//	err = b.Post(ctx, view.ID, map[string]interface{}{"kind": "refresh"})
//
//	b.Close(view.ID) // at dispose
package bridge
