package view

import "errors"

var (
	// ErrNotFound indicates an id that never belonged to a live view.
	ErrNotFound = errors.New("view not found")

	// ErrDisposed indicates an operation against a disposed view. Disposal
	// is terminal; the error is always surfaced, never recovered.
	ErrDisposed = errors.New("view is disposed")

	// ErrLimit indicates the registry is at its configured capacity.
	ErrLimit = errors.New("view limit reached")

	// ErrTransition indicates a lifecycle move the state machine forbids.
	ErrTransition = errors.New("illegal state transition")
)
