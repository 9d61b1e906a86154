// Package state persists per-view state documents.
//
// View scripts manage a small JSON document through panehost.getState and
// panehost.setState. The document is keyed by the view's stable hash rather
// than its live id, so a view recreated from a workspace snapshot finds its
// state again.
//
// Lifetime:
//   - Survives content replacement (unlike runtime-accumulated script state)
//   - Survives hide/show regardless of the retention option
//   - Cleared when the view is disposed
//   - Embedded in workspace snapshots via Export/Import
//
// Documents are sonic-encoded JSON files under the storage root's state
// directory, written atomically through the scratch directory. Size and depth
// caps reject runaway documents before they touch disk.
//
// Example Usage:
//
//	store, err := state.New(layout, logger)
//	err = store.Set(view.Hash, map[string]interface{}{"count": 1})
//	doc := store.Get(view.Hash)
//	err = store.Clear(view.Hash)
package state
