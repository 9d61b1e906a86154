// Package workspace persists and restores snapshots of the full view set.
//
// A snapshot records every live view's document, options, column placement,
// visibility, and exported state, keyed by each view's content hash so views
// survive the id churn of a restore. Snapshots are sonic-encoded JSON
// compressed with zstd; gzip files from older hosts are still readable.
package workspace
