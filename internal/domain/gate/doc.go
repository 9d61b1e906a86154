/*
Package gate enforces per-view local resource access.

# Overview

Each view is created with a fixed set of resource roots and optional deny
patterns. Documents reference local files through view-resource URIs; the
asset handler parses the URI, asks the gate for a decision, and serves the
file only on approval.

# Rules

  - No policy, or a policy with zero roots, denies every path.
  - Containment is lexical with separator boundaries: /ext/media admits
    /ext/media/logo.png but never /ext/media-other/logo.png.
  - Deny patterns (doublestar globs) override roots.
  - Policies are fixed at view creation and removed at disposal.

# Usage

	g := gate.New(logger).WithMetrics(metrics)
	g.Register(viewID, []string{"/ext/media"}, []string{"/ext/media/**.key"})

	if err := g.Check(viewID, "/ext/media/logo.png"); err != nil {
		// denied
	}

	uri, _ := gate.BuildURI(viewID, "/ext/media/logo.png")
	// view-resource://view_01.../ext/media/logo.png
*/
package gate
