package gate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

var (
	// ErrDenied is returned when a resource falls outside a view's allowed roots.
	ErrDenied = errors.New("resource access denied")

	// ErrBadRoot is returned when a policy root is not an absolute path.
	ErrBadRoot = errors.New("resource root must be an absolute path")
)

// Policy holds the immutable resource rules fixed at view creation.
type Policy struct {
	Roots []string // cleaned absolute directories views may read from
	Deny  []string // glob patterns that override roots
}

// Gate decides whether a view may load a local resource.
//
// Containment is lexical: a path is inside a root only when it equals the
// root or extends it at a separator boundary. /ext/media does not admit
// /ext/media-other/file. Symlinks are not resolved here; callers serving
// files must open with the resolved policy path.
type Gate struct {
	mu       sync.RWMutex
	policies map[string]Policy
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// New creates a gate with no registered views.
func New(logger *logging.Logger) *Gate {
	return &Gate{
		policies: make(map[string]Policy),
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking to the gate
func (g *Gate) WithMetrics(metrics *monitoring.Metrics) *Gate {
	g.metrics = metrics
	return g
}

// Register installs the policy for a view. Policies are write-once: the
// rules a view was created with stay in force until the view is removed.
func (g *Gate) Register(viewID string, roots []string, deny []string) error {
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("%w: %q", ErrBadRoot, root)
		}
		cleaned = append(cleaned, filepath.Clean(root))
	}

	for _, pattern := range deny {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid deny pattern %q", pattern)
		}
	}

	g.mu.Lock()
	g.policies[viewID] = Policy{
		Roots: cleaned,
		Deny:  append([]string(nil), deny...),
	}
	g.mu.Unlock()

	return nil
}

// Remove drops the policy for a disposed view.
func (g *Gate) Remove(viewID string) {
	g.mu.Lock()
	delete(g.policies, viewID)
	g.mu.Unlock()
}

// Policy returns a copy of the registered policy for a view.
func (g *Gate) Policy(viewID string) (Policy, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.policies[viewID]
	if !ok {
		return Policy{}, false
	}
	return Policy{
		Roots: append([]string(nil), p.Roots...),
		Deny:  append([]string(nil), p.Deny...),
	}, true
}

// Check decides whether the view may read the resource path. A view with no
// policy, or a policy with no roots, is denied everything.
func (g *Gate) Check(viewID, resource string) error {
	g.mu.RLock()
	policy, ok := g.policies[viewID]
	g.mu.RUnlock()

	if !ok {
		return g.deny(viewID, resource, "unregistered view")
	}

	if !filepath.IsAbs(resource) {
		return g.deny(viewID, resource, "relative path")
	}
	cleaned := filepath.Clean(resource)

	for _, pattern := range policy.Deny {
		if matched, err := doublestar.Match(pattern, cleaned); err == nil && matched {
			return g.deny(viewID, cleaned, "deny pattern")
		}
	}

	for _, root := range policy.Roots {
		if contains(root, cleaned) {
			if g.metrics != nil {
				g.metrics.RecordGateCheck(true)
			}
			return nil
		}
	}

	return g.deny(viewID, cleaned, "outside roots")
}

// Allowed reports whether the view may read the resource path.
func (g *Gate) Allowed(viewID, resource string) bool {
	return g.Check(viewID, resource) == nil
}

// deny records the decision and returns ErrDenied.
func (g *Gate) deny(viewID, resource, reason string) error {
	if g.metrics != nil {
		g.metrics.RecordGateCheck(false)
	}
	if g.logger != nil {
		g.logger.Debug("resource denied",
			zap.String("view_id", viewID),
			zap.String("resource", resource),
			zap.String("reason", reason),
		)
	}
	return fmt.Errorf("%w: %s", ErrDenied, reason)
}

// contains reports whether path sits at or below root, honoring separator
// boundaries so sibling directories with a shared prefix never match.
func contains(root, path string) bool {
	if path == root {
		return true
	}
	if root == string(filepath.Separator) {
		return strings.HasPrefix(path, root)
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
