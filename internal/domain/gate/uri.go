package gate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Scheme is the URI scheme views use to reference gated local resources.
// It is deliberately distinct from file: so documents cannot address the
// host filesystem directly.
const Scheme = "view-resource"

// ErrBadURI is returned when a resource URI cannot be parsed.
var ErrBadURI = errors.New("malformed resource URI")

// BuildURI renders a gated resource reference for embedding in documents:
//
//	view-resource://<view-id>/<absolute-path>
//
// The path keeps its leading slash after the authority segment.
func BuildURI(viewID, resource string) (string, error) {
	if viewID == "" {
		return "", fmt.Errorf("%w: empty view id", ErrBadURI)
	}
	if !filepath.IsAbs(resource) {
		return "", fmt.Errorf("%w: resource path must be absolute", ErrBadURI)
	}
	return Scheme + "://" + viewID + filepath.Clean(resource), nil
}

// ParseURI splits a resource URI into its view ID and absolute path. The
// authority is matched byte for byte; view IDs are case sensitive.
func ParseURI(uri string) (viewID, resource string, err error) {
	prefix := Scheme + "://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", fmt.Errorf("%w: expected %s scheme", ErrBadURI, Scheme)
	}

	rest := strings.TrimPrefix(uri, prefix)
	slash := strings.IndexByte(rest, '/')
	if slash <= 0 {
		return "", "", fmt.Errorf("%w: missing resource path", ErrBadURI)
	}

	viewID = rest[:slash]
	resource = filepath.Clean(rest[slash:])
	return viewID, resource, nil
}
