package content

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Sanitizer holds reusable sanitization policies. Policies are safe for
// concurrent use once built.
type Sanitizer struct {
	strict *bluemonday.Policy
	ugc    *bluemonday.Policy
}

// NewSanitizer creates a sanitizer with strict and UGC policies.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		strict: bluemonday.StrictPolicy(),
		ugc:    bluemonday.UGCPolicy(),
	}
}

// Text strips all markup from untrusted strings such as titles and preset
// descriptions.
func (s *Sanitizer) Text(value string) string {
	return strings.TrimSpace(s.strict.Sanitize(value))
}

// Fragment sanitizes an HTML fragment down to user-generated-content rules.
// Used for externally fetched snippets, not for view documents.
func (s *Sanitizer) Fragment(fragment string) string {
	return s.ugc.Sanitize(fragment)
}

// StripScripts removes script elements, inline event handlers, and
// javascript: URLs from a document while preserving its structure. Applied
// to documents of views created without script execution.
func StripScripts(doc string) (string, error) {
	root, err := Parse(doc)
	if err != nil {
		return "", err
	}

	// A clean document passes through untouched. Re-rendering normalizes
	// markup, and content replacement promises the assigned string verbatim.
	if !stripNode(root) {
		return doc, nil
	}

	return Render(root)
}

func stripNode(n *html.Node) bool {
	changed := false

	// Collect first; removing while iterating breaks sibling links
	var scripts []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "script" {
			scripts = append(scripts, c)
		}
	}
	for _, s := range scripts {
		n.RemoveChild(s)
		changed = true
	}

	if n.Type == html.ElementNode {
		cleaned, dirty := cleanAttrs(n.Attr)
		if dirty {
			n.Attr = cleaned
			changed = true
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if stripNode(c) {
			changed = true
		}
	}

	return changed
}

func cleanAttrs(attrs []html.Attribute) ([]html.Attribute, bool) {
	kept := attrs[:0]
	dirty := false
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			dirty = true
			continue
		}
		if (key == "href" || key == "src") &&
			strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
			dirty = true
			continue
		}
		kept = append(kept, a)
	}
	return kept, dirty
}
