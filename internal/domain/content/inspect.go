package content

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/panekit/panekit/internal/domain/gate"
	"golang.org/x/net/html"
)

// Summary describes a document without exposing its node tree.
type Summary struct {
	Title           string   `json:"title"`
	Bytes           int      `json:"bytes"`
	InlineScripts   int      `json:"inline_scripts"`
	ExternalScripts int      `json:"external_scripts"`
	HasPolicy       bool     `json:"has_policy"`
	Policy          string   `json:"policy,omitempty"`
	ResourceRefs    []string `json:"resource_refs,omitempty"`
}

// Script is an inline script block lifted from a document.
type Script struct {
	Source string
	Line   int
}

// Inspect parses a document and reports its title, script usage, restriction
// policy, and gated resource references. A missing policy is not an error;
// callers surface it as a warning.
func Inspect(doc string) (*Summary, error) {
	root, err := htmlquery.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}

	s := &Summary{Bytes: len(doc)}

	if title, err := htmlquery.Query(root, "//title"); err == nil && title != nil {
		s.Title = strings.TrimSpace(htmlquery.InnerText(title))
	}

	scripts, err := htmlquery.QueryAll(root, "//script")
	if err == nil {
		for _, node := range scripts {
			if htmlquery.SelectAttr(node, "src") != "" {
				s.ExternalScripts++
			} else {
				s.InlineScripts++
			}
		}
	}

	s.Policy, s.HasPolicy = policyOf(root)
	s.ResourceRefs = resourceRefs(root)

	return s, nil
}

// ExtractScripts returns the inline script bodies of a document in order.
// External scripts are never fetched or executed.
func ExtractScripts(doc string) ([]Script, error) {
	root, err := htmlquery.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}

	nodes, err := htmlquery.QueryAll(root, "//script[not(@src)]")
	if err != nil {
		return nil, err
	}

	scripts := make([]Script, 0, len(nodes))
	for i, node := range nodes {
		body := htmlquery.InnerText(node)
		if strings.TrimSpace(body) == "" {
			continue
		}
		scripts = append(scripts, Script{Source: body, Line: i})
	}

	return scripts, nil
}

// policyOf finds the content restriction policy meta tag.
func policyOf(root *html.Node) (string, bool) {
	metas, err := htmlquery.QueryAll(root, "//meta[@http-equiv]")
	if err != nil {
		return "", false
	}

	for _, node := range metas {
		if strings.EqualFold(htmlquery.SelectAttr(node, "http-equiv"), "Content-Security-Policy") {
			return htmlquery.SelectAttr(node, "content"), true
		}
	}
	return "", false
}

// resourceRefs collects view-resource URIs referenced by the document.
func resourceRefs(root *html.Node) []string {
	var refs []string
	seen := make(map[string]bool)

	collect := func(nodes []*html.Node, attr string) {
		for _, node := range nodes {
			val := htmlquery.SelectAttr(node, attr)
			if strings.HasPrefix(val, gate.Scheme+"://") && !seen[val] {
				seen[val] = true
				refs = append(refs, val)
			}
		}
	}

	if nodes, err := htmlquery.QueryAll(root, "//*[@src]"); err == nil {
		collect(nodes, "src")
	}
	if nodes, err := htmlquery.QueryAll(root, "//*[@href]"); err == nil {
		collect(nodes, "href")
	}

	return refs
}
