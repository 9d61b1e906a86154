package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/panekit/panekit/internal/domain/gate"
)

// Origin classes for document resource references.
const (
	OriginGated  = "view-resource"
	OriginHTTPS  = "https"
	OriginHTTP   = "http"
	OriginData   = "data"
	OriginLocal  = "local"
	OriginOther  = "other"
	OriginInline = "inline"
)

// Report is the security audit of one document.
type Report struct {
	Origins  map[string]int `json:"origins"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Audit classifies every src/href reference in a document by origin and
// flags weaker-security configurations. A missing restriction policy and
// cleartext http references are warnings, not errors: the document still
// renders, the host just records that it chose a weaker posture. hasRoots
// tells the audit whether the owning view can actually satisfy gated
// references.
func Audit(doc string, hasPolicy bool, hasRoots bool) (*Report, error) {
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}

	report := &Report{Origins: make(map[string]int)}

	classify := func(_ int, sel *goquery.Selection) {
		for _, attr := range []string{"src", "href"} {
			val, ok := sel.Attr(attr)
			if !ok || val == "" {
				continue
			}
			report.Origins[classifyOrigin(val)]++
		}
	}
	parsed.Find("[src]").Each(classify)
	parsed.Find("link[href]").Each(classify)

	if !hasPolicy {
		report.Warnings = append(report.Warnings, "document declares no content restriction policy")
	}
	if report.Origins[OriginHTTP] > 0 {
		report.Warnings = append(report.Warnings, "document references cleartext http resources")
	}
	if report.Origins[OriginLocal] > 0 {
		report.Warnings = append(report.Warnings, "document references local files outside the view-resource scheme; these will not load")
	}
	if report.Origins[OriginGated] > 0 && !hasRoots {
		report.Warnings = append(report.Warnings, "document references gated resources but the view has no resource roots")
	}

	return report, nil
}

func classifyOrigin(ref string) string {
	val := strings.TrimSpace(strings.ToLower(ref))
	switch {
	case strings.HasPrefix(val, gate.Scheme+"://"):
		return OriginGated
	case strings.HasPrefix(val, "https://"):
		return OriginHTTPS
	case strings.HasPrefix(val, "http://"):
		return OriginHTTP
	case strings.HasPrefix(val, "data:"):
		return OriginData
	case strings.HasPrefix(val, "file://"), strings.HasPrefix(val, "/"):
		return OriginLocal
	case strings.HasPrefix(val, "#"), strings.HasPrefix(val, "javascript:"):
		return OriginInline
	default:
		return OriginOther
	}
}
