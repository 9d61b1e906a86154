package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/panekit/panekit/internal/shared/utils"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

var (
	// ErrFragment is returned when a document replacement carries an HTML
	// fragment instead of a complete document.
	ErrFragment = errors.New("content is not a complete html document")

	// ErrEncoding is returned when content cannot be decoded to UTF-8.
	ErrEncoding = errors.New("content is not valid utf-8")
)

// Validate checks a replacement document: size, encoding, and the
// complete-document requirement. Fragments are rejected, never patched in.
func Validate(doc string) error {
	if err := utils.ValidateContent(doc); err != nil {
		return err
	}

	if !utf8.ValidString(doc) {
		return ErrEncoding
	}

	if !IsDocument(doc) {
		return ErrFragment
	}

	return nil
}

// IsDocument reports whether the string is shaped like a complete HTML
// document. Leading whitespace and comments are skipped; the first markup
// must be a doctype or an <html> tag.
func IsDocument(doc string) bool {
	rest := strings.TrimSpace(doc)

	for strings.HasPrefix(rest, "<!--") {
		end := strings.Index(rest, "-->")
		if end < 0 {
			return false
		}
		rest = strings.TrimSpace(rest[end+3:])
	}

	lower := strings.ToLower(rest)
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}

// Decode converts raw document bytes to UTF-8 using charset detection, for
// embedders that hand over fetched bytes rather than strings.
func Decode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty content")
	}

	detected := DetectCharset(data)

	reader, err := charset.NewReader(bytes.NewReader(data), detected)
	if err != nil {
		// Fallback: accept as-is when already valid UTF-8
		if utf8.Valid(data) {
			return string(data), nil
		}
		return "", fmt.Errorf("%w: %s", ErrEncoding, detected)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("charset conversion failed: %w", err)
	}

	return buf.String(), nil
}

// DetectCharset detects and returns charset from document bytes
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// Parse loads a document into a node tree for inspection.
func Parse(doc string) (*html.Node, error) {
	node, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	return node, nil
}

// Render serializes a node tree back to a document string.
func Render(node *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return "", fmt.Errorf("render failed: %w", err)
	}
	return buf.String(), nil
}
