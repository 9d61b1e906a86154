package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/panekit/panekit/internal/domain/content"
	"github.com/panekit/panekit/internal/shared/types"
	"github.com/panekit/panekit/internal/shared/utils"
)

// manifest is the on-disk preset schema. YAML and TOML carry the same
// fields; the file extension selects the codec.
type manifest struct {
	ID          string   `yaml:"id" toml:"id"`
	Name        string   `yaml:"name" toml:"name"`
	Description string   `yaml:"description,omitempty" toml:"description,omitempty"`
	Title       string   `yaml:"title,omitempty" toml:"title,omitempty"`
	Column      int      `yaml:"column,omitempty" toml:"column,omitempty"`
	Tags        []string `yaml:"tags,omitempty" toml:"tags,omitempty"`
	Author      string   `yaml:"author,omitempty" toml:"author,omitempty"`
	Version     string   `yaml:"version,omitempty" toml:"version,omitempty"`
	Options     struct {
		EnableScripts    bool     `yaml:"enable_scripts" toml:"enable_scripts"`
		RetainWhenHidden bool     `yaml:"retain_when_hidden" toml:"retain_when_hidden"`
		ResourceRoots    []string `yaml:"resource_roots,omitempty" toml:"resource_roots,omitempty"`
		DenyPatterns     []string `yaml:"deny_patterns,omitempty" toml:"deny_patterns,omitempty"`
	} `yaml:"options" toml:"options"`
	HTML     string `yaml:"html,omitempty" toml:"html,omitempty"`
	HTMLFile string `yaml:"html_file,omitempty" toml:"html_file,omitempty"`
}

// ParseManifest decodes a preset manifest. The document may be inline
// (html) or in a sibling file (html_file, resolved relative to the
// manifest); either way it must be a complete HTML document.
func ParseManifest(path string, data []byte) (*types.Preset, error) {
	var m manifest

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse yaml manifest: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse toml manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest extension: %s", filepath.Ext(path))
	}

	if err := utils.ValidateID(m.ID, "preset id", true); err != nil {
		return nil, err
	}
	if err := utils.ValidateName(m.Name, "preset name"); err != nil {
		return nil, err
	}
	if err := utils.ValidateTags(m.Tags); err != nil {
		return nil, err
	}

	html := m.HTML
	if html == "" && m.HTMLFile != "" {
		if filepath.IsAbs(m.HTMLFile) || strings.Contains(m.HTMLFile, "..") {
			return nil, fmt.Errorf("html_file must be a plain sibling filename")
		}
		data, err := os.ReadFile(filepath.Join(filepath.Dir(path), m.HTMLFile))
		if err != nil {
			return nil, fmt.Errorf("read document file: %w", err)
		}
		html, err = content.Decode(data)
		if err != nil {
			return nil, err
		}
	}
	if html == "" {
		return nil, fmt.Errorf("preset %s carries no document", m.ID)
	}
	if err := content.Validate(html); err != nil {
		return nil, fmt.Errorf("preset %s: %w", m.ID, err)
	}

	title := m.Title
	if title == "" {
		title = m.Name
	}

	now := time.Now()
	p := &types.Preset{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Title:       title,
		HTML:        html,
		Column:      types.Column(m.Column),
		Tags:        m.Tags,
		Author:      m.Author,
		Version:     m.Version,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.Options = types.Options{
		EnableScripts:    m.Options.EnableScripts,
		RetainWhenHidden: m.Options.RetainWhenHidden,
		ResourceRoots:    m.Options.ResourceRoots,
		DenyPatterns:     m.Options.DenyPatterns,
	}

	if p.Column != 0 && !p.Column.Valid() {
		return nil, fmt.Errorf("preset %s: invalid column %d", m.ID, p.Column)
	}

	return p, nil
}

// EncodeManifest renders a preset back to YAML for persistence.
func EncodeManifest(p *types.Preset) ([]byte, error) {
	var m manifest
	m.ID = p.ID
	m.Name = p.Name
	m.Description = p.Description
	m.Title = p.Title
	m.Column = int(p.Column)
	m.Tags = p.Tags
	m.Author = p.Author
	m.Version = p.Version
	m.Options.EnableScripts = p.Options.EnableScripts
	m.Options.RetainWhenHidden = p.Options.RetainWhenHidden
	m.Options.ResourceRoots = p.Options.ResourceRoots
	m.Options.DenyPatterns = p.Options.DenyPatterns
	m.HTML = p.HTML

	return yaml.Marshal(&m)
}
