package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/shared/paths"
)

const yamlManifest = `id: notes
name: Notes
description: A scratchpad view
title: Notes
tags: [tools]
options:
  enable_scripts: true
  retain_when_hidden: true
html: |
  <!DOCTYPE html>
  <html><head><title>Notes</title></head><body><textarea></textarea></body></html>
`

const tomlManifest = `id = "notes"
name = "Notes"
description = "A scratchpad view"
title = "Notes"
tags = ["tools"]
html = """
<!DOCTYPE html>
<html><head><title>Notes</title></head><body><textarea></textarea></body></html>
"""

[options]
enable_scripts = true
retain_when_hidden = true
`

func TestParseManifestFormats(t *testing.T) {
	fromYAML, err := ParseManifest("notes.preset.yaml", []byte(yamlManifest))
	if err != nil {
		t.Fatalf("YAML parse failed: %v", err)
	}
	fromTOML, err := ParseManifest("notes.preset.toml", []byte(tomlManifest))
	if err != nil {
		t.Fatalf("TOML parse failed: %v", err)
	}

	if fromYAML.ID != fromTOML.ID || fromYAML.Name != fromTOML.Name {
		t.Errorf("Formats disagree: %+v vs %+v", fromYAML, fromTOML)
	}
	if !fromYAML.Options.EnableScripts || !fromTOML.Options.EnableScripts {
		t.Error("enable_scripts should parse in both formats")
	}
	if !fromYAML.Options.RetainWhenHidden || !fromTOML.Options.RetainWhenHidden {
		t.Error("retain_when_hidden should parse in both formats")
	}
}

func TestParseManifestRejectsFragment(t *testing.T) {
	bad := `id: frag
name: Fragment
html: "<div>not a document</div>"
`
	if _, err := ParseManifest("frag.preset.yaml", []byte(bad)); err == nil {
		t.Error("Fragment document should be rejected")
	}
}

func TestParseManifestRequiresDocument(t *testing.T) {
	bad := `id: empty
name: Empty
`
	if _, err := ParseManifest("empty.preset.yaml", []byte(bad)); err == nil {
		t.Error("Manifest without a document should be rejected")
	}
}

func TestParseManifestSiblingFile(t *testing.T) {
	dir := t.TempDir()
	doc := "<!DOCTYPE html>\n<html><head><title>X</title></head><body></body></html>"
	if err := os.WriteFile(filepath.Join(dir, "doc.html"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	m := `id: filed
name: Filed
html_file: doc.html
`
	p, err := ParseManifest(filepath.Join(dir, "filed.preset.yaml"), []byte(m))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.HTML != doc {
		t.Error("Sibling document not loaded")
	}

	escape := `id: escape
name: Escape
html_file: ../outside.html
`
	if _, err := ParseManifest(filepath.Join(dir, "escape.preset.yaml"), []byte(escape)); err == nil {
		t.Error("Path traversal in html_file should be rejected")
	}
}

func TestSeederWalk(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "notes.preset.yaml"), []byte(yamlManifest), 0o644)
	os.WriteFile(filepath.Join(dir, "nested", "notes2.preset.toml"), []byte(tomlManifest), 0o644)
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("# not a preset"), 0o644)
	os.WriteFile(filepath.Join(dir, "broken.preset.yaml"), []byte(":::"), 0o644)

	r := NewRegistry(paths.NewLayout(t.TempDir()), logging.NewNop())
	s := NewSeeder(r, dir, nil)

	if err := s.SeedPresets(); err != nil {
		t.Fatalf("SeedPresets failed: %v", err)
	}

	if !r.Exists("notes") {
		t.Error("YAML preset should load")
	}
	if len(r.List(nil)) != 1 {
		// both manifests share the id "notes"; the second overwrites the first
		t.Errorf("Expected 1 distinct preset, got %d", len(r.List(nil)))
	}
}

func TestSeederWalkManyDirectories(t *testing.T) {
	dir := t.TempDir()

	// The walk visits directories concurrently, so spread manifests across
	// enough subtrees to exercise parallel loading.
	const perDir = 4
	want := 0
	for i := 0; i < 16; i++ {
		sub := filepath.Join(dir, fmt.Sprintf("group-%02d", i))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatal(err)
		}
		for j := 0; j < perDir; j++ {
			id := fmt.Sprintf("preset-%02d-%d", i, j)
			manifest := fmt.Sprintf(`id: %s
name: Preset %s
title: Preset
html: |
  <!DOCTYPE html>
  <html><head><title>P</title></head><body></body></html>
`, id, id)
			name := fmt.Sprintf("%s.preset.yaml", id)
			if err := os.WriteFile(filepath.Join(sub, name), []byte(manifest), 0o644); err != nil {
				t.Fatal(err)
			}
			want++
		}
	}

	r := NewRegistry(paths.NewLayout(t.TempDir()), logging.NewNop())
	s := NewSeeder(r, dir, nil)

	if err := s.SeedPresets(); err != nil {
		t.Fatalf("SeedPresets failed: %v", err)
	}
	if got := len(r.List(nil)); got != want {
		t.Errorf("Loaded %d presets, want %d", got, want)
	}
}

func TestSeedDefaults(t *testing.T) {
	r := NewRegistry(paths.NewLayout(t.TempDir()), logging.NewNop())
	s := NewSeeder(r, t.TempDir(), nil)

	if err := s.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	if !r.Exists("welcome") {
		t.Error("Builtin welcome preset should exist")
	}
}

func TestRegistryPersistence(t *testing.T) {
	layout := paths.NewLayout(t.TempDir())
	r := NewRegistry(layout, logging.NewNop())

	p, err := ParseManifest("notes.preset.yaml", []byte(yamlManifest))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Save(p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(layout.Presets(), "notes.preset.yaml"))
	if err != nil {
		t.Fatalf("Manifest not written: %v", err)
	}

	reparsed, err := ParseManifest("notes.preset.yaml", data)
	if err != nil {
		t.Fatalf("Persisted manifest does not reparse: %v", err)
	}
	if reparsed.ID != "notes" {
		t.Errorf("Expected id notes, got %s", reparsed.ID)
	}

	if err := r.Delete("notes"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if r.Exists("notes") {
		t.Error("Preset should be gone after delete")
	}
}
