package preset

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/shared/types"
)

// DefaultPatterns match preset manifests during a seed walk.
var DefaultPatterns = []string{
	"**/*.preset.yaml",
	"**/*.preset.yml",
	"**/*.preset.toml",
}

// Seeder loads preset manifests from a directory tree at startup.
type Seeder struct {
	registry *Registry
	dir      string
	patterns []string
}

// NewSeeder creates a seeder for the given manifests directory. Empty
// patterns fall back to DefaultPatterns.
func NewSeeder(registry *Registry, dir string, patterns []string) *Seeder {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &Seeder{
		registry: registry,
		dir:      dir,
		patterns: patterns,
	}
}

// SeedPresets walks the manifests directory and loads every matching
// manifest. Files that fail to parse are skipped and logged; a bad manifest
// never blocks the rest of the directory.
func (s *Seeder) SeedPresets() error {
	log := s.registry.logger

	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		log.Info("No presets directory", zap.String("dir", s.dir))
		return nil
	}

	// fastwalk runs the callback from multiple goroutines
	var loaded, failed atomic.Int64

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return nil
		}
		if !s.matches(filepath.ToSlash(rel)) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Unreadable manifest", zap.String("path", path), zap.Error(err))
			failed.Add(1)
			return nil
		}

		p, err := ParseManifest(path, data)
		if err != nil {
			log.Warn("Invalid manifest", zap.String("path", path), zap.Error(err))
			failed.Add(1)
			return nil
		}

		s.registry.add(p)
		loaded.Add(1)
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Presets seeded",
		zap.String("dir", s.dir),
		zap.Int64("loaded", loaded.Load()),
		zap.Int64("failed", failed.Load()))
	return nil
}

// SeedDefaults loads the built-in presets so a fresh host always has
// something to launch.
func (s *Seeder) SeedDefaults() error {
	now := time.Now()
	welcome := &types.Preset{
		ID:          "welcome",
		Name:        "Welcome",
		Description: "Introductory view shown on a fresh host",
		Title:       "Welcome to PaneHost",
		HTML:        welcomeHTML,
		Options: types.Options{
			EnableScripts: true,
		},
		Tags:      []string{"builtin"},
		Author:    "panehost",
		Version:   "1.0.0",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if !s.registry.Exists(welcome.ID) {
		s.registry.add(welcome)
	}
	return nil
}

func (s *Seeder) matches(rel string) bool {
	for _, pattern := range s.patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// welcomeHTML carries a strict content restriction policy on purpose: the
// built-in preset should model the posture we want documents to ship with.
const welcomeHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta http-equiv="Content-Security-Policy" content="default-src 'none'; script-src 'unsafe-inline'; style-src 'unsafe-inline';">
  <title>Welcome to PaneHost</title>
  <style>
    body { font-family: sans-serif; margin: 2rem; }
  </style>
</head>
<body>
  <h1>Welcome to PaneHost</h1>
  <p>This view runs in an isolated sandbox. Messages from the host appear below.</p>
  <ul id="log"></ul>
  <script>
    let received = 0;
    panehost.onMessage(function (msg) {
      received++;
      panehost.setState({ received: received });
    });
    panehost.postMessage({ type: "ready" });
  </script>
</body>
</html>
`
