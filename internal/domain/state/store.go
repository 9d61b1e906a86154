package state

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/shared/paths"
	"github.com/panekit/panekit/internal/shared/utils"
)

var (
	// ErrTooLarge indicates a state document over the per-view size cap.
	ErrTooLarge = errors.New("state document exceeds size limit")

	// ErrTooDeep indicates a state document nested beyond the depth cap.
	ErrTooDeep = errors.New("state document exceeds depth limit")
)

// Store persists per-view state documents, keyed by the view's stable hash so
// the same logical view finds its state again after a workspace restore.
// Documents survive content replacement and visibility changes; the view
// manager clears them at disposal.
type Store struct {
	layout paths.Layout
	logger *logging.Logger

	mu    sync.RWMutex
	cache map[string]map[string]interface{}
}

// New creates a state store rooted at the layout's state directory.
func New(layout paths.Layout, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	for _, dir := range []string{layout.State(), layout.Tmp()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	return &Store{
		layout: layout,
		logger: logger.Named("state"),
		cache:  make(map[string]map[string]interface{}),
	}, nil
}

// Get returns the state document for a view hash. Missing or unreadable
// documents yield an empty map; scripts always see a usable object.
func (s *Store) Get(viewHash string) map[string]interface{} {
	s.mu.RLock()
	if doc, ok := s.cache[viewHash]; ok {
		s.mu.RUnlock()
		return copyDoc(doc)
	}
	s.mu.RUnlock()

	doc := s.load(viewHash)

	s.mu.Lock()
	s.cache[viewHash] = doc
	s.mu.Unlock()

	return copyDoc(doc)
}

// Set validates and persists a state document, replacing any previous one.
func (s *Store) Set(viewHash string, doc map[string]interface{}) error {
	if err := paths.ValidateID(viewHash); err != nil {
		return fmt.Errorf("invalid view hash: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	data, err := sonic.Marshal(doc)
	if err != nil {
		return fmt.Errorf("state not serializable: %w", err)
	}
	if len(data) > utils.MaxStateSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), utils.MaxStateSize)
	}
	if err := utils.ValidateJSONDepth(doc, utils.MaxMessageDepth); err != nil {
		return fmt.Errorf("%w: %v", ErrTooDeep, err)
	}

	if err := s.write(viewHash, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[viewHash] = copyDoc(doc)
	s.mu.Unlock()

	s.logger.Debug("State stored",
		zap.String("view_hash", viewHash),
		zap.Int("bytes", len(data)))
	return nil
}

// Clear removes the state document for a view hash. Clearing a hash that has
// no document is a no-op.
func (s *Store) Clear(viewHash string) error {
	if err := paths.ValidateID(viewHash); err != nil {
		return fmt.Errorf("invalid view hash: %w", err)
	}

	s.mu.Lock()
	delete(s.cache, viewHash)
	s.mu.Unlock()

	if err := os.Remove(s.layout.StateFile(viewHash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}

// Export returns the serialized state document for a view hash, or nil when
// none exists. Workspace snapshots embed this form directly.
func (s *Store) Export(viewHash string) []byte {
	doc := s.Get(viewHash)
	if len(doc) == 0 {
		return nil
	}
	data, err := sonic.Marshal(doc)
	if err != nil {
		s.logger.Warn("State export failed",
			zap.String("view_hash", viewHash),
			zap.Error(err))
		return nil
	}
	return data
}

// Import installs a serialized state document under a view hash. Invalid
// payloads are rejected with the same caps as Set.
func (s *Store) Import(viewHash string, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var doc map[string]interface{}
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("state not parseable: %w", err)
	}
	return s.Set(viewHash, doc)
}

// Count reports how many documents are cached in memory.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *Store) load(viewHash string) map[string]interface{} {
	if err := paths.ValidateID(viewHash); err != nil {
		return map[string]interface{}{}
	}

	data, err := os.ReadFile(s.layout.StateFile(viewHash))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("State read failed",
				zap.String("view_hash", viewHash),
				zap.Error(err))
		}
		return map[string]interface{}{}
	}

	var doc map[string]interface{}
	if err := sonic.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("State file corrupt, starting empty",
			zap.String("view_hash", viewHash),
			zap.Error(err))
		return map[string]interface{}{}
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return doc
}

// write lands the document atomically: scratch file first, then rename onto
// the final path so readers never observe a partial document.
func (s *Store) write(viewHash string, data []byte) error {
	tmp, err := os.CreateTemp(s.layout.Tmp(), viewHash+"-*.json")
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close scratch file: %w", err)
	}

	final := s.layout.StateFile(viewHash)
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install state file: %w", err)
	}
	return nil
}

func copyDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
