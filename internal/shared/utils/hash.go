package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
)

// Hasher provides extensible hashing functionality
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case SHA256:
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:])
	default:
		// Fallback to SHA256
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:])
	}
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashJSON computes a hash of a JSON-serializable object
// The hash is deterministic (same object = same hash)
func (h *Hasher) HashJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return h.Hash(data), nil
}

// HashFields computes a hash from multiple fields
// Fields are concatenated with a delimiter for consistent hashing
func (h *Hasher) HashFields(fields ...string) string {
	// Sort fields for deterministic ordering
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)

	combined := strings.Join(sorted, "|")
	return h.HashString(combined)
}

// ViewIdentifier generates a deterministic identifier for a view from its
// creation-time properties. Workspace restore matches saved views to fresh
// instances by this hash, never by live id.
type ViewIdentifier struct {
	hasher *Hasher
}

// NewViewIdentifier creates a new view identifier
func NewViewIdentifier(hasher *Hasher) *ViewIdentifier {
	if hasher == nil {
		hasher = DefaultHasher()
	}
	return &ViewIdentifier{hasher: hasher}
}

// GenerateHash generates a deterministic hash for a view.
// Title and the options fingerprint identify the view; the document does not
// participate so that content replacement keeps the identity stable.
func (vi *ViewIdentifier) GenerateHash(title string, optionsFingerprint string, metadata map[string]interface{}) string {
	fields := []string{fmt.Sprintf("title:%s", title), fmt.Sprintf("options:%s", optionsFingerprint)}

	// Include relevant metadata for uniqueness
	if origin, ok := metadata["origin"].(string); ok {
		fields = append(fields, fmt.Sprintf("origin:%s", origin))
	}

	return vi.hasher.HashFields(fields...)
}

// GenerateShortHash generates a short (8-character) hash for display
func (vi *ViewIdentifier) GenerateShortHash(fullHash string) string {
	if len(fullHash) < 8 {
		return fullHash
	}
	return fullHash[:8]
}

// VerifyHash checks if a hash matches the expected view properties
func (vi *ViewIdentifier) VerifyHash(hash string, title string, optionsFingerprint string, metadata map[string]interface{}) bool {
	expectedHash := vi.GenerateHash(title, optionsFingerprint, metadata)
	return hash == expectedHash
}
