package sandbox

import (
	"time"
)

// Config defines sandbox configuration
type Config struct {
	MaxMemoryMB   int64         // Maximum heap size in MB
	Timeout       time.Duration // Execution timeout
	EnableConsole bool          // Allow console.log/warn/error
}

// Result holds execution result
type Result struct {
	Value    interface{}   // Return value
	Console  []LogEntry    // Console output
	Duration time.Duration // Execution time
	Error    error         // Execution error
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, warn, error
	Message string    // Log message
	Time    time.Time // Timestamp
}

// Host is the surface a document script reaches through the panehost
// global. The view instance implements it; pooled one-shot runtimes run
// without one.
type Host interface {
	// PostMessage queues a message from the view to the embedder.
	PostMessage(payload map[string]interface{}) error
	// GetState returns the view's retained state document.
	GetState() map[string]interface{}
	// SetState replaces the view's retained state document.
	SetState(state map[string]interface{}) error
}

// Default configuration
func DefaultConfig() Config {
	return Config{
		MaxMemoryMB:   50,
		Timeout:       time.Second,
		EnableConsole: true,
	}
}
