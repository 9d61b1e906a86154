package providers

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/panekit/panekit/internal/shared/types"
)

// System provides read-only host information to views and embedders.
type System struct {
	startTime time.Time
	version   string
}

// NewSystem creates a system provider.
func NewSystem(version string) *System {
	return &System{
		startTime: time.Now(),
		version:   version,
	}
}

// Definition returns service metadata
func (s *System) Definition() types.Service {
	return types.Service{
		ID:          "system",
		Name:        "System Service",
		Description: "Host information and runtime statistics",
		Category:    types.CategorySystem,
		Capabilities: []string{
			"info",
			"uptime",
			"runtime_stats",
		},
		Tools: []types.Tool{
			{
				ID:          "system.info",
				Name:        "Host Info",
				Description: "Get host version and platform information",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "system.uptime",
				Name:        "Uptime",
				Description: "Get host uptime",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "system.runtime",
				Name:        "Runtime Stats",
				Description: "Get Go runtime statistics",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute runs a system tool
func (s *System) Execute(ctx context.Context, toolID string, params map[string]interface{}, viewCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "system.info":
		return Success(map[string]interface{}{
			"service":    "panehost",
			"version":    s.version,
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
			"go_version": runtime.Version(),
		})

	case "system.uptime":
		uptime := time.Since(s.startTime)
		return Success(map[string]interface{}{
			"uptime_seconds": uptime.Seconds(),
			"started_at":     s.startTime.Format(time.RFC3339),
		})

	case "system.runtime":
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		return Success(map[string]interface{}{
			"goroutines":    runtime.NumGoroutine(),
			"heap_alloc":    mem.HeapAlloc,
			"heap_sys":      mem.HeapSys,
			"gc_cycles":     mem.NumGC,
			"total_alloc":   mem.TotalAlloc,
			"last_gc_pause": mem.PauseNs[(mem.NumGC+255)%256],
		})

	default:
		return Failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}
