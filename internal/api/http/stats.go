package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/panekit/panekit/internal/infrastructure/monitoring"
)

// StatsAggregator assembles one operational snapshot across the host's
// subsystems for the /stats endpoint. Prometheus scraping stays on /metrics;
// this is the human-readable roll-up.
type StatsAggregator struct {
	handlers  *Handlers
	metrics   *monitoring.Metrics
	startTime time.Time
}

// NewStatsAggregator creates a stats aggregator.
func NewStatsAggregator(handlers *Handlers, metrics *monitoring.Metrics) *StatsAggregator {
	return &StatsAggregator{
		handlers:  handlers,
		metrics:   metrics,
		startTime: time.Now(),
	}
}

// StatsSummary provides high-level host statistics.
type StatsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	ErrorRate         float64 `json:"error_rate"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// GetStats returns subsystem statistics plus the request-level summary.
func (sa *StatsAggregator) GetStats(c *gin.Context) {
	h := sa.handlers
	c.JSON(http.StatusOK, gin.H{
		"timestamp":  time.Now(),
		"views":      h.views.Stats(),
		"bridge":     h.bridge.Stats(),
		"services":   h.services.Stats(),
		"presets":    h.presets.Stats(),
		"workspaces": h.workspaces.Stats(),
		"summary":    sa.summary(),
	})
}

func (sa *StatsAggregator) summary() StatsSummary {
	summary := StatsSummary{
		UptimeSeconds: time.Since(sa.startTime).Seconds(),
	}
	if sa.metrics == nil {
		return summary
	}
	snapshot := sa.metrics.GetSnapshot()
	summary.TotalRequests = snapshot.TotalRequests
	summary.AverageLatencyMs = sa.metrics.AverageLatencyMs()
	summary.ErrorRate = sa.metrics.ErrorRate()
	summary.ActiveConnections = snapshot.ActiveConnections
	return summary
}
