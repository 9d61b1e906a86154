package http

import (
	"time"

	"github.com/panekit/panekit/internal/infrastructure/monitoring"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// TrackViewOperation tracks view registry operations
func (hm *HandlerMetrics) TrackViewOperation(operation string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start)
		hm.metrics.RecordServiceCall("view_registry", operation, "success", duration)
	}
}

// TrackBridgeOperation tracks message bridge operations
func (hm *HandlerMetrics) TrackBridgeOperation(operation string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start)
		hm.metrics.RecordServiceCall("message_bridge", operation, "success", duration)
	}
}

// TrackPresetOperation tracks preset registry operations
func (hm *HandlerMetrics) TrackPresetOperation(operation string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start)
		hm.metrics.RecordServiceCall("preset_registry", operation, "success", duration)
	}
}

// TrackWorkspaceOperation tracks workspace snapshot operations
func (hm *HandlerMetrics) TrackWorkspaceOperation(operation string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start)
		hm.metrics.RecordServiceCall("workspace_manager", operation, "success", duration)
	}
}
