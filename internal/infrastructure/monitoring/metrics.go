package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// View metrics
	ViewsActive     prometheus.Gauge
	ViewsTotal      prometheus.Counter
	ViewTransitions *prometheus.CounterVec
	ContentUpdates  prometheus.Counter
	ContentSize     prometheus.Histogram

	// Bridge metrics
	MessagesPosted    *prometheus.CounterVec
	MessagesDelivered *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	DeliveryDuration  prometheus.Histogram
	BridgeSubscribers prometheus.Gauge

	// Resource gate metrics
	GateChecks *prometheus.CounterVec

	// Sandbox metrics
	RuntimesActive prometheus.Gauge
	ScriptRuns     *prometheus.CounterVec
	ScriptDuration prometheus.Histogram

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Workspace metrics
	WorkspacesSaved    prometheus.Counter
	WorkspacesRestored prometheus.Counter

	// Preset metrics
	PresetsLoaded prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	ActiveViews       int64
	ActiveConnections int64
	TotalDuration     float64 // sum of all request durations
	RequestCount      int64   // count for averaging
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panehost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panehost_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panehost_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panehost_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// View metrics
		ViewsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "panehost_views_active",
				Help: "Number of views not yet disposed",
			},
		),
		ViewsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "panehost_views_total",
				Help: "Total number of views created",
			},
		),
		ViewTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panehost_view_transitions_total",
				Help: "Total number of view lifecycle transitions",
			},
			[]string{"from", "to"},
		),
		ContentUpdates: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "panehost_content_updates_total",
				Help: "Total number of document replacements",
			},
		),
		ContentSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "panehost_content_size_bytes",
				Help:    "Replaced document size in bytes",
				Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 524288},
			},
		),

		// Bridge metrics
		MessagesPosted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panehost_messages_posted_total",
				Help: "Total number of messages accepted for delivery",
			},
			[]string{"direction"},
		),
		MessagesDelivered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panehost_messages_delivered_total",
				Help: "Total number of messages handed to a receiver",
			},
			[]string{"direction"},
		),
		MessagesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panehost_messages_dropped_total",
				Help: "Total number of messages dropped without delivery",
			},
			[]string{"direction", "reason"},
		),
		DeliveryDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "panehost_message_delivery_seconds",
				Help:    "Time from post to receiver handoff",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),
		BridgeSubscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "panehost_bridge_subscribers",
				Help: "Number of live message subscriptions",
			},
		),

		// Resource gate metrics
		GateChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panehost_gate_checks_total",
				Help: "Total number of resource access decisions",
			},
			[]string{"decision"},
		),

		// Sandbox metrics
		RuntimesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "panehost_runtimes_active",
				Help: "Number of live script runtimes",
			},
		),
		ScriptRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panehost_script_runs_total",
				Help: "Total number of sandboxed script executions",
			},
			[]string{"status"},
		),
		ScriptDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "panehost_script_duration_seconds",
				Help:    "Sandboxed script execution duration in seconds",
				Buckets: []float64{.0001, .001, .005, .01, .05, .1, .5, 1, 2},
			},
		),

		// Service metrics
		ServiceCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panehost_service_calls_total",
				Help: "Total number of service calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panehost_service_duration_seconds",
				Help:    "Service call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panehost_service_errors_total",
				Help: "Total number of service errors",
			},
			[]string{"service", "method", "error_type"},
		),

		// Workspace metrics
		WorkspacesSaved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "panehost_workspaces_saved_total",
				Help: "Total number of workspaces saved",
			},
		),
		WorkspacesRestored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "panehost_workspaces_restored_total",
				Help: "Total number of workspaces restored",
			},
		),

		// Preset metrics
		PresetsLoaded: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "panehost_presets_loaded",
				Help: "Number of presets in the catalog",
			},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "panehost_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panehost_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "panehost_uptime_seconds",
				Help: "Host uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a service error
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// RecordViewTransition records a lifecycle transition
func (m *Metrics) RecordViewTransition(from, to string) {
	m.ViewTransitions.WithLabelValues(from, to).Inc()
}

// RecordContentUpdate records a document replacement
func (m *Metrics) RecordContentUpdate(size int) {
	m.ContentUpdates.Inc()
	m.ContentSize.Observe(float64(size))
}

// RecordMessagePosted records a message accepted for delivery
func (m *Metrics) RecordMessagePosted(direction string) {
	m.MessagesPosted.WithLabelValues(direction).Inc()
}

// RecordMessageDelivered records a message handed to a receiver
func (m *Metrics) RecordMessageDelivered(direction string, latency time.Duration) {
	m.MessagesDelivered.WithLabelValues(direction).Inc()
	m.DeliveryDuration.Observe(latency.Seconds())
}

// RecordMessageDropped records a message dropped without delivery
func (m *Metrics) RecordMessageDropped(direction, reason string) {
	m.MessagesDropped.WithLabelValues(direction, reason).Inc()
}

// SetBridgeSubscribers sets the number of live subscriptions
func (m *Metrics) SetBridgeSubscribers(count int) {
	m.BridgeSubscribers.Set(float64(count))
}

// RecordGateCheck records a resource access decision
func (m *Metrics) RecordGateCheck(allowed bool) {
	if allowed {
		m.GateChecks.WithLabelValues("allowed").Inc()
	} else {
		m.GateChecks.WithLabelValues("denied").Inc()
	}
}

// SetRuntimesActive sets the number of live script runtimes
func (m *Metrics) SetRuntimesActive(count int) {
	m.RuntimesActive.Set(float64(count))
}

// RecordScriptRun records a sandboxed script execution
func (m *Metrics) RecordScriptRun(status string, duration time.Duration) {
	m.ScriptRuns.WithLabelValues(status).Inc()
	m.ScriptDuration.Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetViewsActive sets the number of live views
func (m *Metrics) SetViewsActive(count int) {
	m.ViewsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveViews = int64(count)
	m.mu.Unlock()
}

// IncViewsTotal increments the total views counter
func (m *Metrics) IncViewsTotal() {
	m.ViewsTotal.Inc()
}

// IncWorkspacesSaved increments the workspaces saved counter
func (m *Metrics) IncWorkspacesSaved() {
	m.WorkspacesSaved.Inc()
}

// IncWorkspacesRestored increments the workspaces restored counter
func (m *Metrics) IncWorkspacesRestored() {
	m.WorkspacesRestored.Inc()
}

// SetPresetsLoaded sets the number of presets in the catalog
func (m *Metrics) SetPresetsLoaded(count int) {
	m.PresetsLoaded.Set(float64(count))
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	if m.snapshot.ActiveConnections > 0 {
		m.snapshot.ActiveConnections--
	}
	m.mu.Unlock()
}

// GetSnapshot returns a copy of the current snapshot values
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
