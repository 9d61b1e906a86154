package monitoring

// AverageLatencyMs returns the mean HTTP request latency in milliseconds.
func (m *Metrics) AverageLatencyMs() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snapshot.RequestCount == 0 {
		return 0
	}
	return (m.snapshot.TotalDuration / float64(m.snapshot.RequestCount)) * 1000
}

// ErrorRate returns the fraction of HTTP requests that ended in 4xx or 5xx.
func (m *Metrics) ErrorRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snapshot.TotalRequests == 0 {
		return 0
	}
	return float64(m.snapshot.TotalErrors) / float64(m.snapshot.TotalRequests)
}
