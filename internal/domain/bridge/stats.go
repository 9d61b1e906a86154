package bridge

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/panekit/panekit/internal/shared/types"
)

// Stats reports bridge counters and host-to-view delivery latency quantiles.
func (b *Bridge) Stats() types.BridgeStats {
	p50, p95, p99 := b.latency.Quantiles()
	return types.BridgeStats{
		Posted:       b.posted.Load(),
		Delivered:    b.delivered.Load(),
		Dropped:      b.dropped.Load(),
		Rejected:     b.rejected.Load(),
		Subscribers:  b.subscriberCount(),
		LatencyP50Ms: p50,
		LatencyP95Ms: p95,
		LatencyP99Ms: p99,
	}
}

// latencyBuffer keeps a fixed window of recent delivery latencies in
// milliseconds. Old samples are overwritten once the window fills.
type latencyBuffer struct {
	mu      sync.Mutex
	samples []float64
	next    int
	count   int
}

func newLatencyBuffer(size int) *latencyBuffer {
	return &latencyBuffer{
		samples: make([]float64, size),
	}
}

func (l *latencyBuffer) Record(ms float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.samples[l.next] = ms
	l.next = (l.next + 1) % len(l.samples)
	if l.count < len(l.samples) {
		l.count++
	}
}

// Quantiles returns the p50, p95, and p99 of the current window.
func (l *latencyBuffer) Quantiles() (p50, p95, p99 float64) {
	l.mu.Lock()
	window := make([]float64, l.count)
	copy(window, l.samples[:l.count])
	l.mu.Unlock()

	if len(window) == 0 {
		return 0, 0, 0
	}

	sort.Float64s(window)
	p50 = stat.Quantile(0.50, stat.Empirical, window, nil)
	p95 = stat.Quantile(0.95, stat.Empirical, window, nil)
	p99 = stat.Quantile(0.99, stat.Empirical, window, nil)
	return p50, p95, p99
}
