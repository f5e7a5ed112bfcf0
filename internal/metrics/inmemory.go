package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
// Labeled counters are copied maps keyed by label value.
type Snapshot struct {
	Redirects               map[string]uint64
	SubdomainsRotated       uint64
	DependencyFailures      map[string]uint64
	RedirectDurationCount   uint64
	RedirectDurationTotalNs int64

	StatsDurationCount   map[string]uint64
	StatsDurationTotalNs map[string]int64

	AccessLogsPublished           map[string]uint64
	AccessLogsProcessed           map[string]uint64
	AccessLogBatchCount           uint64
	AccessLogBatchSizeTotal       uint64
	AccessLogBatchDurationTotalNs int64
	AccessLogQueueDepth           int64
	AccessLogIngestLagCount       uint64
	AccessLogIngestLagTotalNs     int64
}

// InMemoryRecorder stores metrics in memory for tests and the /metrics endpoint.
type InMemoryRecorder struct {
	subdomainsRotated       uint64
	redirectDurationCount   uint64
	redirectDurationTotalNs int64

	accessLogBatchCount           uint64
	accessLogBatchSizeTotal       uint64
	accessLogBatchDurationTotalNs int64
	accessLogQueueDepth           int64
	accessLogIngestLagCount       uint64
	accessLogIngestLagTotalNs     int64

	mu                   sync.Mutex
	redirects            map[string]uint64
	dependencyFailures   map[string]uint64
	statsDurationCount   map[string]uint64
	statsDurationTotalNs map[string]int64
	accessLogsPublished  map[string]uint64
	accessLogsProcessed  map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		redirects:            map[string]uint64{},
		dependencyFailures:   map[string]uint64{},
		statsDurationCount:   map[string]uint64{},
		statsDurationTotalNs: map[string]int64{},
		accessLogsPublished:  map[string]uint64{},
		accessLogsProcessed:  map[string]uint64{},
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Redirects:               copyCounts(m.redirects),
		SubdomainsRotated:       atomic.LoadUint64(&m.subdomainsRotated),
		DependencyFailures:      copyCounts(m.dependencyFailures),
		RedirectDurationCount:   atomic.LoadUint64(&m.redirectDurationCount),
		RedirectDurationTotalNs: atomic.LoadInt64(&m.redirectDurationTotalNs),

		StatsDurationCount:   copyCounts(m.statsDurationCount),
		StatsDurationTotalNs: copyCounts(m.statsDurationTotalNs),

		AccessLogsPublished:           copyCounts(m.accessLogsPublished),
		AccessLogsProcessed:           copyCounts(m.accessLogsProcessed),
		AccessLogBatchCount:           atomic.LoadUint64(&m.accessLogBatchCount),
		AccessLogBatchSizeTotal:       atomic.LoadUint64(&m.accessLogBatchSizeTotal),
		AccessLogBatchDurationTotalNs: atomic.LoadInt64(&m.accessLogBatchDurationTotalNs),
		AccessLogQueueDepth:           atomic.LoadInt64(&m.accessLogQueueDepth),
		AccessLogIngestLagCount:       atomic.LoadUint64(&m.accessLogIngestLagCount),
		AccessLogIngestLagTotalNs:     atomic.LoadInt64(&m.accessLogIngestLagTotalNs),
	}
}

// IncRedirect counts a redirect decision by outcome.
func (m *InMemoryRecorder) IncRedirect(outcome string) {
	m.inc(m.redirects, outcome)
}

// IncSubdomainRotated counts a rewritten destination.
func (m *InMemoryRecorder) IncSubdomainRotated() {
	atomic.AddUint64(&m.subdomainsRotated, 1)
}

// IncDependencyFailure counts an ignorable dependency failure.
func (m *InMemoryRecorder) IncDependencyFailure(dependency string) {
	m.inc(m.dependencyFailures, dependency)
}

// ObserveRedirectDuration records redirect duration.
func (m *InMemoryRecorder) ObserveRedirectDuration(duration time.Duration) {
	atomic.AddUint64(&m.redirectDurationCount, 1)
	atomic.AddInt64(&m.redirectDurationTotalNs, duration.Nanoseconds())
}

// ObserveStatsDuration records how long a report took to build.
func (m *InMemoryRecorder) ObserveStatsDuration(report string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsDurationCount[report]++
	m.statsDurationTotalNs[report] += duration.Nanoseconds()
}

// IncAccessLogPublished counts a publish attempt by status.
func (m *InMemoryRecorder) IncAccessLogPublished(status string) {
	m.inc(m.accessLogsPublished, status)
}

// IncAccessLogProcessed counts an ingested event by status.
func (m *InMemoryRecorder) IncAccessLogProcessed(status string) {
	m.inc(m.accessLogsProcessed, status)
}

// ObserveAccessLogBatchSize records an ingest batch size.
func (m *InMemoryRecorder) ObserveAccessLogBatchSize(size int) {
	atomic.AddUint64(&m.accessLogBatchCount, 1)
	atomic.AddUint64(&m.accessLogBatchSizeTotal, uint64(size))
}

// ObserveAccessLogBatchDuration records an ingest batch duration.
func (m *InMemoryRecorder) ObserveAccessLogBatchDuration(duration time.Duration) {
	atomic.AddInt64(&m.accessLogBatchDurationTotalNs, duration.Nanoseconds())
}

// SetAccessLogQueueDepth records the pending plus lagging stream entries.
func (m *InMemoryRecorder) SetAccessLogQueueDepth(depth int64) {
	atomic.StoreInt64(&m.accessLogQueueDepth, depth)
}

// ObserveAccessLogIngestLag records time from redirect to insert.
func (m *InMemoryRecorder) ObserveAccessLogIngestLag(lag time.Duration) {
	atomic.AddUint64(&m.accessLogIngestLagCount, 1)
	atomic.AddInt64(&m.accessLogIngestLagTotalNs, lag.Nanoseconds())
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, label string) {
	m.mu.Lock()
	counts[label]++
	m.mu.Unlock()
}

func copyCounts[V uint64 | int64](src map[string]V) map[string]V {
	out := make(map[string]V, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
