package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRedirect is a no-op.
func (n *NoopRecorder) IncRedirect(outcome string) {}

// IncSubdomainRotated is a no-op.
func (n *NoopRecorder) IncSubdomainRotated() {}

// IncDependencyFailure is a no-op.
func (n *NoopRecorder) IncDependencyFailure(dependency string) {}

// ObserveRedirectDuration is a no-op.
func (n *NoopRecorder) ObserveRedirectDuration(duration time.Duration) {}

// ObserveStatsDuration is a no-op.
func (n *NoopRecorder) ObserveStatsDuration(report string, duration time.Duration) {}

// IncAccessLogPublished is a no-op.
func (n *NoopRecorder) IncAccessLogPublished(status string) {}

// IncAccessLogProcessed is a no-op.
func (n *NoopRecorder) IncAccessLogProcessed(status string) {}

// ObserveAccessLogBatchSize is a no-op.
func (n *NoopRecorder) ObserveAccessLogBatchSize(size int) {}

// ObserveAccessLogBatchDuration is a no-op.
func (n *NoopRecorder) ObserveAccessLogBatchDuration(duration time.Duration) {}

// SetAccessLogQueueDepth is a no-op.
func (n *NoopRecorder) SetAccessLogQueueDepth(depth int64) {}

// ObserveAccessLogIngestLag is a no-op.
func (n *NoopRecorder) ObserveAccessLogIngestLag(lag time.Duration) {}
