// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Redirect outcomes.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeRejected = "rejected"
	OutcomeHome     = "home"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Redirect metrics
	IncRedirect(outcome string)
	IncSubdomainRotated()
	IncDependencyFailure(dependency string)
	ObserveRedirectDuration(duration time.Duration)

	// Reporting metrics
	ObserveStatsDuration(report string, duration time.Duration)

	// Access-log pipeline metrics
	IncAccessLogPublished(status string) // status: "success" or "dropped"
	IncAccessLogProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveAccessLogBatchSize(size int)
	ObserveAccessLogBatchDuration(duration time.Duration)
	SetAccessLogQueueDepth(depth int64)
	ObserveAccessLogIngestLag(lag time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
