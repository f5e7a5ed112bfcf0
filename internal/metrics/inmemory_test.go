package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Counts(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncRedirect(OutcomeHit)
	m.IncRedirect(OutcomeHit)
	m.IncRedirect(OutcomeMiss)
	m.IncSubdomainRotated()
	m.IncDependencyFailure("access_log")
	m.ObserveRedirectDuration(2 * time.Millisecond)
	m.ObserveStatsDuration("links", time.Second)
	m.SetAccessLogQueueDepth(7)

	snap := m.Snapshot()

	if snap.Redirects[OutcomeHit] != 2 || snap.Redirects[OutcomeMiss] != 1 {
		t.Errorf("redirects = %v", snap.Redirects)
	}
	if snap.SubdomainsRotated != 1 {
		t.Errorf("SubdomainsRotated = %d, want 1", snap.SubdomainsRotated)
	}
	if snap.DependencyFailures["access_log"] != 1 {
		t.Errorf("DependencyFailures = %v", snap.DependencyFailures)
	}
	if snap.RedirectDurationCount != 1 || snap.RedirectDurationTotalNs != int64(2*time.Millisecond) {
		t.Errorf("redirect duration = %d/%d", snap.RedirectDurationCount, snap.RedirectDurationTotalNs)
	}
	if snap.StatsDurationCount["links"] != 1 {
		t.Errorf("StatsDurationCount = %v", snap.StatsDurationCount)
	}
	if snap.AccessLogQueueDepth != 7 {
		t.Errorf("AccessLogQueueDepth = %d, want 7", snap.AccessLogQueueDepth)
	}
}

func TestInMemoryRecorder_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncRedirect(OutcomeHit)

	snap := m.Snapshot()
	snap.Redirects[OutcomeHit] = 100

	if got := m.Snapshot().Redirects[OutcomeHit]; got != 1 {
		t.Errorf("recorder mutated through snapshot: %d", got)
	}
}

func TestInMemoryRecorder_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncRedirect(OutcomeHit)
			m.IncAccessLogPublished("success")
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.Redirects[OutcomeHit] != 50 || snap.AccessLogsPublished["success"] != 50 {
		t.Errorf("snapshot = %+v", snap)
	}
}
