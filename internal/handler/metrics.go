package handler

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/linkrelay/linkrelay/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		writeError(w, http.StatusServiceUnavailable, "METRICS_DISABLED", "Metrics are not enabled")
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeLabeled(w, "linkrelay_redirects_total", "outcome", snap.Redirects)
	writeMetric(w, "linkrelay_subdomains_rotated_total %d\n", snap.SubdomainsRotated)
	writeLabeled(w, "linkrelay_dependency_failures_total", "dependency", snap.DependencyFailures)
	writeMetric(w, "linkrelay_redirect_duration_seconds_count %d\n", snap.RedirectDurationCount)
	writeMetric(w, "linkrelay_redirect_duration_seconds_sum %.6f\n", seconds(snap.RedirectDurationTotalNs))

	writeLabeled(w, "linkrelay_stats_duration_seconds_count", "report", snap.StatsDurationCount)
	for _, report := range sortedKeys(snap.StatsDurationTotalNs) {
		writeMetric(w, "linkrelay_stats_duration_seconds_sum{report=%q} %.6f\n", report, seconds(snap.StatsDurationTotalNs[report]))
	}

	writeLabeled(w, "linkrelay_access_logs_published_total", "status", snap.AccessLogsPublished)
	writeLabeled(w, "linkrelay_access_logs_processed_total", "status", snap.AccessLogsProcessed)
	writeMetric(w, "linkrelay_access_log_batches_total %d\n", snap.AccessLogBatchCount)
	writeMetric(w, "linkrelay_access_log_batch_size_sum %d\n", snap.AccessLogBatchSizeTotal)
	writeMetric(w, "linkrelay_access_log_batch_duration_seconds_sum %.6f\n", seconds(snap.AccessLogBatchDurationTotalNs))
	writeMetric(w, "linkrelay_access_log_queue_depth %d\n", snap.AccessLogQueueDepth)
	writeMetric(w, "linkrelay_access_log_ingest_lag_seconds_count %d\n", snap.AccessLogIngestLagCount)
	writeMetric(w, "linkrelay_access_log_ingest_lag_seconds_sum %.6f\n", seconds(snap.AccessLogIngestLagTotalNs))
}

func writeMetric(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func writeLabeled(w io.Writer, name, label string, values map[string]uint64) {
	for _, k := range sortedKeys(values) {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func seconds(ns int64) float64 {
	return float64(ns) / 1e9
}
