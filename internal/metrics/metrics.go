// Package metrics provides Prometheus metrics for sftplister.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle results used as the "result" label.
const (
	ResultOK         = "ok"
	ResultListError  = "list_error"
	ResultStoreError = "store_error"
	ResultSinkError  = "sink_error"
	ResultCanceled   = "canceled"
)

var (
	// Cycle metrics
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sftplister_cycles_total",
			Help: "Total number of poll cycles by result",
		},
		[]string{"result"},
	)

	cyclesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sftplister_cycles_skipped_total",
			Help: "Triggers skipped because a cycle was still running",
		},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sftplister_cycle_duration_seconds",
			Help:    "Poll cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Entry metrics
	entriesListed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sftplister_entries_listed_total",
			Help: "Directory entries returned by the remote listing",
		},
	)

	entriesFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sftplister_entries_filtered_total",
			Help: "Directory entries discarded by the entry filter",
		},
	)

	filesAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sftplister_files_accepted_total",
			Help: "Files seen for the first time",
		},
	)

	filesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sftplister_files_dropped_total",
			Help: "Files dropped as already seen",
		},
	)

	// Failure metrics
	storeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sftplister_store_errors_total",
			Help: "Seen-store operations that failed",
		},
	)

	sinkErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sftplister_sink_errors_total",
			Help: "Accepted files the sink did not take",
		},
	)

	// State gauges
	seenKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sftplister_seen_keys",
			Help: "Number of keys in the seen store",
		},
	)

	wsClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sftplister_ws_clients",
			Help: "Connected WebSocket stream clients",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCycle records a finished cycle.
func RecordCycle(result string, duration time.Duration) {
	cyclesTotal.WithLabelValues(result).Inc()
	cycleDuration.Observe(duration.Seconds())
}

// RecordCycleSkipped records a trigger that found a cycle running.
func RecordCycleSkipped() {
	cyclesSkipped.Inc()
}

// RecordListed records entries returned by one listing.
func RecordListed(n int) {
	entriesListed.Add(float64(n))
}

// RecordFiltered records one entry discarded by the filter.
func RecordFiltered() {
	entriesFiltered.Inc()
}

// RecordAccepted records one accepted file.
func RecordAccepted() {
	filesAccepted.Inc()
}

// RecordDropped records one dropped file.
func RecordDropped() {
	filesDropped.Inc()
}

// RecordStoreError records a failed store operation.
func RecordStoreError() {
	storeErrors.Inc()
}

// RecordSinkError records a failed delivery.
func RecordSinkError() {
	sinkErrors.Inc()
}

// SetSeenKeys sets the seen-key gauge.
func SetSeenKeys(count int64) {
	seenKeys.Set(float64(count))
}

// SetWSClients sets the WebSocket client gauge.
func SetWSClients(count int) {
	wsClients.Set(float64(count))
}
