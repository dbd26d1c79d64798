// Package metrics holds process-wide counters exposed in Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

var (
	TripsStarted      atomic.Int64
	SamplesRecorded   atomic.Int64
	SamplesRejected   atomic.Int64
	SessionsFinalized atomic.Int64
	SessionsEmpty     atomic.Int64
	Evaluations       atomic.Int64
	EvaluationErrors  atomic.Int64
	AlertsDispatched  atomic.Int64
	AlertsSuppressed  atomic.Int64
	HTTPRequests      atomic.Int64
)

// WriteTo renders every counter, one per line
func WriteTo(w io.Writer) {
	fmt.Fprintf(w, "autocare_trips_started_total %d\n", TripsStarted.Load())
	fmt.Fprintf(w, "autocare_samples_recorded_total %d\n", SamplesRecorded.Load())
	fmt.Fprintf(w, "autocare_samples_rejected_total %d\n", SamplesRejected.Load())
	fmt.Fprintf(w, "autocare_sessions_finalized_total %d\n", SessionsFinalized.Load())
	fmt.Fprintf(w, "autocare_sessions_empty_total %d\n", SessionsEmpty.Load())
	fmt.Fprintf(w, "autocare_evaluations_total %d\n", Evaluations.Load())
	fmt.Fprintf(w, "autocare_evaluation_errors_total %d\n", EvaluationErrors.Load())
	fmt.Fprintf(w, "autocare_alerts_dispatched_total %d\n", AlertsDispatched.Load())
	fmt.Fprintf(w, "autocare_alerts_suppressed_total %d\n", AlertsSuppressed.Load())
	fmt.Fprintf(w, "autocare_http_requests_total %d\n", HTTPRequests.Load())
}

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	WriteTo(w)
}
