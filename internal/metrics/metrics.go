// Package metrics records run-level counters and step timings behind a
// backend interface. The default backend is a no-op, so instrumentation is
// always safe to call; concrete systems live in subpackages (prompush,
// datadog) and are installed by the binary with SetBackend.
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal    = "rxreport_step_total"
	StepDuration = "rxreport_step_duration_seconds"
	RecordsTotal = "rxreport_records_total"
	BatchesTotal = "rxreport_batches_total"
)

// Record kinds passed to RecordRow.
const (
	KindRawRows        = "raw_rows"
	KindParseErrors    = "parse_errors"
	KindPeriodUnparsed = "period_unparsed"
	KindObservations   = "observations"
	KindMetricWarnings = "metric_warnings"
	KindSelected       = "selected"
	KindRollupRows     = "rollup_rows"
	KindStoredRows     = "stored_rows"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is implemented by each metrics system.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs b. nil keeps the current backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

// RecordStep counts one execution of a pipeline step and observes its
// duration, labeled with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta to the record counter of the given kind. Non-positive
// deltas are dropped.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordBatches counts loader batches flushed to a storage sink.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{"job": job})
}
