package metrics

import (
	"time"

	"feed-processor/core/ingest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "feed"

// Recorder publishes run outcomes as Prometheus metrics. It implements ingest.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	records   *prometheus.CounterVec
	forwarded *prometheus.CounterVec
	failures  *prometheus.CounterVec
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New creates a recorder on a private registry with Go runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Fetched records by diff classification.",
		}, []string{"feed", "class"}),
		forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_total",
			Help:      "Records published downstream.",
		}, []string{"feed"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Per-record failures by pipeline stage.",
		}, []string{"feed", "stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by final state.",
		}, []string{"feed", "state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"feed"}),
	}

	r.registry.MustRegister(
		r.records, r.forwarded, r.failures, r.runs, r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry to expose.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun records the counts of one finished run.
func (r *Recorder) ObserveRun(res *ingest.RunResult, elapsed time.Duration) {
	r.records.WithLabelValues(res.Feed, string(ingest.ClassNew)).Add(float64(res.New))
	r.records.WithLabelValues(res.Feed, string(ingest.ClassChanged)).Add(float64(res.Changed))
	r.records.WithLabelValues(res.Feed, string(ingest.ClassUnchanged)).Add(float64(res.Unchanged))
	r.forwarded.WithLabelValues(res.Feed).Add(float64(res.Forwarded))
	for _, f := range res.Failures {
		r.failures.WithLabelValues(res.Feed, string(f.Stage)).Inc()
	}
	r.runs.WithLabelValues(res.Feed, string(res.State)).Inc()
	r.duration.WithLabelValues(res.Feed).Observe(elapsed.Seconds())
}
