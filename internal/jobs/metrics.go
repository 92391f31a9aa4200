package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter receives one outcome per finished job run.
type Counter interface {
	JobProcessed(task, outcome string)
}

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	counter  Counter
	duration *prometheus.HistogramVec
	purged   prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job collectors against registerer. When registerer
// is nil the default Prometheus registerer is used. counter may be nil.
func NewMetrics(registerer prometheus.Registerer, counter Counter) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer, counter)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer, counter)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records duration and outcome, returning err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	if t.metrics.counter != nil {
		t.metrics.counter.JobProcessed(t.job, outcome)
	}
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddPurged counts audit rows removed by the purge job.
func (m *Metrics) AddPurged(rows int64) {
	if m == nil || rows <= 0 {
		return
	}
	m.purged.Add(float64(rows))
}

func buildMetrics(registerer prometheus.Registerer, counter Counter) *Metrics {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "valhalla_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	purged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "valhalla_sessions_purged_total",
		Help: "Expired console session audit rows removed.",
	})
	registerer.MustRegister(duration, purged)
	return &Metrics{counter: counter, duration: duration, purged: purged}
}
