package effects

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records transport and polling activity. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests     *prometheus.HistogramVec
	pollAttempts prometheus.Histogram
	jobs         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trendrider",
			Subsystem: "effects",
			Name:      "request_duration_seconds",
			Help:      "Duration of calls to the effects service.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation", "outcome"}),
		pollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trendrider",
			Subsystem: "effects",
			Name:      "poll_attempts",
			Help:      "Status queries issued per awaited job.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 20, 30, 40},
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trendrider",
			Subsystem: "effects",
			Name:      "jobs_total",
			Help:      "Awaited jobs by terminal outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.pollAttempts, m.jobs)
	}
	return m
}

func (m *Metrics) observeRequest(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) observeJob(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(outcome).Inc()
	m.pollAttempts.Observe(float64(attempts))
}
