package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the sync engine. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	mutations     *prometheus.CounterVec
	inFlight      *prometheus.GaugeVec
	fetchDuration *prometheus.HistogramVec
}

// NewMetrics registers the engine's collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Labels: op (create, update, delete, toggle, reorder), outcome
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trilho",
			Subsystem: "sync",
			Name:      "mutations_total",
			Help:      "Settled habit mutations by operation and outcome",
		}, []string{"op", "outcome"}),

		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "trilho",
			Subsystem: "sync",
			Name:      "in_flight",
			Help:      "Remote calls currently awaiting a response",
		}, []string{"op"}),

		// Labels: status (ok, error)
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trilho",
			Subsystem: "sync",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of the combined habit list and stats fetch",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"status"}),
	}
}

// begin marks op in flight and returns the function that settles it.
func (m *Metrics) begin(op string) func(Outcome) {
	if m == nil {
		return func(Outcome) {}
	}
	g := m.inFlight.WithLabelValues(op)
	g.Inc()
	return func(o Outcome) {
		g.Dec()
		m.mutations.WithLabelValues(op, o.String()).Inc()
	}
}

// startFetch marks a fetch in flight and returns the function that records
// its duration.
func (m *Metrics) startFetch() func(error) {
	if m == nil {
		return func(error) {}
	}
	start := time.Now()
	g := m.inFlight.WithLabelValues(opFetch)
	g.Inc()
	return func(err error) {
		g.Dec()
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.fetchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
