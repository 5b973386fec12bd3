package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"casualty-dispatch/internal/scheduling"
)

// PassMetrics records scheduling passes on a dedicated registry.
// It implements scheduling.Observer.
type PassMetrics struct {
	registry *prometheus.Registry

	// Passes counts passes by strategy and trigger
	Passes *prometheus.CounterVec
	// Assignments counts committed bindings by patient severity
	Assignments *prometheus.CounterVec
	// Pending is the number of unassigned patients after the last pass
	Pending prometheus.Gauge
	// Duration records pass duration in seconds
	Duration *prometheus.HistogramVec
	// Evaluations counts assignment cost evaluations
	Evaluations prometheus.Counter
	// TrafficFactor is the multiplier in effect during the last pass
	TrafficFactor prometheus.Gauge
}

// NewPassMetrics creates the collectors and registers them, together with
// the Go and process collectors, on a fresh registry
func NewPassMetrics() *PassMetrics {
	m := &PassMetrics{
		registry: prometheus.NewRegistry(),
		Passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dispatch_passes_total", Help: "Scheduling passes by strategy and trigger."},
			[]string{"strategy", "trigger"},
		),
		Assignments: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dispatch_assignments_total", Help: "Committed patient assignments by severity."},
			[]string{"severity"},
		),
		Pending: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "dispatch_pending_patients", Help: "Unassigned patients after the last pass."},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "dispatch_pass_duration_seconds", Help: "Scheduling pass duration in seconds.", Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1}},
			[]string{"strategy"},
		),
		Evaluations: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "dispatch_cost_evaluations_total", Help: "Assignment cost evaluations across all passes."},
		),
		TrafficFactor: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "dispatch_traffic_factor", Help: "Traffic multiplier in effect during the last pass."},
		),
	}

	m.registry.MustRegister(m.Passes, m.Assignments, m.Pending, m.Duration, m.Evaluations, m.TrafficFactor)
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Registry returns the registry holding the dispatch collectors
func (m *PassMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PassMetrics) PassCompleted(report scheduling.PassReport) {
	m.Passes.WithLabelValues(report.Strategy, string(report.Trigger)).Inc()
	for _, b := range report.Bindings {
		m.Assignments.WithLabelValues(b.Severity.String()).Inc()
	}
	m.Pending.Set(float64(report.Pending))
	m.Duration.WithLabelValues(report.Strategy).Observe(report.Duration.Seconds())
	m.Evaluations.Add(float64(report.Evaluations))
	m.TrafficFactor.Set(report.TrafficFactor)
}
