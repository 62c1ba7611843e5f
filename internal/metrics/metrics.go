package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service collectors on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTPRequests counts requests by method, route template, and status
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration records request durations in seconds
	HTTPDuration *prometheus.HistogramVec

	// PlanRuns counts planning runs by route and whether they were persisted
	PlanRuns *prometheus.CounterVec
	// PlannedOperations counts operations emitted by the planner
	PlannedOperations prometheus.Counter
	// SkippedCars counts yard cars left out of a plan, by skip code
	SkippedCars *prometheus.CounterVec
	// Executions counts operation executions by outcome
	Executions *prometheus.CounterVec
	// StatusTransitions counts switchlist status changes by target status
	StatusTransitions *prometheus.CounterVec
}

// New builds the collectors and registers them, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"method", "path", "status"},
		),
		PlanRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "switchlist_plan_runs_total", Help: "Planning runs by route and mode."},
			[]string{"route", "mode"},
		),
		PlannedOperations: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "switchlist_planned_operations_total", Help: "Operations emitted by the planner."},
		),
		SkippedCars: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "switchlist_skipped_cars_total", Help: "Yard cars skipped by the planner, by reason."},
			[]string{"reason"},
		),
		Executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "switchlist_operation_executions_total", Help: "Operation executions by outcome."},
			[]string{"outcome"},
		),
		StatusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "switchlist_status_transitions_total", Help: "Switchlist status transitions by target status."},
			[]string{"status"},
		),
	}
	m.Registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.PlanRuns,
		m.PlannedOperations,
		m.SkippedCars,
		m.Executions,
		m.StatusTransitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePlan records one planning run.
func (m *Metrics) ObservePlan(route, mode string, planned int, skipped map[string]int) {
	m.PlanRuns.WithLabelValues(route, mode).Inc()
	m.PlannedOperations.Add(float64(planned))
	for reason, n := range skipped {
		m.SkippedCars.WithLabelValues(reason).Add(float64(n))
	}
}
