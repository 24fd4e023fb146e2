// metrics.go - Prometheus collectors for inspections

package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/bosocmputer/degradation_inspector/internal/common"
	"github.com/bosocmputer/degradation_inspector/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for analyses_total
const (
	OutcomeSuccess   = "success"
	OutcomeInference = "inference_error"
	OutcomeResource  = "resource_error"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// Metrics owns a private registry so tests can create as many as they like
type Metrics struct {
	registry            *prometheus.Registry
	analyses            *prometheus.CounterVec
	inferenceDuration   prometheus.Histogram
	degradationDetected *prometheus.CounterVec
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inspector",
			Name:      "analyses_total",
			Help:      "Inspection requests by outcome.",
		}, []string{"outcome"}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "inspector",
			Name:      "inference_duration_seconds",
			Help:      "Time spent in the detecting stage.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		degradationDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inspector",
			Name:      "degradation_detected_total",
			Help:      "Completed reports by detection result.",
		}, []string{"detected"}),
	}

	m.registry.MustRegister(
		m.analyses,
		m.inferenceDuration,
		m.degradationDetected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAnalysis records one finished request
func (m *Metrics) ObserveAnalysis(outcome string) {
	m.analyses.WithLabelValues(outcome).Inc()
}

// ObserveInference records the duration of the detecting stage
func (m *Metrics) ObserveInference(d time.Duration) {
	m.inferenceDuration.Observe(d.Seconds())
}

// ObserveReport records whether a completed report flags degradation
func (m *Metrics) ObserveReport(detected bool) {
	m.degradationDetected.WithLabelValues(strconv.FormatBool(detected)).Inc()
}

// WorkflowObserver times the detecting stage from the request's step log and counts finished
// reports by their detection verdict
func (m *Metrics) WorkflowObserver() workflow.Observer {
	return func(ctx context.Context, stage workflow.Stage, state *workflow.State, err error) {
		switch stage {
		case workflow.Detecting:
			rc, ok := common.Lookup(ctx)
			if !ok {
				return
			}
			if step, ok := rc.LastStep(workflow.Detecting.String()); ok {
				m.ObserveInference(time.Duration(step.Duration) * time.Millisecond)
			}
		case workflow.Done:
			if err == nil {
				m.ObserveReport(workflow.DegradationDetected(state.FinalReport))
			}
		}
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
