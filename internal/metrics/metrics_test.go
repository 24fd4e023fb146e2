package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bosocmputer/degradation_inspector/internal/common"
	"github.com/bosocmputer/degradation_inspector/internal/workflow"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveAnalysis(OutcomeSuccess)
	m.ObserveAnalysis(OutcomeSuccess)
	m.ObserveAnalysis(OutcomeRejected)
	m.ObserveInference(1200 * time.Millisecond)
	m.ObserveReport(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`inspector_analyses_total{outcome="success"} 2`,
		`inspector_analyses_total{outcome="rejected"} 1`,
		`inspector_inference_duration_seconds_count 1`,
		`inspector_degradation_detected_total{detected="true"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestWorkflowObserverCountsDoneOnly(t *testing.T) {
	m := New()
	observe := m.WorkflowObserver()

	detected := &workflow.State{FinalReport: workflow.FormatReport("Degradation Detected: Yes\nType: Noised")}
	clean := &workflow.State{FinalReport: workflow.FormatReport("Degradation Detected: No")}

	observe(context.Background(), workflow.Detecting, detected, nil)
	observe(context.Background(), workflow.Done, detected, nil)
	observe(context.Background(), workflow.Done, clean, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`inspector_degradation_detected_total{detected="true"} 1`,
		`inspector_degradation_detected_total{detected="false"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

type sleepyAnalyzer struct{ delay time.Duration }

func (s sleepyAnalyzer) Analyze(ctx context.Context, imagePath string) (string, error) {
	time.Sleep(s.delay)
	return "Degradation Detected: No", nil
}

func TestWorkflowObserverTimesDetectingStage(t *testing.T) {
	m := New()
	flow := workflow.New(sleepyAnalyzer{delay: 20 * time.Millisecond}, workflow.WithObserver(m.WorkflowObserver()))

	ctx := common.WithRequestContext(context.Background(), common.NewRequestContext("test"))
	if _, err := flow.Invoke(ctx, workflow.Request{ImagePath: "x.png"}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "inspector_inference_duration_seconds_count 1") {
		t.Error("detecting stage not observed exactly once")
	}
	if strings.Contains(body, "inspector_inference_duration_seconds_sum 0\n") {
		t.Errorf("expected a non-zero detecting duration:\n%s", body)
	}
}

func TestWorkflowObserverSkipsTimingWithoutRequestContext(t *testing.T) {
	m := New()
	flow := workflow.New(sleepyAnalyzer{}, workflow.WithObserver(m.WorkflowObserver()))
	if _, err := flow.Invoke(context.Background(), workflow.Request{ImagePath: "x.png"}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "inspector_inference_duration_seconds_count 0") {
		t.Error("no request context means no timing")
	}
}
