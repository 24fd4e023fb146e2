package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/bosocmputer/degradation_inspector/internal/ai"
)

type stubAnalyzer struct {
	result string
	err    error
	calls  []string
}

func (s *stubAnalyzer) Analyze(ctx context.Context, imagePath string) (string, error) {
	s.calls = append(s.calls, imagePath)
	return s.result, s.err
}

func TestInvokeProducesReport(t *testing.T) {
	analyzer := &stubAnalyzer{result: "- Degradation Detected: Yes\n- Type: Blur\n- Severity: High\n- Description: Edges are soft."}
	var stages []Stage

	wf := New(analyzer, WithObserver(func(ctx context.Context, stage Stage, state *State, err error) {
		stages = append(stages, stage)
	}))

	state, err := wf.Invoke(context.Background(), Request{ImagePath: "uploads/a.jpg"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	expected := "--- [AI Master Report] ---\n" +
		"- Degradation Detected: Yes\n- Type: Blur\n- Severity: High\n- Description: Edges are soft.\n" +
		"--------------------------"
	if state.FinalReport != expected {
		t.Errorf("FinalReport =\n%q\nwant\n%q", state.FinalReport, expected)
	}
	if state.ImagePath != "uploads/a.jpg" || state.AnalysisResult != analyzer.result {
		t.Errorf("state = %+v", state)
	}
	if len(analyzer.calls) != 1 || analyzer.calls[0] != "uploads/a.jpg" {
		t.Errorf("analyzer calls = %v", analyzer.calls)
	}
	if len(stages) != 3 || stages[0] != Detecting || stages[1] != Reporting || stages[2] != Done {
		t.Errorf("stages = %v", stages)
	}
}

func TestInvokeFinalReport(t *testing.T) {
	tests := []struct {
		name      string
		imagePath string
		analysis  string
		want      string
	}{
		{
			name:      "clean image",
			imagePath: "test.png",
			analysis:  "- Degradation Detected: No\n- Type: None\n- Severity: None\n- Description: clean",
			want: "--- [AI Master Report] ---\n" +
				"- Degradation Detected: No\n- Type: None\n- Severity: None\n- Description: clean\n" +
				"--------------------------",
		},
		{
			name:      "noised image",
			imagePath: "dataset/Denoise/Noised/noise_1.png",
			analysis:  "- Degradation Detected: Yes\n- Type: Noised\n- Severity: Medium\n- Description: Detected Noised artifacts in the image.",
			want: "--- [AI Master Report] ---\n" +
				"- Degradation Detected: Yes\n- Type: Noised\n- Severity: Medium\n- Description: Detected Noised artifacts in the image.\n" +
				"--------------------------",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &stubAnalyzer{result: tt.analysis}
			state, err := New(analyzer).Invoke(context.Background(), Request{ImagePath: tt.imagePath})
			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}
			if state.FinalReport != tt.want {
				t.Errorf("FinalReport =\n%q\nwant\n%q", state.FinalReport, tt.want)
			}
			if len(analyzer.calls) != 1 || analyzer.calls[0] != tt.imagePath {
				t.Errorf("analyzer calls = %v", analyzer.calls)
			}
		})
	}
}

func TestInvokeReportsArbitraryText(t *testing.T) {
	wf := New(&stubAnalyzer{result: "not the expected format at all"})

	state, err := wf.Invoke(context.Background(), Request{ImagePath: "x.png"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if state.FinalReport != ReportHeader+"\nnot the expected format at all\n"+ReportFooter {
		t.Errorf("FinalReport = %q", state.FinalReport)
	}
}

func TestInvokePropagatesErrorUnmodified(t *testing.T) {
	cause := &ai.InferenceError{ImagePath: "x.png", Op: "prepare", Err: errors.New("bad header")}
	var observed error

	wf := New(&stubAnalyzer{err: cause}, WithObserver(func(ctx context.Context, stage Stage, state *State, err error) {
		if stage == Detecting {
			observed = err
		}
	}))

	state, err := wf.Invoke(context.Background(), Request{ImagePath: "x.png"})
	if state != nil {
		t.Errorf("expected no state on failure, got %+v", state)
	}
	if err != error(cause) {
		t.Errorf("error = %v (%T), want the analyzer error itself", err, err)
	}
	if observed != error(cause) {
		t.Error("observer should see the detecting failure")
	}
}

func TestReportHeaderFooterLength(t *testing.T) {
	if len(ReportHeader) != 26 || len(ReportFooter) != len(ReportHeader) {
		t.Errorf("header %d chars, footer %d chars", len(ReportHeader), len(ReportFooter))
	}
}

func TestDegradationDetected(t *testing.T) {
	tests := []struct {
		report   string
		expected bool
	}{
		{FormatReport("- Degradation Detected: Yes"), true},
		{FormatReport("- Degradation Detected: No"), false},
		{FormatReport("degradation detected: yes"), false},
		{"", false},
	}
	for _, tt := range tests {
		if got := DegradationDetected(tt.report); got != tt.expected {
			t.Errorf("DegradationDetected(%q) = %v, want %v", tt.report, got, tt.expected)
		}
	}
}
