package common

import (
	"context"
	"errors"
	"testing"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in       int
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.expected {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestStepsAccumulateTokens(t *testing.T) {
	rc := NewRequestContext("test")

	rc.StartStep("detecting")
	rc.StartSubStep("generate")
	rc.EndSubStep("model=stub")
	rc.EndStep("success", &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, nil)

	rc.StartStep("reporting")
	rc.EndStep("failed", nil, errors.New("boom"))

	if len(rc.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(rc.Steps))
	}
	if len(rc.Steps[0].SubSteps) != 1 {
		t.Errorf("first step sub-steps = %d, want 1", len(rc.Steps[0].SubSteps))
	}
	if rc.Steps[1].Error != "boom" {
		t.Errorf("second step error = %q", rc.Steps[1].Error)
	}
	if rc.TotalTokens.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", rc.TotalTokens.TotalTokens)
	}

	partial := rc.GetPartialSummary()
	if completed := partial["completed_steps"].([]string); len(completed) != 1 || completed[0] != "detecting" {
		t.Errorf("completed_steps = %v", completed)
	}
}

func TestFromContext(t *testing.T) {
	rc := NewRequestContext("test")
	ctx := WithRequestContext(context.Background(), rc)

	if got := FromContext(ctx); got != rc {
		t.Error("FromContext should return the attached request context")
	}
	if got := FromContext(context.Background()); got == nil || got.Source != "internal" {
		t.Errorf("FromContext(empty) = %+v, want fresh internal context", got)
	}
}

func TestLookupAndLastStep(t *testing.T) {
	if _, ok := Lookup(context.Background()); ok {
		t.Error("Lookup on a bare context should report false")
	}

	rc := NewRequestContext("test")
	ctx := WithRequestContext(context.Background(), rc)
	got, ok := Lookup(ctx)
	if !ok || got != rc {
		t.Fatal("Lookup should return the attached context")
	}

	if _, ok := rc.LastStep("detecting"); ok {
		t.Error("no steps finished yet")
	}
	rc.StartStep("detecting")
	rc.EndStep("success", nil, nil)
	if step, ok := rc.LastStep("detecting"); !ok || step.Status != "success" {
		t.Errorf("LastStep = %+v, %v", step, ok)
	}
	rc.StartStep("reporting")
	rc.EndStep("success", nil, nil)
	if _, ok := rc.LastStep("detecting"); ok {
		t.Error("LastStep should only match the most recent step")
	}
}
