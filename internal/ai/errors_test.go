package ai

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

func TestCategorizeBackendError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCategory  string
		wantExhausted bool
	}{
		{name: "gemini quota status", err: &googleapi.Error{Code: 429}, wantCategory: "rate_limit", wantExhausted: true},
		{name: "gemini not found", err: &googleapi.Error{Code: 404}, wantCategory: "not_found"},
		{name: "openai overloaded", err: &openai.APIError{HTTPStatusCode: 503, Message: "busy"}, wantCategory: "overloaded", wantExhausted: true},
		{name: "openai request error", err: &openai.RequestError{HTTPStatusCode: 401, Err: errors.New("no key")}, wantCategory: "unauthorized"},
		{name: "vllm oom in 500", err: &openai.APIError{HTTPStatusCode: 500, Message: "CUDA out of memory"}, wantCategory: "out_of_memory", wantExhausted: true},
		{name: "wrapped quota message", err: fmt.Errorf("call: %w", errors.New("quota exceeded for project")), wantCategory: "quota_exceeded", wantExhausted: true},
		{name: "network", err: errors.New("dial tcp: connection refused"), wantCategory: "network_error"},
		{name: "unknown", err: errors.New("weird"), wantCategory: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := categorizeBackendError(tt.err)
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %s, want %s", got.Category, tt.wantCategory)
			}
			if got.Exhausted() != tt.wantExhausted {
				t.Errorf("Exhausted() = %v, want %v", got.Exhausted(), tt.wantExhausted)
			}
			if !errors.Is(got, tt.err) {
				t.Error("categorized error should unwrap to the original")
			}
		})
	}
}

func TestErrorSentinels(t *testing.T) {
	cause := errors.New("cause")

	if err := error(&InferenceError{ImagePath: "a.png", Op: "prepare", Err: cause}); !errors.Is(err, ErrInference) || !errors.Is(err, cause) {
		t.Errorf("InferenceError should match ErrInference and its cause")
	}
	if err := error(&ResourceError{Category: "out_of_memory", Err: cause}); !errors.Is(err, ErrResource) || errors.Is(err, ErrInference) {
		t.Errorf("ResourceError should match only ErrResource")
	}
	loadErr := error(&ModelLoadError{PrimaryErr: cause, SecondaryErr: errors.New("other")})
	if !errors.Is(loadErr, ErrModelLoad) || !errors.Is(loadErr, cause) {
		t.Errorf("ModelLoadError should match ErrModelLoad and both causes")
	}
}
