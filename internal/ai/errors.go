// errors.go - Failure taxonomy and backend error categorization

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

var (
	ErrModelLoad = errors.New("model load failed")
	ErrInference = errors.New("inference failed")
	ErrResource  = errors.New("inference resources exhausted")
)

// ModelLoadError is returned when both the primary and the secondary configuration fail.
type ModelLoadError struct {
	Primary      LoadConfig
	Secondary    LoadConfig
	PrimaryErr   error
	SecondaryErr error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model could not be loaded: primary %s: %v; secondary %s: %v",
		e.Primary, e.PrimaryErr, e.Secondary, e.SecondaryErr)
}

func (e *ModelLoadError) Unwrap() []error {
	return []error{e.PrimaryErr, e.SecondaryErr}
}

func (e *ModelLoadError) Is(target error) bool { return target == ErrModelLoad }

// InferenceError covers unreadable images, preprocessing failures and unusable model output.
type InferenceError struct {
	ImagePath string
	Op        string
	Err       error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed for %s (%s): %v", e.ImagePath, e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// ResourceError is returned when the backend runs out of memory or capacity.
type ResourceError struct {
	Category   string
	StatusCode int
	Err        error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("inference resources exhausted [%s] (status: %d): %v", e.Category, e.StatusCode, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

func (e *ResourceError) Is(target error) bool { return target == ErrResource }

// BackendError is a categorized model backend error
type BackendError struct {
	OriginalError error
	Category      string
	StatusCode    int
	Message       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("[%s] %s (status: %d)", e.Category, e.Message, e.StatusCode)
}

func (e *BackendError) Unwrap() error { return e.OriginalError }

// Exhausted reports whether the category means the backend has no capacity left.
func (e *BackendError) Exhausted() bool {
	switch e.Category {
	case "rate_limit", "quota_exceeded", "out_of_memory", "overloaded":
		return true
	}
	return false
}

// categorizeBackendError maps Gemini and OpenAI-compatible errors onto a category
func categorizeBackendError(err error) *BackendError {
	if err == nil {
		return nil
	}

	backendErr := &BackendError{
		OriginalError: err,
		Category:      "unknown",
		Message:       err.Error(),
	}

	var gErr *googleapi.Error
	var oaErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &gErr):
		backendErr.StatusCode = gErr.Code
	case errors.As(err, &oaErr):
		backendErr.StatusCode = oaErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		backendErr.StatusCode = reqErr.HTTPStatusCode
	}

	switch backendErr.StatusCode {
	case 0:
		// no status code, fall through to message patterns
	case http.StatusBadRequest:
		backendErr.Category = "bad_request"
		backendErr.Message = "Invalid request format or parameters"
	case http.StatusUnauthorized:
		backendErr.Category = "unauthorized"
		backendErr.Message = "Invalid API key or authentication failed"
	case http.StatusForbidden:
		backendErr.Category = "forbidden"
		backendErr.Message = "API key lacks required permissions"
	case http.StatusNotFound:
		backendErr.Category = "not_found"
		backendErr.Message = "Model not found or invalid endpoint"
	case http.StatusRequestEntityTooLarge:
		backendErr.Category = "payload_too_large"
		backendErr.Message = "Request size exceeds limit (reduce image size)"
	case http.StatusTooManyRequests:
		backendErr.Category = "rate_limit"
		backendErr.Message = "Rate limit exceeded - too many requests"
	case http.StatusServiceUnavailable:
		backendErr.Category = "overloaded"
		backendErr.Message = "Model server is overloaded"
	default:
		if backendErr.StatusCode >= 500 {
			backendErr.Category = "server_error"
			backendErr.Message = fmt.Sprintf("Model server error (%d)", backendErr.StatusCode)
		} else {
			backendErr.Category = "unknown_api_error"
		}
	}
	if backendErr.Category != "unknown" && backendErr.Category != "server_error" {
		return backendErr
	}

	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "out of memory"):
		backendErr.Category = "out_of_memory"
		backendErr.Message = "Model server ran out of memory"
	case strings.Contains(errMsg, "resource exhausted") || strings.Contains(errMsg, "resource_exhausted"):
		backendErr.Category = "rate_limit"
		backendErr.Message = "Backend resources exhausted"
	case strings.Contains(errMsg, "quota"):
		backendErr.Category = "quota_exceeded"
		backendErr.Message = "API quota exceeded"
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline"):
		backendErr.Category = "timeout"
		backendErr.Message = "Request timeout"
	case strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network"):
		backendErr.Category = "network_error"
		backendErr.Message = "Network connection error"
	}

	return backendErr
}

// classifyGenerateError turns a backend failure into ResourceError or InferenceError.
// Context cancellation is returned as is.
func classifyGenerateError(imagePath string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	backendErr := categorizeBackendError(err)
	if backendErr.Exhausted() {
		return &ResourceError{
			Category:   backendErr.Category,
			StatusCode: backendErr.StatusCode,
			Err:        backendErr,
		}
	}
	return &InferenceError{ImagePath: imagePath, Op: "generate", Err: backendErr}
}
