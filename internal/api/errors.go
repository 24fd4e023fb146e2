// errors.go - Maps inspection failures to HTTP responses

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/bosocmputer/degradation_inspector/internal/ai"
	"github.com/gin-gonic/gin"
)

// errorResponse converts an inspection error to a status code and a user-facing body
func errorResponse(err error) (int, gin.H) {
	body := gin.H{
		"error":   "Inspection failed",
		"details": err.Error(),
	}

	var status int
	switch {
	case errors.Is(err, errRejected):
		status = http.StatusTooManyRequests
		body["category"] = "rate_limit"
		body["suggestion"] = "Too many requests. Please wait a moment and try again."

	case errors.Is(err, ai.ErrInference):
		status = http.StatusUnprocessableEntity
		body["category"] = "inference"
		body["suggestion"] = "The image could not be analyzed. Check that it is a valid JPG or PNG file."

	case errors.Is(err, ai.ErrResource):
		status = http.StatusServiceUnavailable
		body["category"] = "resources"
		body["suggestion"] = "The model is out of capacity. Please try again in a few minutes."
		var resErr *ai.ResourceError
		if errors.As(err, &resErr) {
			body["reason"] = resErr.Category
		}

	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
		body["category"] = "timeout"
		body["suggestion"] = "Request took too long. Please try again with a smaller image."

	default:
		status = http.StatusInternalServerError
		body["category"] = "internal"
		body["suggestion"] = "An unexpected error occurred. Please try again or contact support."
	}

	return status, body
}
