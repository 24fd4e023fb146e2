// interface.go - Vision model interface for supporting multiple AI backends

package ai

import (
	"context"
	"fmt"

	"github.com/bosocmputer/degradation_inspector/internal/chat"
	"github.com/bosocmputer/degradation_inspector/internal/common"
)

// EncodedImage is an image already prepared for the model.
type EncodedImage struct {
	Data     []byte
	MIMEType string
}

// GenerateRequest is one generation call. Image parts in Messages are resolved through Images by path.
type GenerateRequest struct {
	Messages     []chat.Message
	Images       map[string]EncodedImage
	MaxNewTokens int
	Temperature  float64
}

// GenerateResult is the decoded model output before cleaning.
type GenerateResult struct {
	Text      string
	Truncated bool // generation stopped at MaxNewTokens
	Usage     common.TokenUsage
}

// VisionModel defines the interface that every model backend must implement
type VisionModel interface {
	// Generate runs one multimodal completion
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// Name returns the served model identifier
	Name() string

	// Close releases the backend client
	Close() error
}

// LoadConfig describes one attempt at loading the model.
type LoadConfig struct {
	ModelID   string `json:"model_id"`
	Device    string `json:"device"`
	DType     string `json:"dtype"`
	Attention string `json:"attention"`
}

func (c LoadConfig) String() string {
	return fmt.Sprintf("%s [%s, %s, %s]", c.ModelID, c.Device, c.DType, c.Attention)
}

// Loader constructs a backend for one load configuration. It must fail when the model is not usable.
type Loader func(ctx context.Context, cfg LoadConfig) (VisionModel, error)
