// gemini.go - Gemini vision backend

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bosocmputer/degradation_inspector/internal/chat"
	"github.com/bosocmputer/degradation_inspector/internal/common"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiModel implements VisionModel on the Gemini API
type GeminiModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewGeminiLoader returns a Loader that connects to Gemini and checks the model exists.
func NewGeminiLoader(apiKey string) Loader {
	return func(ctx context.Context, cfg LoadConfig) (VisionModel, error) {
		client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}

		model := client.GenerativeModel(cfg.ModelID)
		if _, err := model.Info(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("gemini model %s unavailable: %w", cfg.ModelID, categorizeBackendError(err))
		}

		return &GeminiModel{client: client, model: model, name: cfg.ModelID}, nil
	}
}

// Name returns the Gemini model name
func (g *GeminiModel) Name() string { return g.name }

// Close closes the Gemini client
func (g *GeminiModel) Close() error { return g.client.Close() }

// Generate sends the conversation to Gemini. Earlier turns become chat history.
func (g *GeminiModel) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	g.model.SetMaxOutputTokens(int32(req.MaxNewTokens))
	g.model.SetTemperature(float32(req.Temperature))

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		parts, err := geminiParts(msg, req.Images)
		if err != nil {
			return nil, err
		}
		role := "user"
		if msg.Role == chat.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	last := contents[len(contents)-1]
	var resp *genai.GenerateContentResponse
	var err error
	if len(contents) == 1 {
		resp, err = g.model.GenerateContent(ctx, last.Parts...)
	} else {
		session := g.model.StartChat()
		session.History = contents[:len(contents)-1]
		resp, err = session.SendMessage(ctx, last.Parts...)
	}
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		result.Text = sb.String()
		result.Truncated = resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens
	}

	if resp.UsageMetadata != nil {
		result.Usage = common.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return result, nil
}

func geminiParts(msg chat.Message, images map[string]EncodedImage) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, len(msg.Content))
	for _, part := range msg.Content {
		if path, ok := part.Image(); ok {
			img, found := images[path]
			if !found {
				return nil, fmt.Errorf("image %s was not prepared", path)
			}
			parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
			continue
		}
		if text, ok := part.Text(); ok {
			parts = append(parts, genai.Text(text))
		}
	}
	return parts, nil
}
