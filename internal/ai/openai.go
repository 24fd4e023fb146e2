// openai.go - OpenAI-compatible vision backend (vLLM, Ollama, OpenAI)

package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/bosocmputer/degradation_inspector/internal/chat"
	"github.com/bosocmputer/degradation_inspector/internal/common"
	"github.com/sashabaranov/go-openai"
)

// OpenAIModel implements VisionModel on a chat completions endpoint
type OpenAIModel struct {
	client *openai.Client
	name   string
}

// NewOpenAILoader returns a Loader that checks the server actually serves the requested model.
func NewOpenAILoader(baseURL, apiKey string) Loader {
	return func(ctx context.Context, cfg LoadConfig) (VisionModel, error) {
		clientConfig := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			clientConfig.BaseURL = baseURL
		}
		client := openai.NewClientWithConfig(clientConfig)

		if _, err := client.GetModel(ctx, cfg.ModelID); err != nil {
			return nil, fmt.Errorf("model %s not served at %s: %w", cfg.ModelID, clientConfig.BaseURL, categorizeBackendError(err))
		}

		return &OpenAIModel{client: client, name: cfg.ModelID}, nil
	}
}

// Name returns the served model name
func (o *OpenAIModel) Name() string { return o.name }

// Close is a no-op; the HTTP client holds no dedicated resources
func (o *OpenAIModel) Close() error { return nil }

// Generate runs one chat completion with inline data-URL images
func (o *OpenAIModel) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		converted, err := openAIMessage(msg, req.Images)
		if err != nil {
			return nil, err
		}
		messages = append(messages, converted)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.name,
		Messages:    messages,
		MaxTokens:   req.MaxNewTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{
		Usage: common.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 {
		result.Text = resp.Choices[0].Message.Content
		result.Truncated = resp.Choices[0].FinishReason == openai.FinishReasonLength
	}
	return result, nil
}

func openAIMessage(msg chat.Message, images map[string]EncodedImage) (openai.ChatCompletionMessage, error) {
	if msg.Role == chat.RoleAssistant {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Text()}, nil
	}

	parts := make([]openai.ChatMessagePart, 0, len(msg.Content))
	for _, part := range msg.Content {
		if path, ok := part.Image(); ok {
			img, found := images[path]
			if !found {
				return openai.ChatCompletionMessage{}, fmt.Errorf("image %s was not prepared", path)
			}
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(img),
					Detail: openai.ImageURLDetailAuto,
				},
			})
			continue
		}
		if text, ok := part.Text(); ok {
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: text})
		}
	}

	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}, nil
}

func dataURL(img EncodedImage) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
}
