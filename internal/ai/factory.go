// factory.go - Backend selection and service options from configuration

package ai

import (
	"fmt"
	"log"

	"github.com/bosocmputer/degradation_inspector/configs"
)

// CreateLoader creates a model loader based on configuration
func CreateLoader() (Loader, error) {
	switch configs.AI_PROVIDER {
	case "gemini":
		log.Printf("🔵 Using Gemini vision backend")
		return NewGeminiLoader(configs.GEMINI_API_KEY), nil

	case "openai":
		log.Printf("🔷 Using OpenAI-compatible vision backend at %s", configs.OPENAI_BASE_URL)
		return NewOpenAILoader(configs.OPENAI_BASE_URL, configs.OPENAI_API_KEY), nil

	default:
		return nil, fmt.Errorf("unsupported AI provider: %s (supported: openai, gemini)", configs.AI_PROVIDER)
	}
}

// OptionsFromConfig builds service options with the primary and secondary load configurations
func OptionsFromConfig() Options {
	return Options{
		Primary: LoadConfig{
			ModelID:   configs.MODEL_NAME,
			Device:    configs.MODEL_DEVICE,
			DType:     configs.PRIMARY_DTYPE,
			Attention: configs.PRIMARY_ATTENTION,
		},
		Secondary: LoadConfig{
			ModelID:   configs.FALLBACK_MODEL_NAME,
			Device:    configs.MODEL_DEVICE,
			DType:     configs.FALLBACK_DTYPE,
			Attention: configs.FALLBACK_ATTENTION,
		},
		MaxNewTokens:      configs.MAX_NEW_TOKENS,
		Temperature:       configs.TEMPERATURE,
		MaxImageDimension: configs.MAX_IMAGE_DIMENSION,
	}
}
