// service.go - Inference service: two-attempt model load and single-image analysis

package ai

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bosocmputer/degradation_inspector/internal/chat"
	"github.com/bosocmputer/degradation_inspector/internal/common"
	"github.com/bosocmputer/degradation_inspector/internal/processor"
)

const defaultMaxNewTokens = 256

var (
	errEmptyOutput   = errors.New("model returned no text after cleaning")
	errServiceClosed = errors.New("inference service is closed")
)

// Options configures a Service.
type Options struct {
	Primary           LoadConfig
	Secondary         LoadConfig
	MaxNewTokens      int
	Temperature       float64
	MaxImageDimension int
}

// Service owns the loaded model and serializes generation on it.
type Service struct {
	opts         Options
	model        VisionModel
	loaded       LoadConfig
	usedFallback bool
	slot         chan struct{} // capacity 1: one generation in flight
}

// NewService loads the model with the primary configuration, falling back once to the secondary.
func NewService(ctx context.Context, opts Options, load Loader) (*Service, error) {
	if opts.MaxNewTokens <= 0 {
		opts.MaxNewTokens = defaultMaxNewTokens
	}

	log.Printf("🔧 Loading model with primary configuration: %s", opts.Primary)
	model, primaryErr := load(ctx, opts.Primary)
	if primaryErr == nil {
		log.Printf("✅ Model loaded: %s", model.Name())
		return newService(opts, model, opts.Primary, false), nil
	}

	log.Printf("⚠️  Primary configuration failed (%v), retrying with secondary configuration: %s",
		primaryErr, opts.Secondary)
	model, secondaryErr := load(ctx, opts.Secondary)
	if secondaryErr != nil {
		return nil, &ModelLoadError{
			Primary:      opts.Primary,
			Secondary:    opts.Secondary,
			PrimaryErr:   primaryErr,
			SecondaryErr: secondaryErr,
		}
	}

	log.Printf("✅ Model loaded with secondary configuration: %s", model.Name())
	return newService(opts, model, opts.Secondary, true), nil
}

func newService(opts Options, model VisionModel, loaded LoadConfig, usedFallback bool) *Service {
	return &Service{
		opts:         opts,
		model:        model,
		loaded:       loaded,
		usedFallback: usedFallback,
		slot:         make(chan struct{}, 1),
	}
}

// LoadedConfig returns the configuration the model was loaded with.
func (s *Service) LoadedConfig() LoadConfig { return s.loaded }

// UsedFallback reports whether the secondary configuration is active.
func (s *Service) UsedFallback() bool { return s.usedFallback }

// ModelName returns the backend model identifier.
func (s *Service) ModelName() string { return s.loaded.ModelID }

// Analyze runs the degradation prompt on one image and returns the cleaned model answer.
func (s *Service) Analyze(ctx context.Context, imagePath string) (string, error) {
	reqCtx := common.FromContext(ctx)

	reqCtx.StartSubStep("prepare_image")
	prepared, err := processor.PrepareImage(imagePath, s.opts.MaxImageDimension)
	if err != nil {
		reqCtx.EndSubStep("failed")
		return "", &InferenceError{ImagePath: imagePath, Op: "prepare", Err: err}
	}
	reqCtx.EndSubStep(fmt.Sprintf("%dx%d %s, %d bytes",
		prepared.Width, prepared.Height, prepared.MIMEType, len(prepared.Data)))

	req := GenerateRequest{
		Messages: []chat.Message{
			chat.UserMessage(chat.ImagePart(imagePath), chat.TextPart(AnalysisPrompt)),
		},
		Images: map[string]EncodedImage{
			imagePath: {Data: prepared.Data, MIMEType: prepared.MIMEType},
		},
		MaxNewTokens: s.opts.MaxNewTokens,
		Temperature:  s.opts.Temperature,
	}

	reqCtx.StartSubStep("wait_model")
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		reqCtx.EndSubStep("canceled")
		return "", ctx.Err()
	}
	defer func() { <-s.slot }()
	reqCtx.EndSubStep("")

	if s.model == nil {
		return "", &InferenceError{ImagePath: imagePath, Op: "generate", Err: errServiceClosed}
	}

	reqCtx.StartSubStep("generate")
	result, err := s.model.Generate(ctx, req)
	if err != nil {
		reqCtx.EndSubStep("failed")
		classified := classifyGenerateError(imagePath, err)
		reqCtx.LogError("Generation failed: %v", classified)
		return "", classified
	}
	reqCtx.EndSubStep(fmt.Sprintf("model=%s tokens=%d", s.model.Name(), result.Usage.TotalTokens))
	reqCtx.AddTokens(result.Usage)

	if result.Truncated {
		reqCtx.LogWarning("Output reached the %d token budget and was cut off", s.opts.MaxNewTokens)
	}

	reqCtx.StartSubStep("clean_output")
	text := CleanOutput(result.Text)
	reqCtx.EndSubStep(fmt.Sprintf("%d chars", len(text)))
	if text == "" {
		return "", &InferenceError{ImagePath: imagePath, Op: "decode", Err: errEmptyOutput}
	}

	return text, nil
}

// Close releases the model. It waits for an in-flight generation to finish.
func (s *Service) Close() error {
	s.slot <- struct{}{}
	defer func() { <-s.slot }()

	if s.model == nil {
		return nil
	}
	err := s.model.Close()
	s.model = nil
	log.Printf("🔌 Inference service closed")
	return err
}
