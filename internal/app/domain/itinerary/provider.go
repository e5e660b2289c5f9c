package itinerary

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	"github.com/FACorreiaa/go-voyage/internal/pkg/config"
)

// Prompt is what is sent to the text-generation collaborator.
type Prompt struct {
	System string
	User   string
}

// Completion is the raw answer of a provider plus its token accounting.
type Completion struct {
	Text             string
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TextGenerator is a chat-completion backend that answers with a JSON document.
type TextGenerator interface {
	Complete(ctx context.Context, prompt Prompt) (*Completion, error)
	Provider() string
}

// NewTextGenerator builds the provider selected in cfg. A missing credential
// does not stop the service: the returned generator fails every call with
// models.ErrConfiguration so the rest of the API keeps working.
func NewTextGenerator(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) TextGenerator {
	if cfg.APIKey() == "" {
		logger.Error("Text generation credential missing, itinerary generation disabled",
			zap.String("provider", cfg.Provider))
		return unconfigured{provider: cfg.Provider, reason: "no API key configured for " + cfg.Provider}
	}

	switch cfg.Provider {
	case config.ProviderGroq:
		return NewOpenAICompatibleClient(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel, cfg.Temperature, cfg.MaxTokens)
	default:
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature, cfg.MaxTokens)
		if err != nil {
			logger.Error("Failed to create Gemini client, itinerary generation disabled", zap.Error(err))
			return unconfigured{provider: cfg.Provider, reason: err.Error()}
		}
		return client
	}
}

type unconfigured struct {
	provider string
	reason   string
}

func (u unconfigured) Complete(context.Context, Prompt) (*Completion, error) {
	return nil, fmt.Errorf("%s: %w", u.reason, models.ErrConfiguration)
}

func (u unconfigured) Provider() string { return u.provider }
