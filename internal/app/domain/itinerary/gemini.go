package itinerary

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

// GeminiClient talks to the Gemini API through google.golang.org/genai.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float32, maxTokens int) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   int32(maxTokens),
	}, nil
}

func (g *GeminiClient) Provider() string { return "gemini" }

func (g *GeminiClient) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	ctx, span := otel.Tracer("GeminiClient").Start(ctx, "GenerateContent", trace.WithAttributes(
		attribute.String("llm.provider", "gemini"),
		attribute.String("llm.model", g.model),
	))
	defer span.End()

	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   g.maxTokens,
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.User), cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return nil, classifyGeminiError(err)
	}

	out := &Completion{Text: resp.Text(), Provider: g.Provider(), Model: g.model}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	span.SetAttributes(attribute.Int("llm.total_tokens", out.TotalTokens))
	return out, nil
}

// classifyGeminiError turns rejected credentials into a configuration error.
// Everything else stays a plain error for the generator to report as retryable.
func classifyGeminiError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("gemini rejected the API key: %v: %w", err, models.ErrConfiguration)
	}
	return fmt.Errorf("gemini: %w", err)
}
