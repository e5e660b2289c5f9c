package itinerary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/observability/metrics"
)

// Prices in USD per million tokens.
var modelPricing = map[string]struct {
	InputPer1M  float64
	OutputPer1M float64
}{
	"gemini-2.5-flash":        {InputPer1M: 0.30, OutputPer1M: 2.50},
	"gemini-2.5-pro":          {InputPer1M: 1.25, OutputPer1M: 10.00},
	"gemini-2.0-flash":        {InputPer1M: 0.10, OutputPer1M: 0.40},
	"llama-3.3-70b-versatile": {InputPer1M: 0.59, OutputPer1M: 0.79},
	"llama-3.1-8b-instant":    {InputPer1M: 0.05, OutputPer1M: 0.08},
}

// CalculateCost estimates the price of one completion. Unknown models cost 0.
func CalculateCost(model string, promptTokens, completionTokens int) float64 {
	normalized := strings.ToLower(model)
	best := ""
	for key := range modelPricing {
		if strings.Contains(normalized, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return 0
	}
	p := modelPricing[best]
	return float64(promptTokens)/1_000_000*p.InputPer1M + float64(completionTokens)/1_000_000*p.OutputPer1M
}

// HashPrompt identifies a prompt in logs without storing traveller input.
func HashPrompt(prompt Prompt) string {
	sum := sha256.Sum256([]byte(prompt.System + "\x00" + prompt.User))
	return hex.EncodeToString(sum[:])
}

// InteractionLogger writes one structured line and token metrics per completion.
type InteractionLogger struct {
	logger *zap.Logger
}

func NewInteractionLogger(logger *zap.Logger) *InteractionLogger {
	return &InteractionLogger{logger: logger}
}

func (l *InteractionLogger) Record(ctx context.Context, prompt Prompt, c *Completion, latency time.Duration) {
	cost := CalculateCost(c.Model, c.PromptTokens, c.CompletionTokens)

	attrs := metric.WithAttributes(
		attribute.String("provider", c.Provider),
		attribute.String("model", c.Model),
	)
	metrics.Get().LLMTokens.Add(ctx, int64(c.TotalTokens), attrs)

	l.logger.Info("LLM interaction",
		zap.String("provider", c.Provider),
		zap.String("model", c.Model),
		zap.String("prompt_hash", HashPrompt(prompt)),
		zap.Int("prompt_tokens", c.PromptTokens),
		zap.Int("completion_tokens", c.CompletionTokens),
		zap.Int("total_tokens", c.TotalTokens),
		zap.Float64("cost_usd", cost),
		zap.Duration("latency", latency),
	)
}
