// Package itinerary turns validated trip parameters into a structured
// itinerary by calling a chat-completion provider and checking its answer.
package itinerary

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	"github.com/FACorreiaa/go-voyage/internal/observability/metrics"
)

const DefaultTimeout = 60 * time.Second

// Generator is the itinerary generation component.
type Generator struct {
	llm          TextGenerator
	timeout      time.Duration
	logger       *zap.Logger
	interactions *InteractionLogger
}

func NewGenerator(llm TextGenerator, timeout time.Duration, logger *zap.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{
		llm:          llm,
		timeout:      timeout,
		logger:       logger,
		interactions: NewInteractionLogger(logger),
	}
}

// Generate produces an itinerary for p. p must already be validated.
//
// A missing or rejected credential is returned as models.ErrConfiguration.
// Every other failure (provider error, timeout, unparseable or incomplete
// answer) is a *models.GenerationError. A day count that differs from
// p.DayCount is logged and accepted.
func (g *Generator) Generate(ctx context.Context, p models.TripParams) (*models.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryGenerator").Start(ctx, "Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", g.llm.Provider()),
		attribute.Int("trip.day_count", p.DayCount),
		attribute.String("trip.language", p.LanguageCode()),
	)

	l := g.logger.With(
		zap.String("method", "Generate"),
		zap.String("provider", g.llm.Provider()),
		zap.Int("day_count", p.DayCount),
	)

	prompt := BuildPrompt(p)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	completion, err := g.llm.Complete(callCtx, prompt)
	elapsed := time.Since(start)
	metrics.Get().GenerationDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("provider", g.llm.Provider())))

	if err != nil {
		span.RecordError(err)
		if errors.Is(err, models.ErrConfiguration) {
			span.SetStatus(codes.Error, "misconfigured")
			g.recordFailure(ctx, "configuration")
			l.Error("Itinerary generation is misconfigured", zap.Error(err))
			return nil, err
		}

		stage := "provider"
		switch {
		case errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			stage = "timeout"
		case ctx.Err() != nil:
			stage = "cancelled"
		}
		span.SetStatus(codes.Error, stage)
		g.recordFailure(ctx, stage)
		l.Warn("Text generation call failed", zap.String("stage", stage), zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, &models.GenerationError{Stage: stage, Err: err}
	}

	it, err := ParseItinerary(completion.Text)
	if err != nil {
		span.SetStatus(codes.Error, "parse")
		g.recordFailure(ctx, "parse")
		l.Warn("Completion is not a JSON itinerary", zap.Int("length", len(completion.Text)), zap.Error(err))
		return nil, &models.GenerationError{Stage: "parse", Err: err}
	}

	if err := it.CheckShape(); err != nil {
		span.SetStatus(codes.Error, "shape")
		g.recordFailure(ctx, "shape")
		l.Warn("Completion is missing required itinerary fields", zap.Error(err))
		return nil, &models.GenerationError{Stage: "shape", Err: err}
	}

	if len(it.Days) != p.DayCount {
		l.Warn("Itinerary day count mismatch",
			zap.Int("expected", p.DayCount),
			zap.Int("received", len(it.Days)))
		span.SetAttributes(attribute.Bool("itinerary.day_mismatch", true))
	}
	it.Normalize()

	g.interactions.Record(ctx, prompt, completion, elapsed)
	span.SetStatus(codes.Ok, "generated")
	return it, nil
}

func (g *Generator) recordFailure(ctx context.Context, kind string) {
	metrics.Get().GenerationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
