package usage

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	"github.com/FACorreiaa/go-voyage/internal/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the anonymous usage ledger.
type Service interface {
	// CheckLimit reports whether ip may generate another trip. It never
	// mutates state and admits the caller when the ledger cannot be read.
	CheckLimit(ctx context.Context, ip string) models.LimitStatus
	// Increment records one more anonymous generation for ip.
	Increment(ctx context.Context, ip string) error
	Limit() int
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	limit  int
}

func NewService(repo Repository, limit int, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, limit: limit}
}

func (s *ServiceImpl) Limit() int { return s.limit }

func (s *ServiceImpl) CheckLimit(ctx context.Context, ip string) models.LimitStatus {
	ctx, span := otel.Tracer("UsageService").Start(ctx, "CheckLimit")
	defer span.End()

	l := s.logger.With(zap.String("method", "CheckLimit"), zap.String("ip", ip))

	used := 0
	rec, err := s.repo.Get(ctx, ip)
	switch {
	case err == nil:
		used = rec.TripsGenerated
	case errors.Is(err, models.ErrNotFound):
	default:
		l.Warn("Usage ledger unavailable, admitting request", zap.Error(err))
		metrics.Get().UsageCheckFailOpen.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("usage.fail_open", true))
		return models.LimitStatus{Allowed: true, Remaining: s.limit, Limit: s.limit}
	}

	status := models.LimitStatus{
		Allowed:   used < s.limit,
		Remaining: max(0, s.limit-used),
		Limit:     s.limit,
	}
	span.SetAttributes(
		attribute.Int("usage.used", used),
		attribute.Bool("usage.allowed", status.Allowed),
	)
	return status
}

func (s *ServiceImpl) Increment(ctx context.Context, ip string) error {
	ctx, span := otel.Tracer("UsageService").Start(ctx, "Increment")
	defer span.End()

	count, err := s.repo.Increment(ctx, ip)
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Debug("Anonymous usage incremented", zap.String("ip", ip), zap.Int("count", count))
	return nil
}
