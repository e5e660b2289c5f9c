package trips

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/domain/usage"
	"github.com/FACorreiaa/go-voyage/internal/app/models"
	"github.com/FACorreiaa/go-voyage/internal/observability/metrics"
)

// ItineraryGenerator produces an itinerary for validated parameters.
type ItineraryGenerator interface {
	Generate(ctx context.Context, params models.TripParams) (*models.Itinerary, error)
}

// InputScreener rejects parameters that must not reach the language model.
type InputScreener interface {
	Screen(params models.TripParams) error
}

// GenerateResult is returned for a stored trip. Remaining is set for
// anonymous callers only and counts the generations left after this one.
type GenerateResult struct {
	TripID    uuid.UUID `json:"tripId"`
	Remaining *int      `json:"remaining,omitempty"`
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	GenerateTrip(ctx context.Context, caller models.Caller, req models.TripRequest) (*GenerateResult, error)
	GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	ListUserTrips(ctx context.Context, userID uuid.UUID, limit uint64) ([]models.TripSummary, error)
	ListTrips(ctx context.Context, filter models.TripFilter) ([]models.TripSummary, error)
	DeleteTrip(ctx context.Context, tripID, requesterID uuid.UUID, requesterIsAdmin bool) error
	LinkAnonymousTrips(ctx context.Context, userID uuid.UUID, ip string) (int64, error)
}

type ServiceImpl struct {
	logger    *zap.Logger
	repo      Repository
	usage     usage.Service
	generator ItineraryGenerator
	screener  InputScreener
}

// NewService wires the trip store to the usage ledger and the generator.
// screener may be nil.
func NewService(repo Repository, ledger usage.Service, generator ItineraryGenerator, screener InputScreener, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		usage:     ledger,
		generator: generator,
		screener:  screener,
	}
}

// GenerateTrip runs validate, limit check, generate, store, increment in that
// order. Nothing is stored or counted when any step before the store fails,
// and a failed increment after the store is logged but not returned.
func (s *ServiceImpl) GenerateTrip(ctx context.Context, caller models.Caller, req models.TripRequest) (*GenerateResult, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "GenerateTrip")
	defer span.End()

	kind := "user"
	if caller.Anonymous() {
		kind = "anonymous"
	}
	span.SetAttributes(attribute.String("caller.kind", kind))
	l := s.logger.With(zap.String("method", "GenerateTrip"), zap.String("caller", kind))

	params, err := req.Validate()
	if err == nil && s.screener != nil {
		err = s.screener.Screen(params)
	}
	if err != nil {
		l.Info("Trip request rejected", zap.String("stage", "validation"), zap.Error(err))
		span.SetStatus(codes.Error, "validation")
		return nil, err
	}

	var remaining *int
	if caller.Anonymous() {
		status := s.usage.CheckLimit(ctx, caller.IP)
		if !status.Allowed {
			l.Info("Anonymous limit reached", zap.String("stage", "quota"), zap.String("ip", caller.IP), zap.Int("limit", status.Limit))
			metrics.Get().QuotaRejections.Add(ctx, 1)
			span.SetStatus(codes.Error, "quota")
			return nil, &models.QuotaError{Limit: status.Limit, Remaining: 0}
		}
		left := max(0, status.Remaining-1)
		remaining = &left
	}

	it, err := s.generator.Generate(ctx, params)
	if err != nil {
		l.Warn("Itinerary generation failed", zap.String("stage", "generation"), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation")
		return nil, err
	}

	// The itinerary has been paid for; keep it even if the client went away.
	persistCtx := context.WithoutCancel(ctx)

	newTrip := models.NewTrip{Params: params, Itinerary: *it}
	if caller.Anonymous() {
		ip := caller.IP
		newTrip.IPAddress = &ip
	} else {
		newTrip.OwnerID = caller.UserID
	}

	id, err := s.repo.Create(persistCtx, newTrip)
	if err != nil {
		l.Error("Failed to store generated trip", zap.String("stage", "persistence"), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence")
		return nil, fmt.Errorf("storing trip: %w", err)
	}

	if caller.Anonymous() {
		if err := s.usage.Increment(persistCtx, caller.IP); err != nil {
			l.Error("Usage increment lost after trip was stored",
				zap.String("stage", "usage"), zap.String("trip_id", id.String()), zap.Error(err))
			metrics.Get().UsageIncrementErrors.Add(ctx, 1)
		}
	}

	metrics.Get().TripsGenerated.Add(ctx, 1, metric.WithAttributes(attribute.String("caller", kind)))
	span.SetAttributes(attribute.String("trip.id", id.String()))
	span.SetStatus(codes.Ok, "stored")
	l.Info("Trip generated", zap.String("trip_id", id.String()), zap.Int("days", len(it.Days)))

	return &GenerateResult{TripID: id, Remaining: remaining}, nil
}

func (s *ServiceImpl) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "GetTrip")
	defer span.End()
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) ListUserTrips(ctx context.Context, userID uuid.UUID, limit uint64) ([]models.TripSummary, error) {
	return s.repo.List(ctx, models.TripFilter{UserID: &userID, Limit: limit})
}

func (s *ServiceImpl) ListTrips(ctx context.Context, filter models.TripFilter) ([]models.TripSummary, error) {
	return s.repo.List(ctx, filter)
}

// DeleteTrip lets owners delete their trips and admins delete any trip.
// Anonymous trips have no owner to authorize, so only admins may delete them.
func (s *ServiceImpl) DeleteTrip(ctx context.Context, tripID, requesterID uuid.UUID, requesterIsAdmin bool) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "DeleteTrip")
	defer span.End()

	l := s.logger.With(zap.String("method", "DeleteTrip"), zap.String("trip_id", tripID.String()),
		zap.String("requester", requesterID.String()))

	owner, err := s.repo.Owner(ctx, tripID)
	if err != nil {
		return err
	}

	isOwner := owner != nil && *owner == requesterID
	if !isOwner && !requesterIsAdmin {
		l.Warn("Trip delete refused", zap.Bool("anonymous_trip", owner == nil))
		span.SetStatus(codes.Error, "forbidden")
		return fmt.Errorf("user %s may not delete trip %s: %w", requesterID, tripID, models.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, tripID); err != nil {
		return err
	}

	role := "owner"
	if !isOwner {
		role = "admin"
	}
	metrics.Get().TripsDeleted.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
	l.Info("Trip deleted", zap.String("role", role))
	return nil
}

// LinkAnonymousTrips attaches the anonymous trips generated from ip to userID.
// Requests without a resolvable address link nothing.
func (s *ServiceImpl) LinkAnonymousTrips(ctx context.Context, userID uuid.UUID, ip string) (int64, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "LinkAnonymousTrips")
	defer span.End()

	l := s.logger.With(zap.String("method", "LinkAnonymousTrips"), zap.String("user_id", userID.String()), zap.String("ip", ip))

	if ip == "" || ip == models.UnknownIP {
		l.Warn("Caller address unknown, skipping anonymous trip linking")
		return 0, nil
	}

	n, err := s.repo.LinkAnonymous(ctx, userID, ip)
	if err != nil {
		l.Error("Failed to link anonymous trips", zap.Error(err))
		span.RecordError(err)
		return 0, err
	}

	if n > 0 {
		metrics.Get().TripsLinked.Add(ctx, n)
		l.Info("Linked anonymous trips", zap.Int64("count", n))
	}
	span.SetAttributes(attribute.Int64("trips.linked", n))
	return n, nil
}
