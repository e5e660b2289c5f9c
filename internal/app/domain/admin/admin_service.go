package admin

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	"github.com/FACorreiaa/go-voyage/internal/pkg/cache"
)

const (
	recentUsersLimit       = 20
	recentTripsLimit       = 50
	recentSubscribersLimit = 50
	tripsPerDayWindow      = 30
	topLimit               = 10

	statsKey = "admin_stats"
)

// TripLister is the slice of the trip store the dashboard needs.
type TripLister interface {
	List(ctx context.Context, filter models.TripFilter) ([]models.TripSummary, error)
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Stats(ctx context.Context) (*models.AdminStats, error)
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	trips  TripLister
	cache  *cache.UnifiedCache[*models.AdminStats]
	now    func() time.Time
}

// NewService builds the dashboard service. Results are reused for ttl; a
// non-positive ttl disables caching.
func NewService(repo Repository, trips TripLister, ttl time.Duration, logger *zap.Logger) *ServiceImpl {
	s := &ServiceImpl{logger: logger, repo: repo, trips: trips, now: time.Now}
	if ttl > 0 {
		s.cache = cache.NewUnifiedCache[*models.AdminStats](ttl, "admin_stats", logger)
	}
	return s
}

func (s *ServiceImpl) Stats(ctx context.Context) (*models.AdminStats, error) {
	if s.cache == nil {
		return s.load(ctx)
	}
	return s.cache.GetOrLoad(ctx, statsKey, s.load)
}

// load runs every dashboard query concurrently; the first failure cancels
// the rest.
func (s *ServiceImpl) load(ctx context.Context) (*models.AdminStats, error) {
	ctx, span := otel.Tracer("AdminService").Start(ctx, "Stats")
	defer span.End()

	start := s.now()
	stats := &models.AdminStats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.Totals, err = s.repo.Totals(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.RecentUsers, err = s.repo.RecentUsers(gctx, recentUsersLimit)
		return err
	})
	g.Go(func() (err error) {
		stats.RecentTrips, err = s.trips.List(gctx, models.TripFilter{Limit: recentTripsLimit})
		return err
	})
	g.Go(func() (err error) {
		stats.RecentSubscribers, err = s.repo.RecentSubscribers(gctx, recentSubscribersLimit)
		return err
	})
	g.Go(func() (err error) {
		stats.TripsPerDay, err = s.repo.TripsPerDay(gctx, tripsPerDayWindow)
		return err
	})
	g.Go(func() (err error) {
		stats.TopDestinations, err = s.repo.CountBy(gctx, ByDestination, topLimit)
		return err
	})
	g.Go(func() (err error) {
		stats.BudgetBreakdown, err = s.repo.CountBy(gctx, ByBudget, 0)
		return err
	})
	g.Go(func() (err error) {
		stats.TravelTypeBreakdown, err = s.repo.CountBy(gctx, ByTravelType, 0)
		return err
	})
	g.Go(func() (err error) {
		stats.TopActivities, err = s.repo.CountBy(gctx, ByActivity, topLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		s.logger.Error("Failed to assemble admin statistics", zap.Error(err))
		return nil, err
	}

	stats.GeneratedAt = s.now().UTC()
	s.logger.Info("Admin statistics assembled", zap.Duration("elapsed", s.now().Sub(start)))
	return stats, nil
}
