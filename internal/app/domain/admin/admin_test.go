package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

type fakeRepo struct {
	mu       sync.Mutex
	calls    int
	totalErr error
}

func (f *fakeRepo) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeRepo) Totals(context.Context) (models.StatsTotals, error) {
	f.hit()
	return models.StatsTotals{Users: 4, Trips: 9, AnonymousTrips: 3, ActiveSubscribers: 2}, f.totalErr
}

func (f *fakeRepo) RecentUsers(context.Context, uint64) ([]models.UserSummary, error) {
	f.hit()
	return []models.UserSummary{{Email: "a@example.com"}}, nil
}

func (f *fakeRepo) RecentSubscribers(context.Context, uint64) ([]models.Subscriber, error) {
	f.hit()
	return []models.Subscriber{}, nil
}

func (f *fakeRepo) TripsPerDay(_ context.Context, days int) ([]models.DailyCount, error) {
	f.hit()
	return []models.DailyCount{{Day: time.Now().Truncate(24 * time.Hour), Count: 9}}, nil
}

func (f *fakeRepo) CountBy(_ context.Context, d Dimension, _ uint64) ([]models.LabelCount, error) {
	f.hit()
	return []models.LabelCount{{Label: string(d), Count: 1}}, nil
}

type fakeTrips struct {
	got models.TripFilter
}

func (f *fakeTrips) List(_ context.Context, filter models.TripFilter) ([]models.TripSummary, error) {
	f.got = filter
	return []models.TripSummary{{Destination: "Lisbon"}}, nil
}

func TestStatsAssemblesEverySection(t *testing.T) {
	repo, trips := &fakeRepo{}, &fakeTrips{}
	stats, err := NewService(repo, trips, 0, zap.NewNop()).Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(9), stats.Totals.Trips)
	assert.Len(t, stats.RecentUsers, 1)
	assert.Len(t, stats.RecentTrips, 1)
	assert.Equal(t, uint64(recentTripsLimit), trips.got.Limit)
	assert.Equal(t, "destination", stats.TopDestinations[0].Label)
	assert.Equal(t, "budget", stats.BudgetBreakdown[0].Label)
	assert.Equal(t, "travel_type", stats.TravelTypeBreakdown[0].Label)
	assert.Equal(t, "activity", stats.TopActivities[0].Label)
	assert.False(t, stats.GeneratedAt.IsZero())
}

func TestStatsCached(t *testing.T) {
	repo := &fakeRepo{}
	service := NewService(repo, &fakeTrips{}, time.Minute, zap.NewNop())

	first, err := service.Stats(context.Background())
	require.NoError(t, err)
	calls := repo.calls

	second, err := service.Stats(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, calls, repo.calls)
}

func TestStatsErrorNotCached(t *testing.T) {
	repo := &fakeRepo{totalErr: errors.New("db down")}
	service := NewService(repo, &fakeTrips{}, time.Minute, zap.NewNop())

	_, err := service.Stats(context.Background())
	require.Error(t, err)

	repo.totalErr = nil
	_, err = service.Stats(context.Background())
	require.NoError(t, err)
}

func TestCountByQuery(t *testing.T) {
	q, _, err := countByQuery(ByBudget, 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT budget AS label, COUNT(*) AS n FROM trips GROUP BY budget ORDER BY n DESC, label", q)

	q, _, err = countByQuery(ByActivity, 10)
	require.NoError(t, err)
	assert.Contains(t, q, "CROSS JOIN LATERAL unnest(activities) AS activity")
	assert.Contains(t, q, "LIMIT 10")

	_, _, err = countByQuery(Dimension("ip_address"), 10)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestRepositoryTotals(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("SELECT \\(SELECT COUNT\\(\\*\\) FROM users\\)").
		WillReturnRows(pgxmock.NewRows([]string{"users", "trips", "anon", "subs"}).
			AddRow(int64(4), int64(9), int64(3), int64(2)))

	totals, err := NewPostgresRepository(pool, zap.NewNop()).Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatsTotals{Users: 4, Trips: 9, AnonymousTrips: 3, ActiveSubscribers: 2}, totals)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositoryCountBy(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("SELECT destination AS label").
		WillReturnRows(pgxmock.NewRows([]string{"label", "n"}).
			AddRow("Lisbon", int64(5)).
			AddRow("Tokyo", int64(2)))

	out, err := NewPostgresRepository(pool, zap.NewNop()).CountBy(context.Background(), ByDestination, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.LabelCount{{Label: "Lisbon", Count: 5}, {Label: "Tokyo", Count: 2}}, out)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestStatsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/admin/stats", NewHandler(NewService(&fakeRepo{}, &fakeTrips{}, 0, zap.NewNop()), zap.NewNop()).Stats)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"topDestinations"`)
	assert.Contains(t, w.Body.String(), `"activeSubscribers":2`)
}
