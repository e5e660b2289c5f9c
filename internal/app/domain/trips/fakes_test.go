package trips

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

// memRepo is an in-memory trip store with the same linking semantics as the
// Postgres UPDATE.
type memRepo struct {
	mu        sync.Mutex
	trips     map[uuid.UUID]*models.Trip
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{trips: make(map[uuid.UUID]*models.Trip)}
}

func (m *memRepo) Create(_ context.Context, t models.NewTrip) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return uuid.Nil, m.createErr
	}
	if (t.OwnerID == nil) == (t.IPAddress == nil) {
		return uuid.Nil, fmt.Errorf("exactly one of owner or ip: %w", models.ErrValidation)
	}
	id := uuid.New()
	m.trips[id] = &models.Trip{
		ID:          id,
		UserID:      t.OwnerID,
		IPAddress:   t.IPAddress,
		Anonymous:   t.OwnerID == nil,
		Destination: t.Params.Destination,
		StartDate:   t.Params.StartDate,
		EndDate:     t.Params.EndDate,
		Budget:      t.Params.Budget,
		TravelType:  t.Params.TravelType,
		Activities:  t.Params.Activities,
		Language:    t.Params.LanguageCode(),
		Itinerary:   t.Itinerary,
		CreatedAt:   time.Now(),
	}
	return id, nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memRepo) Owner(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	t, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.UserID, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.trips, id)
	return nil
}

func (m *memRepo) LinkAnonymous(_ context.Context, userID uuid.UUID, ip string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.trips {
		if t.UserID == nil && t.IPAddress != nil && *t.IPAddress == ip {
			owner := userID
			t.UserID = &owner
			t.IPAddress = nil
			t.Anonymous = false
			n++
		}
	}
	return n, nil
}

func (m *memRepo) List(_ context.Context, f models.TripFilter) ([]models.TripSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.TripSummary{}
	for _, t := range m.trips {
		if f.UserID != nil && (t.UserID == nil || *t.UserID != *f.UserID) {
			continue
		}
		out = append(out, models.TripSummary{ID: t.ID, UserID: t.UserID, Anonymous: t.UserID == nil, Destination: t.Destination, CreatedAt: t.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) byIP(ip string) []*models.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Trip
	for _, t := range m.trips {
		if t.IPAddress != nil && *t.IPAddress == ip {
			out = append(out, t)
		}
	}
	return out
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trips)
}

// memLedger backs a real usage.ServiceImpl.
type memLedger struct {
	mu     sync.Mutex
	counts map[string]int
	getErr error
	incErr error
}

func newMemLedger() *memLedger {
	return &memLedger{counts: make(map[string]int)}
}

func (l *memLedger) Get(_ context.Context, ip string) (*models.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.getErr != nil {
		return nil, l.getErr
	}
	n, ok := l.counts[ip]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.UsageRecord{IPAddress: ip, TripsGenerated: n, LastUsedAt: time.Now()}, nil
}

func (l *memLedger) Increment(_ context.Context, ip string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.incErr != nil {
		return 0, l.incErr
	}
	l.counts[ip]++
	return l.counts[ip], nil
}

func (l *memLedger) get(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[ip]
}

type fakeGenerator struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, p models.TripParams) (*models.Itinerary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	it := &models.Itinerary{Title: "Trip to " + p.Destination, Overview: "overview"}
	for i := 0; i < p.DayCount; i++ {
		it.Days = append(it.Days, models.DayPlan{Day: i + 1, Date: p.StartDate.AddDate(0, 0, i).Format("2006-01-02")})
	}
	it.Normalize()
	return it, nil
}
