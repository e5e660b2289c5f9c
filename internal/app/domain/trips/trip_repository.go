package trips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	database "github.com/FACorreiaa/go-voyage/internal/db"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var _ Repository = (*PostgresRepository)(nil)

// Repository is the trip store.
type Repository interface {
	// Create persists a trip owned by a user or tagged with an IP, never both.
	Create(ctx context.Context, trip models.NewTrip) (uuid.UUID, error)
	// GetByID loads a trip and checks the shape of its stored itinerary.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	// Owner returns the owner of a trip, nil for anonymous trips.
	Owner(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// LinkAnonymous moves every ownerless trip tagged with ip to userID and
	// clears the tag, returning how many rows moved.
	LinkAnonymous(ctx context.Context, userID uuid.UUID, ip string) (int64, error)
	List(ctx context.Context, filter models.TripFilter) ([]models.TripSummary, error)
}

type PostgresRepository struct {
	logger *zap.Logger
	db     database.Querier
}

func NewPostgresRepository(db database.Querier, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, db: db}
}

func startSpan(ctx context.Context, name, statement string) (context.Context, trace.Span) {
	return otel.Tracer("TripRepository").Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", statement),
	))
}

func (r *PostgresRepository) Create(ctx context.Context, trip models.NewTrip) (uuid.UUID, error) {
	ctx, span := startSpan(ctx, "Create", "INSERT INTO trips ...")
	defer span.End()

	if (trip.OwnerID == nil) == (trip.IPAddress == nil) {
		return uuid.Nil, fmt.Errorf("trip must have exactly one of owner or ip address: %w", models.ErrValidation)
	}

	doc, err := json.Marshal(trip.Itinerary)
	if err != nil {
		return uuid.Nil, fmt.Errorf("trips.Repository.Create: encode itinerary: %w", err)
	}

	const q = `
		INSERT INTO trips (user_id, ip_address, destination, start_date, end_date,
		                   budget, travel_type, activities, language, itinerary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	p := trip.Params
	var id uuid.UUID
	err = r.db.QueryRow(ctx, q,
		trip.OwnerID, trip.IPAddress, p.Destination, p.StartDate, p.EndDate,
		string(p.Budget), string(p.TravelType), p.Activities, p.LanguageCode(), doc,
	).Scan(&id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		r.logger.Error("Failed to insert trip", zap.Error(err))
		return uuid.Nil, fmt.Errorf("trips.Repository.Create: %w", err)
	}

	span.SetAttributes(attribute.String("trip.id", id.String()))
	return id, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	ctx, span := startSpan(ctx, "GetByID", "SELECT ... FROM trips WHERE id = $1")
	defer span.End()

	const q = `
		SELECT id, user_id, ip_address, destination, start_date, end_date,
		       budget, travel_type, activities, language, itinerary, created_at
		FROM trips
		WHERE id = $1`

	var (
		t                  models.Trip
		budget, travelType string
		doc                []byte
	)
	err := r.db.QueryRow(ctx, q, id).Scan(
		&t.ID, &t.UserID, &t.IPAddress, &t.Destination, &t.StartDate, &t.EndDate,
		&budget, &travelType, &t.Activities, &t.Language, &doc, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trip %s: %w", id, models.ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("trips.Repository.GetByID: %w", err)
	}

	t.Budget = models.BudgetTier(budget)
	t.TravelType = models.TravelType(travelType)
	t.Anonymous = t.UserID == nil
	if t.Activities == nil {
		t.Activities = []string{}
	}

	if err := json.Unmarshal(doc, &t.Itinerary); err != nil {
		r.logger.Error("Stored itinerary is not valid JSON", zap.String("trip_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("trip %s: %w: %v", id, models.ErrMalformed, err)
	}
	if err := t.Itinerary.CheckShape(); err != nil {
		r.logger.Error("Stored itinerary failed shape check", zap.String("trip_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("trip %s: %w", id, err)
	}
	t.Itinerary.Normalize()

	return &t, nil
}

func (r *PostgresRepository) Owner(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	ctx, span := startSpan(ctx, "Owner", "SELECT user_id FROM trips WHERE id = $1")
	defer span.End()

	var owner *uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT user_id FROM trips WHERE id = $1`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trip %s: %w", id, models.ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("trips.Repository.Owner: %w", err)
	}
	return owner, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := startSpan(ctx, "Delete", "DELETE FROM trips WHERE id = $1")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("trips.Repository.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// LinkAnonymous is a single UPDATE, so it is atomic and idempotent: the first
// call clears ip_address on every row it moves and a repeat finds nothing.
func (r *PostgresRepository) LinkAnonymous(ctx context.Context, userID uuid.UUID, ip string) (int64, error) {
	ctx, span := startSpan(ctx, "LinkAnonymous", "UPDATE trips SET user_id = $1, ip_address = NULL ...")
	defer span.End()

	const q = `
		UPDATE trips
		SET user_id = $1, ip_address = NULL
		WHERE ip_address = $2 AND user_id IS NULL`

	tag, err := r.db.Exec(ctx, q, userID, ip)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, fmt.Errorf("trips.Repository.LinkAnonymous: %w", err)
	}
	span.SetAttributes(attribute.Int64("trips.linked", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) List(ctx context.Context, f models.TripFilter) ([]models.TripSummary, error) {
	ctx, span := startSpan(ctx, "List", "SELECT ... FROM trips LEFT JOIN users ...")
	defer span.End()

	q, args, err := buildListQuery(f)
	if err != nil {
		return nil, fmt.Errorf("trips.Repository.List: build query: %w", err)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("trips.Repository.List: %w", err)
	}
	defer rows.Close()

	out := []models.TripSummary{}
	for rows.Next() {
		var (
			s                  models.TripSummary
			budget, travelType string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.UserEmail, &s.Destination, &s.StartDate, &s.EndDate,
			&budget, &travelType, &s.Language, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("trips.Repository.List: scan: %w", err)
		}
		s.Budget = models.BudgetTier(budget)
		s.TravelType = models.TravelType(travelType)
		s.Anonymous = s.UserID == nil
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trips.Repository.List: rows: %w", err)
	}
	return out, nil
}

func buildListQuery(f models.TripFilter) (string, []any, error) {
	limit := f.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	qb := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("t.id", "t.user_id", "u.email", "t.destination", "t.start_date", "t.end_date",
			"t.budget", "t.travel_type", "t.language", "t.created_at").
		From("trips t").
		LeftJoin("users u ON u.id = t.user_id").
		OrderBy("t.created_at DESC").
		Limit(limit).
		Offset(f.Offset)

	if f.UserID != nil {
		// uuid.UUID is an array, which sq.Eq would expand into an IN list.
		qb = qb.Where(sq.Expr("t.user_id = ?", *f.UserID))
	}
	if f.AnonymousOnly {
		qb = qb.Where(sq.Eq{"t.user_id": nil})
	}
	if f.Destination != "" {
		qb = qb.Where(sq.ILike{"t.destination": "%" + f.Destination + "%"})
	}
	if f.Budget != "" {
		qb = qb.Where(sq.Eq{"t.budget": string(f.Budget)})
	}
	if f.TravelType != "" {
		qb = qb.Where(sq.Eq{"t.travel_type": string(f.TravelType)})
	}
	return qb.ToSql()
}
