package admin

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	database "github.com/FACorreiaa/go-voyage/internal/db"
	"github.com/FACorreiaa/go-voyage/internal/observability/metrics"
)

// Dimension is a trip attribute the dashboard groups by.
type Dimension string

const (
	ByDestination Dimension = "destination"
	ByBudget      Dimension = "budget"
	ByTravelType  Dimension = "travel_type"
	ByActivity    Dimension = "activity"
)

var _ Repository = (*PostgresRepository)(nil)

type Repository interface {
	Totals(ctx context.Context) (models.StatsTotals, error)
	RecentUsers(ctx context.Context, limit uint64) ([]models.UserSummary, error)
	RecentSubscribers(ctx context.Context, limit uint64) ([]models.Subscriber, error)
	TripsPerDay(ctx context.Context, days int) ([]models.DailyCount, error)
	// CountBy returns the most frequent values of d, highest count first.
	// A zero limit returns every group.
	CountBy(ctx context.Context, d Dimension, limit uint64) ([]models.LabelCount, error)
}

type PostgresRepository struct {
	logger *zap.Logger
	db     database.Querier
}

func NewPostgresRepository(db database.Querier, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, db: db}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *PostgresRepository) fail(ctx context.Context, op string, err error) error {
	metrics.Get().DBQueryErrorsTotal.Add(ctx, 1)
	r.logger.Error("Admin statistics query failed", zap.String("query", op), zap.Error(err))
	return fmt.Errorf("admin.Repository.%s: %w", op, err)
}

func (r *PostgresRepository) Totals(ctx context.Context) (models.StatsTotals, error) {
	ctx, span := otel.Tracer("AdminRepository").Start(ctx, "Totals")
	defer span.End()

	const q = `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM trips),
		       (SELECT COUNT(*) FROM trips WHERE user_id IS NULL),
		       (SELECT COUNT(*) FROM subscribers WHERE is_active)`

	var t models.StatsTotals
	if err := r.db.QueryRow(ctx, q).Scan(&t.Users, &t.Trips, &t.AnonymousTrips, &t.ActiveSubscribers); err != nil {
		span.RecordError(err)
		return t, r.fail(ctx, "Totals", err)
	}
	return t, nil
}

func (r *PostgresRepository) RecentUsers(ctx context.Context, limit uint64) ([]models.UserSummary, error) {
	q, args, err := psql.Select("id", "email", "name", "is_admin", "created_at").
		From("users").
		OrderBy("created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, r.fail(ctx, "RecentUsers", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.UserSummary, error) {
		var u models.UserSummary
		err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.CreatedAt)
		return u, err
	})
}

func (r *PostgresRepository) RecentSubscribers(ctx context.Context, limit uint64) ([]models.Subscriber, error) {
	q, args, err := psql.Select("id", "email", "subscribed_at", "is_active").
		From("subscribers").
		Where(sq.Eq{"is_active": true}).
		OrderBy("subscribed_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, r.fail(ctx, "RecentSubscribers", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Subscriber, error) {
		var s models.Subscriber
		err := row.Scan(&s.ID, &s.Email, &s.SubscribedAt, &s.IsActive)
		return s, err
	})
}

func (r *PostgresRepository) TripsPerDay(ctx context.Context, days int) ([]models.DailyCount, error) {
	q, args, err := psql.Select("DATE(created_at) AS day", "COUNT(*)").
		From("trips").
		Where("created_at >= NOW() - make_interval(days => ?)", days).
		GroupBy("day").
		OrderBy("day").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, r.fail(ctx, "TripsPerDay", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DailyCount, error) {
		var d models.DailyCount
		err := row.Scan(&d.Day, &d.Count)
		return d, err
	})
}

func countByQuery(d Dimension, limit uint64) (string, []any, error) {
	var qb sq.SelectBuilder
	switch d {
	case ByDestination, ByBudget, ByTravelType:
		col := string(d)
		qb = psql.Select(col+" AS label", "COUNT(*) AS n").From("trips").GroupBy(col)
	case ByActivity:
		qb = psql.Select("activity AS label", "COUNT(*) AS n").
			From("trips").
			JoinClause("CROSS JOIN LATERAL unnest(activities) AS activity").
			GroupBy("activity")
	default:
		return "", nil, fmt.Errorf("unknown dimension %q: %w", d, models.ErrBadRequest)
	}
	qb = qb.OrderBy("n DESC", "label")
	if limit > 0 {
		qb = qb.Limit(limit)
	}
	return qb.ToSql()
}

func (r *PostgresRepository) CountBy(ctx context.Context, d Dimension, limit uint64) ([]models.LabelCount, error) {
	ctx, span := otel.Tracer("AdminRepository").Start(ctx, "CountBy")
	defer span.End()
	span.SetAttributes(attribute.String("dimension", string(d)))

	q, args, err := countByQuery(d, limit)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		span.RecordError(err)
		return nil, r.fail(ctx, "CountBy", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.LabelCount, error) {
		var c models.LabelCount
		err := row.Scan(&c.Label, &c.Count)
		return c, err
	})
}
