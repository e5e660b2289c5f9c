package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	database "github.com/FACorreiaa/go-voyage/internal/db"
)

var _ Repository = (*PostgresRepository)(nil)

// Repository persists the per-IP anonymous generation counters.
type Repository interface {
	// Get returns the record for ip or models.ErrNotFound.
	Get(ctx context.Context, ip string) (*models.UsageRecord, error)
	// Increment creates the record with a count of one or bumps it atomically.
	// It returns the count after the write.
	Increment(ctx context.Context, ip string) (int, error)
}

type PostgresRepository struct {
	logger *zap.Logger
	db     database.Querier
}

func NewPostgresRepository(db database.Querier, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, ip string) (*models.UsageRecord, error) {
	ctx, span := otel.Tracer("UsageRepository").Start(ctx, "Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
	))
	defer span.End()

	const q = `SELECT ip_address, trips_generated, last_used_at FROM usage_tracking WHERE ip_address = $1`

	var rec models.UsageRecord
	err := r.db.QueryRow(ctx, q, ip).Scan(&rec.IPAddress, &rec.TripsGenerated, &rec.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("usage record for %s: %w", ip, models.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("usage.Repository.Get: %w", err)
	}
	return &rec, nil
}

func (r *PostgresRepository) Increment(ctx context.Context, ip string) (int, error) {
	ctx, span := otel.Tracer("UsageRepository").Start(ctx, "Increment", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
	))
	defer span.End()

	const q = `
		INSERT INTO usage_tracking (ip_address, trips_generated, last_used_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (ip_address) DO UPDATE
		SET trips_generated = usage_tracking.trips_generated + 1,
		    last_used_at = NOW()
		RETURNING trips_generated`

	var count int
	if err := r.db.QueryRow(ctx, q, ip).Scan(&count); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		r.logger.Error("Failed to increment anonymous usage", zap.Error(err))
		return 0, fmt.Errorf("usage.Repository.Increment: %w", err)
	}
	span.SetAttributes(attribute.Int("usage.count", count))
	return count, nil
}
