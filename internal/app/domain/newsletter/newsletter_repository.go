package newsletter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	database "github.com/FACorreiaa/go-voyage/internal/db"
)

var _ Repository = (*PostgresRepository)(nil)

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	// Insert returns models.ErrConflict when the email is already present.
	Insert(ctx context.Context, email string) (*models.Subscriber, error)
	// Reactivate flips an inactive subscriber back on and resets subscribed_at.
	Reactivate(ctx context.Context, email string) error
}

type PostgresRepository struct {
	logger *zap.Logger
	db     database.Querier
}

func NewPostgresRepository(db database.Querier, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, db: db}
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var s models.Subscriber
	err := r.db.QueryRow(ctx,
		`SELECT id, email, subscribed_at, is_active FROM subscribers WHERE email = $1`, email,
	).Scan(&s.ID, &s.Email, &s.SubscribedAt, &s.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subscriber %s: %w", email, models.ErrNotFound)
		}
		return nil, fmt.Errorf("newsletter.Repository.GetByEmail: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, email string) (*models.Subscriber, error) {
	var s models.Subscriber
	err := r.db.QueryRow(ctx,
		`INSERT INTO subscribers (email) VALUES ($1) RETURNING id, email, subscribed_at, is_active`, email,
	).Scan(&s.ID, &s.Email, &s.SubscribedAt, &s.IsActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("subscriber %s: %w", email, models.ErrConflict)
		}
		r.logger.Error("Failed to insert subscriber", zap.Error(err))
		return nil, fmt.Errorf("newsletter.Repository.Insert: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) Reactivate(ctx context.Context, email string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscribers SET is_active = TRUE, subscribed_at = NOW() WHERE email = $1 AND is_active = FALSE`, email)
	if err != nil {
		return fmt.Errorf("newsletter.Repository.Reactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inactive subscriber %s: %w", email, models.ErrNotFound)
	}
	return nil
}
