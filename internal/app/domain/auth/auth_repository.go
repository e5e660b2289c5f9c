package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	database "github.com/FACorreiaa/go-voyage/internal/db"
)

const uniqueViolation = "23505"

var _ UserRepo = (*PostgresUserRepo)(nil)

type UserRepo interface {
	// Create stores a new user. passwordHash may be nil for accounts that
	// only sign in through an external provider.
	Create(ctx context.Context, email, name string, passwordHash *string, isAdmin bool) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type PostgresUserRepo struct {
	logger *zap.Logger
	db     database.Querier
}

func NewPostgresUserRepo(db database.Querier, logger *zap.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{logger: logger, db: db}
}

const userColumns = `id, email, password_hash, name, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) Create(ctx context.Context, email, name string, passwordHash *string, isAdmin bool) (*models.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", "INSERT INTO users ..."),
	))
	defer span.End()

	q := `INSERT INTO users (email, name, password_hash, is_admin) VALUES ($1, $2, $3, $4) RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRow(ctx, q, email, name, passwordHash, isAdmin))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("email %s already registered: %w", email, models.ErrConflict)
		}
		r.logger.Error("Error inserting user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("database error registering user: %w", err)
	}

	span.SetStatus(codes.Ok, "user created")
	return u, nil
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s: %w", email, models.ErrNotFound)
		}
		r.logger.Error("Error fetching user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Error fetching user by id", zap.String("user_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("database error fetching user by id: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_admin = $2, updated_at = NOW() WHERE id = $1`, id, isAdmin)
	if err != nil {
		return fmt.Errorf("database error updating admin flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresUserRepo) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("database error updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return nil
}
