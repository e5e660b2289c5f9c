package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	"github.com/FACorreiaa/go-voyage/internal/observability/metrics"
	"github.com/FACorreiaa/go-voyage/internal/pkg/config"
)

const minPasswordLength = 8

// Ensure implementation satisfies the interface
var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the business logic contract.
type AuthService interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, string, error)
	SignIn(ctx context.Context, req models.SignInRequest) (*models.User, string, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	// CreateAdmin creates an admin account, or promotes the existing account
	// with that email. created reports which branch ran.
	CreateAdmin(ctx context.Context, email, password, name string) (user *models.User, created bool, err error)
	ValidateToken(token string) (*Claims, error)
	TokenTTL() time.Duration
}

// AuthServiceImpl provides the implementation for AuthService.
type AuthServiceImpl struct {
	logger *zap.Logger
	repo   UserRepo
	tokens *TokenService
	cost   int
}

// NewAuthService creates a new authentication service instance.
func NewAuthService(repo UserRepo, cfg *config.Config, logger *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		tokens: NewTokenService(cfg.JWT),
		cost:   bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthServiceImpl) record(ctx context.Context, op, outcome string) {
	metrics.Get().AuthRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func (s *AuthServiceImpl) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("could not process password: %w", err)
	}
	return string(b), nil
}

func (s *AuthServiceImpl) SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SignUp")
	defer span.End()

	email := normalizeEmail(req.Email)
	l := s.logger.With(zap.String("method", "SignUp"), zap.String("email", email))

	if len(req.Password) < minPasswordLength {
		verr := models.NewValidationError()
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
		s.record(ctx, "signup", "invalid")
		return nil, "", verr
	}

	hashed, err := s.hash(req.Password)
	if err != nil {
		l.Error("Failed to hash password", zap.Error(err))
		span.RecordError(err)
		return nil, "", err
	}

	user, err := s.repo.Create(ctx, email, strings.TrimSpace(req.Name), &hashed, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		if errors.Is(err, models.ErrConflict) {
			l.Info("Email already registered")
			s.record(ctx, "signup", "conflict")
			return nil, "", err
		}
		l.Error("Repository registration failed", zap.Error(err))
		s.record(ctx, "signup", "error")
		return nil, "", fmt.Errorf("registration failed: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		l.Error("Failed to issue token", zap.Error(err))
		return nil, "", err
	}

	s.record(ctx, "signup", "ok")
	l.Info("Registration successful", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

// SignIn does not reveal whether the email exists or the password was wrong.
func (s *AuthServiceImpl) SignIn(ctx context.Context, req models.SignInRequest) (*models.User, string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SignIn")
	defer span.End()

	email := normalizeEmail(req.Email)
	l := s.logger.With(zap.String("method", "SignIn"), zap.String("email", email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			l.Error("Failed to look up user", zap.Error(err))
			return nil, "", err
		}
		l.Warn("Unknown email")
		s.record(ctx, "signin", "rejected")
		return nil, "", fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	if user.PasswordHash == nil || bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		l.Warn("Password comparison failed", zap.String("user_id", user.ID.String()))
		s.record(ctx, "signin", "rejected")
		return nil, "", fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		l.Error("Failed to issue token", zap.Error(err))
		return nil, "", err
	}

	s.record(ctx, "signin", "ok")
	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	l.Info("Login successful")
	return user, token, nil
}

func (s *AuthServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AuthServiceImpl) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	l := s.logger.With(zap.String("method", "CreateAdmin"), zap.String("email", email))

	if email == "" {
		verr := models.NewValidationError()
		verr.Add("email", "is required")
		return nil, false, verr
	}
	if password != "" && len(password) < minPasswordLength {
		verr := models.NewValidationError()
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
		return nil, false, verr
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.repo.SetAdmin(ctx, existing.ID, true); err != nil {
			return nil, false, err
		}
		if password != "" {
			hashed, err := s.hash(password)
			if err != nil {
				return nil, false, err
			}
			if err := s.repo.SetPassword(ctx, existing.ID, hashed); err != nil {
				return nil, false, err
			}
		}
		existing.IsAdmin = true
		l.Info("Promoted existing user to admin", zap.String("user_id", existing.ID.String()))
		return existing, false, nil
	case !errors.Is(err, models.ErrNotFound):
		return nil, false, err
	}

	if password == "" {
		verr := models.NewValidationError()
		verr.Add("password", "is required for a new account")
		return nil, false, verr
	}
	hashed, err := s.hash(password)
	if err != nil {
		return nil, false, err
	}
	user, err := s.repo.Create(ctx, email, name, &hashed, true)
	if err != nil {
		return nil, false, err
	}
	l.Info("Created admin user", zap.String("user_id", user.ID.String()))
	return user, true, nil
}

func (s *AuthServiceImpl) ValidateToken(token string) (*Claims, error) {
	return s.tokens.Parse(token)
}

func (s *AuthServiceImpl) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
