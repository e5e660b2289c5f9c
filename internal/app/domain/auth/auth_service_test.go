package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
	"github.com/FACorreiaa/go-voyage/internal/pkg/config"
)

// MockUserRepo is a mock implementation of the UserRepo interface
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, email, name string, passwordHash *string, isAdmin bool) (*models.User, error) {
	args := m.Called(ctx, email, name, passwordHash, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	args := m.Called(ctx, id, isAdmin)
	return args.Error(0)
}

func (m *MockUserRepo) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SecretKey:      "test-access-secret-that-is-long-enough",
			AccessTokenTTL: 15 * time.Minute,
			Issuer:         "test-issuer",
			Audience:       "test-audience",
		},
	}
}

func newTestService(repo UserRepo) *AuthServiceImpl {
	s := NewAuthService(repo, testConfig(), zap.NewNop())
	s.cost = bcrypt.MinCost
	return s
}

func hashed(t *testing.T, password string) *string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	h := string(b)
	return &h
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)
		user := &models.User{ID: uuid.New(), Email: "new@example.com", Name: "New"}

		mockRepo.On("Create", ctx, "new@example.com", "New", mock.MatchedBy(func(h *string) bool {
			return h != nil && bcrypt.CompareHashAndPassword([]byte(*h), []byte("password123")) == nil
		}), false).Return(user, nil).Once()

		got, token, err := service.SignUp(ctx, models.SignUpRequest{Email: "  New@Example.com ", Password: "password123", Name: " New "})
		require.NoError(t, err)
		assert.Equal(t, user, got)
		assert.NotEmpty(t, token)

		claims, err := service.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
		assert.False(t, claims.IsAdmin)
		mockRepo.AssertExpectations(t)
	})

	t.Run("ShortPassword", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)

		_, _, err := service.SignUp(ctx, models.SignUpRequest{Email: "a@example.com", Password: "short"})
		require.ErrorIs(t, err, models.ErrValidation)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)
		mockRepo.On("Create", ctx, "dup@example.com", "", mock.Anything, false).
			Return(nil, models.ErrConflict).Once()

		_, _, err := service.SignUp(ctx, models.SignUpRequest{Email: "dup@example.com", Password: "password123"})
		assert.ErrorIs(t, err, models.ErrConflict)
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: uuid.New(), Email: "test@example.com", PasswordHash: hashed(t, "password123"), IsAdmin: true}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)
		mockRepo.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

		got, token, err := service.SignIn(ctx, models.SignInRequest{Email: "TEST@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)

		claims, err := service.ValidateToken(token)
		require.NoError(t, err)
		assert.True(t, claims.IsAdmin)
		mockRepo.AssertExpectations(t)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)
		mockRepo.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()

		_, token, err := service.SignIn(ctx, models.SignInRequest{Email: "test@example.com", Password: "wrong-password"})
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		assert.Empty(t, token)
	})

	t.Run("UserNotFound", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)
		mockRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, models.ErrNotFound).Once()

		_, _, err := service.SignIn(ctx, models.SignInRequest{Email: "ghost@example.com", Password: "password123"})
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		assert.NotErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("NoPasswordSet", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)
		oauthOnly := &models.User{ID: uuid.New(), Email: "oauth@example.com"}
		mockRepo.On("GetByEmail", ctx, "oauth@example.com").Return(oauthOnly, nil).Once()

		_, _, err := service.SignIn(ctx, models.SignInRequest{Email: "oauth@example.com", Password: "password123"})
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})

	t.Run("DatabaseError", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)
		mockRepo.On("GetByEmail", ctx, "test@example.com").Return(nil, errors.New("connection refused")).Once()

		_, _, err := service.SignIn(ctx, models.SignInRequest{Email: "test@example.com", Password: "password123"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrUnauthenticated)
	})
}

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesNewAdmin", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)
		admin := &models.User{ID: uuid.New(), Email: "admin@example.com", IsAdmin: true}
		mockRepo.On("GetByEmail", ctx, "admin@example.com").Return(nil, models.ErrNotFound).Once()
		mockRepo.On("Create", ctx, "admin@example.com", "Admin", mock.Anything, true).Return(admin, nil).Once()

		got, created, err := service.CreateAdmin(ctx, "Admin@example.com", "password123", "Admin")
		require.NoError(t, err)
		assert.True(t, created)
		assert.True(t, got.IsAdmin)
		mockRepo.AssertExpectations(t)
	})

	t.Run("PromotesExistingUser", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)
		existing := &models.User{ID: uuid.New(), Email: "user@example.com"}
		mockRepo.On("GetByEmail", ctx, "user@example.com").Return(existing, nil).Once()
		mockRepo.On("SetAdmin", ctx, existing.ID, true).Return(nil).Once()

		got, created, err := service.CreateAdmin(ctx, "user@example.com", "", "")
		require.NoError(t, err)
		assert.False(t, created)
		assert.True(t, got.IsAdmin)
		mockRepo.AssertExpectations(t)
		mockRepo.AssertNotCalled(t, "SetPassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NewAccountNeedsPassword", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := newTestService(mockRepo)
		mockRepo.On("GetByEmail", ctx, "admin@example.com").Return(nil, models.ErrNotFound).Once()

		_, _, err := service.CreateAdmin(ctx, "admin@example.com", "", "")
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}
