package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/common"
	"github.com/FACorreiaa/go-voyage/internal/app/domain/auth"
	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

// TokenValidator verifies a session token.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// OptionalAuth attaches the signed-in caller when a valid session token is
// present. Missing or invalid tokens leave the request anonymous; they are
// never an error here.
func OptionalAuth(tokens TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			logger.Debug("Ignoring invalid session token", zap.String("path", c.FullPath()), zap.Error(err))
			c.Next()
			return
		}
		caller, err := claims.Caller()
		if err != nil {
			logger.Warn("Session token carries a malformed subject", zap.Error(err))
			c.Next()
			return
		}

		common.SetCaller(c, caller)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests. It expects OptionalAuth earlier in
// the chain.
func RequireAuth(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if common.Caller(c).Anonymous() {
			common.RespondError(c, logger, models.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}

// UserLookup loads the current account behind a session.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// reloadRole replaces the admin claim of a signed-in caller with the flag
// currently stored on the account. It responds and returns false when the
// account is gone or cannot be read.
func reloadRole(c *gin.Context, users UserLookup, logger *zap.Logger) (models.Caller, bool) {
	caller := common.Caller(c)
	user, err := users.GetUser(c.Request.Context(), *caller.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			err = models.ErrUnauthenticated
		}
		common.RespondError(c, logger, err)
		return caller, false
	}
	if caller.IsAdmin != user.IsAdmin {
		logger.Info("Session admin claim is stale",
			zap.String("user_id", user.ID.String()),
			zap.Bool("token_admin", caller.IsAdmin),
			zap.Bool("account_admin", user.IsAdmin))
	}
	caller.IsAdmin = user.IsAdmin
	common.SetCaller(c, caller)
	return caller, true
}

// RefreshRole makes handlers see the stored admin flag instead of the one in
// the session token. Anonymous requests pass through untouched.
func RefreshRole(users UserLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if common.Caller(c).Anonymous() {
			c.Next()
			return
		}
		if _, ok := reloadRole(c, users, logger); ok {
			c.Next()
		}
	}
}

// RequireAdmin rejects anonymous callers with 401 and signed-in non-admins
// with 403. The admin flag is read from the account on every request, so a
// promotion or demotion applies without a new sign-in.
func RequireAdmin(users UserLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if common.Caller(c).Anonymous() {
			common.RespondError(c, logger, models.ErrUnauthenticated)
			return
		}
		caller, ok := reloadRole(c, users, logger)
		if !ok {
			return
		}
		if !caller.IsAdmin {
			common.RespondError(c, logger, models.ErrForbidden)
			return
		}
		c.Next()
	}
}
