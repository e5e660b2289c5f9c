package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/common"
	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

// TripLinker attaches anonymous trips from an address to a fresh session.
type TripLinker interface {
	LinkAnonymousTrips(ctx context.Context, userID uuid.UUID, ip string) (int64, error)
}

type sessionResponse struct {
	User        *models.User `json:"user"`
	Token       string       `json:"token"`
	LinkedTrips int64        `json:"linkedTrips"`
}

type AuthHandlers struct {
	authService  AuthService
	linker       TripLinker
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandlers wires the auth endpoints. linker may be nil, in which case
// clients call the link endpoint themselves after signing in.
func NewAuthHandlers(authService AuthService, linker TripLinker, secureCookie bool, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService:  authService,
		linker:       linker,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

func (h *AuthHandlers) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(h.authService.TokenTTL().Seconds()), "/", "", h.secureCookie, true)
}

// link never fails the sign-in; the client can retry through the link endpoint.
func (h *AuthHandlers) link(c *gin.Context, user *models.User) int64 {
	if h.linker == nil {
		return 0
	}
	n, err := h.linker.LinkAnonymousTrips(c.Request.Context(), user.ID, common.ClientIP(c))
	if err != nil {
		h.logger.Warn("Linking anonymous trips after sign-in failed",
			zap.String("user_id", user.ID.String()), zap.Error(err))
		return 0
	}
	return n
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandlers) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, h.logger, err)
		return
	}

	user, token, err := h.authService.SignUp(c.Request.Context(), req)
	if err != nil {
		common.RespondError(c, h.logger, err)
		return
	}

	h.setSession(c, token)
	c.JSON(http.StatusCreated, sessionResponse{User: user, Token: token, LinkedTrips: h.link(c, user)})
}

// SignIn handles POST /api/auth/signin.
func (h *AuthHandlers) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, h.logger, err)
		return
	}

	user, token, err := h.authService.SignIn(c.Request.Context(), req)
	if err != nil {
		common.RespondError(c, h.logger, err)
		return
	}

	h.setSession(c, token)
	c.JSON(http.StatusOK, sessionResponse{User: user, Token: token, LinkedTrips: h.link(c, user)})
}

// SignOut handles POST /api/auth/signout. Tokens are stateless, so this only
// clears the cookie.
func (h *AuthHandlers) SignOut(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me handles GET /api/auth/me.
func (h *AuthHandlers) Me(c *gin.Context) {
	id, ok := common.UserID(c)
	if !ok {
		common.RespondError(c, h.logger, models.ErrUnauthenticated)
		return
	}
	user, err := h.authService.GetUser(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
