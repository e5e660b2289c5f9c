package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/common"
	"github.com/FACorreiaa/go-voyage/internal/app/domain/auth"
	"github.com/FACorreiaa/go-voyage/internal/app/models"
	"github.com/FACorreiaa/go-voyage/internal/pkg/config"
)

func testTokens() *auth.TokenService {
	return auth.NewTokenService(config.JWTConfig{
		SecretKey:      "middleware-test-secret-long-enough!!",
		AccessTokenTTL: time.Hour,
		Issuer:         "voyage",
		Audience:       "voyage-web",
	})
}

// tokenValidator adapts TokenService to TokenValidator.
type tokenValidator struct{ *auth.TokenService }

func (v tokenValidator) ValidateToken(token string) (*auth.Claims, error) { return v.Parse(token) }

func newRouter(tokens *auth.TokenService, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OptionalAuth(tokenValidator{tokens}, zap.NewNop()))
	handlers := append(guards, func(c *gin.Context) {
		caller := common.Caller(c)
		if caller.Anonymous() {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, caller.UserID.String())
	})
	r.GET("/whoami", handlers...)
	return r
}

func get(r http.Handler, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOptionalAuth(t *testing.T) {
	tokens := testTokens()
	user := &models.User{ID: uuid.New(), Email: "a@example.com"}
	token, err := tokens.Issue(user)
	require.NoError(t, err)
	r := newRouter(tokens)

	t.Run("NoToken", func(t *testing.T) {
		w := get(r, nil)
		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("Cookie", func(t *testing.T) {
		w := get(r, func(req *http.Request) { req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token}) })
		assert.Equal(t, user.ID.String(), w.Body.String())
	})

	t.Run("Bearer", func(t *testing.T) {
		w := get(r, func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) })
		assert.Equal(t, user.ID.String(), w.Body.String())
	})

	t.Run("InvalidTokenStaysAnonymous", func(t *testing.T) {
		w := get(r, func(req *http.Request) { req.Header.Set("Authorization", "Bearer garbage") })
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())
	})
}

func TestRequireAuth(t *testing.T) {
	tokens := testTokens()
	token, err := tokens.Issue(&models.User{ID: uuid.New()})
	require.NoError(t, err)
	r := newRouter(tokens, RequireAuth(zap.NewNop()))

	w := get(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), common.CodeUnauthenticated)

	w = get(r, func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) })
	assert.Equal(t, http.StatusOK, w.Code)
}

type fakeUsers struct {
	users map[uuid.UUID]*models.User
	err   error
}

func (f fakeUsers) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func TestRequireAdmin(t *testing.T) {
	tokens := testTokens()
	issue := func(id uuid.UUID, admin bool) string {
		token, err := tokens.Issue(&models.User{ID: id, IsAdmin: admin})
		require.NoError(t, err)
		return token
	}

	userID, adminID, demotedID, promotedID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	users := fakeUsers{users: map[uuid.UUID]*models.User{
		userID:     {ID: userID},
		adminID:    {ID: adminID, IsAdmin: true},
		demotedID:  {ID: demotedID},
		promotedID: {ID: promotedID, IsAdmin: true},
	}}

	tests := []struct {
		name  string
		users UserLookup
		token string
		want  int
	}{
		{"Anonymous", users, "", http.StatusUnauthorized},
		{"User", users, issue(userID, false), http.StatusForbidden},
		{"Admin", users, issue(adminID, true), http.StatusOK},
		{"DemotedWithAdminToken", users, issue(demotedID, true), http.StatusForbidden},
		{"PromotedWithUserToken", users, issue(promotedID, false), http.StatusOK},
		{"DeletedAccount", users, issue(uuid.New(), true), http.StatusUnauthorized},
		{"LookupFails", fakeUsers{err: errors.New("connection refused")}, issue(adminID, true), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(tokens, RequireAdmin(tt.users, zap.NewNop()))
			w := get(r, func(req *http.Request) {
				if tt.token != "" {
					req.Header.Set("Authorization", "Bearer "+tt.token)
				}
			})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRefreshRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := testTokens()
	demotedID, promotedID := uuid.New(), uuid.New()
	users := fakeUsers{users: map[uuid.UUID]*models.User{
		demotedID:  {ID: demotedID},
		promotedID: {ID: promotedID, IsAdmin: true},
	}}

	r := gin.New()
	r.Use(OptionalAuth(tokenValidator{tokens}, zap.NewNop()), RefreshRole(users, zap.NewNop()))
	r.GET("/role", func(c *gin.Context) {
		if common.Caller(c).IsAdmin {
			c.String(http.StatusOK, "admin")
			return
		}
		c.String(http.StatusOK, "member")
	})

	role := func(id uuid.UUID, tokenAdmin bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/role", nil)
		if id != uuid.Nil {
			token, err := tokens.Issue(&models.User{ID: id, IsAdmin: tokenAdmin})
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, "member", role(demotedID, true).Body.String())
	assert.Equal(t, "admin", role(promotedID, false).Body.String())
	assert.Equal(t, "member", role(uuid.Nil, false).Body.String())
	assert.Equal(t, http.StatusUnauthorized, role(uuid.New(), true).Code)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://voyage.example"}))
	r.GET("/api/usage", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/usage", nil)
	req.Header.Set("Origin", "https://voyage.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://voyage.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage", nil))
	assert.Equal(t, http.StatusOK, w.Code, "requests without Origin are not CORS")
}

func TestSecurityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityMiddleware(), HTTPMetrics())
	r.GET("/api/trips/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trips/abc", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}
