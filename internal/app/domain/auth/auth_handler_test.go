package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/common"
	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

type fakeLinker struct {
	n      int64
	err    error
	gotIP  string
	gotUID uuid.UUID
}

func (f *fakeLinker) LinkAnonymousTrips(_ context.Context, userID uuid.UUID, ip string) (int64, error) {
	f.gotUID, f.gotIP = userID, ip
	return f.n, f.err
}

func newAuthRouter(h *AuthHandlers, caller *models.Caller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if caller != nil {
		r.Use(func(c *gin.Context) {
			common.SetCaller(c, *caller)
			c.Next()
		})
	}
	r.POST("/api/auth/signup", h.SignUp)
	r.POST("/api/auth/signin", h.SignIn)
	r.POST("/api/auth/signout", h.SignOut)
	r.GET("/api/auth/me", h.Me)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.23:40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestSignInLinksAnonymousTrips(t *testing.T) {
	mockRepo := new(MockUserRepo)
	service := newTestService(mockRepo)
	user := &models.User{ID: uuid.New(), Email: "test@example.com", PasswordHash: hashed(t, "password123")}
	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(user, nil)

	linker := &fakeLinker{n: 2}
	r := newAuthRouter(NewAuthHandlers(service, linker, false, zap.NewNop()), nil)

	w := post(r, "/api/auth/signin", `{"email":"test@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.LinkedTrips)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "198.51.100.23", linker.gotIP)
	assert.Equal(t, user.ID, linker.gotUID)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, body.Token, cookie.Value)
	assert.NotContains(t, w.Body.String(), "passwordHash")
}

func TestSignInLinksOnlyTheSocketAddressOfADirectClient(t *testing.T) {
	mockRepo := new(MockUserRepo)
	user := &models.User{ID: uuid.New(), Email: "test@example.com", PasswordHash: hashed(t, "password123")}
	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(user, nil)

	linker := &fakeLinker{}
	r := newAuthRouter(NewAuthHandlers(newTestService(mockRepo), linker, false, zap.NewNop()), nil)
	require.NoError(t, common.TrustProxies(r, []string{"10.0.0.0/8"}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		strings.NewReader(`{"email":"test@example.com","password":"password123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "192.0.2.200")
	req.Header.Set("X-Real-IP", "192.0.2.200")
	req.RemoteAddr = "198.51.100.23:40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "198.51.100.23", linker.gotIP)
}

func TestSignInLinkFailureIsNotFatal(t *testing.T) {
	mockRepo := new(MockUserRepo)
	service := newTestService(mockRepo)
	user := &models.User{ID: uuid.New(), Email: "test@example.com", PasswordHash: hashed(t, "password123")}
	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(user, nil)

	r := newAuthRouter(NewAuthHandlers(service, &fakeLinker{err: errors.New("db down")}, false, zap.NewNop()), nil)
	w := post(r, "/api/auth/signin", `{"email":"test@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignInRejected(t *testing.T) {
	mockRepo := new(MockUserRepo)
	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(nil, models.ErrNotFound)
	r := newAuthRouter(NewAuthHandlers(newTestService(mockRepo), nil, false, zap.NewNop()), nil)

	w := post(r, "/api/auth/signin", `{"email":"test@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, sessionCookie(w))
}

func TestSignUpHandler(t *testing.T) {
	mockRepo := new(MockUserRepo)
	user := &models.User{ID: uuid.New(), Email: "new@example.com"}
	mockRepo.On("Create", mock.Anything, "new@example.com", "", mock.Anything, false).Return(user, nil)
	r := newAuthRouter(NewAuthHandlers(newTestService(mockRepo), nil, false, zap.NewNop()), nil)

	w := post(r, "/api/auth/signup", `{"email":"new@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotNil(t, sessionCookie(w))

	w = post(r, "/api/auth/signup", `{"email":"not-an-email","password":"password123"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignOutClearsCookie(t *testing.T) {
	r := newAuthRouter(NewAuthHandlers(newTestService(new(MockUserRepo)), nil, false, zap.NewNop()), nil)
	w := post(r, "/api/auth/signout", "")
	require.Equal(t, http.StatusOK, w.Code)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestMe(t *testing.T) {
	mockRepo := new(MockUserRepo)
	id := uuid.New()
	mockRepo.On("GetByID", mock.Anything, id).Return(&models.User{ID: id, Email: "me@example.com"}, nil)
	h := NewAuthHandlers(newTestService(mockRepo), nil, false, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	newAuthRouter(h, nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	newAuthRouter(h, &models.Caller{UserID: &id}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "me@example.com")
}
