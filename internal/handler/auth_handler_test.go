package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/scoresheet-api/internal/middleware"
	"github.com/noah-isme/scoresheet-api/internal/models"
	"github.com/noah-isme/scoresheet-api/internal/service"
)

type userRepoMock struct {
	user *models.User
}

func (m *userRepoMock) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.user == nil || m.user.Username != username {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *userRepoMock) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *userRepoMock) Create(ctx context.Context, user *models.User) error {
	user.ID = "u-created"
	return nil
}

func (m *userRepoMock) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

type sessionRegistryMock struct {
	session *models.Session
	revoked []string
}

func (m *sessionRegistryMock) Create(ctx context.Context, userID string, rememberMe bool) (*models.Session, error) {
	return &models.Session{SessionID: "tok-" + userID, UserID: userID, RememberMe: rememberMe, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *sessionRegistryMock) Lookup(sessionID string) *models.Session {
	if m.session != nil && m.session.SessionID == sessionID {
		return m.session
	}
	return nil
}

func (m *sessionRegistryMock) Refresh(ctx context.Context, sessionID string) *models.Session {
	return m.Lookup(sessionID)
}

func (m *sessionRegistryMock) Revoke(ctx context.Context, sessionID, userID string) error {
	m.revoked = append(m.revoked, sessionID)
	return nil
}

func (m *sessionRegistryMock) Window(rememberMe bool) time.Duration {
	if rememberMe {
		return 7 * 24 * time.Hour
	}
	return time.Hour
}

func newAuthHandler(repo *userRepoMock, sessions *sessionRegistryMock) *AuthHandler {
	svc := service.NewAuthService(repo, sessions, validator.New(), zap.NewNop())
	return NewAuthHandler(svc, "sessionId", false)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "sessionId" {
			return cookie
		}
	}
	return nil
}

func TestAuthHandlerSignUpSetsSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(&userRepoMock{}, &sessionRegistryMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.SignUpRequest{Username: "ada", Password: "secret1", ConfirmPassword: "secret1"})
	c.Request, _ = http.NewRequest(http.MethodPost, "/auth/signup", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.SignUp(c)
	require.Equal(t, http.StatusCreated, w.Code)

	cookie := sessionCookie(t, w)
	require.NotNil(t, cookie, "sign up must open a session")
	assert.Equal(t, "tok-u-created", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestAuthHandlerSignInRememberMeWidensCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	repo := &userRepoMock{user: &models.User{ID: "u1", Username: "ada", PasswordHash: string(hash)}}
	handler := newAuthHandler(repo, &sessionRegistryMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.SignInRequest{Username: "ada", Password: "secret1", RememberMe: true})
	c.Request, _ = http.NewRequest(http.MethodPost, "/auth/signin", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.SignIn(c)
	require.Equal(t, http.StatusOK, w.Code)

	cookie := sessionCookie(t, w)
	require.NotNil(t, cookie)
	assert.Equal(t, 7*24*3600, cookie.MaxAge)
}

func TestAuthHandlerSignInBadCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	repo := &userRepoMock{user: &models.User{ID: "u1", Username: "ada", PasswordHash: string(hash)}}
	handler := newAuthHandler(repo, &sessionRegistryMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.SignInRequest{Username: "ada", Password: "wrong"})
	c.Request, _ = http.NewRequest(http.MethodPost, "/auth/signin", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.SignIn(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, sessionCookie(t, w), "failed sign in must not set a cookie")
}

func TestAuthHandlerSignOutClearsCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := &sessionRegistryMock{session: &models.Session{SessionID: "tok", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}}
	handler := newAuthHandler(&userRepoMock{user: &models.User{ID: "u1", Username: "ada"}}, sessions)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/auth/signout", nil)
	c.Request.AddCookie(&http.Cookie{Name: "sessionId", Value: "tok"})

	handler.SignOut(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"tok"}, sessions.revoked)

	cookie := sessionCookie(t, w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestAuthHandlerRefreshExpiredSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(&userRepoMock{}, &sessionRegistryMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/auth/refresh", nil)
	c.Request.AddCookie(&http.Cookie{Name: "sessionId", Value: "stale"})

	handler.Refresh(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cookie := sessionCookie(t, w)
	require.NotNil(t, cookie, "stale cookie must be cleared")
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestAuthHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(&userRepoMock{}, &sessionRegistryMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.UserInfo{ID: "u1", Username: "ada"})

	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ada"`)
}
