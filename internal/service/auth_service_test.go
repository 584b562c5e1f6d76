package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
)

type mockUserRepo struct {
	userByUsername *models.User
	findErr        error
	created        []*models.User
	createErr      error
	auditLogs      []*models.AuditLog
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.userByUsername == nil || m.userByUsername.Username != username {
		return nil, sql.ErrNoRows
	}
	return m.userByUsername, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByUsername != nil && m.userByUsername.ID == id {
		return m.userByUsername, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "u-created"
	m.created = append(m.created, user)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockSessions struct {
	created   []string
	revoked   []string
	session   *models.Session
	refreshed *models.Session
}

func (m *mockSessions) Create(ctx context.Context, userID string, rememberMe bool) (*models.Session, error) {
	m.created = append(m.created, userID)
	return &models.Session{SessionID: "tok-" + userID, UserID: userID, RememberMe: rememberMe, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockSessions) Lookup(sessionID string) *models.Session {
	if m.session != nil && m.session.SessionID == sessionID {
		return m.session
	}
	return nil
}

func (m *mockSessions) Refresh(ctx context.Context, sessionID string) *models.Session {
	return m.refreshed
}

func (m *mockSessions) Revoke(ctx context.Context, sessionID, userID string) error {
	m.revoked = append(m.revoked, sessionID)
	return nil
}

func (m *mockSessions) Window(rememberMe bool) time.Duration {
	if rememberMe {
		return 7 * 24 * time.Hour
	}
	return time.Hour
}

func TestAuthServiceSignUpSuccess(t *testing.T) {
	repo := &mockUserRepo{}
	sessions := &mockSessions{}
	svc := NewAuthService(repo, sessions, validator.New(), zap.NewNop())

	user, session, err := svc.SignUp(context.Background(), models.SignUpRequest{
		Username:        "ada",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	assert.Equal(t, "ada", user.Username)
	require.NotNil(t, session)
	assert.Equal(t, []string{"u-created"}, sessions.created)

	require.Len(t, repo.created, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created[0].PasswordHash), []byte("secret1")))
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionSignUp, repo.auditLogs[0].Action)
}

func TestAuthServiceSignUpShortPassword(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, &mockSessions{}, validator.New(), zap.NewNop())

	_, _, err := svc.SignUp(context.Background(), models.SignUpRequest{
		Username:        "ada",
		Password:        "tiny",
		ConfirmPassword: "tiny",
	}, "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceSignUpPasswordMismatch(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, &mockSessions{}, validator.New(), zap.NewNop())

	_, _, err := svc.SignUp(context.Background(), models.SignUpRequest{
		Username:        "ada",
		Password:        "secret1",
		ConfirmPassword: "secret2",
	}, "", "")
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "do not match")
}

func TestAuthServiceSignUpDuplicateUsername(t *testing.T) {
	repo := &mockUserRepo{userByUsername: &models.User{ID: "u1", Username: "ada"}}
	svc := NewAuthService(repo, &mockSessions{}, validator.New(), zap.NewNop())

	_, _, err := svc.SignUp(context.Background(), models.SignUpRequest{
		Username:        "ada",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}, "", "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "already exists")
}

func TestAuthServiceSignInSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	repo := &mockUserRepo{userByUsername: &models.User{ID: "u1", Username: "ada", PasswordHash: string(hash)}}
	sessions := &mockSessions{}
	svc := NewAuthService(repo, sessions, validator.New(), zap.NewNop())

	user, session, err := svc.SignIn(context.Background(), models.SignInRequest{Username: "ada", Password: "secret1", RememberMe: true})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, session.RememberMe)
	assert.Equal(t, []string{"u1"}, sessions.created)
}

func TestAuthServiceSignInFailuresAreIndistinguishable(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	repo := &mockUserRepo{userByUsername: &models.User{ID: "u1", Username: "ada", PasswordHash: string(hash)}}
	svc := NewAuthService(repo, &mockSessions{}, validator.New(), zap.NewNop())

	_, _, unknownUserErr := svc.SignIn(context.Background(), models.SignInRequest{Username: "ghost", Password: "secret1"})
	_, _, badPasswordErr := svc.SignIn(context.Background(), models.SignInRequest{Username: "ada", Password: "wrong"})

	require.Error(t, unknownUserErr)
	require.Error(t, badPasswordErr)

	// Unknown username and wrong password must produce the exact same
	// response, or usernames become enumerable.
	a := appErrors.FromError(unknownUserErr)
	b := appErrors.FromError(badPasswordErr)
	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, a.Status, b.Status)
}

func TestAuthServiceSignOut(t *testing.T) {
	repo := &mockUserRepo{}
	sessions := &mockSessions{session: &models.Session{SessionID: "tok", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}}
	svc := NewAuthService(repo, sessions, validator.New(), zap.NewNop())

	require.NoError(t, svc.SignOut(context.Background(), "tok", "127.0.0.1", "agent"))
	assert.Equal(t, []string{"tok"}, sessions.revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionSignOut, repo.auditLogs[0].Action)
}

func TestAuthServiceSignOutWithoutCookie(t *testing.T) {
	sessions := &mockSessions{}
	svc := NewAuthService(&mockUserRepo{}, sessions, validator.New(), zap.NewNop())

	require.NoError(t, svc.SignOut(context.Background(), "", "", ""))
	assert.Empty(t, sessions.revoked)
}

func TestAuthServiceAuthenticate(t *testing.T) {
	repo := &mockUserRepo{userByUsername: &models.User{ID: "u1", Username: "ada"}}
	sessions := &mockSessions{session: &models.Session{SessionID: "tok", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}}
	svc := NewAuthService(repo, sessions, validator.New(), zap.NewNop())

	user, err := svc.Authenticate(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)

	_, err = svc.Authenticate(context.Background(), "stale")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshSession(t *testing.T) {
	sessions := &mockSessions{refreshed: &models.Session{SessionID: "tok", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}}
	svc := NewAuthService(&mockUserRepo{}, sessions, validator.New(), zap.NewNop())

	session, err := svc.RefreshSession(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", session.SessionID)

	sessions.refreshed = nil
	_, err = svc.RefreshSession(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
