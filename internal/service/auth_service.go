package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
)

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type sessionRegistry interface {
	Create(ctx context.Context, userID string, rememberMe bool) (*models.Session, error)
	Lookup(sessionID string) *models.Session
	Refresh(ctx context.Context, sessionID string) *models.Session
	Revoke(ctx context.Context, sessionID, userID string) error
	Window(rememberMe bool) time.Duration
}

// AuthService provides cookie-session authentication use cases.
type AuthService struct {
	repo      authUserRepository
	sessions  sessionRegistry
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, sessions sessionRegistry, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{repo: repo, sessions: sessions, validator: validate, logger: logger}
}

// SignUp registers a new account and opens its first session.
func (s *AuthService) SignUp(ctx context.Context, req models.SignUpRequest, ip, userAgent string) (*models.UserInfo, *models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all fields are required and the password must be at least 6 characters")
	}
	if req.Password != req.ConfirmPassword {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "passwords do not match")
	}

	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "username already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{Username: req.Username, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	session, err := s.sessions.Create(ctx, user.ID, false)
	if err != nil {
		return nil, nil, err
	}

	s.audit(ctx, user.ID, models.AuditActionSignUp, ip, userAgent)

	return &models.UserInfo{ID: user.ID, Username: user.Username}, session, nil
}

// SignIn authenticates a user and replaces any prior session.
func (s *AuthService) SignIn(ctx context.Context, req models.SignInRequest) (*models.UserInfo, *models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "username and password are required")
	}

	user, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Same response as a bad password, to avoid username enumeration.
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	// The store deletes any prior session for this user under its own lock.
	session, err := s.sessions.Create(ctx, user.ID, req.RememberMe)
	if err != nil {
		return nil, nil, err
	}

	s.audit(ctx, user.ID, models.AuditActionSignIn, req.IP, req.UserAgent)

	return &models.UserInfo{ID: user.ID, Username: user.Username}, session, nil
}

// SignOut revokes the session behind the given token. Unknown tokens are a
// no-op; the cookie is cleared either way.
func (s *AuthService) SignOut(ctx context.Context, sessionID, ip, userAgent string) error {
	if sessionID == "" {
		return nil
	}
	session := s.sessions.Lookup(sessionID)
	if err := s.sessions.Revoke(ctx, sessionID, ""); err != nil {
		return err
	}
	if session != nil {
		s.audit(ctx, session.UserID, models.AuditActionSignOut, ip, userAgent)
	}
	return nil
}

// Authenticate resolves a session token to its user. Expired and unknown
// tokens surface as unauthorized so the middleware clears the cookie.
func (s *AuthService) Authenticate(ctx context.Context, sessionID string) (*models.UserInfo, error) {
	session := s.sessions.Lookup(sessionID)
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired session")
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	return &models.UserInfo{ID: user.ID, Username: user.Username}, nil
}

// RefreshSession extends the current session window.
func (s *AuthService) RefreshSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session := s.sessions.Refresh(ctx, sessionID)
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired session")
	}
	return session, nil
}

// CookieMaxAge mirrors the session window for the given rememberMe flag.
func (s *AuthService) CookieMaxAge(rememberMe bool) int {
	return int(s.sessions.Window(rememberMe).Seconds())
}

func (s *AuthService) audit(ctx context.Context, userID, action, ip, userAgent string) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.String("action", action), zap.Error(err))
	}
}
