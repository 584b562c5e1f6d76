package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
)

// userPointerWriter persists the "last known session" pointer on the user
// record. The in-memory store is authoritative while the process lives; the
// pointer only exists so a restart can tell "never logged in" apart from
// "had an active session".
type userPointerWriter interface {
	UpdateSessionPointer(ctx context.Context, userID, sessionID string, expiresAt, lastLoginAt time.Time) error
	RefreshSessionPointer(ctx context.Context, userID string, expiresAt time.Time) error
	ClearSessionPointer(ctx context.Context, userID string) error
}

// Config sets session windows and the sweep cadence.
type Config struct {
	Window         time.Duration
	RememberWindow time.Duration
	SweepInterval  time.Duration
}

// Store is the process-wide registry of active sessions, keyed by opaque
// token with a secondary index by user. One logical session per user: creating
// a new session deletes any prior one for that user under the same lock, so
// two parallel sign-ins can never leave two live sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	byUser   map[string]string

	users          userPointerWriter
	window         time.Duration
	rememberWindow time.Duration
	sweepInterval  time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewStore constructs a session store.
func NewStore(users userPointerWriter, cfg Config, logger *zap.Logger) *Store {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.RememberWindow <= 0 {
		cfg.RememberWindow = 7 * 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions:       make(map[string]*models.Session),
		byUser:         make(map[string]string),
		users:          users,
		window:         cfg.Window,
		rememberWindow: cfg.RememberWindow,
		sweepInterval:  cfg.SweepInterval,
		logger:         logger,
		now:            time.Now,
	}
}

// Window returns the expiry window applied for the given rememberMe flag,
// which is also the cookie max-age.
func (s *Store) Window(rememberMe bool) time.Duration {
	if rememberMe {
		return s.rememberWindow
	}
	return s.window
}

// Create issues a fresh session for the user, replacing any existing one.
func (s *Store) Create(ctx context.Context, userID string, rememberMe bool) (*models.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate session token")
	}

	now := s.now().UTC()
	session := &models.Session{
		SessionID:  token,
		UserID:     userID,
		ExpiresAt:  now.Add(s.Window(rememberMe)),
		RememberMe: rememberMe,
		CreatedAt:  now,
	}

	s.mu.Lock()
	if prior, ok := s.byUser[userID]; ok {
		delete(s.sessions, prior)
	}
	s.sessions[token] = session
	s.byUser[userID] = token
	s.mu.Unlock()

	if err := s.users.UpdateSessionPointer(ctx, userID, session.SessionID, session.ExpiresAt, now); err != nil {
		s.logger.Warn("failed to persist session pointer", zap.String("user_id", userID), zap.Error(err))
	}

	snapshot := *session
	return &snapshot, nil
}

// Lookup returns the session for the token, or nil. Expired entries are
// deleted on the spot so a stale session is never handed out.
func (s *Store) Lookup(sessionID string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if session.Expired(s.now().UTC()) {
		s.evictLocked(session)
		return nil
	}
	snapshot := *session
	return &snapshot
}

// Refresh extends a live session by its original window. The rememberMe flag
// never changes. Returns nil when the token is unknown or already expired.
func (s *Store) Refresh(ctx context.Context, sessionID string) *models.Session {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	now := s.now().UTC()
	if session.Expired(now) {
		s.evictLocked(session)
		s.mu.Unlock()
		return nil
	}
	session.ExpiresAt = now.Add(s.Window(session.RememberMe))
	snapshot := *session
	s.mu.Unlock()

	if err := s.users.RefreshSessionPointer(ctx, snapshot.UserID, snapshot.ExpiresAt); err != nil {
		s.logger.Warn("failed to persist refreshed session pointer", zap.String("user_id", snapshot.UserID), zap.Error(err))
	}
	return &snapshot
}

// Revoke deletes sessions by token and/or by owning user. At least one
// selector must be supplied.
func (s *Store) Revoke(ctx context.Context, sessionID, userID string) error {
	if sessionID == "" && userID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "session id or user id required")
	}

	s.mu.Lock()
	if sessionID != "" {
		if session, ok := s.sessions[sessionID]; ok {
			if userID == "" {
				userID = session.UserID
			}
			s.evictLocked(session)
		}
	}
	if userID != "" {
		if token, ok := s.byUser[userID]; ok {
			if session, ok := s.sessions[token]; ok {
				s.evictLocked(session)
			}
		}
	}
	s.mu.Unlock()

	if userID != "" {
		if err := s.users.ClearSessionPointer(ctx, userID); err != nil {
			s.logger.Warn("failed to clear session pointer", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// Sweep deletes every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, session := range s.sessions {
		if session.Expired(now) {
			s.evictLocked(session)
			removed++
		}
	}
	return removed
}

// StartSweeper runs the periodic expiry sweep until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.Sweep(); removed > 0 {
					s.logger.Info("swept expired sessions", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// ActiveCount reports the number of live entries (expired-but-unswept
// included, they disappear at next lookup or sweep).
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) evictLocked(session *models.Session) {
	delete(s.sessions, session.SessionID)
	if token, ok := s.byUser[session.UserID]; ok && token == session.SessionID {
		delete(s.byUser, session.UserID)
	}
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
