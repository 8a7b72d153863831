package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned for expired or revoked sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidSession covers malformed, tampered and mismatched tokens.
	ErrInvalidSession = errors.New("invalid session")
)

// SessionStore keeps track of live sessions so they can be revoked before
// their token expires.
type SessionStore interface {
	CreateSession(ctx context.Context, sessionID string, userID int64, ttl time.Duration) error
	SessionUserID(ctx context.Context, sessionID string) (int64, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID int64) error
}

// Session is an issued sign-in.
type Session struct {
	ID        string
	UserID    int64
	Token     string
	ExpiresAt time.Time
}

// Authenticator issues, resolves and revokes sessions.
type Authenticator struct {
	tokens      *TokenService
	sessions    SessionStore
	ttl         time.Duration
	rememberTTL time.Duration
}

func NewAuthenticator(tokens *TokenService, sessions SessionStore, ttl, rememberTTL time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if rememberTTL < ttl {
		rememberTTL = ttl
	}
	return &Authenticator{
		tokens:      tokens,
		sessions:    sessions,
		ttl:         ttl,
		rememberTTL: rememberTTL,
	}
}

// SignIn starts a session for the user. Remembered sessions live for the
// longer remember TTL.
func (a *Authenticator) SignIn(ctx context.Context, userID int64, remember bool) (*Session, error) {
	ttl := a.ttl
	if remember {
		ttl = a.rememberTTL
	}

	id := uuid.NewString()
	token, expiresAt, err := a.tokens.Generate(userID, id, ttl)
	if err != nil {
		return nil, err
	}
	if err := a.sessions.CreateSession(ctx, id, userID, ttl); err != nil {
		return nil, err
	}
	return &Session{ID: id, UserID: userID, Token: token, ExpiresAt: expiresAt}, nil
}

// Resolve returns the session behind a token if it is valid and not revoked.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	userID, err := a.sessions.SessionUserID(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if userID != claims.UserID {
		return nil, ErrInvalidSession
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &Session{ID: claims.ID, UserID: userID, Token: token, ExpiresAt: expiresAt}, nil
}

func (a *Authenticator) SignOut(ctx context.Context, sessionID string) error {
	return a.sessions.DeleteSession(ctx, sessionID)
}

// SignOutEverywhere revokes all sessions of the user.
func (a *Authenticator) SignOutEverywhere(ctx context.Context, userID int64) error {
	return a.sessions.DeleteUserSessions(ctx, userID)
}
