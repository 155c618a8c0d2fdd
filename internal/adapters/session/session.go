// Package session keeps the signed-in user's credentials and supplies the
// bearer token for remote calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/remote"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
)

var (
	ErrNotAuthenticated = errors.New("session: not signed in")
	ErrSessionExpired   = errors.New("session: credentials expired, sign in again")
	ErrNoCredentials    = errors.New("session: no stored credentials")
	ErrMissingField     = errors.New("session: all fields are required")
	ErrEmptyToken       = errors.New("session: server returned no token")
)

type Credentials struct {
	Token string      `json:"token"`
	User  domain.User `json:"usuario"`
}

// Store persists credentials between runs.
type Store interface {
	// Load returns ErrNoCredentials when nothing has been saved.
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*remote.AuthResult, error)
	Register(ctx context.Context, name, email, password string) (*remote.AuthResult, error)
}

type Session struct {
	auth  Authenticator
	store Store
	now   func() time.Time

	mu    sync.RWMutex
	creds *Credentials
}

var _ remote.TokenSource = (*Session)(nil)

func NewSession(auth Authenticator, store Store) *Session {
	return &Session{
		auth:  auth,
		store: store,
		now:   time.Now,
	}
}

func (s *Session) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingField
	}

	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("session: sign in: %w", err)
	}
	return s.adopt(ctx, res)
}

func (s *Session) SignUp(ctx context.Context, name, email, password string) (*Credentials, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingField
	}

	res, err := s.auth.Register(ctx, name, email, password)
	if err != nil {
		return nil, fmt.Errorf("session: sign up: %w", err)
	}
	return s.adopt(ctx, res)
}

func (s *Session) adopt(ctx context.Context, res *remote.AuthResult) (*Credentials, error) {
	if res.Token == "" {
		return nil, ErrEmptyToken
	}

	creds := Credentials{Token: res.Token, User: res.User}
	if err := s.store.Save(ctx, creds); err != nil {
		return nil, fmt.Errorf("session: persist credentials: %w", err)
	}

	s.mu.Lock()
	s.creds = &creds
	s.mu.Unlock()

	return &creds, nil
}

// SignOut forgets the credentials in memory and in the store.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.creds = nil
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("session: clear credentials: %w", err)
	}
	return nil
}

// Restore loads persisted credentials. Expired credentials are discarded.
func (s *Session) Restore(ctx context.Context) (*Credentials, error) {
	creds, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	if s.expired(creds.Token) {
		_ = s.store.Clear(ctx)
		return nil, ErrSessionExpired
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()

	c := *creds
	return &c, nil
}

func (s *Session) Current() (Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.creds == nil {
		return Credentials{}, false
	}
	return *s.creds, true
}

// Token returns the bearer token for the next request.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	creds := s.creds
	s.mu.RUnlock()

	if creds == nil {
		return "", ErrNotAuthenticated
	}

	if s.expired(creds.Token) {
		if err := s.SignOut(ctx); err != nil {
			return "", errors.Join(ErrSessionExpired, err)
		}
		return "", ErrSessionExpired
	}
	return creds.Token, nil
}

// expired reads the exp claim without verifying the signature; the server
// remains the authority. Tokens that are not JWTs never expire locally.
func (s *Session) expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now())
}
