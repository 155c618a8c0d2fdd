package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/cache"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/remote"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*remote.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.AuthResult), args.Error(1)
}

func (m *MockAuthenticator) Register(ctx context.Context, name, email, password string) (*remote.AuthResult, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.AuthResult), args.Error(1)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return s
}

var ana = domain.User{ID: "u1", Name: "Ana", Email: "ana@trilho.app"}

func TestSession_SignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: Stores and serves the token", func(t *testing.T) {
		auth := new(MockAuthenticator)
		store := NewMemoryStore()
		s := NewSession(auth, store)
		token := signedToken(t, time.Now().Add(time.Hour))

		auth.On("Login", ctx, "ana@trilho.app", "secret123").Return(&remote.AuthResult{Token: token, User: ana}, nil)

		creds, err := s.SignIn(ctx, " ana@trilho.app ", "secret123")

		require.NoError(t, err)
		assert.Equal(t, ana, creds.User)

		got, err := s.Token(ctx)
		assert.NoError(t, err)
		assert.Equal(t, token, got)

		saved, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, token, saved.Token)
	})

	t.Run("Fail: Blank fields are rejected before any request", func(t *testing.T) {
		auth := new(MockAuthenticator)
		s := NewSession(auth, NewMemoryStore())

		_, err := s.SignIn(ctx, "", "secret123")
		assert.ErrorIs(t, err, ErrMissingField)
		_, err = s.SignIn(ctx, "ana@trilho.app", "")
		assert.ErrorIs(t, err, ErrMissingField)

		auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Fail: Server rejection leaves the session empty", func(t *testing.T) {
		auth := new(MockAuthenticator)
		s := NewSession(auth, NewMemoryStore())
		rejection := &domain.RemoteError{Op: "login", Kind: domain.KindHardFailure, StatusCode: 401, Message: "invalid credentials"}

		auth.On("Login", ctx, "ana@trilho.app", "nope").Return(nil, rejection)

		_, err := s.SignIn(ctx, "ana@trilho.app", "nope")

		assert.ErrorIs(t, err, domain.ErrHardFailure)
		_, ok := s.Current()
		assert.False(t, ok)
		_, err = s.Token(ctx)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("Fail: Empty token is refused", func(t *testing.T) {
		auth := new(MockAuthenticator)
		s := NewSession(auth, NewMemoryStore())

		auth.On("Login", ctx, mock.Anything, mock.Anything).Return(&remote.AuthResult{User: ana}, nil)

		_, err := s.SignIn(ctx, "ana@trilho.app", "secret123")

		assert.ErrorIs(t, err, ErrEmptyToken)
	})
}

func TestSession_SignUp(t *testing.T) {
	ctx := context.Background()
	auth := new(MockAuthenticator)
	s := NewSession(auth, NewMemoryStore())

	_, err := s.SignUp(ctx, " ", "ana@trilho.app", "secret123")
	assert.ErrorIs(t, err, ErrMissingField)

	auth.On("Register", ctx, "Ana", "ana@trilho.app", "secret123").Return(&remote.AuthResult{Token: "opaque", User: ana}, nil)

	creds, err := s.SignUp(ctx, "Ana", "ana@trilho.app", "secret123")

	require.NoError(t, err)
	assert.Equal(t, "opaque", creds.Token)
	auth.AssertExpectations(t)
}

func TestSession_Expiry(t *testing.T) {
	ctx := context.Background()

	t.Run("Expired token signs the user out", func(t *testing.T) {
		store := NewMemoryStore()
		s := NewSession(new(MockAuthenticator), store)
		require.NoError(t, store.Save(ctx, Credentials{Token: signedToken(t, time.Now().Add(time.Hour)), User: ana}))
		_, err := s.Restore(ctx)
		require.NoError(t, err)

		s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		_, err = s.Token(ctx)

		assert.ErrorIs(t, err, ErrSessionExpired)
		_, err = store.Load(ctx)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("Restore discards expired credentials", func(t *testing.T) {
		store := NewMemoryStore()
		s := NewSession(new(MockAuthenticator), store)
		require.NoError(t, store.Save(ctx, Credentials{Token: signedToken(t, time.Now().Add(-time.Minute))}))

		_, err := s.Restore(ctx)

		assert.ErrorIs(t, err, ErrSessionExpired)
		_, err = store.Load(ctx)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("Opaque tokens never expire locally", func(t *testing.T) {
		store := NewMemoryStore()
		s := NewSession(new(MockAuthenticator), store)
		require.NoError(t, store.Save(ctx, Credentials{Token: "not-a-jwt"}))

		_, err := s.Restore(ctx)
		require.NoError(t, err)

		token, err := s.Token(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "not-a-jwt", token)
	})

	t.Run("Restore without stored credentials", func(t *testing.T) {
		s := NewSession(new(MockAuthenticator), NewMemoryStore())

		_, err := s.Restore(ctx)

		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}

func TestSession_SignOut(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := NewSession(new(MockAuthenticator), store)
	require.NoError(t, store.Save(ctx, Credentials{Token: "opaque"}))
	_, err := s.Restore(ctx)
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx))

	_, ok := s.Current()
	assert.False(t, ok)
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	t.Run("Missing file means no credentials", func(t *testing.T) {
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("Success: Round trip with owner-only permissions", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, Credentials{Token: "tok", User: ana}))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		creds, err := NewFileStore(path).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok", creds.Token)
		assert.Equal(t, ana, creds.User)
	})

	t.Run("Clear removes the file and is idempotent", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Clear(ctx))

		_, err := os.Stat(path)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("Fail: Corrupted file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := store.Load(ctx)

		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("Fail: Lock held by another owner", func(t *testing.T) {
		other := NewFileStore(path)
		locked, err := other.fileLock.TryLock()
		require.NoError(t, err)
		require.True(t, locked)
		defer other.fileLock.Unlock()

		ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		_, err = store.Load(ctx)

		assert.Error(t, err)
	})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestRedisStore_Integration(t *testing.T) {
	_ = godotenv.Load("../../../.env")

	rdb, err := cache.NewRedisClient(context.Background(), cache.Options{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       1,
	})
	if err != nil {
		t.Skipf("Skipping Redis integration test: %v", err)
	}
	defer rdb.Close()

	ctx := context.Background()
	store := NewRedisStore(rdb, time.Minute)
	require.NoError(t, store.Clear(ctx))

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)

	require.NoError(t, store.Save(ctx, Credentials{Token: "tok", User: ana}))

	creds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", creds.Token)
	assert.Equal(t, ana, creds.User)

	ttl, err := rdb.TTL(ctx, redisTokenKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)
}
