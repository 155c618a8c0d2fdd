package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key the loaders read so a developer's .env or shell
// cannot leak into the assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		ConfigPathEnv,
		"TRILHO_API_URL", "TRILHO_TIMEOUT", "TRILHO_RATE_LIMIT", "TRILHO_SESSION_STORE", "TRILHO_SESSION_FILE",
		"PORT", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"JWT_SECRET", "JWT_ISSUER", "JWT_TTL", "RATE_LIMIT_PER_MIN",
		"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trilho.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadClient(t *testing.T) {
	t.Run("Success: Defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadClient("")

		require.NoError(t, err)
		assert.Equal(t, "http://localhost:5000/api", cfg.APIURL)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
		assert.Equal(t, SessionStoreFile, cfg.SessionStore)
		assert.False(t, cfg.Redis.Enabled())
	})

	t.Run("Success: Environment wins over the file", func(t *testing.T) {
		clearEnv(t)
		path := writeYAML(t, "api_url: http://file.example/api\ntimeout: 3s\nrate_limit: 2.5\n")
		t.Setenv("TRILHO_API_URL", "http://env.example/api")

		cfg, err := LoadClient(path)

		require.NoError(t, err)
		assert.Equal(t, "http://env.example/api", cfg.APIURL)
		assert.Equal(t, 3*time.Second, cfg.Timeout)
		assert.Equal(t, 2.5, cfg.RateLimit)
	})

	t.Run("Success: File named by TRILHO_CONFIG", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(ConfigPathEnv, writeYAML(t, "session_store: memory\n"))

		cfg, err := LoadClient("")

		require.NoError(t, err)
		assert.Equal(t, SessionStoreMemory, cfg.SessionStore)
	})

	t.Run("Fail: Unparsable duration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TRILHO_TIMEOUT", "soon")

		_, err := LoadClient("")

		assert.ErrorContains(t, err, "TRILHO_TIMEOUT")
	})

	t.Run("Fail: Unknown session store", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TRILHO_SESSION_STORE", "cookie")

		_, err := LoadClient("")

		assert.ErrorContains(t, err, "SessionStore")
	})

	t.Run("Fail: Missing file", func(t *testing.T) {
		clearEnv(t)

		_, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml"))

		assert.Error(t, err)
	})
}

func TestLoadServer(t *testing.T) {
	t.Run("Success: In-memory by default", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadServer("")

		require.NoError(t, err)
		assert.Equal(t, "5000", cfg.Port)
		assert.False(t, cfg.Database.Enabled())
		assert.Equal(t, 100, cfg.RateLimitPerMin)
		assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	})

	t.Run("Success: Postgres and Redis from the environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_HOST", "db")
		t.Setenv("DB_PASSWORD", "pw")
		t.Setenv("REDIS_HOST", "cache")
		t.Setenv("REDIS_DB", "2")
		t.Setenv("JWT_TTL", "1h")

		cfg, err := LoadServer("")

		require.NoError(t, err)
		assert.True(t, cfg.Database.Enabled())
		assert.Equal(t, "postgres://trilho_user:pw@db:5432/trilho_db?sslmode=disable", cfg.Database.DSN())
		assert.True(t, cfg.Redis.Enabled())
		assert.Equal(t, 2, cfg.Redis.DB)
		assert.Equal(t, time.Hour, cfg.JWT.TTL)
	})

	t.Run("Fail: Bad integer", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RATE_LIMIT_PER_MIN", "lots")
		t.Setenv("REDIS_DB", "x")

		_, err := LoadServer("")

		assert.ErrorContains(t, err, "RATE_LIMIT_PER_MIN")
		assert.ErrorContains(t, err, "REDIS_DB")
	})
}
