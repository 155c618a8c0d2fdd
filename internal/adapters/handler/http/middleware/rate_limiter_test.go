package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/cache"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	_ = godotenv.Load("../../../../../.env")

	rdb, err := cache.NewRedisClient(context.Background(), cache.Options{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       1,
		PoolSize: 2,
	})
	if err != nil {
		t.Skipf("Skipping integration test (Redis down): %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	return rdb
}

func limitedRouter(rdb *redis.Client, limit int) *gin.Engine {
	router := gin.New()
	router.Use(RateLimiterMiddleware(rdb, limit, time.Minute))
	router.GET("/api/habitos", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"habitos": []string{}})
	})
	return router
}

func hit(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/habitos", nil)
	req.Header.Set("X-Forwarded-For", ip)
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiterMiddleware_Integration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rdb := setupTestRedis(t)
	ctx := context.Background()

	t.Run("Success: Headers count down under the limit", func(t *testing.T) {
		require.NoError(t, rdb.FlushDB(ctx).Err())
		router := limitedRouter(rdb, 3)

		for i := 1; i <= 3; i++ {
			w := hit(router, "10.0.0.1")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, strconv.Itoa(3-i), w.Header().Get("X-RateLimit-Remaining"))

			reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
			require.NoError(t, err)
			assert.Greater(t, reset, time.Now().Unix()-1)
		}
	})

	t.Run("Fail: Over the limit", func(t *testing.T) {
		require.NoError(t, rdb.FlushDB(ctx).Err())
		router := limitedRouter(rdb, 1)

		require.Equal(t, http.StatusOK, hit(router, "10.0.0.2").Code)

		w := hit(router, "10.0.0.2")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		var body struct {
			Message string `json:"message"`
			RetryIn int    `json:"retry_in_s"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "too many requests", body.Message)
		assert.Positive(t, body.RetryIn)
		assert.LessOrEqual(t, body.RetryIn, 60)
	})

	t.Run("Success: Clients are counted separately", func(t *testing.T) {
		require.NoError(t, rdb.FlushDB(ctx).Err())
		router := limitedRouter(rdb, 1)

		assert.Equal(t, http.StatusOK, hit(router, "10.0.0.3").Code)
		assert.Equal(t, http.StatusTooManyRequests, hit(router, "10.0.0.3").Code)
		assert.Equal(t, http.StatusOK, hit(router, "10.0.0.4").Code)
	})
}

func TestRateLimiterMiddleware_FailOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)

	unreachable := redis.NewClient(&redis.Options{Addr: "localhost:9999", DialTimeout: 200 * time.Millisecond})
	defer unreachable.Close()

	w := hit(limitedRouter(unreachable, 1), "10.0.0.5")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}
