package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	filestate "taskloop-sync/internal/infra/state/file"
	"taskloop-sync/internal/repository"
	"taskloop-sync/internal/repository/mocks"
	"taskloop-sync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guardedRouter(t *testing.T) (*gin.Engine, repository.DeviceStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := filestate.NewStore(filepath.Join(t.TempDir(), "device.yaml"))
	auth := service.NewAuthService(new(mocks.AuthGateway), store)

	r := gin.New()
	guard := RequireSession(auth)
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/api/rooms", guard, ok)
	r.GET("/api/rooms/:uuid/board", guard, ok)
	return r, store
}

func TestRequireSession(t *testing.T) {
	const roomUUID = "0b9e3c1e-7d4c-4f59-9d43-5f0f3c3b5a11"

	t.Run("Logged out room route is remembered", func(t *testing.T) {
		r, store := guardedRouter(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms/"+roomUUID+"/board", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Login required","redirect":"/login"}`, w.Body.String())
		route, err := store.Get(context.Background(), repository.KeyAuthRedirect)
		require.NoError(t, err)
		assert.Equal(t, service.SessionRoute(roomUUID), route)
	})

	t.Run("Logged out home route is not remembered", func(t *testing.T) {
		r, store := guardedRouter(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		_, err := store.Get(context.Background(), repository.KeyAuthRedirect)
		assert.ErrorIs(t, err, repository.ErrKeyNotFound)
	})

	t.Run("Logged in passes through", func(t *testing.T) {
		r, store := guardedRouter(t)
		require.NoError(t, store.Set(context.Background(), repository.KeyToken, "abc"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms/"+roomUUID+"/board", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})
}

func TestRequireSession_NilService(t *testing.T) {
	assert.Panics(t, func() { RequireSession(nil) })
}

func TestRateLimit_InvalidArguments(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	assert.Panics(t, func() { RateLimit(nil, "", 10, time.Second) })
	assert.Panics(t, func() { RateLimit(client, "", 0, time.Second) })
	assert.Panics(t, func() { RateLimit(client, "", 10, 0) })
}

func TestRateLimit_RedisDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	r := gin.New()
	r.POST("/api/rooms", RateLimit(client, "test:", 10, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/rooms", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// testRedis connects to TASKLOOP_TEST_REDIS_ADDR and skips the test when it is unset.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TASKLOOP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TASKLOOP_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRateLimit_FixedWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := testRedis(t)
	prefix := "tltest:" + uuid.NewString() + ":"
	const window = 300 * time.Millisecond

	r := gin.New()
	r.POST("/api/rooms", RateLimit(client, prefix, 2, window), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	post := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/rooms", nil))
		return w.Code
	}

	start := time.Now()
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusOK, post())
	// requests inside the window must not extend it
	for time.Since(start) < window/2 {
		assert.Equal(t, http.StatusTooManyRequests, post())
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return post() == http.StatusOK },
		3*window, 20*time.Millisecond, "window never reset")
}
