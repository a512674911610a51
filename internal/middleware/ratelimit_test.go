package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formgrid/formgrid-backend/internal/database"
)

func newTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr := miniredis.RunT(t)
	prev := database.RedisClient
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		database.RedisClient.Close()
		database.RedisClient = prev
	})
	return mr
}

func rateLimited() http.Handler {
	return RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func limitedRequest(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/getUserData", nil)
	req.RemoteAddr = ip + ":51234"
	return req
}

func TestRateLimitCountsRequests(t *testing.T) {
	newTestRedis(t)
	h := rateLimited()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("203.0.113.7"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, strconv.Itoa(RateLimitMaxRequests), rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, strconv.Itoa(RateLimitMaxRequests-1), rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitConcurrentRequestsNeverResetWindow(t *testing.T) {
	mr := newTestRedis(t)
	h := rateLimited()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ServeHTTP(httptest.NewRecorder(), limitedRequest("203.0.113.7"))
		}()
	}
	wg.Wait()

	// Every request must land in the same counter: a lost update here
	// would let a burst restart the window
	count, err := mr.Get(RateLimitKeyPrefix + "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "20", count)
	assert.True(t, mr.TTL(RateLimitKeyPrefix+"203.0.113.7") > 0)
}

func TestRateLimitBlocksAboveLimit(t *testing.T) {
	mr := newTestRedis(t)
	require.NoError(t, mr.Set(RateLimitKeyPrefix+"203.0.113.7", strconv.Itoa(RateLimitMaxRequests)))
	h := rateLimited()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("203.0.113.7"))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, mr.Exists(BlockedIPKeyPrefix+"203.0.113.7"))
}

func TestRateLimitBlockedIPRejected(t *testing.T) {
	mr := newTestRedis(t)
	require.NoError(t, mr.Set(BlockedIPKeyPrefix+"203.0.113.7", "1"))
	h := rateLimited()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("203.0.113.7"))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	// Blocked requests are rejected before they touch the counter
	assert.False(t, mr.Exists(RateLimitKeyPrefix+"203.0.113.7"))
}

func TestRateLimitIsPerIP(t *testing.T) {
	mr := newTestRedis(t)
	require.NoError(t, mr.Set(BlockedIPKeyPrefix+"203.0.113.7", "1"))
	h := rateLimited()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("198.51.100.9"))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	prev := database.RedisClient
	database.RedisClient = nil
	t.Cleanup(func() { database.RedisClient = prev })

	rec := httptest.NewRecorder()
	rateLimited().ServeHTTP(rec, limitedRequest("203.0.113.7"))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitFailsOpenOnRedisFault(t *testing.T) {
	mr := newTestRedis(t)
	mr.Close()

	rec := httptest.NewRecorder()
	rateLimited().ServeHTTP(rec, limitedRequest("203.0.113.7"))

	require.Equal(t, http.StatusOK, rec.Code)
}
