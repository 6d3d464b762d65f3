package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apembroke/switchboard/pkg/auth"
)

func TestGateAuthenticate(t *testing.T) {
	tokens := auth.NewTokenManager("secret", 0)
	gate := NewGate(tokens)

	token, err := tokens.Issue(&auth.Identity{UserID: "u1", Email: "ada@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = gate.Authenticate(req)
	assert.ErrorIs(t, err, ErrCredentialMissing)

	req.Header.Set("Authorization", "Bearer garbage")
	_, err = gate.Authenticate(req)
	assert.ErrorIs(t, err, ErrCredentialInvalid)

	req.Header.Set("Authorization", "Bearer "+token)
	identity, err := gate.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
}

func TestGateHandlerAttachesIdentity(t *testing.T) {
	tokens := auth.NewTokenManager("secret", 0)
	gate := NewGate(tokens)
	token, err := tokens.Issue(&auth.Identity{UserID: "u1"})
	require.NoError(t, err)

	var seen *auth.Identity
	handler := gate.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromRequest(r)
	}))

	// Unauthenticated requests never reach the inner handler.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
		BurstSize:         1,
	})

	// Bucket starts with rate+burst tokens.
	assert.True(t, rl.Allow("client"))
	assert.True(t, rl.Allow("client"))
	assert.True(t, rl.Allow("client"))
	assert.False(t, rl.Allow("client"))

	// Separate keys have separate buckets.
	assert.True(t, rl.Allow("other"))
}

func TestRateLimiterHandler(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDistributedRateLimiter(t *testing.T) {
	client := newTestRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}
	allowed, err := rl.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, allowed)

	remaining, err := rl.Remaining(ctx, "client")
	require.NoError(t, err)
	assert.Zero(t, remaining)

	remaining, err = rl.Remaining(ctx, "untouched")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestDistributedRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	rl := NewDistributedRateLimiter(client, nil, "")
	allowed, err := rl.Allow(context.Background(), "client")
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestDistributedRateLimiterHandler(t *testing.T) {
	client := newTestRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "test")
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestClientKeyPrefersIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "ip:10.0.0.1", clientKey(req))

	tokens := auth.NewTokenManager("secret", 0)
	gate := NewGate(tokens)
	token, err := tokens.Issue(&auth.Identity{UserID: "u1"})
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	var key string
	handler := gate.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = clientKey(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "user:u1", key)
}

func TestClientIPForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, fmt.Sprintf("ip:%s", "203.0.113.9"), clientKey(req))
}
