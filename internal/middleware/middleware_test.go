package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/config"
	"github.com/rehanisg222/deploymentcrm/internal/utils"
)

const secret = "test-secret"

type stubResolver map[uint64]access.Principal

func (s stubResolver) Resolve(_ context.Context, id uint64) (access.Principal, error) {
	if id == 99 {
		return access.Principal{}, errors.New("db down")
	}
	if p, ok := s[id]; ok {
		return p, nil
	}
	return access.Principal{}, access.ErrNoRole
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func bearer(t *testing.T, userID uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, "admin", time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func protected(e *echo.Echo, mws ...echo.MiddlewareFunc) {
	all := append([]echo.MiddlewareFunc{JWTAuth(secret), LoadPrincipal(stubResolver{
		1: {UserID: 1, Role: access.RoleAdmin},
		2: {UserID: 2, Role: access.RoleBroker},
	}, zap.NewNop())}, mws...)
	e.GET("/v1/thing", func(c echo.Context) error {
		p, _ := PrincipalFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"role": p.Role})
	}, all...)
}

func do(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthChain(t *testing.T) {
	e := echo.New()
	protected(e, RequireRole(access.RoleAdmin))

	assert.Equal(t, http.StatusUnauthorized, do(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "Bearer nonsense").Code)

	rec := do(e, bearer(t, 1))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"role":"admin"}`, rec.Body.String())

	rec = do(e, bearer(t, 2))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)

	// valid token, no recognized role
	rec = do(e, bearer(t, 3))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, bearer(t, 99))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestAuthChain_WrongSecret(t *testing.T) {
	e := echo.New()
	protected(e)
	tok, err := utils.NewAccessToken("other", 1, "admin", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, "Bearer "+tok.Token).Code)
}

func TestRateLimit(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip_user", Prefix: "t:rl",
	}
	e := echo.New()
	e.GET("/v1/thing", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RateLimit(cfg, rdb, zap.NewNop()))

	for i := 0; i < 2; i++ {
		rec := do(e, "")
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := do(e, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimit_RedisDownPassesThrough(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	e := echo.New()
	e.GET("/v1/thing", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RateLimit(cfg, rdb, zap.NewNop()))
	assert.Equal(t, http.StatusNoContent, do(e, "").Code)
	assert.Equal(t, http.StatusNoContent, do(e, "").Code)
}

func TestResponseCache(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "t:cache", MaxBodyBytes: 1 << 10,
	}
	calls := 0
	e := echo.New()
	e.GET("/v1/thing", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, ResponseCache(cfg, rdb, zap.NewNop()))

	first := do(e, "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := do(e, "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get(echo.HeaderContentType), "application/json")
	assert.Equal(t, 1, calls)
}

func TestResponseCache_SkipsErrorsAndOversize(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		Prefix: "t:cache", MaxBodyBytes: 8,
	}
	status := http.StatusBadRequest
	calls := 0
	e := echo.New()
	e.GET("/v1/thing", func(c echo.Context) error {
		calls++
		return c.JSON(status, echo.Map{"payload": "longer than eight bytes"})
	}, ResponseCache(cfg, rdb, zap.NewNop()))

	do(e, "")
	status = http.StatusOK
	do(e, "")
	do(e, "")
	assert.Equal(t, 3, calls)
}

func TestCacheKey_UserStrategy(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "p", KeyStrategy: "route_query_user"}
	mk := func(uid uint64) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/x?a=1", nil), httptest.NewRecorder())
		c.SetPath("/v1/x")
		c.Set(KeyUserID, uid)
		return cacheKey(cfg, c)
	}
	assert.NotEqual(t, mk(1), mk(2))
	assert.Equal(t, mk(1), mk(1))

	cfg.KeyStrategy = "route_query"
	c1 := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/x?a=1", nil), httptest.NewRecorder())
	c1.Set(KeyUserID, uint64(1))
	c2 := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/x?a=1", nil), httptest.NewRecorder())
	c2.Set(KeyUserID, uint64(2))
	assert.Equal(t, cacheKey(cfg, c1), cacheKey(cfg, c2))
}
