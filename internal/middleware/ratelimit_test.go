package middleware_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perflab/internal/config"
	"perflab/internal/metrics"
	"perflab/internal/middleware"
)

func newLimitedServer(t *testing.T, cfg *config.RateLimitConfig) (*echo.Echo, *metrics.Collector) {
	t.Helper()

	collector := metrics.NewCollector()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	e := echo.New()
	e.Use(middleware.RateLimit(cfg, collector, logger))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e, collector
}

func limitedGet(e *echo.Echo, remoteAddr, bypass string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	if bypass != "" {
		req.Header.Set("X-Rate-Limit-Bypass", bypass)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_AllowsRequestsUnderLimit(t *testing.T) {
	e, _ := newLimitedServer(t, &config.RateLimitConfig{RPS: 10, Burst: 5, ExpireMinutes: 1})

	for i := 0; i < 5; i++ {
		rec := limitedGet(e, "192.168.1.1:12345", "")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should succeed", i)
	}
}

func TestRateLimit_DeniesOverLimitAndCountsDenials(t *testing.T) {
	e, collector := newLimitedServer(t, &config.RateLimitConfig{RPS: 0.1, Burst: 1, ExpireMinutes: 1})

	// First request uses up the burst.
	limitedGet(e, "192.168.1.2:12345", "")

	rec := limitedGet(e, "192.168.1.2:12345", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var resp struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retry_after"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate limit exceeded", resp.Error)
	assert.Equal(t, 1, resp.RetryAfter)

	snap, err := collector.Snapshot()
	require.NoError(t, err)
	assert.Contains(t, snap, metrics.RateLimitDenialsTotal+`{route="/test"} 1`,
		"every denial must be attributable in the metrics")
}

func TestRateLimit_DifferentIPsHaveSeparateLimits(t *testing.T) {
	e, _ := newLimitedServer(t, &config.RateLimitConfig{RPS: 0.1, Burst: 1, ExpireMinutes: 1})

	rec1 := limitedGet(e, "192.168.1.4:12345", "")
	assert.Equal(t, http.StatusOK, rec1.Code, "first IP should succeed")

	rec2 := limitedGet(e, "192.168.1.5:12345", "")
	assert.Equal(t, http.StatusOK, rec2.Code, "second IP should succeed")
}

func TestRateLimit_BypassWithCorrectSecret(t *testing.T) {
	e, collector := newLimitedServer(t, &config.RateLimitConfig{
		RPS:           0.1,
		Burst:         1,
		ExpireMinutes: 1,
		BypassSecret:  "test_secret",
	})

	for i := 0; i < 10; i++ {
		rec := limitedGet(e, "192.168.1.6:12345", "test_secret")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d with bypass should succeed", i)
	}

	snap, err := collector.Snapshot()
	require.NoError(t, err)
	assert.NotContains(t, snap, metrics.RateLimitDenialsTotal+"{", "bypassed requests are never denials")
}

func TestRateLimit_BypassWithWrongSecret(t *testing.T) {
	e, _ := newLimitedServer(t, &config.RateLimitConfig{
		RPS:           0.1,
		Burst:         1,
		ExpireMinutes: 1,
		BypassSecret:  "test_secret",
	})

	limitedGet(e, "192.168.1.7:12345", "wrong_secret")
	rec := limitedGet(e, "192.168.1.7:12345", "wrong_secret")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "wrong secret should not bypass rate limit")
}

func TestRateLimit_BypassDisabledWhenSecretEmpty(t *testing.T) {
	e, _ := newLimitedServer(t, &config.RateLimitConfig{RPS: 0.1, Burst: 1, ExpireMinutes: 1})

	limitedGet(e, "192.168.1.8:12345", "any_value")
	rec := limitedGet(e, "192.168.1.8:12345", "any_value")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "bypass should be disabled when secret is empty")
}
