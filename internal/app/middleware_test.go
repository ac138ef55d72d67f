package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestContentLengthValidator(t *testing.T) {
	mw := ContentLengthValidator(100)(okHandler)

	t.Run("get passes without length", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("post without length", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("body"))
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusLengthRequired, rec.Code)
	})

	t.Run("post too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 101)))
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("post within limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("body"))
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	t.Run("headers always set", func(t *testing.T) {
		mw := SecurityHeaders(SecurityHeadersConfig{})(okHandler)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)

		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
		assert.Equal(t, "same-origin", rec.Header().Get("Cross-Origin-Opener-Policy"))
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("plain http redirects when https required", func(t *testing.T) {
		mw := SecurityHeaders(SecurityHeadersConfig{RequireHTTPS: true})(okHandler)
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/secret", nil)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMovedPermanently, rec.Code)
		assert.Equal(t, "https://example.com/api/secret", rec.Header().Get("Location"))
	})

	t.Run("forwarded https gets hsts", func(t *testing.T) {
		mw := SecurityHeaders(SecurityHeadersConfig{RequireHTTPS: true})(okHandler)
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/secret", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=")
	})

	t.Run("health skips the redirect", func(t *testing.T) {
		mw := SecurityHeaders(SecurityHeadersConfig{RequireHTTPS: true})(okHandler)
		req := httptest.NewRequest(http.MethodGet, "http://example.com/health", nil)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := NewRateLimiter(rdb, RateLimitConfig{
		PostLimit: 2,
		GetLimit:  5,
		Window:    time.Minute,
	}, zap.NewNop())
	mw := limiter.Handler(okHandler)

	doPost := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, doPost("1.2.3.4:1000"))
	assert.Equal(t, http.StatusOK, doPost("1.2.3.4:1000"))
	assert.Equal(t, http.StatusTooManyRequests, doPost("1.2.3.4:1000"))

	// Another client has its own budget.
	assert.Equal(t, http.StatusOK, doPost("5.6.7.8:1000"))

	t.Run("nil client disables limiting", func(t *testing.T) {
		open := NewRateLimiter(nil, DefaultRateLimitConfig(), zap.NewNop()).Handler(okHandler)
		for i := 0; i < 50; i++ {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			rec := httptest.NewRecorder()
			open.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}
