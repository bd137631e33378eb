package httpmiddleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"couplecoach/backend/go/pkg/circuitbreaker"
	"couplecoach/backend/go/pkg/ratelimiter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyRecorder struct {
	keys  []string
	allow bool
}

func (k *keyRecorder) Allow(_ context.Context, key string) bool {
	k.keys = append(k.keys, key)
	return k.allow
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:5123"
	assert.Equal(t, "192.0.2.10", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "192.0.2.10", ClientIP(r), "forwarded header is ignored without trusted proxies")

	r.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", ClientIP(r))
}

func TestTrustedProxyClientIP(t *testing.T) {
	keyFunc, err := TrustedProxyClientIP([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	request := func(remote, forwarded string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remote
		if forwarded != "" {
			r.Header.Set("X-Forwarded-For", forwarded)
		}
		return r
	}

	assert.Equal(t, "203.0.113.7", keyFunc(request("10.1.2.3:443", "203.0.113.7")))
	assert.Equal(t, "203.0.113.7", keyFunc(request("192.0.2.1:443", "198.51.100.9, 203.0.113.7, 10.0.0.5")),
		"the right-most untrusted hop is the client")
	assert.Equal(t, "198.51.100.20", keyFunc(request("198.51.100.20:5000", "203.0.113.7")),
		"untrusted peers cannot choose their key")
	assert.Equal(t, "10.1.2.3", keyFunc(request("10.1.2.3:443", "")))
	assert.Equal(t, "10.1.2.3", keyFunc(request("10.1.2.3:443", "not-an-ip")))

	noProxies, err := TrustedProxyClientIP(nil)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.20", noProxies(request("198.51.100.20:5000", "203.0.113.7")))

	_, err = TrustedProxyClientIP([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = TrustedProxyClientIP([]string{"proxy.internal"})
	assert.Error(t, err)
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	handler := RateLimit(ratelimiter.NewTokenBucket(0.001, 1), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/erase", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	limiter := &keyRecorder{allow: true}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/context", nil)
	req.RemoteAddr = "192.0.2.10:5123"
	RateLimit(limiter, nil)(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"192.0.2.10"}, limiter.keys)

	limiter.allow = false
	rec = httptest.NewRecorder()
	RateLimit(limiter, func(*http.Request) string { return "user-1" })(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())
	assert.Equal(t, "user-1", limiter.keys[1])
}

func TestCircuitBreakExemptPaths(t *testing.T) {
	breaker := circuitbreaker.New(2, 1, time.Minute)
	handler := CircuitBreak(breaker, "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}
	assert.Equal(t, circuitbreaker.Closed, breaker.State(), "exempt failures are not counted")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCircuitBreak(t *testing.T) {
	status := http.StatusInternalServerError
	handler := CircuitBreak(circuitbreaker.New(2, 1, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec
	}

	assert.Equal(t, http.StatusInternalServerError, serve().Code)
	assert.Equal(t, http.StatusInternalServerError, serve().Code)

	status = http.StatusOK
	rec := serve()
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"Service unavailable"}`, rec.Body.String())
}
