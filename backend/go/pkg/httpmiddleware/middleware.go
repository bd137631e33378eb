package httpmiddleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"couplecoach/backend/go/pkg/circuitbreaker"
	"couplecoach/backend/go/pkg/ratelimiter"
)

// KeyFunc derives the rate limiting key of a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by the connection's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// TrustedProxyClientIP returns a KeyFunc that honors X-Forwarded-For only when
// the remote peer is one of trusted (IPs or CIDRs). The header is walked from
// the right and the first hop outside trusted is the client. With no trusted
// proxies it is ClientIP.
func TrustedProxyClientIP(trusted []string) (KeyFunc, error) {
	if len(trusted) == 0 {
		return ClientIP, nil
	}
	nets := make([]*net.IPNet, 0, len(trusted))
	for _, t := range trusted {
		if !strings.Contains(t, "/") {
			ip := net.ParseIP(t)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", t)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(t)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", t, err)
		}
		nets = append(nets, ipNet)
	}

	isTrusted := func(addr string) bool {
		ip := net.ParseIP(addr)
		if ip == nil {
			return false
		}
		for _, n := range nets {
			if n.Contains(ip) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer := ClientIP(r)
		if !isTrusted(peer) {
			return peer
		}
		hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			client = hop
			if !isTrusted(hop) {
				break
			}
		}
		return client
	}, nil
}

// writeError writes the same {"error": "..."} body the API handlers use.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RateLimit is a middleware that applies rate limiting to an HTTP handler.
// A nil keyFunc uses ClientIP.
func RateLimit(limiter ratelimiter.RateLimiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), keyFunc(r)) {
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter is a wrapper for http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// CircuitBreak is a middleware that applies the circuit breaker pattern to an HTTP handler.
// It considers HTTP status codes >= 500 as failures. Requests whose path is in
// exempt bypass the breaker entirely: they are never rejected and never counted.
func CircuitBreak(breaker circuitbreaker.CircuitBreaker, exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			err := breaker.Execute(func() error {
				next.ServeHTTP(rw, r)
				if rw.statusCode >= http.StatusInternalServerError {
					return fmt.Errorf("server error: status code %d", rw.statusCode)
				}
				return nil
			})
			// Any other error has already been written by next.
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
				writeError(w, http.StatusServiceUnavailable, "Service unavailable")
			}
		})
	}
}
