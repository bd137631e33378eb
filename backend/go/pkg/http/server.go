package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"couplecoach/backend/go/internal/config"
	"couplecoach/backend/go/pkg/circuitbreaker"
	"couplecoach/backend/go/pkg/httpmiddleware"
	"couplecoach/backend/go/pkg/logger"
	"couplecoach/backend/go/pkg/ratelimiter"

	"github.com/go-redis/redis/v8"
)

// Middleware defines a function to wrap an http.Handler.
type Middleware func(http.Handler) http.Handler

// Server wraps http.Server and applies the configured middleware chain
// around a single root handler.
type Server struct {
	httpServer    *http.Server
	redis         redis.Cmdable
	logger        *logger.Logger
	breakerExempt []string
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// WithRedis provides the client used by the redisWindow rate limiter.
func WithRedis(client redis.Cmdable) ServerOption {
	return func(s *Server) {
		s.redis = client
	}
}

// WithBreakerExempt keeps the given paths out of the circuit breaker. Their
// failures are not counted and they are served while the circuit is open.
func WithBreakerExempt(paths ...string) ServerOption {
	return func(s *Server) {
		s.breakerExempt = append(s.breakerExempt, paths...)
	}
}

// WithLogger sets the logger for middleware events.
func WithLogger(l *logger.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a Server serving handler. Rate limiting and circuit
// breaking are applied in that order when enabled in cfg.
func NewServer(cfg *config.AppConfig, handler http.Handler, opts ...ServerOption) (*Server, error) {
	srv := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Server.Address,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":8080"
	}

	var middlewares []Middleware

	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err := srv.createRateLimiter(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		keyFunc, err := httpmiddleware.TrustedProxyClientIP(cfg.Middleware.RateLimiter.TrustedProxies)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		srv.logger.WithField("algorithm", cfg.Middleware.RateLimiter.Algorithm).Info("Enabling Rate Limiter middleware")
		middlewares = append(middlewares, httpmiddleware.RateLimit(limiter, keyFunc))
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := srv.createCircuitBreaker(cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		srv.logger.WithField("exempt", srv.breakerExempt).Info("Enabling Circuit Breaker middleware")
		middlewares = append(middlewares, httpmiddleware.CircuitBreak(breaker, srv.breakerExempt...))
	}

	// Apply all middlewares in reverse order
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	srv.httpServer.Handler = handler

	return srv, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the root handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithField("address", s.httpServer.Addr).Info("Starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// createRateLimiter initializes a rate limiter based on the configuration.
func (s *Server) createRateLimiter(cfg config.RateLimiterConfig) (ratelimiter.RateLimiter, error) {
	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = "tokenBucket"
	}

	switch algorithm {
	case "tokenBucket":
		conf := cfg.TokenBucket
		return ratelimiter.NewTokenBucket(conf.Rate, conf.Capacity), nil
	case "fixedWindow":
		conf := cfg.FixedWindow
		window, err := parseWindow(conf.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixedWindow duration: %w", err)
		}
		return ratelimiter.NewFixedWindowCounter(conf.Limit, window), nil
	case "redisWindow":
		if s.redis == nil {
			return nil, errors.New("redisWindow requires a redis client")
		}
		conf := cfg.RedisWindow
		window, err := parseWindow(conf.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid redisWindow duration: %w", err)
		}
		return ratelimiter.NewRedisWindow(s.redis, conf.Limit, window, conf.KeyPrefix, func(err error) {
			s.logger.WithField("error", err.Error()).Warn("rate limiter backend unavailable, allowing request")
		}), nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
}

// parseWindow parses a rate limiter window, which must be positive.
func parseWindow(value string) (time.Duration, error) {
	window, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if window <= 0 {
		return 0, fmt.Errorf("window must be positive, got %q", value)
	}
	return window, nil
}

// createCircuitBreaker initializes a circuit breaker based on the configuration.
func (s *Server) createCircuitBreaker(cfg config.CircuitBreakerConfig) (circuitbreaker.CircuitBreaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout,
		circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
			s.logger.WithPayload(map[string]interface{}{"from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		}),
	), nil
}
