package ratelimiter

import "context"

// RateLimiter decides whether a request identified by key may proceed.
// Each key (usually a client address) is limited independently.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow(ctx context.Context, key string) bool
}

// maxIdleKeys bounds the per-key state kept by the in-memory limiters before
// a prune pass runs.
const maxIdleKeys = 10000
