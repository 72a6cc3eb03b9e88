package ratelimit

import "context"

// Limiter answers whether the caller identified by key may proceed right
// now. Implementations are best-effort: a limiter error should be logged
// and treated as "allow" by callers that relay non-critical traffic.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
