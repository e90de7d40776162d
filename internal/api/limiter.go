package api

import (
	"context"
	"sync"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/logging"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultBurst      = 5
	maxTrackedClients = 10000
	clientIdleTimeout = 10 * time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client key. HTTP and gRPC clients share it
// only when they share the key.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func newRateLimiter(cfg *config.APIConfig) *rateLimiter {
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &rateLimiter{
		buckets: make(map[string]*clientBucket),
		limit:   rate.Limit(cfg.RateLimit.RPS),
		burst:   burst,
		now:     time.Now,
	}
}

// allow takes one token from the client's bucket.
func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxTrackedClients {
			l.evictIdleLocked(clientIdleTimeout)
		}
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// evictIdleLocked forgets clients not seen for idle and returns how many were removed.
func (l *rateLimiter) evictIdleLocked(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// clientLimits applies the in-process token bucket and then the shared per-minute
// quota. A failing shared store lets the request through.
type clientLimits struct {
	buckets   *rateLimiter
	shared    domain.RateLimitStore
	perMinute int
	logger    *zerolog.Logger
}

func newClientLimits(cfg *config.APIConfig, shared domain.RateLimitStore, logger *zerolog.Logger) *clientLimits {
	l := &clientLimits{
		shared:    shared,
		perMinute: cfg.RateLimit.PerMinute,
		logger:    logging.Component(logger, "rate-limit"),
	}
	if cfg.RateLimit.RPS > 0 {
		l.buckets = newRateLimiter(cfg)
	}
	return l
}

// allow reports whether the client identified by key may proceed. scope keeps
// the shared counters of different transports apart.
func (l *clientLimits) allow(ctx context.Context, scope, key string) bool {
	if l.buckets != nil && !l.buckets.allow(key) {
		return false
	}
	if l.shared == nil || l.perMinute <= 0 {
		return true
	}

	allowed, err := l.shared.CheckRateLimit(ctx, scope+":"+key, l.perMinute, models.RateLimitWindow*time.Second)
	if err != nil {
		l.logger.Warn().Err(err).Str("client", key).Str("scope", scope).Msg("Shared rate limit check failed")
		return true
	}
	return allowed
}
