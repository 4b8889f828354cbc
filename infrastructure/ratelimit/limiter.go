package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"socialhub/domain/model"
)

// Per-platform hourly quotas. The window is shared per platform app across
// every workspace using that integration, because the external platform
// enforces its limit per application, not per tenant.
const Window = time.Hour

var platformQuota = map[model.Platform]int64{
	model.PlatformFacebook:  200,
	model.PlatformInstagram: 200,
	model.PlatformLinkedIn:  100,
	model.PlatformYouTube:   100,
	model.PlatformTwitter:   100,
	model.PlatformWhatsApp:  200,
}

// QuotaFor returns the hourly call budget for a platform.
func QuotaFor(p model.Platform) int64 {
	if q, ok := platformQuota[p]; ok {
		return q
	}
	return 100
}

// Key builds the counter key for one platform and identifier (app id when
// known, otherwise the target resource id).
func Key(p model.Platform, identifier string) string {
	return fmt.Sprintf("%s_api_rate_limit:%s", p, strings.ReplaceAll(identifier, " ", "_"))
}

// RedisLimiter is a fixed-window counter (INCR + EXPIRE in a pipeline).
// Attempt increments and compares in one round trip and reports false once
// the cap is reached; callers decide whether to retry later.
type RedisLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, max int64, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = Window
	}
	return &RedisLimiter{client: client, max: max, window: window}
}

func (l *RedisLimiter) Attempt(ctx context.Context, key string) (bool, error) {
	winStart := time.Now().UTC().Truncate(l.window)
	redisKey := fmt.Sprintf("%s:%d", key, winStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if incr.Val() == 1 {
		_ = l.client.Expire(ctx, redisKey, l.window).Err()
	}
	return incr.Val() <= l.max, nil
}

// MemoryLimiter mirrors RedisLimiter semantics in-process, for tests and
// single-node development.
type MemoryLimiter struct {
	mu     sync.Mutex
	max    int64
	window time.Duration
	counts map[string]int64
	starts map[string]time.Time
	now    func() time.Time
}

func NewMemoryLimiter(max int64, window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = Window
	}
	return &MemoryLimiter{
		max:    max,
		window: window,
		counts: make(map[string]int64),
		starts: make(map[string]time.Time),
		now:    time.Now,
	}
}

// WithClock overrides the clock, for window-boundary tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

// SharedMemoryLimiters returns a provider handing out one MemoryLimiter per
// platform, created on first use. Platform clients are constructed per
// request, so the provider must own the counters; a limiter built fresh for
// every call would start each attempt in an empty window and never reject.
func SharedMemoryLimiters() func(p model.Platform) *MemoryLimiter {
	var mu sync.Mutex
	limiters := make(map[model.Platform]*MemoryLimiter)
	return func(p model.Platform) *MemoryLimiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[p]
		if !ok {
			l = NewMemoryLimiter(QuotaFor(p), Window)
			limiters[p] = l
		}
		return l
	}
}

func (l *MemoryLimiter) Attempt(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if start, ok := l.starts[key]; !ok || now.Sub(start) >= l.window {
		l.starts[key] = now
		l.counts[key] = 0
	}
	l.counts[key]++
	return l.counts[key] <= l.max, nil
}
