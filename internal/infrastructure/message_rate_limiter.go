package infrastructure

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MessageRateLimiter implements token bucket rate limiting per sender key
// (client IP, phone number, chat id).
type MessageRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMessageRateLimiter creates a rate limiter with specified rate and burst
// rate: messages per second allowed
// burst: maximum burst capacity
func NewMessageRateLimiter(perSecond float64, burst int) *MessageRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &MessageRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *MessageRateLimiter) entry(key string) *limiterEntry {
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = rl.now()
	return e
}

// Allow checks if key can send a message (consumes 1 token if allowed)
func (rl *MessageRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.entry(key).limiter.AllowN(rl.now(), 1)
}

// WaitTime returns how long to wait before next message is allowed
func (rl *MessageRateLimiter) WaitTime(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[key]
	if !ok {
		return 0
	}
	tokens := e.limiter.TokensAt(rl.now())
	if tokens >= 1 || rl.rate <= 0 {
		return 0
	}
	return time.Duration((1 - tokens) / float64(rl.rate) * float64(time.Second))
}

// Sweep drops limiters idle for longer than the idle TTL.
func (rl *MessageRateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	removed := 0
	for key, e := range rl.limiters {
		if now.Sub(e.lastSeen) > rl.idleTTL {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle limiters every interval until ctx is done.
func (rl *MessageRateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// GetStats returns rate limiter statistics
func (rl *MessageRateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"active_keys": len(rl.limiters),
		"rate":        float64(rl.rate),
		"burst":       rl.burst,
	}
}
