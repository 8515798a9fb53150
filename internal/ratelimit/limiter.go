// Package ratelimit provides per-key token bucket rate limiting for the
// MCP tool surface.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter hands out tokens from one bucket per key. Each bucket starts
// full at burst and refills at rate tokens per second. Safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   int
	nowFunc func() time.Time // swapped out in tests
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter creates a limiter with the given refill rate (tokens per
// second) and burst size. The burst is also the initial token count.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow takes one token from key's bucket and reports whether one was
// available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), last: now}
		l.buckets[key] = b
	}

	// Refill for the time elapsed since the last check, capped at burst.
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += l.rate * elapsed
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.last = now
	}

	if b.tokens < 1.0 {
		return false
	}
	b.tokens--
	return true
}

// ToolLimiters maps MCP tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default per-tool limiter set. Scans that
// touch the whole catalog refill slower than point lookups.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"catalog_search":     NewLimiter(1.0, 10),      // 60/minute, burst 10
		"catalog_suggest":    NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
		"catalog_diff":       NewLimiter(1.0, 10),      // 60/minute, burst 10
		"catalog_duplicates": NewLimiter(5.0/60.0, 2),  // 5/minute, burst 2
	}
}

// CheckLimit checks the limiter for toolName. It returns nil when the
// call may proceed; tools without a configured limiter always pass.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}
