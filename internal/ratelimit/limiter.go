// Package ratelimit throttles MCP tool calls with per-key token buckets.
// Sweeps cost one solve per concept and level, so the heavier tools get
// smaller buckets.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrLimited is returned by CheckLimit when a bucket is empty.
var ErrLimited = errors.New("rate limit exceeded")

// Limiter is a per-key token bucket. Every key starts with a full bucket of
// burst tokens that refills at rate tokens per second. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   int
	nowFunc func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a limiter refilling at rate tokens/sec up to burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Reserve takes a token for key if one is available. Otherwise it returns
// false and how long until the next token (0 if the bucket never refills).
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.tokens+l.rate*elapsed, float64(l.burst))
		b.lastCheck = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, 0
	}
	wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
	return false, wait
}

// Allow reports whether a call for key may proceed, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Reserve(key)
	return ok
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters returns the default limits for the fcm MCP tools.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"fcm_steady_state": NewLimiter(1.0, 10),      // 60/minute, burst 10
		"fcm_scenario":     NewLimiter(1.0, 10),      // 60/minute, burst 10
		"fcm_sensitivity":  NewLimiter(10.0/60.0, 2), // 10/minute, burst 2
		"fcm_graph":        NewLimiter(1.0, 10),      // 60/minute, burst 10
	}
}

// CheckLimit returns nil if toolName may run, or an error wrapping
// ErrLimited. Tools without a limiter are never limited.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	allowed, wait := limiter.Reserve(toolName)
	if allowed {
		return nil
	}
	if wait > 0 {
		return fmt.Errorf("%s: %w, retry in %s", toolName, ErrLimited, wait.Round(time.Millisecond))
	}
	return fmt.Errorf("%s: %w", toolName, ErrLimited)
}
