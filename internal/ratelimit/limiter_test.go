package ratelimit

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedClock(l *Limiter) *time.Time {
	now := time.Now()
	l.nowFunc = func() time.Time { return now }
	return &now
}

func TestAllow_WithinBurst(t *testing.T) {
	l := NewLimiter(1.0, 3)
	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Errorf("request %d should be allowed (within burst)", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("request after burst exhaustion should be rejected")
	}
}

func TestReserve_WaitEstimate(t *testing.T) {
	l := NewLimiter(2.0, 1) // one token every 500ms
	fixedClock(l)

	if ok, _ := l.Reserve("k"); !ok {
		t.Fatal("first reserve should succeed")
	}
	ok, wait := l.Reserve("k")
	if ok {
		t.Fatal("second reserve should fail")
	}
	if wait != 500*time.Millisecond {
		t.Errorf("wait = %v, want 500ms", wait)
	}
}

func TestAllow_RefillCappedAtBurst(t *testing.T) {
	l := NewLimiter(100.0, 3)
	now := fixedClock(l)

	for i := 0; i < 3; i++ {
		l.Allow("k")
	}
	if l.Allow("k") {
		t.Error("expected rejection after burst")
	}

	*now = now.Add(10 * time.Second)
	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Errorf("request %d should be allowed after refill", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("4th request should be rejected (burst cap)")
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	l := NewLimiter(1.0, 1)
	l.Allow("a")
	if l.Allow("a") {
		t.Error("a should be exhausted")
	}
	if !l.Allow("b") {
		t.Error("b should have its own bucket")
	}
}

func TestReserve_ZeroRateNeverRefills(t *testing.T) {
	l := NewLimiter(0, 1)
	l.Allow("k")
	ok, wait := l.Reserve("k")
	if ok || wait != 0 {
		t.Errorf("Reserve() = %v, %v; want false, 0", ok, wait)
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	l := NewLimiter(0, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly the burst of 50", allowed)
	}
}

func TestCheckLimit(t *testing.T) {
	limiters := ToolLimiters{"fcm_sensitivity": NewLimiter(0.5, 1)}
	fixedClock(limiters["fcm_sensitivity"])

	if err := CheckLimit(limiters, "fcm_sensitivity"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	err := CheckLimit(limiters, "fcm_sensitivity")
	if !errors.Is(err, ErrLimited) {
		t.Fatalf("error = %v, want ErrLimited", err)
	}
	if !strings.Contains(err.Error(), "retry in 2s") {
		t.Errorf("error %q should carry a retry hint", err)
	}

	if err := CheckLimit(limiters, "unlimited_tool"); err != nil {
		t.Errorf("tool without limiter: %v", err)
	}
}

func TestNewToolLimiters(t *testing.T) {
	limiters := NewToolLimiters()
	for _, tool := range []string{"fcm_steady_state", "fcm_scenario", "fcm_sensitivity", "fcm_graph"} {
		if limiters[tool] == nil {
			t.Errorf("missing limiter for %s", tool)
		}
	}
	if limiters["fcm_sensitivity"].burst >= limiters["fcm_scenario"].burst {
		t.Error("sweeps should have a smaller burst than single scenarios")
	}
}
