package admission

import (
	"fmt"
	"testing"
	"time"
)

func TestRateLimiter_Budget(t *testing.T) {
	l := NewRateLimiter(3, time.Hour, 100)

	for i := 0; i < 3; i++ {
		if !l.Allow("a/b") {
			t.Fatalf("request %d within budget refused", i+1)
		}
	}
	if l.Allow("a/b") {
		t.Error("request over budget admitted")
	}
	if l.Remaining("a/b") != 0 {
		t.Errorf("expected 0 remaining, got %d", l.Remaining("a/b"))
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewRateLimiter(2, time.Hour, 100)
	l.SetClock(func() time.Time { return now })

	l.Allow("a/b")
	l.Allow("a/b")
	if l.Allow("a/b") {
		t.Fatal("exhausted key admitted")
	}

	// Advance past the window; budget restores
	now = now.Add(time.Hour + time.Second)
	if !l.Allow("a/b") {
		t.Error("expected fresh window to admit")
	}
	if l.Remaining("a/b") != 1 {
		t.Errorf("expected 1 remaining after fresh window, got %d", l.Remaining("a/b"))
	}
}

func TestRateLimiter_KeysIndependent(t *testing.T) {
	l := NewRateLimiter(1, time.Hour, 100)

	if !l.Allow("a/b") {
		t.Fatal("first key refused")
	}
	if !l.Allow("a/b#manual") {
		t.Error("separate key must have its own budget")
	}
	if l.Allow("a/b") {
		t.Error("exhausted key admitted")
	}
}

func TestRateLimiter_EvictsExpiredWhenFull(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewRateLimiter(5, time.Minute, 3)
	l.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		l.Allow(fmt.Sprintf("repo-%d", i))
	}
	if l.Size() != 3 {
		t.Fatalf("expected 3 tracked keys, got %d", l.Size())
	}

	// Table full of live entries; a new key is refused
	if l.Allow("repo-new") {
		t.Error("new key admitted while table full of live entries")
	}

	// Once the old windows expire, the new key evicts them and gets in
	now = now.Add(2 * time.Minute)
	if !l.Allow("repo-new") {
		t.Error("new key refused after old entries expired")
	}
	if l.Size() != 1 {
		t.Errorf("expected expired keys evicted, got %d tracked", l.Size())
	}
}

func TestRateLimiter_RemainingFreshKey(t *testing.T) {
	l := NewRateLimiter(10, time.Hour, 100)
	if l.Remaining("never-seen") != 10 {
		t.Errorf("fresh key should have full budget, got %d", l.Remaining("never-seen"))
	}
}
