package common

import (
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(1, 2)
	now := time.Now()
	if !l.Allow("u1", now) {
		t.Fatalf("first should pass")
	}
	if !l.Allow("u1", now.Add(100*time.Millisecond)) {
		t.Fatalf("second should pass")
	}
	if l.Allow("u1", now.Add(200*time.Millisecond)) {
		t.Fatalf("third should be blocked")
	}
	if !l.Allow("u1", now.Add(2*time.Second)) {
		t.Fatalf("should pass after refill")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(1, 1)
	now := time.Now()
	if !l.Allow("u1", now) || !l.Allow("u2", now) {
		t.Fatalf("distinct keys must not share a bucket")
	}
	if l.Allow("u1", now) {
		t.Fatalf("u1 should be blocked")
	}
}

func TestRateLimiterEvictsIdleKeys(t *testing.T) {
	l := NewRateLimiter(1, 1)
	now := time.Now()
	l.Allow("old", now)
	l.Allow("new", now.Add(idleTTL+time.Minute))
	if _, ok := l.buckets["old"]; ok {
		t.Fatalf("idle key should be evicted")
	}
}

func TestRateLimiterEvictsAtMostOncePerInterval(t *testing.T) {
	l := NewRateLimiter(1, 1)
	now := time.Now()
	l.Allow("old", now)
	l.Allow("mid", now.Add(idleTTL-30*time.Second))
	l.Allow("new", now.Add(idleTTL+10*time.Second))
	if _, ok := l.buckets["old"]; !ok {
		t.Fatalf("eviction must not rerun within %s", evictEvery)
	}
	l.Allow("new", now.Add(idleTTL+evictEvery))
	if _, ok := l.buckets["old"]; ok {
		t.Fatalf("idle key should be evicted on the next pass")
	}
	if _, ok := l.buckets["mid"]; !ok {
		t.Fatalf("recent key must be kept")
	}
}
