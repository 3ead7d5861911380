package common

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// idleTTL: через сколько простоя ключ удаляется из лимитера.
	idleTTL = 10 * time.Minute
	// evictEvery ограничивает частоту полного обхода ключей.
	evictEvery = time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов token bucket'ом на каждый key.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket

	lastEvict time.Time
}

// NewRateLimiter создает limiter: rps запросов в секунду, burst задает запас.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
}

// Allow возвращает true, если запрос укладывается в лимит.
func (l *RateLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.evict(now)
	return b.limiter.AllowN(now, 1)
}

func (l *RateLimiter) evict(now time.Time) {
	if now.Sub(l.lastEvict) < evictEvery {
		return
	}
	l.lastEvict = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleTTL {
			delete(l.buckets, key)
		}
	}
}
