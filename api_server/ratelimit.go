package main

import (
	"sync"

	"golang.org/x/time/rate"
)

// keyLimiter hands out one token bucket per API key. A zero rate disables it.
type keyLimiter struct {
	mu       sync.Mutex
	r        rate.Limit
	b        int
	limiters map[string]*rate.Limiter
}

func newKeyLimiter(r float64, b int) *keyLimiter {
	if b <= 0 {
		b = 1
	}
	return &keyLimiter{r: rate.Limit(r), b: b, limiters: map[string]*rate.Limiter{}}
}

func (l *keyLimiter) Allow(key string) bool {
	if l == nil || l.r <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.r, l.b)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
