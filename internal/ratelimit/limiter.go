// Package ratelimit implements a keyed token-bucket limiter used to throttle
// login traffic per client address.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewKeyedLimiter creates a limiter granting rps tokens per second with the
// given burst, tracked independently per key.
func NewKeyedLimiter(rps float64, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (kl *KeyedLimiter) limiter(key string) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	l, ok := kl.limiters[key]
	if !ok {
		l = rate.NewLimiter(kl.rps, kl.burst)
		kl.limiters[key] = l
	}
	return l
}

// Allow reports whether a request for key may proceed now.
func (kl *KeyedLimiter) Allow(key string) bool {
	return kl.limiter(key).Allow()
}

// Cleanup drops all tracked buckets once the map grows past the threshold.
// Buckets refill quickly, so losing state is harmless.
func (kl *KeyedLimiter) Cleanup(threshold int) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if len(kl.limiters) > threshold {
		kl.limiters = make(map[string]*rate.Limiter)
	}
}
