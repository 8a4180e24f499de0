package service

import (
	"sync"
	"time"
)

// TokenBucket is an in-memory per-key rate limiter. It is safe for
// concurrent use. Buckets idle for longer than the sweep interval are
// dropped by a background goroutine until Close is called.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     float64 // tokens added per second
	capacity float64
	idle     time.Duration
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a limiter allowing bursts of capacity per key,
// refilled at rate tokens per second. Buckets unused for idle are swept;
// a non-positive idle means ten minutes.
func NewTokenBucket(rate, capacity float64, idle time.Duration) *TokenBucket {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	tb := &TokenBucket{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		capacity: capacity,
		idle:     idle,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go tb.sweepLoop()
	return tb
}

// Allow consumes one token for key and reports whether one was available.
func (tb *TokenBucket) Allow(key string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, last: now}
		tb.buckets[key] = b
	}

	b.tokens = min(b.tokens+now.Sub(b.last).Seconds()*tb.rate, tb.capacity)
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Close stops the sweeper. It is safe to call more than once.
func (tb *TokenBucket) Close() {
	tb.once.Do(func() { close(tb.done) })
}

func (tb *TokenBucket) sweepLoop() {
	ticker := time.NewTicker(tb.idle)
	defer ticker.Stop()
	for {
		select {
		case <-tb.done:
			return
		case <-ticker.C:
			tb.sweep()
		}
	}
}

func (tb *TokenBucket) sweep() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	cutoff := tb.now().Add(-tb.idle)
	for key, b := range tb.buckets {
		if b.last.Before(cutoff) {
			delete(tb.buckets, key)
		}
	}
}
