package backpressure

import (
	"context"
	"sync"
	"time"

	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// ErrRequestTooLarge is returned by WaitN when n exceeds the burst
var ErrRequestTooLarge = errors.InvalidArgument("request size exceeds burst capacity")

// TokenBucketLimiter admits rate operations per second on average, with
// bursts of up to burst operations.
type TokenBucketLimiter struct {
	rate   float64
	burst  int
	tokens float64
	last   time.Time
	now    func() time.Time
	mutex  sync.Mutex
}

// NewTokenBucketLimiter creates a limiter with a full bucket
func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1.0
	}
	if burst <= 0 {
		burst = 1
	}

	return &TokenBucketLimiter{
		rate:   rate,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
		now:    time.Now,
	}
}

// Allow checks if a single operation is allowed
func (tb *TokenBucketLimiter) Allow() bool {
	return tb.AllowN(1)
}

// AllowN takes n tokens if they are all available
func (tb *TokenBucketLimiter) AllowN(n int) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done
func (tb *TokenBucketLimiter) Wait(ctx context.Context) error {
	return tb.WaitN(ctx, 1)
}

// WaitN blocks until n tokens are available or ctx is done
func (tb *TokenBucketLimiter) WaitN(ctx context.Context, n int) error {
	if n > tb.burst {
		return ErrRequestTooLarge
	}

	for {
		if tb.AllowN(n) {
			return nil
		}

		select {
		case <-time.After(tb.waitTime(n)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// refill adds the tokens earned since the last call. Callers hold the mutex.
func (tb *TokenBucketLimiter) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.last)
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed.Seconds() * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
	tb.last = now
}

func (tb *TokenBucketLimiter) waitTime(n int) time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	needed := float64(n) - tb.tokens
	wait := time.Duration(needed / tb.rate * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// Limit returns the refill rate per second
func (tb *TokenBucketLimiter) Limit() float64 {
	return tb.rate
}

// Burst returns the bucket capacity
func (tb *TokenBucketLimiter) Burst() int {
	return tb.burst
}

// TokensRemaining returns the number of whole tokens available now
func (tb *TokenBucketLimiter) TokensRemaining() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	return int(tb.tokens)
}

// KeyedLimiter keeps one token bucket per key, e.g. per client address.
// Buckets idle for longer than idleTTL are dropped on the next sweep.
type KeyedLimiter struct {
	rate      float64
	burst     int
	idleTTL   time.Duration
	limiters  map[string]*keyedEntry
	lastSweep time.Time
	mutex     sync.Mutex
	log       *logger.Logger
}

type keyedEntry struct {
	limiter  *TokenBucketLimiter
	lastSeen time.Time
}

// NewKeyedLimiter creates a limiter that admits rate operations per second
// per key
func NewKeyedLimiter(rate float64, burst int, idleTTL time.Duration) *KeyedLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}

	kl := &KeyedLimiter{
		rate:      rate,
		burst:     burst,
		idleTTL:   idleTTL,
		limiters:  make(map[string]*keyedEntry),
		lastSweep: time.Now(),
		log:       logger.GetLogger("rate_limiter.keyed"),
	}
	kl.log.Infof("Keyed rate limiter created with rate=%.2f, burst=%d", rate, burst)
	return kl
}

// Allow takes a token from key's bucket
func (kl *KeyedLimiter) Allow(key string) bool {
	now := time.Now()

	kl.mutex.Lock()
	entry, ok := kl.limiters[key]
	if !ok {
		entry = &keyedEntry{limiter: NewTokenBucketLimiter(kl.rate, kl.burst)}
		kl.limiters[key] = entry
	}
	entry.lastSeen = now
	if now.Sub(kl.lastSweep) > kl.idleTTL {
		kl.sweep(now)
	}
	kl.mutex.Unlock()

	return entry.limiter.Allow()
}

// Len returns the number of tracked keys
func (kl *KeyedLimiter) Len() int {
	kl.mutex.Lock()
	defer kl.mutex.Unlock()
	return len(kl.limiters)
}

func (kl *KeyedLimiter) sweep(now time.Time) {
	for key, entry := range kl.limiters {
		if now.Sub(entry.lastSeen) > kl.idleTTL {
			delete(kl.limiters, key)
		}
	}
	kl.lastSweep = now
}
