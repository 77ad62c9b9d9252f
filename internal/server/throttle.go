package server

import (
	"sync"
	"time"

	"github.com/SmitUplenchwar2687/vmcloop/internal/clock"
)

// Throttle thins out a stream of events with one token bucket per key.
// Each bucket refills at rate tokens per second and holds at most burst.
//
// Capture and playback fire an event per packet, often 60 or more a
// second, which is far more than a dashboard can draw.
type Throttle struct {
	clock    clock.Clock
	rate     float64
	capacity float64

	mu      sync.Mutex
	buckets map[string]*bucket
	dropped map[string]uint64
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// NewThrottle creates a throttle passing rate events per second for each
// key. burst <= 0 means burst = rate. A rate <= 0 returns nil, and a nil
// Throttle lets everything through.
func NewThrottle(rate, burst int, c clock.Clock) *Throttle {
	if rate <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = rate
	}
	return &Throttle{
		clock:    clock.Default(c),
		rate:     float64(rate),
		capacity: float64(burst),
		buckets:  make(map[string]*bucket),
		dropped:  make(map[string]uint64),
	}
}

// Allow takes a token from key's bucket. It reports false, and counts a
// drop, when the bucket is empty.
func (t *Throttle) Allow(key string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: t.capacity, lastFill: now}
		t.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastFill).Seconds() * t.rate
	if b.tokens > t.capacity {
		b.tokens = t.capacity
	}
	b.lastFill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	t.dropped[key]++
	return false
}

// Dropped returns a copy of the per-key drop counts.
func (t *Throttle) Dropped() map[string]uint64 {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]uint64, len(t.dropped))
	for k, v := range t.dropped {
		out[k] = v
	}
	return out
}
