// Package ratelimit throttles API clients with one token bucket per key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxSweep caps the interval between idle bucket sweeps.
const maxSweep = 5 * time.Minute

// Limiter allows a number of requests per window and key.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	burst   int
	every   rate.Limit
	idle    time.Duration
	done    chan struct{}
	once    sync.Once
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// New creates a Limiter allowing requests per window and key. A non-positive
// requests or window blocks everything.
func New(requests int, window time.Duration) *Limiter {
	l := &Limiter{
		clients: make(map[string]*client),
		burst:   requests,
		done:    make(chan struct{}),
	}
	if requests > 0 && window > 0 {
		l.every = rate.Every(window / time.Duration(requests))
		// An idle bucket is full again after one window.
		l.idle = 2 * window
	}

	go l.sweep(min(l.idle, maxSweep))

	return l
}

// Close stops the background sweep. Safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	_, ok := l.Reserve(key)
	return ok
}

// Reserve takes a token for key. When none is available it returns how long
// the client should wait before retrying, and takes nothing.
func (l *Limiter) Reserve(key string) (time.Duration, bool) {
	if l.burst <= 0 || l.every == 0 {
		return 0, false
	}

	now := time.Now()
	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{bucket: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	r := c.bucket.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return delay, false
	}
	return 0, true
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) evict(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			n++
		}
	}
	return n
}

func (l *Limiter) sweep(interval time.Duration) {
	if interval <= 0 {
		<-l.done
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evict(time.Now().Add(-l.idle))
		case <-l.done:
			return
		}
	}
}
