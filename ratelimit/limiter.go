package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window request counter keyed by (client IP, route).
// It is a soft, single-instance guard: state lives in process memory and is
// not shared across replicas. Call Start to launch the background sweep and
// Stop when shutting down.
type Limiter struct {
	limit  int
	window time.Duration
	sweep  time.Duration

	mu      sync.Mutex
	windows map[string][]time.Time

	nowFunc func() time.Time
	done    chan struct{}
	once    sync.Once
}

type Option func(*Limiter)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(l *Limiter) {
		l.nowFunc = now
	}
}

// WithSweepInterval overrides how often expired windows are evicted.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.sweep = d
		}
	}
}

// New creates a limiter allowing limit requests per window per key.
func New(limit int, window time.Duration, options ...Option) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  window,
		sweep:   5 * time.Minute,
		windows: make(map[string][]time.Time),
		nowFunc: time.Now,
		done:    make(chan struct{}),
	}

	for _, opt := range options {
		opt(l)
	}

	return l
}

// Allow records a hit for (ip, route) and reports whether it is within the
// window limit.
func (l *Limiter) Allow(ip, route string) bool {
	key := ip + "|" + route
	now := l.nowFunc()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := pruneBefore(l.windows[key], cutoff)
	if len(hits) >= l.limit {
		l.windows[key] = hits
		return false
	}

	l.windows[key] = append(hits, now)
	return true
}

// Start launches the periodic sweep that evicts idle keys.
func (l *Limiter) Start() {
	go func() {
		ticker := time.NewTicker(l.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.evictExpired()
			case <-l.done:
				return
			}
		}
	}()
}

// Stop halts the sweep goroutine. Idempotent.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Len reports how many keys are currently tracked (test inspection).
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) evictExpired() {
	cutoff := l.nowFunc().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, hits := range l.windows {
		hits = pruneBefore(hits, cutoff)
		if len(hits) == 0 {
			delete(l.windows, key)
			continue
		}
		l.windows[key] = hits
	}
}

func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(hits) && !hits[idx].After(cutoff) {
		idx++
	}
	return hits[idx:]
}
