package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava rate limits:
// - 100 requests per 15 minutes
// - 1000 requests per day
const (
	shortLimit  = 100
	shortPeriod = 15 * time.Minute
	dailyLimit  = 1000
)

// window is one of Strava's usage windows
type window struct {
	limit    int
	usage    int
	resetsAt time.Time
	next     func(now time.Time) time.Time
}

func (w *window) roll(now time.Time) {
	if !now.Before(w.resetsAt) {
		w.usage = 0
		w.resetsAt = w.next(now)
	}
}

func (w *window) exhausted() bool {
	return w.usage >= w.limit
}

func nextShort(now time.Time) time.Time { return now.Add(shortPeriod) }

// daily windows reset at midnight UTC
func nextDay(now time.Time) time.Time { return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour) }

// RateLimiter manages Strava API rate limits. One limiter is shared by every
// worker using the client.
type RateLimiter struct {
	mu sync.Mutex

	short window
	daily window

	// Minimum interval between requests
	minInterval time.Duration
	lastRequest time.Time

	now func() time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		short:       window{limit: shortLimit, resetsAt: nextShort(now), next: nextShort},
		daily:       window{limit: dailyLimit, resetsAt: nextDay(now), next: nextDay},
		minInterval: 150 * time.Millisecond,
		now:         time.Now,
	}
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		now := r.now()
		r.short.roll(now)
		r.daily.roll(now)

		var until time.Time
		switch {
		case r.daily.exhausted():
			until = r.daily.resetsAt
		case r.short.exhausted():
			until = r.short.resetsAt
		case now.Sub(r.lastRequest) < r.minInterval:
			until = r.lastRequest.Add(r.minInterval)
		default:
			r.short.usage++
			r.daily.usage++
			r.lastRequest = now
			return nil
		}

		if err := r.sleep(ctx, until.Sub(now)); err != nil {
			return err
		}
	}
}

// sleep releases the lock while waiting
func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Unlock()
	defer r.mu.Lock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateFromHeaders updates rate limit state from Strava response headers.
// Strava returns X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512".
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.short.usage, r.daily.usage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.short.limit, r.daily.limit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	first, second, found := strings.Cut(v, ",")
	if !found {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.short.limit - r.short.usage, r.daily.limit - r.daily.usage
}
