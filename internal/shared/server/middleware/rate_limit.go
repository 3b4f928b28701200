package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"docextract-backend/internal/shared/metrics"
	"docextract-backend/internal/shared/telemetry"
)

const rateLimitDetail = "Too Many Requests. Try again later."

// DefaultRateLimitSkip lists path prefixes that are never throttled.
var DefaultRateLimitSkip = []string{"/docs", "/openapi", "/redoc", "/metrics", "/api/v1/health"}

// WindowLimiter decides whether a key may make another request inside a sliding window.
type WindowLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

type RateLimitConfig struct {
	Requests     int
	Window       time.Duration
	SkipPrefixes []string
	KeyFor       func(*gin.Context) string
	Limiter      WindowLimiter
}

// RateLimit throttles clients to cfg.Requests per cfg.Window. Limiter errors fail open.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewMemoryWindow(nil)
	}
	if cfg.KeyFor == nil {
		cfg.KeyFor = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.SkipPrefixes == nil {
		cfg.SkipPrefixes = DefaultRateLimitSkip
	}
	return func(c *gin.Context) {
		if cfg.Requests <= 0 || cfg.Window <= 0 {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		for _, prefix := range cfg.SkipPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}
		key := strings.TrimSpace(cfg.KeyFor(c))
		if key == "" {
			key = "unknown"
		}

		allowed, retryAfter, err := cfg.Limiter.Allow(c.Request.Context(), key, cfg.Requests, cfg.Window)
		if err != nil {
			telemetry.Error("rate_limit.backend_error", map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      err.Error(),
			})
			c.Next()
			return
		}
		if allowed {
			c.Next()
			return
		}

		metrics.IncRateLimited()
		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "rate_limited",
			"detail":       rateLimitDetail,
			"retryAfterMs": retryAfterMs,
		})
		c.Abort()
	}
}

// MemoryWindow is a process-local sliding window keyed by client.
type MemoryWindow struct {
	mu        sync.Mutex
	hits      map[string][]time.Time
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryWindow(now func() time.Time) *MemoryWindow {
	if now == nil {
		now = time.Now
	}
	return &MemoryWindow{
		hits: make(map[string][]time.Time),
		now:  now,
	}
}

func (w *MemoryWindow) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := w.now()
	cutoff := now.Add(-window)

	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.lastSweep) >= window {
		w.sweep(cutoff)
		w.lastSweep = now
	}

	recent := trimBefore(w.hits[key], cutoff)
	if len(recent) >= limit {
		w.hits[key] = recent
		return false, recent[0].Add(window).Sub(now), nil
	}
	w.hits[key] = append(recent, now)
	return true, 0, nil
}

// Keys reports how many clients are currently tracked.
func (w *MemoryWindow) Keys() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.hits)
}

func (w *MemoryWindow) sweep(cutoff time.Time) {
	for key, stamps := range w.hits {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(w.hits, key)
		}
	}
}

func trimBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
