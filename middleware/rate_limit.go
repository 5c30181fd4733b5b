package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// KeyFunc returns the bucket key for a request (defaults to IP)
	KeyFunc func(c echo.Context) string
	// Message is the error message returned when rate limit is exceeded
	Message string
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per caller: Requests tokens refilled evenly over Window
type RateLimiter struct {
	config RateLimitConfig
	every  rate.Limit
	store  map[string]*limiterEntry
	mu     sync.Mutex
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}

	rl := &RateLimiter{
		config: config,
		every:  rate.Every(config.Window / time.Duration(config.Requests)),
		store:  make(map[string]*limiterEntry),
		now:    time.Now,
	}
	go rl.cleanup()
	return rl
}

// Allow takes a token for key. When the bucket is empty it returns false and the
// wait until the next token.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.store[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.every, rl.config.Requests)}
		rl.store[key] = entry
	}
	entry.lastSeen = now

	reservation := entry.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, rl.config.Window
	}
	if wait := reservation.DelayFrom(now); wait > 0 {
		reservation.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retryAfter := rl.Allow(rl.config.KeyFunc(c))
			if !ok {
				seconds := int(retryAfter.Seconds()) + 1
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
			}
			return next(c)
		}
	}
}

// cleanup drops callers idle for a full window, whose buckets are full again
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		now := rl.now()
		for key, entry := range rl.store {
			if now.Sub(entry.lastSeen) > rl.config.Window {
				delete(rl.store, key)
			}
		}
		rl.mu.Unlock()
	}
}

// actorOrIP keys authenticated routes by account, falling back to the client IP
func actorOrIP(c echo.Context) string {
	if actor, ok := GetActor(c); ok && actor.ID != "" {
		return "user:" + actor.ID
	}
	return "ip:" + c.RealIP()
}

// LoginRateLimiter limits login attempts to 5 per minute per IP
var LoginRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 5,
	Window:   1 * time.Minute,
	Message:  "Too many login attempts. Please wait a minute before trying again.",
})

// VerificationRateLimiter limits public receipt verification to 20 per minute per IP
var VerificationRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 20,
	Window:   1 * time.Minute,
	Message:  "Too many verification requests. Please wait before trying again.",
})

// SOSRateLimiter limits distress signals to 3 per 5 minutes per account
var SOSRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 3,
	Window:   5 * time.Minute,
	KeyFunc:  actorOrIP,
	Message:  "An alert was already sent. Help is on the way.",
})

// APIRateLimiter limits general API requests to 120 per minute per account
var APIRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 120,
	Window:   1 * time.Minute,
	KeyFunc:  actorOrIP,
	Message:  "Rate limit exceeded. Please slow down your requests.",
})
