package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dakshkumar96/Reclaim/internal/config"
)

const (
	cleanupInterval = time.Minute
	minIdle         = 3 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per authenticated user. Buckets idle longer than
// a full refill are evicted by Run.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[uint]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a limiter. A non-positive rate disables limiting.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	idle := minIdle
	if limit != rate.Inf {
		if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}

	return &RateLimiter{
		visitors: make(map[uint]*visitor),
		limit:    limit,
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow reports whether the user may make another request now.
func (r *RateLimiter) Allow(userID uint) bool {
	r.mu.Lock()
	v, ok := r.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[userID] = v
	}
	v.lastSeen = r.now()
	r.mu.Unlock()

	return v.limiter.Allow()
}

// Cleanup drops buckets unused for longer than the idle window and returns how
// many were dropped.
func (r *RateLimiter) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, v := range r.visitors {
		if r.now().Sub(v.lastSeen) > r.idle {
			delete(r.visitors, id)
			dropped++
		}
	}
	return dropped
}

// Run evicts idle buckets every minute until ctx is done.
func (r *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}

// Middleware rejects requests over the limit with 429. It must run after Auth.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(UserID(c)) {
			if r.limit != rate.Inf && r.limit > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(1/float64(r.limit)))))
			}
			abort(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		c.Next()
	}
}
