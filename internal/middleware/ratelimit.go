package middleware

import (
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/mindbridge/companion/backend/pkg/utils"
)

// RateLimitMessage is returned with 429 responses.
const RateLimitMessage = "You're sending messages a little quickly. Take a breath, and try again in a moment."

// DefaultMaxTrackedUsers bounds how many per-user buckets are kept. The least
// recently seen user is dropped first; a dropped user starts with a full bucket.
const DefaultMaxTrackedUsers = 10000

// UserRateLimiter keeps one token bucket per user.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// LimiterOption tunes a UserRateLimiter.
type LimiterOption func(*limiterOptions)

type limiterOptions struct {
	maxUsers int
}

// WithMaxTrackedUsers caps the number of buckets held in memory.
func WithMaxTrackedUsers(n int) LimiterOption {
	return func(o *limiterOptions) {
		if n > 0 {
			o.maxUsers = n
		}
	}
}

// NewUserRateLimiter allows perMinute requests per user per minute.
func NewUserRateLimiter(perMinute int, opts ...LimiterOption) *UserRateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	o := limiterOptions{maxUsers: DefaultMaxTrackedUsers}
	for _, opt := range opts {
		opt(&o)
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, *rate.Limiter](o.maxUsers)
	return &UserRateLimiter{
		limiters: cache,
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

// Allow consumes one token for userID.
func (l *UserRateLimiter) Allow(userID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(userID)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(userID, limiter)
	}
	l.mu.Unlock()
	return limiter.Allow()
}

func (l *UserRateLimiter) tracked() int {
	return l.limiters.Len()
}

// Middleware rejects requests over the limit. It must run after UserID.
func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(UserIDFrom(r.Context())) {
			w.Header().Set("Retry-After", "60")
			utils.RespondError(w, http.StatusTooManyRequests, RateLimitMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}
