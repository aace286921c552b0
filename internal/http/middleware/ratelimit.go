package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter allows perMinute requests per client per minute, with a
// burst of half that (at least one).
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			abortJSON(c, http.StatusTooManyRequests, "too many attempts, try again later")
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, client := range l.clients {
		if now.Sub(client.lastSeen) > limiterIdle {
			delete(l.clients, k)
		}
	}

	client, ok := l.clients[key]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = client
	}
	client.lastSeen = now
	return client.limiter.AllowN(now, 1)
}
