package fakeapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter returns a Gin middleware enforcing a per-API-key token bucket.
// It must run after requireToken. Rejections use the API's own failure
// shape so clients see a request error rather than a bare 429 body.
func rateLimiter(rps, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*keyLimiter)

	return func(c *gin.Context) {
		key := apiKeyFromCtx(c)

		mu.Lock()
		l, ok := limiters[key]
		if !ok {
			l = &keyLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[key] = l
		}
		l.lastSeen = time.Now()
		// Stale entries are swept inline; the fake server never sees many keys.
		for k, other := range limiters {
			if time.Since(other.lastSeen) > 10*time.Minute {
				delete(limiters, k)
			}
		}
		mu.Unlock()

		if !l.limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, failure("Rate limit exceeded"))
			return
		}
		c.Next()
	}
}
