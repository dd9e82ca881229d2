package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleClientTTL is how long a client's bucket survives without requests
const idleClientTTL = 2 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientBuckets holds one token bucket per client address
type clientBuckets struct {
	mu      sync.Mutex
	perMin  int
	buckets map[string]*clientBucket
}

func (c *clientBuckets) get(client string, now time.Time) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[client]
	if !ok {
		// a full minute of budget up front, refilled evenly
		b = &clientBucket{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.perMin)), c.perMin)}
		c.buckets[client] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (c *clientBuckets) evictIdle(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for client, b := range c.buckets {
		if now.Sub(b.lastSeen) > idleClientTTL {
			delete(c.buckets, client)
		}
	}
}

// NewRateLimiter allows perMinute requests per client per minute, with bursts
// up to the same amount. onLimited is called for each rejection.
func NewRateLimiter(perMinute int, onLimited func()) func(http.Handler) http.Handler {
	if perMinute < 1 {
		perMinute = 1
	}
	buckets := &clientBuckets{perMin: perMinute, buckets: make(map[string]*clientBucket)}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			buckets.evictIdle(now)
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			limiter := buckets.get(getClientIP(r), now)

			if !limiter.AllowN(now, 1) {
				if onLimited != nil {
					onLimited()
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(limiter, now)))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter is the number of whole seconds until the next token
func retryAfter(limiter *rate.Limiter, now time.Time) int {
	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return int(math.Max(1, math.Ceil(delay.Seconds())))
}

// getClientIP returns the address requests are counted against
func getClientIP(r *http.Request) string {
	// the first X-Forwarded-For hop is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
