package api

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTimeout     = 10 * time.Minute
	limiterCleanupInterval = 5 * time.Minute
)

// clientLimiter holds a rate limiter and its last accessed time
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// RateLimiters keeps one token bucket per client address. Idle clients are
// dropped by a background sweep until Stop is called.
type RateLimiters struct {
	limiters    sync.Map
	cleanupOnce sync.Once
	stopOnce    sync.Once
	stop        chan struct{}
}

// NewRateLimiters creates an empty limiter set
func NewRateLimiters() *RateLimiters {
	return &RateLimiters{stop: make(chan struct{})}
}

// Stop ends the idle client sweep
func (r *RateLimiters) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// CORS allows the local UI to call the API from a browser context
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestSizeLimit caps request bodies at 1MB
func RequestSizeLimit() gin.HandlerFunc {
	return RequestSizeLimitWithSize(1024 * 1024)
}

// RequestSizeLimitWithSize rejects bodies larger than maxBytes. Requests
// that declare a larger Content-Length are refused before the handler runs.
func RequestSizeLimitWithSize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost ||
			c.Request.Method == http.MethodPut ||
			c.Request.Method == http.MethodPatch {
			if c.Request.ContentLength > maxBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
					Status:  types.StatusError,
					Message: "Request body too large",
				})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// PerClient returns middleware allowing rps requests per second with the
// given burst for every client IP
func (r *RateLimiters) PerClient(rps int, burst int) gin.HandlerFunc {
	r.cleanupOnce.Do(func() {
		go r.cleanup(limiterCleanupInterval, limiterIdleTimeout)
	})

	return func(c *gin.Context) {
		key := c.ClientIP() + "|" + c.FullPath()

		value, _ := r.limiters.LoadOrStore(key, newClientLimiter(rps, burst))
		cl := value.(*clientLimiter)
		cl.lastSeen.Store(time.Now().UnixNano())

		if !cl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{
				Status:  types.StatusError,
				Message: "Rate limit exceeded. Please slow down your requests.",
			})
			return
		}
		c.Next()
	}
}

func newClientLimiter(rps, burst int) *clientLimiter {
	cl := &clientLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), burst),
	}
	cl.lastSeen.Store(time.Now().UnixNano())
	return cl
}

func (r *RateLimiters) cleanup(interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep(time.Now().Add(-idle))
		case <-r.stop:
			return
		}
	}
}

// sweep removes limiters not used since cutoff
func (r *RateLimiters) sweep(cutoff time.Time) int {
	var removed int
	r.limiters.Range(func(key, value interface{}) bool {
		cl := value.(*clientLimiter)
		if cl.lastSeen.Load() < cutoff.UnixNano() {
			r.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
