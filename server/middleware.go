package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Nicaras/memilio/logging"
	"github.com/Nicaras/memilio/metrics"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/juju/ratelimit"
)

// slogMiddleware logs one line per request.
func slogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// metricsMiddleware records request count, latency and in-flight gauge.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		metrics.HTTPRequestInFlight.Inc()
		start := time.Now()

		next.ServeHTTP(ww, r)

		metrics.HTTPRequestInFlight.Dec()
		metrics.HTTPRequestTotals.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// rateLimiter manages per-client token buckets.
type rateLimiter struct {
	clients map[string]*ratelimit.Bucket
	mu      sync.RWMutex
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{clients: make(map[string]*ratelimit.Bucket)}
	go rl.cleanup()
	return rl
}

func (rl *rateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[clientIP]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if bucket, exists = rl.clients[clientIP]; !exists {
			// 3 tokens per second, max 100 tokens
			bucket = ratelimit.NewBucketWithRate(3, 100)
			rl.clients[clientIP] = bucket
		}
		rl.mu.Unlock()
	}
	return bucket
}

// cleanup periodically drops clients whose buckets are full again.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		for ip, bucket := range rl.clients {
			if bucket.Available() == bucket.Capacity() {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func rateLimitMiddleware(rl *rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket := rl.getBucket(r.RemoteAddr)
			if bucket.TakeAvailable(1) == 0 {
				logging.Warn("Rate limit exceeded", "remote_addr", r.RemoteAddr)
				respondWithJSON(w, http.StatusTooManyRequests,
					map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
