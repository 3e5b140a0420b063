package restapi

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"siriproxy.transitrt.org/internal/clock"
)

// rateLimitClient tracks the limiter and its last usage time so inactive
// clients can be evicted without disrupting active ones.
type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // Unix nanoseconds
}

// RateLimitMiddleware provides per-client-address rate limiting.
type RateLimitMiddleware struct {
	limiters  map[string]*rateLimitClient
	mu        sync.RWMutex
	rateLimit rate.Limit
	burstSize int
	clock     clock.Clock
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewRateLimitMiddleware creates a rate limiting middleware allowing
// ratePerSecond requests per second per client address.
func NewRateLimitMiddleware(ratePerSecond int, clk clock.Clock) *RateLimitMiddleware {
	middleware := &RateLimitMiddleware{
		limiters:  make(map[string]*rateLimitClient),
		rateLimit: rate.Limit(ratePerSecond),
		burstSize: ratePerSecond,
		clock:     clk,
		stopChan:  make(chan struct{}),
	}
	go middleware.cleanup()
	return middleware
}

// Handler returns the HTTP middleware handler function.
func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddress(r)
			if !rl.getLimiter(client).Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getLimiter gets or creates the limiter of a client and refreshes its
// last-seen timestamp.
func (rl *RateLimitMiddleware) getLimiter(client string) *rate.Limiter {
	rl.mu.RLock()
	if existing, ok := rl.limiters[client]; ok {
		existing.lastSeen.Store(rl.clock.Now().UnixNano())
		rl.mu.RUnlock()
		return existing.limiter
	}
	rl.mu.RUnlock()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if existing, ok := rl.limiters[client]; ok {
		existing.lastSeen.Store(rl.clock.Now().UnixNano())
		return existing.limiter
	}
	created := &rateLimitClient{limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize)}
	created.lastSeen.Store(rl.clock.Now().UnixNano())
	rl.limiters[client] = created
	return created.limiter
}

// cleanup evicts limiters unused for ten minutes.
func (rl *RateLimitMiddleware) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := rl.clock.Now().Add(-10 * time.Minute).UnixNano()
			rl.mu.Lock()
			for client, entry := range rl.limiters {
				if entry.lastSeen.Load() < cutoff {
					delete(rl.limiters, client)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopChan:
			return
		}
	}
}

// Stop terminates the cleanup goroutine.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
