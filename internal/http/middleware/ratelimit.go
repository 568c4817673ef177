package middleware

import (
	"net/http"
	"sync"
	"time"
)

// throttle is a per-client token bucket. Each chat turn fans out to postgres
// and redis, so a scripted flood from one client is rejected here instead of
// queueing behind the engine.
type throttle struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	perSec  float64
	burst   float64
}

type clientBucket struct {
	remaining float64
	seen      time.Time
}

func newThrottle(perSec float64, burst int) *throttle {
	th := &throttle{
		clients: make(map[string]*clientBucket),
		perSec:  perSec,
		burst:   float64(burst),
	}
	go th.sweep()
	return th
}

// allow refills the client's bucket for the elapsed time and spends one token
// if any remain.
func (th *throttle) allow(client string) bool {
	th.mu.Lock()
	defer th.mu.Unlock()

	now := time.Now()
	b, ok := th.clients[client]
	if !ok {
		b = &clientBucket{remaining: th.burst, seen: now}
		th.clients[client] = b
	}

	b.remaining += now.Sub(b.seen).Seconds() * th.perSec
	if b.remaining > th.burst {
		b.remaining = th.burst
	}
	b.seen = now

	if b.remaining < 1 {
		return false
	}
	b.remaining--
	return true
}

// sweep drops buckets idle long enough to have fully refilled anyway.
func (th *throttle) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-20 * time.Minute)
		th.mu.Lock()
		for client, b := range th.clients {
			if b.seen.Before(cutoff) {
				delete(th.clients, client)
			}
		}
		th.mu.Unlock()
	}
}

// RateLimit caps how fast one client may hit the wrapped routes, answering
// 429 past the limit. Clients are keyed by the X-Real-Ip header set by chi's
// RealIP middleware, falling back to the socket address.
func RateLimit(perSec float64, burst int) func(http.Handler) http.Handler {
	th := newThrottle(perSec, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := r.RemoteAddr
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				client = xri
			}
			if !th.allow(client) {
				http.Error(w, "too many requests, slow down", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
