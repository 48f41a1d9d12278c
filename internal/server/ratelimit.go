package server

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiter throttles mutation requests per client address.
type clientLimiter struct {
	mu      sync.Mutex
	perSec  rate.Limit
	burst   int
	clients map[string]*rate.Limiter
}

func newClientLimiter(perSec, burst int) *clientLimiter {
	if burst < 1 {
		burst = perSec
	}
	return &clientLimiter{
		perSec:  rate.Limit(perSec),
		burst:   burst,
		clients: make(map[string]*rate.Limiter),
	}
}

func (l *clientLimiter) allow(addr string) bool {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	l.mu.Lock()
	lim, ok := l.clients[addr]
	if !ok {
		lim = rate.NewLimiter(l.perSec, l.burst)
		l.clients[addr] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func (l *clientLimiter) setRate(perSec, burst int) {
	if burst < 1 {
		burst = perSec
	}
	l.mu.Lock()
	l.perSec = rate.Limit(perSec)
	l.burst = burst
	// Existing buckets pick up the new rate; counts reset, which is fine
	// for a config change.
	l.clients = make(map[string]*rate.Limiter)
	l.mu.Unlock()
}

// withRateLimit throttles mutating methods only; reads stay unthrottled so
// the calendar UI can poll freely.
func (a *API) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
			lim := a.limiter.Load()
			if lim != nil && !lim.allow(r.RemoteAddr) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
