package server

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	rateWindow  = time.Minute
	rateMaxHits = 30
)

// rateLimiter is a small sliding-window limiter keyed by caller IP and
// action, guarding the lobby endpoints against hammering.
type rateLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		hits: make(map[string][]time.Time),
	}
}

func (l *rateLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := now.Add(-rateWindow)
	recent := l.hits[key][:0]
	for _, hit := range l.hits[key] {
		if hit.After(cutoff) {
			recent = append(recent, hit)
		}
	}
	if len(recent) >= rateMaxHits {
		l.hits[key] = recent
		return false
	}
	l.hits[key] = append(recent, now)
	return true
}

func (s *Server) enforceRateLimit(w http.ResponseWriter, r *http.Request, action string) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !s.limiter.allow(host+"|"+action, time.Now()) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return false
	}
	return true
}
