package server

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// rateLimiter enforces a per-IP request budget over a sliding one
// minute window.
//
// Design decision: We keep the raw request timestamps rather than
// counters in fixed buckets because the display polls in bursts right
// at bucket edges, and a sliding window judges those fairly.
type rateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
}

// newRateLimiter creates a limiter allowing limit requests per minute
// per client IP.
func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   time.Minute,
	}
}

// allow records a request from ip and reports whether it is within
// budget.
func (rl *rateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.window)

	// Clients that went quiet would otherwise hold their map entry
	// forever; one sweep per window keeps the map bounded by the set
	// of clients active in the last minute.
	if now.Sub(rl.lastSweep) > rl.window {
		for client, times := range rl.requests {
			if len(times) == 0 || !times[len(times)-1].After(cutoff) {
				delete(rl.requests, client)
			}
		}
		rl.lastSweep = now
	}

	kept := rl.requests[ip][:0]
	for _, t := range rl.requests[ip] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.limit {
		rl.requests[ip] = kept
		return false
	}
	rl.requests[ip] = append(kept, now)
	return true
}

// clientIP extracts the remote address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// recoverMiddleware turns handler panics into 500 responses instead of
// dropped connections.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic",
					"path", r.URL.Path,
					"panic", rec,
				)
				writeJSONError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// logMiddleware records one access line per request.
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", clientIP(r),
			"duration", time.Since(start).String(),
		)
	})
}

// requireAPIKey wraps a handler with X-API-Key authentication and the
// per-IP rate limit.
func (s *Server) requireAPIKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != s.cfg.APIKey {
			s.logger.Warn("unauthorized access attempt", "remote", clientIP(r), "path", r.URL.Path)
			writeJSONError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		if !s.limiter.allow(clientIP(r), time.Now()) {
			s.logger.Warn("rate limit exceeded", "remote", clientIP(r))
			writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next(w, r)
	})
}
