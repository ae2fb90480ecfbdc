package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const limiterIdleAfter = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// loginLimiter is a per-client-IP token bucket for login attempts.
type loginLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	rate        rate.Limit
	burst       int
	lastCleanup time.Time
}

func newLoginLimiter(perMinute, burst int) *loginLimiter {
	return &loginLimiter{
		limiters:    make(map[string]*limiterEntry),
		rate:        rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// allow consumes a token for key, or reports how long until one is available.
func (l *loginLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastCleanup) > limiterIdleAfter {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > limiterIdleAfter {
				delete(l.limiters, k)
			}
		}
		l.lastCleanup = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now

	if e.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := e.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}

// LoginRateLimit throttles credential submissions per client IP. Forwarding
// headers only count when the peer is a trusted proxy.
func (s *Server) LoginRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, s.proxies)
		allowed, retryAfter := s.limiter.allow(ip)
		if allowed {
			next(w, r)
			return
		}

		seconds := max(int(math.Ceil(retryAfter.Seconds())), 1)
		log.Ctx(r.Context()).Warn().Str("ip", ip).Int("retry_after", seconds).Msg("login rate limit exceeded")
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		redirectWithError(w, r, RouteLogin, "Too many sign-in attempts. Please wait a moment and try again.", "email", r.PostFormValue("email"))
	}
}
