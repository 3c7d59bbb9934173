package http

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/payrolladmin/payroll/backend/internal/observability/metrics"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop(time.Minute)

	return rl
}

func (rl *RateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictIdle(now)
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, e := range rl.limiters {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = time.Now()
	rl.mu.Unlock()

	return e.limiter.Allow()
}

func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

type RateRule struct {
	Name              string
	RequestsPerSecond float64
	Burst             int
}

// PathRateLimiter applies a dedicated limiter to selected paths and a
// general one to everything else.
type PathRateLimiter struct {
	byPath  map[string]*RateLimiter
	names   map[string]string
	general *RateLimiter
}

func NewPathRateLimiter(general RateRule, rules map[string]RateRule) *PathRateLimiter {
	prl := &PathRateLimiter{
		byPath:  make(map[string]*RateLimiter, len(rules)),
		names:   make(map[string]string, len(rules)),
		general: NewRateLimiter(general.RequestsPerSecond, general.Burst),
	}
	for path, rule := range rules {
		prl.byPath[path] = NewRateLimiter(rule.RequestsPerSecond, rule.Burst)
		prl.names[path] = rule.Name
	}
	return prl
}

// Middleware leaves the paths listed in skip unlimited.
func (prl *PathRateLimiter) Middleware(skip ...string) func(http.Handler) http.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if _, ok := skipped[path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			limiter, name := prl.general, "general"
			if l, ok := prl.byPath[path]; ok {
				limiter, name = l, prl.names[path]
			}

			if !limiter.Allow(GetClientIP(r)) {
				metrics.RateLimitBlocked.WithLabelValues(path, name).Inc()
				w.Header().Set("Retry-After", "1")
				WriteErrorEnvelope(w, http.StatusTooManyRequests, CodeRateLimited, "too many requests", nil, TraceIDFromContext(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (prl *PathRateLimiter) Close() {
	prl.general.Close()
	for _, l := range prl.byPath {
		l.Close()
	}
}
