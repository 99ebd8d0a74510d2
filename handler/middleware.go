package handler

import (
	"context"
	"fmt"
	"go-task-api/common"
	"go-task-api/config"
	"go-task-api/logger"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := logger.Log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Error("Request completed")
		} else {
			entry.Info("Request completed")
		}
	})
}

// CORS allows the configured origins to call the API with credentials, which
// the cookie-based auth needs. No origins means no cross-origin access.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler
}

// BodyLimit caps request bodies at n bytes.
func BodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func trustedIP(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the connection's remote address unless it belongs to a
// trusted proxy. Behind a trusted proxy it takes the right-most untrusted
// X-Forwarded-For entry, then X-Real-IP.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	remote := remoteIP(r)
	if !trustedIP(remote, trusted) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !trustedIP(hop, trusted) {
				return hop
			}
		}
		if first := strings.TrimSpace(hops[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	trusted  []netip.Prefix
	cfg      config.RateLimitConfig
}

// NewRateLimiter expects cfg to have passed config validation; unparsable
// trusted proxies are logged and ignored.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		logger.Log.WithError(err).Warn("Ignoring trusted proxies")
		trusted = nil
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:   cfg.Burst,
		trusted: trusted,
		cfg:     cfg,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.limit, rl.burst))
	return actual.(*rate.Limiter)
}

// Cleanup drops limiters whose bucket has refilled, i.e. clients that have
// been idle. It returns the number removed.
func (rl *RateLimiter) Cleanup() int {
	removed := 0
	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (rl *RateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Cleanup(); n > 0 {
				logger.Log.WithField("removed", n).Debug("Rate limiter cleanup")
			}
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIP(r, rl.trusted)
		l := rl.limiter(key)
		if !l.Allow() {
			reservation := l.Reserve()
			delay := reservation.Delay()
			reservation.Cancel()

			w.Header().Set("Retry-After", fmt.Sprintf("%d", max(int(delay.Seconds()), 1)))
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.cfg.Requests))
			w.Header().Set("X-RateLimit-Window", rl.cfg.Window.String())

			logger.Log.WithFields(logrus.Fields{
				"client_ip": key,
				"path":      r.URL.Path,
			}).Warn("Rate limit exceeded")
			common.NewAppError(http.StatusTooManyRequests, "Too many requests, please try again later", nil).Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
