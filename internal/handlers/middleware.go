package handlers

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/csrf"
	"github.com/pyae198022/ShopHub/internal/auth"
)

// LoggingMiddleware logs the details of each HTTP request
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)
		slog.Info("HTTP Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start),
			"ip", clientIP(r),
		)
	})
}

// responseWriter captures the status code. It forwards Hijack so the
// order feed can upgrade to a WebSocket through the middleware chain.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// SecurityHeadersMiddleware adds standard security headers
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; connect-src 'self' ws: wss:")
		next.ServeHTTP(w, r)
	})
}

// SkipCSRFForBearer exempts token-authenticated API calls from the CSRF
// check. Browsers never attach the Authorization header on their own.
func SkipCSRFForBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			r = csrf.UnsafeSkipCheck(r)
		}
		next.ServeHTTP(w, r)
	})
}

// Resolver identifies the caller of a request.
type Resolver interface {
	Resolve(r *http.Request) (*auth.Identity, bool)
}

// IdentifyMiddleware attaches the caller's identity, if any, to the request
// context. Anonymous requests pass through unchanged.
func IdentifyMiddleware(resolver Resolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := resolver.Resolve(r); ok {
			r = r.WithContext(auth.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "You must be signed in", Kind: "unauthorized"})
			return
		}
		next(w, r)
	}
}

// RequireAdmin rejects anonymous and non-admin requests.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireUser(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		if !id.IsAdmin() {
			slog.Warn("Non-admin tried an admin route", "user_id", id.UserID, "path", r.URL.Path)
			writeForbidden(w)
			return
		}
		next(w, r)
	})
}

// RateLimiter allows one request per window for each client IP.
type RateLimiter struct {
	visitors sync.Map
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter creates a new rate limiter with a cleanup goroutine
func NewRateLimiter(window time.Duration) *RateLimiter {
	rl := &RateLimiter{window: window, stop: make(chan struct{})}
	go rl.cleanup()
	return rl
}

// cleanup removes old entries to prevent memory leaks
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.visitors.Range(func(key, value any) bool {
				if now.Sub(value.(time.Time)) > rl.window {
					rl.visitors.Delete(key)
				}
				return true
			})
		}
	}
}

func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// Middleware enforces the rate limit. A nil limiter allows everything.
func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	if rl == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if lastSeen, ok := rl.visitors.Load(ip); ok {
			if time.Since(lastSeen.(time.Time)) < rl.window {
				slog.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Too Many Requests. Please try again later."})
				return
			}
		}
		rl.visitors.Store(ip, time.Now())
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
