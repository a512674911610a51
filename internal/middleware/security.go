package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/formgrid/formgrid-backend/pkg/clientip"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerXXSSProtection          = "X-XSS-Protection"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerXXSSProtection, "1; mode=block")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'self'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// --- Global rate limiting (per-IP, 5/s, burst 20) ---

var (
	globalEntries    = make(map[string]*limiterEntry)
	globalEntriesMu  sync.Mutex
	globalCleanupRun bool
)

const (
	globalRateLimitRPS    = 5
	globalRateLimitBurst  = 20
	globalCleanupInterval = 5 * time.Minute
	globalLimiterTTL      = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

func getGlobalLimiter(ip string) *rate.Limiter {
	globalEntriesMu.Lock()
	defer globalEntriesMu.Unlock()
	startGlobalCleanupOnce()
	e, ok := globalEntries[ip]
	if !ok {
		e = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(globalRateLimitRPS), globalRateLimitBurst),
			lastUse: time.Now(),
		}
		globalEntries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func startGlobalCleanupOnce() {
	if globalCleanupRun {
		return
	}
	globalCleanupRun = true
	go func() {
		ticker := time.NewTicker(globalCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			globalEntriesMu.Lock()
			now := time.Now()
			for ip, e := range globalEntries {
				if now.Sub(e.lastUse) > globalLimiterTTL {
					delete(globalEntries, ip)
				}
			}
			globalEntriesMu.Unlock()
		}
	}()
}

// GlobalRateLimit limits each IP to 5 req/s, burst 20. Returns 429 when exceeded.
func GlobalRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.RealClientIP(r)
		if !getGlobalLimiter(ip).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many requests. Please slow down."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Write route rate limiting (1 req/2s, burst 5) ---

var (
	writeEntries    = make(map[string]*limiterEntry)
	writeEntriesMu  sync.Mutex
	writeCleanupRun bool
)

const (
	writeRateLimitEvery  = 2 * time.Second
	writeRateLimitBurst  = 5
	writeCleanupInterval = 5 * time.Minute
	writeLimiterTTL      = 30 * time.Minute
)

var writePaths = map[string]bool{
	"/api/submitForm":    true,
	"/api/deleteAllRows": true,
}

func isWritePath(path string) bool {
	if writePaths[path] {
		return true
	}
	// Single-row deletes carry the id in the path
	return len(path) > len("/api/deleteRow/") && path[:len("/api/deleteRow/")] == "/api/deleteRow/"
}

func getWriteLimiter(ip string) *rate.Limiter {
	writeEntriesMu.Lock()
	defer writeEntriesMu.Unlock()
	startWriteCleanupOnce()
	e, ok := writeEntries[ip]
	if !ok {
		e = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(writeRateLimitEvery), writeRateLimitBurst),
			lastUse: time.Now(),
		}
		writeEntries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func startWriteCleanupOnce() {
	if writeCleanupRun {
		return
	}
	writeCleanupRun = true
	go func() {
		ticker := time.NewTicker(writeCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			writeEntriesMu.Lock()
			now := time.Now()
			for ip, e := range writeEntries {
				if now.Sub(e.lastUse) > writeLimiterTTL {
					delete(writeEntries, ip)
				}
			}
			writeEntriesMu.Unlock()
		}
	}()
}

// WriteRateLimit applies a stricter limit to mutating routes only. Use after GlobalRateLimit.
func WriteRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isWritePath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientip.RealClientIP(r)
		if !getWriteLimiter(ip).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many writes. Please try again later."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ProductionSecurity returns middlewares for production: SecurityHeaders → GlobalRateLimit → WriteRateLimit.
func ProductionSecurity() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		GlobalRateLimit,
		WriteRateLimit,
	}
}
