package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN TOKEN AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// AdminTokenAuth guards administrative endpoints with a bearer token.
// The token is never stored in plaintext; the middleware compares the
// presented token against a bcrypt hash generated at deploy time.
type AdminTokenAuth struct {
	tokenHash []byte
}

// NewAdminTokenAuth creates admin token middleware from a bcrypt hash.
// An empty hash disables admin access entirely: every request is rejected.
func NewAdminTokenAuth(tokenHash string) *AdminTokenAuth {
	return &AdminTokenAuth{tokenHash: []byte(tokenHash)}
}

// Enabled reports whether an admin token hash has been configured.
func (a *AdminTokenAuth) Enabled() bool {
	return len(a.tokenHash) > 0
}

// Middleware returns the authentication middleware.
func (a *AdminTokenAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Enabled() {
				http.Error(w, `{"error":"admin endpoints disabled"}`, http.StatusForbidden)
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, `{"error":"missing admin token"}`, http.StatusUnauthorized)
				return
			}

			if err := bcrypt.CompareHashAndPassword(a.tokenHash, []byte(token)); err != nil {
				http.Error(w, `{"error":"invalid admin token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken pulls the token out of the Authorization header,
// falling back to the X-Admin-Token header for CLI convenience.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-Admin-Token")
}

// constantTimeEqual compares two strings without leaking length timing
// beyond the comparison itself.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// TimeoutMiddleware adds a timeout to request context.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			done := make(chan struct{})
			go func() {
				next.ServeHTTP(w, r)
				close(done)
			}()

			select {
			case <-done:
				// Request completed
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					http.Error(w, `{"error":"request timeout"}`, http.StatusGatewayTimeout)
				}
			}
		})
	}
}

// SecurityHeadersMiddleware adds security headers to responses.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}

// RequestSizeLimitMiddleware limits the size of request bodies.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// NoCacheMiddleware prevents caching of responses.
func NoCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		next.ServeHTTP(w, r)
	})
}

// Chain combines multiple middleware functions into one.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// ChainHandler applies middleware to a handler function.
func ChainHandler(h http.HandlerFunc, middlewares ...func(http.Handler) http.Handler) http.Handler {
	return Chain(middlewares...)(h)
}
