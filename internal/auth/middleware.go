package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/evcraddock/visit-scheduler/internal/response"
)

// rateLimiter tracks failed bearer attempts per IP.
type rateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	window   time.Duration
	maxFail  int
}

const (
	rateLimitWindow  = 1 * time.Minute
	rateLimitMaxFail = 10
)

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		attempts: make(map[string][]time.Time),
		window:   rateLimitWindow,
		maxFail:  rateLimitMaxFail,
	}
}

// prune drops attempts outside the window. Caller holds mu.
func (rl *rateLimiter) prune(ip string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	valid := rl.attempts[ip][:0]
	for _, t := range rl.attempts[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.attempts, ip)
		return nil
	}
	rl.attempts[ip] = valid
	return valid
}

// limited reports whether ip has exhausted its failed attempts.
func (rl *rateLimiter) limited(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.prune(ip, time.Now())) >= rl.maxFail
}

// recordFailure records a failed attempt for ip.
func (rl *rateLimiter) recordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	rl.attempts[ip] = append(rl.prune(ip, now), now)
}

// Authenticator resolves bearer tokens into principals.
type Authenticator struct {
	keys    *APIKeyStore
	tokens  *TokenIssuer
	limiter *rateLimiter
}

// NewAuthenticator creates an authenticator accepting API keys and JWTs.
func NewAuthenticator(keys *APIKeyStore, tokens *TokenIssuer) *Authenticator {
	return &Authenticator{keys: keys, tokens: tokens, limiter: newRateLimiter()}
}

// ErrRateLimited is returned when an address has too many failed attempts.
var ErrRateLimited = errors.New("too many failed attempts")

// ValidateKey checks a raw API key presented from ip. Failures count against
// the same per-address limit as bearer authentication.
func (a *Authenticator) ValidateKey(ctx context.Context, ip, rawKey string) (Principal, error) {
	if a.limiter.limited(ip) {
		return Principal{}, ErrRateLimited
	}
	p, ok, err := a.keys.Validate(ctx, rawKey)
	if err != nil {
		return Principal{}, err
	}
	if !ok {
		a.limiter.recordFailure(ip)
		return Principal{}, ErrInvalidToken
	}
	return p, nil
}

// RequireBearer is middleware that validates the Authorization header and
// stores the caller in the request context.
// Returns 401 for missing/invalid credentials, 429 for rate-limited IPs.
func (a *Authenticator) RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, "authorization required")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		if a.limiter.limited(ip) {
			response.Fail(w, http.StatusTooManyRequests, response.CodeTooManyRequests, "too many requests")
			return
		}

		var (
			p   Principal
			ok  bool
			err error
		)
		if IsAPIKey(token) {
			p, ok, err = a.keys.Validate(r.Context(), token)
			if err != nil {
				response.Internal(w, "internal error")
				return
			}
		} else if a.tokens != nil {
			p, err = a.tokens.Parse(token)
			ok = err == nil
		}

		if !ok {
			a.limiter.recordFailure(ip)
			response.Unauthorized(w, "invalid credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireRole is middleware that rejects callers without one of roles.
// Admins always pass.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "authorization required")
				return
			}
			if p.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w, "role "+string(p.Role)+" may not perform this action")
		})
	}
}
