// catalog-service/internal/api/middleware.go
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"
	"catalog-service/pkg/auth"

	"golang.org/x/time/rate"
)

// ContextKey is used for request context keys.
type ContextKey string

// UserKey holds the authenticated *domain.User.
const UserKey ContextKey = "user"

// UserFromContext returns the account resolved by the gate, if any.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok && user != nil
}

// Gate resolves bearer tokens to live accounts. It runs before any body
// decoding, so a rejected request never reaches validation.
type Gate struct {
	responder
	users  store.UserStore
	tokens auth.TokenManager
}

func NewGate(users store.UserStore, tokens auth.TokenManager, logger *slog.Logger) *Gate {
	return &Gate{responder: responder{logger: logger}, users: users, tokens: tokens}
}

// Authenticate admits any active account.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := g.resolve(w, r)
		if !ok {
			return
		}
		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin admits only active admin accounts.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := g.resolve(w, r)
		if !ok {
			return
		}
		if user.Role != domain.RoleAdmin {
			g.logger.WarnContext(r.Context(), "Non-admin attempted a catalog write", slog.String("userID", user.ID), slog.String("method", r.Method), slog.String("path", r.URL.Path))
			g.respondCode(w, r, http.StatusForbidden, CodeForbidden, "Access denied. Admin privileges required.")
			return
		}
		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolve answers the request itself whenever it returns false.
func (g *Gate) resolve(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	ctx := r.Context()

	tokenString, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		g.logger.WarnContext(ctx, "Authorization header missing or not a bearer token", slog.String("path", r.URL.Path))
		g.respondCode(w, r, http.StatusUnauthorized, CodeTokenMissing, "Access denied. No token provided.")
		return nil, false
	}

	claims, err := g.tokens.Validate(tokenString)
	if err != nil {
		g.logger.WarnContext(ctx, "Token rejected", slog.String("error", err.Error()))
		if errors.Is(err, auth.ErrExpiredToken) {
			g.respondCode(w, r, http.StatusUnauthorized, CodeTokenExpired, "Token expired")
		} else {
			g.respondCode(w, r, http.StatusUnauthorized, CodeTokenInvalid, "Invalid token")
		}
		return nil, false
	}

	user, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		g.logger.ErrorContext(ctx, "Failed to load user for token", slog.String("userID", claims.UserID), slog.String("error", err.Error()))
		g.respondError(w, r, http.StatusInternalServerError, "Error verifying token")
		return nil, false
	}
	if user == nil || !user.IsActive {
		g.logger.WarnContext(ctx, "Token for missing or deactivated user", slog.String("userID", claims.UserID))
		g.respondCode(w, r, http.StatusUnauthorized, CodeTokenInvalid, "Invalid token or user not found")
		return nil, false
	}

	g.logger.DebugContext(ctx, "Token validated successfully", slog.String("userID", user.ID), slog.String("role", string(user.Role)))
	return user, true
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" value.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// statusRecorder remembers the status code written by the next handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func recordStatus(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func recoverPanic(res responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					w.Header().Set("Connection", "close")
					res.logger.ErrorContext(r.Context(), "Recovered from panic", slog.String("error", fmt.Sprint(err)), slog.String("path", r.URL.Path))
					res.respondError(w, r, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func logRequests(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := recordStatus(w)
			next.ServeHTTP(rec, r)
			logger.InfoContext(r.Context(), "HTTP request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		})
	}
}

// cors answers preflights and sets the allow headers for listed origins.
// A "*" entry allows any origin.
func cors(allowed []string) func(http.Handler) http.Handler {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[strings.TrimSpace(o)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (origins[origin] || origins["*"]) {
				h := w.Header()
				h.Add("Vary", "Origin")
				if origins[origin] {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
				} else {
					// Wildcard matches never carry credentials.
					h.Set("Access-Control-Allow-Origin", "*")
				}
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ipRateLimiter keeps one token bucket per client IP. Idle clients are swept
// on the request path, at most once a minute.
type ipRateLimiter struct {
	responder
	mu        sync.Mutex
	clients   map[string]*rateClient
	rps       rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(rps float64, burst int, logger *slog.Logger) *ipRateLimiter {
	return &ipRateLimiter{
		responder: responder{logger: logger},
		clients:   make(map[string]*rateClient),
		rps:       rate.Limit(rps),
		burst:     burst,
		now:       time.Now,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > time.Minute {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > 3*time.Minute {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, found := l.clients[ip]
	if !found {
		c = &rateClient{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *ipRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.allow(ip) {
			l.logger.WarnContext(r.Context(), "Rate limit exceeded", slog.String("ip", ip))
			l.respondCode(w, r, http.StatusTooManyRequests, CodeRateLimited, "Too many requests from this IP, please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
