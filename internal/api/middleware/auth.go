package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/workspace-sync/internal/api/response"
	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/Rrens/workspace-sync/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	UIDKey         contextKey = "uid"
	DeviceIDKey    contextKey = "deviceID"
	WorkspaceIDKey contextKey = "workspaceID"
)

// AuthMiddleware handles JWT authentication. A token is only honoured while
// its uid holds the current session.
type AuthMiddleware struct {
	jwtManager *security.JWTManager
	sessions   domain.SessionProvider
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *security.JWTManager, sessions domain.SessionProvider) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager, sessions: sessions}
}

// Authenticate validates the JWT token. Browsers cannot set headers on a
// websocket handshake, so the token is also accepted as ?access_token=.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("access_token")

		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.Error(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}
			token = parts[1]
		}

		if token == "" {
			response.Error(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		claims, err := m.jwtManager.ValidateAccessToken(token)
		if err != nil {
			response.Unauthorized(w, "invalid or expired token: "+err.Error())
			return
		}

		session, err := m.sessions.CurrentSession(r.Context())
		if err != nil {
			response.FromError(w, err)
			return
		}
		if session.UserID != claims.UID {
			response.Unauthorized(w, "token does not belong to the current session")
			return
		}

		ctx := context.WithValue(r.Context(), UIDKey, claims.UID)
		ctx = context.WithValue(ctx, DeviceIDKey, claims.DeviceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUID gets the local user id from context
func GetUID(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(UIDKey).(int64)
	return uid, ok
}

// GetWorkspaceID gets the workspace ID from context
func GetWorkspaceID(ctx context.Context) (string, bool) {
	workspaceID, ok := ctx.Value(WorkspaceIDKey).(string)
	return workspaceID, ok
}

// WorkspaceContext extracts workspace ID from URL and adds to context
func WorkspaceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workspaceID := strings.TrimSpace(chi.URLParam(r, "workspaceID"))
		if workspaceID == "" {
			response.Error(w, http.StatusBadRequest, "missing workspace ID")
			return
		}

		ctx := context.WithValue(r.Context(), WorkspaceIDKey, workspaceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Limiter counts requests against a key
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, int, time.Time, error)
}

// RateLimitMiddleware handles rate limiting
type RateLimitMiddleware struct {
	rateLimiter Limiter
	scope       string
}

// NewRateLimitMiddleware creates a new rate limit middleware. Keys are
// prefixed with scope so separate routes keep separate counters.
func NewRateLimitMiddleware(rateLimiter Limiter, scope string) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, scope: scope}
}

// Limit applies rate limiting based on the local user id
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := GetUID(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		allowed, remaining, resetTime, err := m.rateLimiter.Allow(r.Context(), m.scope+":"+strconv.FormatInt(uid, 10))
		if err != nil {
			log.Warn().Err(err).Int64("uid", uid).Msg("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", resetTime.UTC().Format(time.RFC3339))

		if !allowed {
			response.TooManyRequests(w, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
