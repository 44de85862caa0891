package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/workspace-sync/internal/api/middleware"
	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/Rrens/workspace-sync/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uidEcho(t *testing.T, want int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := middleware.GetUID(r.Context())
		assert.True(t, ok)
		assert.Equal(t, want, uid)
		w.WriteHeader(http.StatusNoContent)
	})
}

type fakeSessions struct {
	session *domain.Session
	err     error
}

func (f *fakeSessions) CurrentSession(ctx context.Context) (*domain.Session, error) {
	return f.session, f.err
}

func TestAuthenticate(t *testing.T) {
	manager := security.NewJWTManager("test-secret-key-with-32-chars!!", time.Hour)
	sessions := &fakeSessions{session: &domain.Session{UserID: 7}}
	auth := middleware.NewAuthMiddleware(manager, sessions)
	token, err := manager.GenerateAccessToken(7, uuid.New(), "device")
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		auth.Authenticate(uidEcho(t, 7)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("query token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?access_token="+token, nil)
		rec := httptest.NewRecorder()

		auth.Authenticate(uidEcho(t, 7)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		auth.Authenticate(uidEcho(t, 7)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token "+token)
		rec := httptest.NewRecorder()

		auth.Authenticate(uidEcho(t, 7)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("session held by another user", func(t *testing.T) {
		sessions.session = &domain.Session{UserID: 8}
		defer func() { sessions.session = &domain.Session{UserID: 7} }()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		auth.Authenticate(uidEcho(t, 7)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("signed out", func(t *testing.T) {
		sessions.session, sessions.err = nil, domain.ErrSessionMissing
		defer func() { sessions.session, sessions.err = &domain.Session{UserID: 7}, nil }()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		auth.Authenticate(uidEcho(t, 7)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()

		auth.Authenticate(uidEcho(t, 7)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestWorkspaceContext(t *testing.T) {
	r := chi.NewRouter()
	r.With(middleware.WorkspaceContext).Get("/workspaces/{workspaceID}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.GetWorkspaceID(r.Context())
		assert.True(t, ok)
		w.Write([]byte(id))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/workspaces/abc", nil))
	assert.Equal(t, "abc", rec.Body.String())
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	f.keys = append(f.keys, key)
	return f.allowed, 3, time.Unix(0, 0), f.err
}

func withUID(r *http.Request, uid int64) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.UIDKey, uid))
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("allowed", func(t *testing.T) {
		limiter := &fakeLimiter{allowed: true}
		rec := httptest.NewRecorder()
		middleware.NewRateLimitMiddleware(limiter, "import").Limit(ok).ServeHTTP(rec, withUID(httptest.NewRequest(http.MethodPost, "/", nil), 7))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, []string{"import:7"}, limiter.keys)
	})

	t.Run("denied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		middleware.NewRateLimitMiddleware(&fakeLimiter{}, "import").Limit(ok).ServeHTTP(rec, withUID(httptest.NewRequest(http.MethodPost, "/", nil), 7))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("limiter failure lets request through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		middleware.NewRateLimitMiddleware(&fakeLimiter{err: errors.New("down")}, "import").Limit(ok).ServeHTTP(rec, withUID(httptest.NewRequest(http.MethodPost, "/", nil), 7))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestLogger_PassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
