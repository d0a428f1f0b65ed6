package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/reachops/outreach-gateway/internal/pkg/logger"
	"github.com/reachops/outreach-gateway/internal/scope"
)

// Authenticator resolves the bearer identity of an operator request.
// Implementations (API keys, sessions, SSO) live outside this package.
type Authenticator interface {
	Authenticate(r *http.Request) (scope.AuthContext, error)
}

type ctxKey int

const authCtxKey ctxKey = iota

// requestTracing normalizes the inbound correlation id and echoes it back.
// X-Request-ID wins over X-Correlation-ID; with neither a UUID is minted.
// The request header is rewritten so middleware.RequestID lifts the same
// value into the context for handlers and logs.
func requestTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = r.Header.Get("X-Correlation-ID")
		}
		if id == "" {
			id = uuid.New().String()
		}
		r.Header.Set(middleware.RequestIDHeader, id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// requestLogger emits one structured line per request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// requireAuth authenticates the request and stows the AuthContext.
func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.auth == nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		auth, err := h.auth.Authenticate(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), authCtxKey, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSuperAdmin gates platform-operator routes. Runs after requireAuth.
func requireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := authFrom(r.Context())
		if auth.Role != scope.RoleOrgAdmin || !auth.SuperAdmin {
			respondError(w, http.StatusForbidden, "super-admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authFrom(ctx context.Context) scope.AuthContext {
	auth, _ := ctx.Value(authCtxKey).(scope.AuthContext)
	return auth
}
