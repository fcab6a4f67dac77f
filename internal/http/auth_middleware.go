package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/LuisErlacher/Archon/internal/domain"
	"github.com/LuisErlacher/Archon/internal/service/auth"
)

type authContextKey string

const contextKeyUser authContextKey = "archon-auth-user"

// Paths reachable without a token when the gate is enabled.
var (
	publicPaths = map[string]struct{}{
		"/health":       {},
		"/docs":         {},
		"/redoc":        {},
		"/openapi.json": {},
	}
	publicPrefixes = []string{"/api/auth/"}
)

type contextSetter interface {
	SetContext(context.Context)
}

func isPublicPath(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// gate requires a valid bearer token on every non-public path.
func (r *Router) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if isPublicPath(req.URL.Path) {
			next.ServeHTTP(w, req)
			return
		}
		ctx, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// requireAuth ensures the request has a valid bearer token before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if _, ok := userFromContext(req.Context()); ok {
			next(w, req)
			return
		}
		ctx, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the Authorization header and attaches the user to the request context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, bool) {
	user, err := r.auth.RequireAuth(req.Context(), req.Header.Get("Authorization"))
	if err != nil {
		var unauthorized *auth.UnauthorizedError
		if errors.As(err, &unauthorized) {
			r.logger.Warn("authentication rejected", "error", err, "path", req.URL.Path)
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, unauthorized.Detail)
			return req.Context(), false
		}
		r.logger.Error("authentication error", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "Authentication error: "+err.Error())
		return req.Context(), false
	}
	ctx := context.WithValue(req.Context(), contextKeyUser, user)
	if setter, ok := w.(contextSetter); ok {
		setter.SetContext(ctx)
	}
	return ctx, true
}

// userFromContext extracts the authenticated user attached by the gate.
func userFromContext(ctx context.Context) (*domain.AuthenticatedUser, bool) {
	user, ok := ctx.Value(contextKeyUser).(*domain.AuthenticatedUser)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
