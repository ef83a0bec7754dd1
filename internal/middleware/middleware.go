package middleware

import (
	"context"
	"net/http"

	"github.com/gestao-usuarios/backend/internal/logger"
	"github.com/gestao-usuarios/backend/internal/permissions"
	"github.com/gestao-usuarios/backend/internal/utils"
)

// TokenResolver resolves a raw Authorization credential to the identity it
// belongs to.
type TokenResolver interface {
	ResolveToken(rawToken string) (utils.Identity, error)
}

// RequireAuth authenticates the request's bearer token and injects the
// resolved identity into the context. Missing, unknown and expired tokens
// all collapse to a single 401; the distinction is logged only.
func RequireAuth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if raw == "" {
				utils.Error(w, http.StatusUnauthorized, "Authentication token required")
				return
			}

			identity, err := resolver.ResolveToken(raw)
			if err != nil {
				lg := logger.Get()
				lg.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
				utils.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), utils.ContextIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission authorizes the already-authenticated identity for one
// action. It must run after RequireAuth: an unauthenticated caller gets a
// 401 and never learns whether the action would have been allowed.
func RequirePermission(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := utils.GetIdentityFromContext(r.Context())
			if !ok {
				utils.Error(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			if !permissions.HasPermission(identity.Role, identity.IsActive, action) {
				utils.Error(w, http.StatusForbidden, "Insufficient permission")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

var allowed = map[string]struct{}{
	"http://localhost:5173": {},
	"http://localhost:5174": {},
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Echo the origin back only if it's on our allow-list
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin") // important for caches
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods",
				"GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers",
				"Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
