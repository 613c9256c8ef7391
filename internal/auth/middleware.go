package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/wisbric/netguard/internal/db"
)

// Middleware authenticates the caller via a Bearer token — an upstream OIDC
// JWT presented directly by a tool caller — and attaches the resolved
// Identity to the request context. Self-issued session JWTs are not accepted
// here. If oidcAuth is nil, every request is rejected with 401.
func Middleware(oidcAuth *OIDCAuthenticator, dbtx db.DBTX, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") && !strings.HasPrefix(authHeader, "bearer ") {
				respondErr(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			if oidcAuth == nil {
				logger.Warn("bearer token presented but OIDC is not configured")
				respondErr(w, http.StatusUnauthorized, "unauthorized", "authentication is not configured")
				return
			}

			claims, err := oidcAuth.Authenticate(r.Context(), authHeader)
			if err != nil {
				logger.Warn("OIDC authentication failed", "error", err)
				respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			identity, err := LoadIdentity(r.Context(), dbtx, claims.Subject)
			if err != nil {
				logger.Warn("identity lookup failed", "subject", claims.Subject, "error", err)
				respondErr(w, http.StatusUnauthorized, "unauthorized", "unknown subject")
				return
			}

			if !identity.Active {
				respondErr(w, http.StatusForbidden, "forbidden", "user is not active")
				return
			}

			logger.Debug("authenticated", "sub", identity.Subject, "role", identity.Role)

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that have no authenticated identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			respondErr(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
