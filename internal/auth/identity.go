// Package auth implements the authorization gate: resolving an authenticated
// caller's role and device scope, and checking a tool invocation's required
// permission against both.
package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Identity is the authenticated caller, attached to the request context by
// Middleware.
type Identity struct {
	UserID       uuid.UUID
	Subject      string // OIDC sub
	Role         string
	DeviceScopes []uuid.UUID // empty means unrestricted
	Active       bool
}

type contextKey string

const identityKey contextKey = "identity"

// FromContext extracts the Identity the middleware attached, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// WithIdentity returns a context carrying id, for tests and internal calls.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func respondErr(w http.ResponseWriter, status int, errKind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errKind + `","message":"` + message + `"}`))
}
