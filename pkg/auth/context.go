package auth

import (
	"context"
)

// Schlüsselkonstante für die Identität im Kontext
type contextKey string

const identityKey contextKey = "vault_identity"

// NewContextWithIdentity returns a context carrying identity.
func NewContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext extracts the identity stored by RequireToken.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok && identity != nil
}

// SessionIDFromContext returns the session id of the caller or "" when the
// context is unauthenticated.
func SessionIDFromContext(ctx context.Context) string {
	if identity, ok := IdentityFromContext(ctx); ok {
		return identity.SessionID
	}
	return ""
}
