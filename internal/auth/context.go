// Package auth carries the caller identity established by the external auth
// service through request contexts. The engine performs no authentication of
// its own beyond verifying the token signature.
package auth

import "context"

// RoleOperator marks service-to-service and operator callers that may hit
// the admin surface.
const RoleOperator = "operator"

type contextKey struct{}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// UserID returns the authenticated user id, or "" when unauthenticated.
func UserID(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return id.UserID
}

// IsOperator reports whether the caller holds the operator role.
func IsOperator(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return id.Role == RoleOperator
}
