package httpx

import "context"

type ctxKey string

const (
	// CtxKeyPrincipalID carries the authenticated principal id.
	CtxKeyPrincipalID ctxKey = "principal_id"
	// CtxKeyRole carries the authenticated principal's role name.
	CtxKeyRole ctxKey = "role"
)

// WithPrincipal attaches the authenticated identity to the context.
func WithPrincipal(ctx context.Context, principalID, role string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyPrincipalID, principalID)
	return context.WithValue(ctx, CtxKeyRole, role)
}

// PrincipalIDFromCtx returns the authenticated principal id, if any.
func PrincipalIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyPrincipalID).(string); ok {
		return v
	}
	return ""
}

// RoleFromCtx returns the authenticated principal's role name, if any.
func RoleFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyRole).(string); ok {
		return v
	}
	return ""
}
