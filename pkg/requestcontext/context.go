// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the acting user, their role and the request ID; handlers and
// orchestration code read them back without importing net/http.
//
//	ctx = requestcontext.WithActor(ctx, "u-123", requestcontext.RoleReviewer)
//	actor := requestcontext.ActorID(ctx)
package requestcontext

import "context"

// Role is the caller's role as asserted by the identity provider. The engine
// never checks it; transports use it to gate reviewer-only routes.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleReviewer  Role = "reviewer"
	RoleAdmin     Role = "admin"
)

// IsStaff reports whether the role may perform review operations.
func (r Role) IsStaff() bool {
	return r == RoleReviewer || r == RoleAdmin
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleApplicant, RoleReviewer, RoleAdmin:
		return true
	}
	return false
}

type (
	actorIDKey   struct{}
	roleKey      struct{}
	requestIDKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyActorID   = actorIDKey{}
	ContextKeyRole      = roleKey{}
	ContextKeyRequestID = requestIDKey{}
)

// ActorID retrieves the acting user ID, or "" when unauthenticated.
func ActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(ContextKeyActorID).(string); ok {
		return actorID
	}
	return ""
}

// ActorRole retrieves the acting user's role, or "" when unauthenticated.
func ActorRole(ctx context.Context) Role {
	if role, ok := ctx.Value(ContextKeyRole).(Role); ok {
		return role
	}
	return ""
}

// WithActor injects the acting user and role.
func WithActor(ctx context.Context, actorID string, role Role) context.Context {
	ctx = context.WithValue(ctx, ContextKeyActorID, actorID)
	return context.WithValue(ctx, ContextKeyRole, role)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}
