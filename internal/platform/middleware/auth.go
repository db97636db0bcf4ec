package middleware

import (
	"log/slog"
	"net/http"

	"casedesk/pkg/requestcontext"
)

// Identity headers set by the upstream identity provider. The engine trusts
// them as-is; session management lives outside this service.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// RequireActor rejects requests without an actor identity and stores the
// actor and role in the request context.
func RequireActor(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actorID := r.Header.Get(HeaderActorID)
			role := requestcontext.Role(r.Header.Get(HeaderActorRole))
			if role == "" {
				role = requestcontext.RoleApplicant
			}
			if actorID == "" || !role.Valid() {
				logger.WarnContext(ctx, "unauthorized access - missing or invalid actor",
					"request_id", requestcontext.RequestID(ctx),
					"role", string(role),
				)
				writeAuthError(w, http.StatusUnauthorized, `{"error":"unauthorized","error_description":"actor identity required"}`)
				return
			}
			ctx = requestcontext.WithActor(ctx, actorID, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff allows only reviewer and admin roles through.
func RequireStaff(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !requestcontext.ActorRole(ctx).IsStaff() {
				logger.WarnContext(ctx, "forbidden - reviewer role required",
					"request_id", requestcontext.RequestID(ctx),
					"actor_id", requestcontext.ActorID(ctx),
				)
				writeAuthError(w, http.StatusForbidden, `{"error":"forbidden","error_description":"reviewer role required"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
