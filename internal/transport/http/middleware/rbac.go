package middleware

import (
	"context"
	"net/http"

	"staffdesk/internal/domain/access"
	"staffdesk/internal/domain/auth"
	"staffdesk/internal/transport/http/api"
)

type roleCtxKey struct{}

// RequireRoles runs the routing guard before the handler. With no roles
// listed any signed-in account with a resolved role passes.
func RequireRoles(resolver *access.Resolver, roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSession(r.Context())
			role, decision := resolver.Check(r.Context(), session, ok, roles...)

			switch decision {
			case access.RedirectLogin:
				api.FailWithDetails(w, http.StatusUnauthorized, "unauthenticated", "authentication required",
					map[string]any{"redirect": decision.Target()}, GetRequestID(r.Context()))
				return
			case access.RedirectHome:
				api.FailWithDetails(w, http.StatusForbidden, "forbidden", "insufficient role",
					map[string]any{"redirect": decision.Target()}, GetRequestID(r.Context()))
				return
			}

			ctx := context.WithValue(r.Context(), roleCtxKey{}, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRole returns the role resolved by RequireRoles.
func GetRole(ctx context.Context) (auth.Role, bool) {
	role, ok := ctx.Value(roleCtxKey{}).(auth.Role)
	return role, ok
}
