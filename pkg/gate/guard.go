// pkg/gate/guard.go
package gate

import (
	"net/http"

	"github.com/joeydtaylor/steeze-auth/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-auth/pkg/realm"
)

// withGuard layers the route's role requirement on top of authentication.
// Anonymous callers get 401; authenticated callers missing a required role
// get 403 with the missing_role reason. Role checking consumes the decoded
// token only; the trust pipeline itself knows nothing about roles.
func withGuard(next http.Handler, g realm.Guard) http.Handler {
	if g.Empty() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			auth.WriteRejection(w, auth.FailureMissingCredentials)
			return
		}
		for _, role := range g.RealmRoles {
			if !tok.HasRealmRole(role) {
				auth.WriteRejection(w, auth.FailureMissingRole)
				return
			}
		}
		for client, roles := range g.ClientRoles {
			for _, role := range roles {
				if !tok.HasClientRole(client, role) {
					auth.WriteRejection(w, auth.FailureMissingRole)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRealmRoles is the standalone guard form for callers wiring their
// own routers.
func RequireRealmRoles(roles ...string) func(http.Handler) http.Handler {
	g := realm.Guard{RequireAuth: true, RealmRoles: roles}
	return func(next http.Handler) http.Handler { return withGuard(next, g) }
}

// RequireClientRoles guards on roles granted for a specific client.
func RequireClientRoles(client string, roles ...string) func(http.Handler) http.Handler {
	g := realm.Guard{RequireAuth: true, ClientRoles: map[string][]string{client: roles}}
	return func(next http.Handler) http.Handler { return withGuard(next, g) }
}
