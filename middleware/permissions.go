package middleware

import (
	"net/http"
	"slices"

	"doorbell-core/utils"
)

// RequireRole must run after RequireSession.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, "not logged in")
				return
			}
			if !slices.Contains(roles, user.Role) {
				utils.WriteError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
