package middleware

import (
	"errors"
	"net/http"

	"doorbell-core/metrics"
	"doorbell-core/session"
)

// LoginRateLimit charges every request against the guard's login window
// before the body is read, so malformed requests count too.
func LoginRateLimit(guard *session.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if err := guard.Allow(r.Context()); err != nil {
				if errors.Is(err, session.ErrRateLimited) {
					metrics.AuthRateLimited(r.URL.Path)
				}
				WriteSessionError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
