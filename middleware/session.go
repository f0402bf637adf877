package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"doorbell-core/session"
	"doorbell-core/utils"
)

// BearerToken returns the token from an "Authorization: Bearer <token>"
// header, or "" when the header is absent, malformed or oversized.
func BearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	token = strings.TrimSpace(token)
	if len(token) > session.MaxTokenLength {
		return ""
	}
	return token
}

// RequireSession rejects requests without the active session token and puts
// the session user in the request context.
func RequireSession(guard *session.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := guard.Authorize(BearerToken(r))
			if err != nil {
				WriteSessionError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

func UserFrom(ctx context.Context) (session.User, bool) {
	u, ok := ctx.Value(userKey).(session.User)
	return u, ok
}

// WriteSessionError maps guard errors to their HTTP response.
func WriteSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrRateLimited):
		utils.WriteError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, session.ErrNotLoggedIn),
		errors.Is(err, session.ErrMissingToken),
		errors.Is(err, session.ErrInvalidToken),
		errors.Is(err, session.ErrInvalidCredentials):
		utils.WriteError(w, http.StatusUnauthorized, err.Error())
	default:
		utils.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
