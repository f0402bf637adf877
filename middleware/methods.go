package middleware

import (
	"net/http"
	"sort"
	"strings"

	"doorbell-core/utils"
)

// Methods routes one path by request method. OPTIONS requests that reach it
// (CORS preflights are answered earlier) get 204 with the Allow list; other
// unlisted methods get 405.
type Methods map[string]http.Handler

func (m Methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.Method]; ok {
		h.ServeHTTP(w, r)
		return
	}

	w.Header().Set("Allow", m.allow())
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (m Methods) allow() string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// RequireMethods sends the listed methods to next and rejects the rest.
func RequireMethods(methods ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		m := make(Methods, len(methods))
		for _, name := range methods {
			m[strings.ToUpper(strings.TrimSpace(name))] = next
		}
		return m
	}
}
