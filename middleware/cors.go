package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// CORS answers cross-origin requests from the configured origins. With no
// origins configured it is a pass-through, which is the normal case for a
// bundle served from the device itself.
type CORS struct {
	origins []string
	methods string
	headers string
}

func NewCORS(originsCSV, methods, headers string) *CORS {
	c := &CORS{methods: methods, headers: headers}
	for _, o := range strings.Split(originsCSV, ",") {
		if v := strings.TrimSpace(o); v != "" {
			c.origins = append(c.origins, v)
		}
	}
	return c
}

func (c *CORS) allowed(origin string) string {
	if slices.Contains(c.origins, "*") {
		return "*"
	}
	if slices.Contains(c.origins, origin) {
		return origin
	}
	return ""
}

func (c *CORS) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || len(c.origins) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		if allow := c.allowed(origin); allow != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			h.Set("Access-Control-Allow-Methods", c.methods)
			h.Set("Access-Control-Allow-Headers", c.headers)
			if allow != "*" {
				h.Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
