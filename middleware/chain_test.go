package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDAndLogging(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID(Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
		_, _ = w.Write([]byte("ok"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if seen == "" || w.Header().Get("X-Request-ID") != seen {
		t.Fatalf("request id = %q, header = %q", seen, w.Header().Get("X-Request-ID"))
	}
}

func TestRequestIDKeepsClientID(t *testing.T) {
	t.Parallel()

	const id = "0b6f2c1e-8d7a-4f43-9b0e-2f8a4c5d6e7f"
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", id)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != id {
		t.Fatalf("X-Request-ID = %q, want %q", got, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got == "not-a-uuid" || got == "" {
		t.Fatalf("X-Request-ID = %q, want a fresh id", got)
	}
}

func TestLoggingKeepsFlusher(t *testing.T) {
	t.Parallel()

	flushed := false
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("bye"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
			flushed = true
		}
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/wifi_config", nil))
	if !flushed || !w.Flushed {
		t.Fatalf("flushed = %v, recorder flushed = %v", flushed, w.Flushed)
	}
}

func TestRecoverReturnsJSON500(t *testing.T) {
	t.Parallel()

	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/mode", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	c := NewCORS("http://app.local", "GET,POST,OPTIONS", "Authorization,Content-Type")
	h := c.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "http://app.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://app.local" {
		t.Fatalf("allow origin = %q", got)
	}

	other := httptest.NewRequest(http.MethodGet, "/api/mode", nil)
	other.Header.Set("Origin", "http://evil.local")
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, other)
	if w2.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow origin for unlisted origin")
	}
	if w2.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want passthrough", w2.Code)
	}
}

func TestRouteLabel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/assets/app.js": "/assets/*",
		"/api/login":     "/api/login",
		"/":              "/",
		"/favicon.ico":   "other",
		"/wifi_config":   "/wifi_config",
	}
	for in, want := range tests {
		if got := routeLabel(in); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
