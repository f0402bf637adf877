package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func status(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestRequireMethodsAllowsConfiguredMethod(t *testing.T) {
	t.Parallel()

	h := RequireMethods(" post ")(status(http.StatusNoContent))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestRequireMethodsRejectsUnexpectedMethod(t *testing.T) {
	t.Parallel()

	h := RequireMethods(http.MethodPost, http.MethodGet)(status(http.StatusNoContent))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/x", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if got := w.Header().Get("Allow"); got != "GET, POST" {
		t.Fatalf("Allow header = %q, want %q", got, "GET, POST")
	}
}

func TestMethodsDispatchAndOptions(t *testing.T) {
	t.Parallel()

	m := Methods{
		http.MethodGet:  status(http.StatusOK),
		http.MethodPost: status(http.StatusAccepted),
	}

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodPost, http.StatusAccepted},
		{http.MethodOptions, http.StatusNoContent},
		{http.MethodPut, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		m.ServeHTTP(w, httptest.NewRequest(tt.method, "/api/mode", nil))
		if w.Code != tt.want {
			t.Fatalf("%s status = %d, want %d", tt.method, w.Code, tt.want)
		}
	}
}
