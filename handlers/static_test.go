package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
)

func testBundle() fstest.MapFS {
	return fstest.MapFS{
		"index.html":         {Data: []byte("<html></html>")},
		"assets/app.js.gz":   {Data: []byte("\x1f\x8bgzipped-js")},
		"assets/style.css":   {Data: []byte("body{}")},
		"assets/logo.svg.gz": {Data: []byte("\x1f\x8bsvg")},
		"assets/data.bin":    {Data: []byte("raw")},
	}
}

func TestStaticServesGzipFallback(t *testing.T) {
	t.Parallel()
	h := NewStaticHandler(testBundle())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets/app.js?v=3", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	if got := w.Header().Get("Content-Type"); got != "application/javascript" {
		t.Fatalf("Content-Type = %q, want application/javascript", got)
	}
	if w.Body.String() != "\x1f\x8bgzipped-js" {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestStaticRoutes(t *testing.T) {
	t.Parallel()
	h := NewStaticHandler(testBundle())

	tests := []struct {
		path     string
		status   int
		ctype    string
		encoding string
	}{
		{path: "/", status: http.StatusOK, ctype: "text/html"},
		{path: "/assets/style.css", status: http.StatusOK, ctype: "text/css"},
		{path: "/assets/logo.svg.gz", status: http.StatusOK, ctype: "image/svg+xml", encoding: "gzip"},
		{path: "/assets/data.bin", status: http.StatusOK, ctype: "text/plain"},
		{path: "/assets/missing.js", status: http.StatusNotFound},
		{path: "/assets/../../etc/passwd", status: http.StatusNotFound},
		{path: "/assets", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.status {
			t.Fatalf("%s: status = %d, want %d", tt.path, w.Code, tt.status)
		}
		if tt.status != http.StatusOK {
			continue
		}
		if got := w.Header().Get("Content-Type"); got != tt.ctype {
			t.Fatalf("%s: Content-Type = %q, want %q", tt.path, got, tt.ctype)
		}
		if got := w.Header().Get("Content-Encoding"); got != tt.encoding {
			t.Fatalf("%s: Content-Encoding = %q, want %q", tt.path, got, tt.encoding)
		}
	}
}

func TestMimeFor(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"a.js.gz":   "application/javascript",
		"A.PNG":     "image/png",
		"x.jpeg":    "image/jpeg",
		"m.wasm.gz": "application/wasm",
		"README":    "text/plain",
	}
	for in, want := range tests {
		if got := mimeFor(in); got != want {
			t.Fatalf("mimeFor(%q) = %q, want %q", in, got, want)
		}
	}
}
