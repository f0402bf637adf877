package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"doorbell-core/metrics"
)

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Flush lets handlers push a reply out before they schedule a restart.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// routeLabel keeps metric cardinality bounded for the static bundle.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/assets/"):
		return "/assets/*"
	case strings.HasPrefix(path, "/api/"), path == "/", path == "/health", path == "/metrics", path == "/wifi_config":
		return path
	default:
		return "other"
	}
}

// Logging logs requests with status, duration and request_id.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		elapsed := time.Since(start)

		status := strconv.Itoa(sw.status)
		route := routeLabel(r.URL.Path)
		metrics.ObserveHTTP(r.Method, route, status)
		metrics.ObserveHTTPDuration(r.Method, route, status, elapsed.Seconds())

		slog.Info("http_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Int("bytes", sw.bytes),
			slog.Duration("duration", elapsed),
			slog.String("request_id", RequestIDFrom(r.Context())),
		)
	})
}
