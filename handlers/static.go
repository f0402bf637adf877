package handlers

import (
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"doorbell-core/utils"
)

const maxURILength = 2048

var mimeTypes = map[string]string{
	".html": "text/html",
	".js":   "application/javascript",
	".css":  "text/css",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".ico":  "image/x-icon",
	".wasm": "application/wasm",
}

// mimeFor derives the content type from name, ignoring a trailing .gz.
func mimeFor(name string) string {
	name = strings.TrimSuffix(name, ".gz")
	if ct, ok := mimeTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "text/plain"
}

// StaticHandler serves the prebuilt web bundle. A precompressed <file>.gz is
// preferred over <file> and sent with Content-Encoding: gzip.
type StaticHandler struct {
	FS fs.FS
}

func NewStaticHandler(fsys fs.FS) *StaticHandler {
	return &StaticHandler{FS: fsys}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	if p == "" || len(p) > maxURILength {
		utils.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	if name == "" {
		name = "index.html"
	}
	if !fs.ValidPath(name) {
		utils.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	candidates := []string{name + ".gz", name}
	if strings.HasSuffix(name, ".gz") {
		candidates = []string{name}
	}
	for _, c := range candidates {
		if h.serveFile(w, r, c, mimeFor(name), strings.HasSuffix(c, ".gz")) {
			return
		}
	}
	utils.WriteError(w, http.StatusNotFound, "not found")
}

// serveFile reports false if name does not exist as a regular file.
func (h *StaticHandler) serveFile(w http.ResponseWriter, r *http.Request, name, contentType string, gzipped bool) bool {
	f, err := h.FS.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	hdr := w.Header()
	hdr.Set("Content-Type", contentType)
	hdr.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	if gzipped {
		hdr.Set("Content-Encoding", "gzip")
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return true
	}
	if _, err := io.Copy(w, f); err != nil {
		slog.Warn("static send interrupted", slog.String("file", name), slog.String("err", err.Error()))
	}
	return true
}
