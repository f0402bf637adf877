// Package fsys mounts the directory holding the prebuilt web bundle.
package fsys

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Bundle is a mounted web bundle root.
type Bundle struct {
	Root string
	FS   fs.FS
}

// Mount makes root available, creating it when missing so an empty device
// still boots.
func Mount(root string) (*Bundle, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving bundle root: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("creating bundle root: %w", err)
		}
		slog.Warn("bundle root missing, created empty", slog.String("root", abs))
	case err != nil:
		return nil, fmt.Errorf("stat bundle root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("bundle root %s is not a directory", abs)
	}

	slog.Info("bundle mounted", slog.String("root", abs))
	return &Bundle{Root: abs, FS: os.DirFS(abs)}, nil
}

// Listing is the diagnostic view of a bundle.
type Listing struct {
	Assets   []string
	HasIndex bool
}

// ListAssets logs the files under assets/ and whether an index page exists.
// It never fails the boot; a missing assets directory yields an empty list.
func (b *Bundle) ListAssets() Listing {
	var l Listing

	entries, err := fs.ReadDir(b.FS, "assets")
	if err != nil {
		slog.Warn("asset directory unreadable", slog.String("err", err.Error()))
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		l.Assets = append(l.Assets, e.Name())
	}
	sort.Strings(l.Assets)

	for _, name := range []string{"index.html", "index.html.gz"} {
		if _, err := fs.Stat(b.FS, name); err == nil {
			l.HasIndex = true
			break
		}
	}

	for _, a := range l.Assets {
		slog.Debug("asset", slog.String("name", a))
	}
	slog.Info("bundle listing",
		slog.Int("assets", len(l.Assets)),
		slog.Bool("index", l.HasIndex),
	)
	return l
}
