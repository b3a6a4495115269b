package httpui

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
)

//go:embed static
var embedded embed.FS

var (
	staticFS     fs.FS
	staticFSInit sync.Once
	staticFSErr  error
)

func ensureStaticFS() error {
	staticFSInit.Do(func() {
		staticFS, staticFSErr = fs.Sub(embedded, "static")
	})
	return staticFSErr
}

func registerAssetRoutes(mux *http.ServeMux) error {
	if err := ensureStaticFS(); err != nil {
		return fmt.Errorf("embed static: %w", err)
	}
	mux.HandleFunc("GET /static/{path...}", serveStatic)
	return nil
}

func serveStatic(w http.ResponseWriter, r *http.Request) {
	if !serveStaticPath(w, r, r.PathValue("path")) {
		http.NotFound(w, r)
	}
}

func serveStaticPath(w http.ResponseWriter, r *http.Request, filePath string) bool {
	if ensureStaticFS() != nil {
		return false
	}

	clean := strings.TrimPrefix(path.Clean("/"+filePath), "/")
	if clean == "." || clean == "" {
		return false
	}

	f, err := staticFS.Open(clean)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	content, ok := f.(io.ReadSeeker)
	if !ok {
		return false
	}

	// ServeFileFS would redirect .../index.html to the directory.
	http.ServeContent(w, r, info.Name(), info.ModTime(), content)
	return true
}
