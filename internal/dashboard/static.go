package dashboard

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// handleStatic serves the web UI from the configured directory.
//
// GET /*
//
// Existing files are served as they are. Any other path gets index.html so
// the single-page app can route on the client.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r.URL.Path) {
		s.handleNotFound(w, r)
		return
	}

	name := filepath.Join(s.staticDir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		http.ServeFile(w, r, name)
		return
	}

	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		s.handleNotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}
