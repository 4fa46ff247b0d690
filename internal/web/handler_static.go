package web

import (
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	loginPage     = "/admin/login.html"
	dashboardPage = "/admin/dashboard.html"
	indexFile     = "index.html"
)

// siteFile maps a URL path to a regular file in the site root, or "" when
// there is none.
func (s *Server) siteFile(urlPath string) string {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" || !fs.ValidPath(name) {
		return ""
	}
	info, err := fs.Stat(s.site, name)
	if err != nil || info.IsDir() {
		return ""
	}
	return name
}

// handleStatic serves files from the site root and falls back to the entry
// page for every unknown path.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := s.siteFile(r.URL.Path)
	if name == "" {
		name = indexFile
	}
	http.ServeFileFS(w, r, s.site, name)
}

func (s *Server) handleAdminStatic(w http.ResponseWriter, r *http.Request) {
	name := s.siteFile(r.URL.Path)
	if name == "" {
		http.Error(w, "Admin page not found", http.StatusNotFound)
		return
	}
	http.ServeFileFS(w, r, s.site, name)
}

// handleLoginPage sends visitors who are already signed in on to the
// dashboard.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(r); ok {
		http.Redirect(w, r, dashboardPage, http.StatusSeeOther)
		return
	}
	s.handleAdminStatic(w, r)
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	s.handleAdminStatic(w, r)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		http.NotFound(w, r)
		return
	}
	key := chi.URLParam(r, "*")
	reader, mimeType, err := s.media.Open(r.Context(), key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "media reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	// Blob keys are never reused.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write media failed", "key", key, "error", err)
	}
}
