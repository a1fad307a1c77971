package server

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/sheet-extractor/constants"
	"github.com/joseph-ayodele/sheet-extractor/internal/ingest"
)

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := ingest.TimestampFromFilename(name); !ok {
		http.NotFound(w, r)
		return
	}
	path, err := s.Images.Path(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.serveFile(w, r, path, "")
}

func (s *Server) serveSheet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !constants.IsSheetFilename(name) {
		http.NotFound(w, r)
		return
	}
	path, err := s.Exporter.Path(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.serveFile(w, r, path, name)
}

// serveFile streams path; a non-empty attachment name forces a download.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path, attachment string) {
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.Logger.Warn("http.file.stat_error", "path", path, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	if attachment != "" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+attachment+`"`)
	}
	http.ServeFile(w, r, path)
}
