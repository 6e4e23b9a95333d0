package server

import (
	"errors"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hupe1980/supportagent/artifact"
	"github.com/hupe1980/supportagent/invocation"
)

type fileResponse struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

type listFilesResponse struct {
	Files []fileResponse `json:"files"`
	Count int            `json:"count"`
	Error string         `json:"error,omitempty"`
}

// handleListFiles never fails the request: listing errors are reported in
// the body next to an empty listing.
func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	infos, err := s.files.List()
	if err != nil {
		s.opts.Logger.Warn("files.list.failed", "error", err)
		writeJSON(w, http.StatusOK, listFilesResponse{Files: []fileResponse{}, Error: err.Error()})
		return
	}

	files := make([]fileResponse, 0, len(infos))
	for _, info := range infos {
		files = append(files, fileResponse{
			Filename: info.Name,
			Size:     info.Size,
			Modified: info.Modified.Local().Format(invocation.TimestampFormat),
		})
	}

	writeJSON(w, http.StatusOK, listFilesResponse{Files: files, Count: len(files)})
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	// chi matches on RawPath when it is set, leaving the segment escaped.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		name = unescaped
	}

	rc, info, err := s.files.Open(name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) || errors.Is(err, artifact.ErrInvalidName) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		s.opts.Logger.Error("files.open.failed", "filename", name, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name}))
	http.ServeContent(w, r, info.Name, info.Modified, rc)
}
