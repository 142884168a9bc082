package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hs170703/insightfull/pkg/metadatastore"
	"github.com/hs170703/insightfull/pkg/models"
)

// multipartMemory is the part of a multipart upload kept in memory before
// spilling to temporary files
const multipartMemory = 8 << 20

// handleUpload handles POST /api/upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	username := currentUser(r)

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetailResponse(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File exceeds the %d byte upload limit", s.opts.MaxUploadBytes))
			return
		}
		writeDetailResponse(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetailResponse(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetailResponse(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	resp, err := s.uploads.Ingest(username, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeInBandError(w, err.Error(), "")
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// handleListFiles handles GET /api/user/files
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListUserFiles(currentUser(r))
	if err != nil {
		s.logger.Error("failed to list files", "error", err)
		writeDetailResponse(w, http.StatusInternalServerError, "Failed to list files")
		return
	}
	if files == nil {
		files = []*models.UserFile{}
	}
	writeJSONResponse(w, http.StatusOK, files)
}

// handleGetFile handles GET /api/user/files/{filename}
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	file, err := s.store.GetUserFile(currentUser(r), chi.URLParam(r, "filename"))
	if err != nil {
		if errors.Is(err, metadatastore.ErrNotFound) {
			writeDetailResponse(w, http.StatusNotFound, "File not found")
			return
		}
		s.logger.Error("failed to get file", "error", err)
		writeDetailResponse(w, http.StatusInternalServerError, "Failed to get file")
		return
	}
	writeJSONResponse(w, http.StatusOK, file)
}
