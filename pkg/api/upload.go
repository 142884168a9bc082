package api

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/hs170703/insightfull/pkg/dataset"
	"github.com/hs170703/insightfull/pkg/metadatastore"
	"github.com/hs170703/insightfull/pkg/models"
)

// UploadResponse summarises a parsed upload
type UploadResponse struct {
	Filename string `json:"filename"`
	*models.DatasetSummary
	Message   string `json:"message"`
	IsNewFile bool   `json:"is_new_file"`
}

// Uploader parses an uploaded CSV, stores it on disk, caches it for
// prediction and records it against the user
type Uploader struct {
	files  *dataset.FileStore
	cache  *dataset.Cache
	store  metadatastore.MetadataStore
	logger *slog.Logger
}

// NewUploader creates an uploader
func NewUploader(files *dataset.FileStore, cache *dataset.Cache, store metadatastore.MetadataStore, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{files: files, cache: cache, store: store, logger: logger}
}

// Ingest handles one upload. Errors carry the message shown to the user.
func (u *Uploader) Ingest(username, filename, contentType string, data []byte) (*UploadResponse, error) {
	if err := dataset.ValidateFilename(filename); err != nil {
		return nil, err
	}
	ds, err := dataset.ReadCSV(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse CSV: %v", err)
	}

	if err := u.files.Save(username, filename, data); err != nil {
		u.logger.Error("failed to store upload", "username", username, "filename", filename, "error", err)
		return nil, fmt.Errorf("Failed to store file: %v", err)
	}
	u.cache.Put(username, filename, ds)

	summary := ds.Summary()
	summary.ContentType = contentType
	isNew, err := u.store.SaveUserFile(username, filename, summary)
	if err != nil {
		u.logger.Error("failed to record upload", "username", username, "filename", filename, "error", err)
		return nil, fmt.Errorf("Failed to store file: %v", err)
	}

	message := "File received and parsed!"
	if !isNew {
		message += " (Updated existing file)"
	}
	u.logger.Info("file uploaded",
		"username", username,
		"filename", filename,
		"rows", summary.NRows,
		"columns", summary.NColumns,
		"is_new_file", isNew,
	)
	return &UploadResponse{
		Filename:       filename,
		DatasetSummary: summary,
		Message:        message,
		IsNewFile:      isNew,
	}, nil
}
