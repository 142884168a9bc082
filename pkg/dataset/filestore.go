package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hs170703/insightfull/pkg/models"
)

var (
	// ErrFileNotFound is returned when a user has not uploaded the requested file
	ErrFileNotFound = errors.New("file not found")
	// ErrNotCSV is returned for uploads without a .csv extension
	ErrNotCSV = errors.New("Only CSV files are supported.")
	// ErrInvalidName is returned for file or user names that are not a
	// single path element
	ErrInvalidName = errors.New("invalid name")
)

// FileStore keeps uploaded CSV files on disk, one directory per user
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a new file-based upload store
func NewFileStore(basePath string) (*FileStore, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// ValidateFilename rejects names that are not plain CSV file names
func ValidateFilename(filename string) error {
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return ErrNotCSV
	}
	if filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) || strings.HasPrefix(filename, ".") {
		return fmt.Errorf("%w: filename %s", ErrInvalidName, filename)
	}
	return nil
}

func (fs *FileStore) path(username, filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	if username == "" || username != filepath.Base(username) || strings.HasPrefix(username, ".") {
		return "", fmt.Errorf("%w: username %s", ErrInvalidName, username)
	}
	return filepath.Join(fs.basePath, username, filename), nil
}

// Save writes the uploaded bytes, replacing any earlier upload with the same
// name. The write goes through a temporary file so readers never see a
// partial file.
func (fs *FileStore) Save(username, filename string, data []byte) error {
	path, err := fs.path(username, filename)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

// Load parses a previously uploaded file
func (fs *FileStore) Load(username, filename string) (*models.Dataset, error) {
	path, err := fs.path(username, filename)
	if err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", filename, ErrFileNotFound)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return LoadCSV(path)
}
