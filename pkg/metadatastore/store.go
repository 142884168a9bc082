package metadatastore

import (
	"errors"

	"github.com/hs170703/insightfull/pkg/models"
)

// ErrNotFound is wrapped by lookups that match no record
var ErrNotFound = errors.New("not found")

// MetadataStore is the interface for user, upload and evaluation result
// persistence. Uploaded CSV bytes live in the dataset file store, not here.
type MetadataStore interface {
	// Result operations. At most one result exists per key; UpsertResult
	// reports whether it created a new record.
	UpsertResult(key models.ResultKey, payload []byte) (bool, error)
	GetResult(username, id string) (*models.StoredResult, error)
	ListResultsByUser(username string) ([]*models.StoredResult, error)

	// Uploaded file operations
	SaveUserFile(username, filename string, summary *models.DatasetSummary) (bool, error)
	GetUserFile(username, filename string) (*models.UserFile, error)
	ListUserFiles(username string) ([]*models.UserFile, error)

	// User operations
	CreateUser(username string, passwordHash []byte) (bool, error)
	GetUser(username string) (*models.User, error)

	Close() error
}
