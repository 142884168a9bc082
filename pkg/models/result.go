package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResultKey is the composite identity of a stored result
type ResultKey struct {
	Username     string    `json:"username"`
	Filename     string    `json:"filename"`
	ModelType    ModelType `json:"model_type"`
	TargetColumn string    `json:"target_column"`
}

// Validate checks that every key component is set
func (k ResultKey) Validate() error {
	if k.Username == "" {
		return fmt.Errorf("username is required")
	}
	if k.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if k.ModelType == "" {
		return fmt.Errorf("model_type is required")
	}
	if k.TargetColumn == "" {
		return fmt.Errorf("target_column is required")
	}
	return nil
}

// StoredResult is a persisted evaluation snapshot. At most one exists per
// ResultKey; re-running overwrites Result and Timestamp.
type StoredResult struct {
	ID string `json:"_id"`
	ResultKey
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
	Timestamp time.Time       `json:"timestamp"`
}

// UserFile records an uploaded file for a user
type UserFile struct {
	ID         string          `json:"_id"`
	Username   string          `json:"username"`
	Filename   string          `json:"filename"`
	FileData   *DatasetSummary `json:"file_data"`
	UploadedAt time.Time       `json:"uploaded_at"`
}

// User is a registered account
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
