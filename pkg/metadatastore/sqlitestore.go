package metadatastore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hs170703/insightfull/pkg/models"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// SQLiteStore provides SQLite-based persistence for users, uploads and results
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based storage instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Open database with connection pooling parameters
	// Format: file:path?_pragma=name(value)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)
	if dbPath == MemoryDSN {
		dsn = "file::memory:?_pragma=busy_timeout(10000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// For SQLite, keep this low since writes are serialized anyway. Every
	// in-memory connection is its own database, so that case holds exactly
	// one connection forever.
	if dbPath == MemoryDSN {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}

	// WAL for file databases; in-memory databases report "memory"
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check journal mode: %w", err)
	}
	if journalMode != "wal" && journalMode != "delete" && journalMode != "memory" {
		db.Close()
		return nil, fmt.Errorf("unexpected journal mode: got %s", journalMode)
	}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// initSchema creates the database schema if it doesn't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_files (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		filename TEXT NOT NULL,
		file_data TEXT NOT NULL,
		uploaded_at INTEGER NOT NULL,
		UNIQUE (username, filename)
	);

	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		filename TEXT NOT NULL,
		model_type TEXT NOT NULL,
		target_column TEXT NOT NULL,
		result TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (username, filename, model_type, target_column)
	);

	CREATE INDEX IF NOT EXISTS idx_results_username ON results(username);
	`

	_, err := s.db.Exec(schema)
	return err
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// UpsertResult creates or overwrites the result stored under key. The
// statement is a single atomic insert-or-update, so concurrent calls for the
// same key still leave exactly one record.
func (s *SQLiteStore) UpsertResult(key models.ResultKey, payload []byte) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, fmt.Errorf("invalid result key: %w", err)
	}
	if !json.Valid(payload) {
		return false, fmt.Errorf("result payload is not valid JSON")
	}

	query := `
		INSERT INTO results (id, username, filename, model_type, target_column, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username, filename, model_type, target_column)
		DO UPDATE SET result = excluded.result, updated_at = excluded.updated_at
		RETURNING id
	`

	id := uuid.New().String()
	now := toUnix(s.now())
	var storedID string
	err := s.db.QueryRow(query,
		id,
		key.Username,
		key.Filename,
		string(key.ModelType),
		key.TargetColumn,
		string(payload),
		now,
		now,
	).Scan(&storedID)
	if err != nil {
		return false, fmt.Errorf("failed to save result: %w", err)
	}

	return storedID == id, nil
}

const resultColumns = `id, username, filename, model_type, target_column, result, created_at, updated_at`

func scanResult(scanner interface{ Scan(...any) error }) (*models.StoredResult, error) {
	var (
		r         models.StoredResult
		modelType string
		payload   string
		created   int64
		updated   int64
	)
	if err := scanner.Scan(&r.ID, &r.Username, &r.Filename, &modelType, &r.TargetColumn, &payload, &created, &updated); err != nil {
		return nil, err
	}
	r.ModelType = models.ModelType(modelType)
	r.Result = json.RawMessage(payload)
	r.CreatedAt = fromUnix(created)
	r.Timestamp = fromUnix(updated)
	return &r, nil
}

// GetResult retrieves one of the user's results by ID
func (s *SQLiteStore) GetResult(username, id string) (*models.StoredResult, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE username = ? AND id = ?`

	result, err := scanResult(s.db.QueryRow(query, username, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result not found: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

// ListResultsByUser lists the user's results, most recently updated first
func (s *SQLiteStore) ListResultsByUser(username string) ([]*models.StoredResult, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE username = ? ORDER BY updated_at DESC, id`

	rows, err := s.db.Query(query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	results := make([]*models.StoredResult, 0)
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// SaveUserFile records an upload, replacing the summary and upload time if
// the user already uploaded a file with this name
func (s *SQLiteStore) SaveUserFile(username, filename string, summary *models.DatasetSummary) (bool, error) {
	if username == "" || filename == "" {
		return false, fmt.Errorf("username and filename are required")
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return false, fmt.Errorf("failed to marshal file summary: %w", err)
	}

	query := `
		INSERT INTO user_files (id, username, filename, file_data, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username, filename)
		DO UPDATE SET file_data = excluded.file_data, uploaded_at = excluded.uploaded_at
		RETURNING id
	`

	id := uuid.New().String()
	var storedID string
	if err := s.db.QueryRow(query, id, username, filename, string(data), toUnix(s.now())).Scan(&storedID); err != nil {
		return false, fmt.Errorf("failed to save user file: %w", err)
	}
	return storedID == id, nil
}

func scanUserFile(scanner interface{ Scan(...any) error }) (*models.UserFile, error) {
	var (
		f        models.UserFile
		data     string
		uploaded int64
	)
	if err := scanner.Scan(&f.ID, &f.Username, &f.Filename, &data, &uploaded); err != nil {
		return nil, err
	}
	var summary models.DatasetSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file summary: %w", err)
	}
	f.FileData = &summary
	f.UploadedAt = fromUnix(uploaded)
	return &f, nil
}

// GetUserFile retrieves the upload record for a user's file
func (s *SQLiteStore) GetUserFile(username, filename string) (*models.UserFile, error) {
	query := `SELECT id, username, filename, file_data, uploaded_at FROM user_files WHERE username = ? AND filename = ?`

	file, err := scanUserFile(s.db.QueryRow(query, username, filename))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file not found: %s: %w", filename, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user file: %w", err)
	}
	return file, nil
}

// ListUserFiles lists the user's uploads, most recent first
func (s *SQLiteStore) ListUserFiles(username string) ([]*models.UserFile, error) {
	query := `SELECT id, username, filename, file_data, uploaded_at FROM user_files WHERE username = ? ORDER BY uploaded_at DESC, filename`

	rows, err := s.db.Query(query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list user files: %w", err)
	}
	defer rows.Close()

	files := make([]*models.UserFile, 0)
	for rows.Next() {
		file, err := scanUserFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user file: %w", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// CreateUser inserts a user unless the username is taken
func (s *SQLiteStore) CreateUser(username string, passwordHash []byte) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, fmt.Errorf("username is required")
	}

	query := `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING
	`

	result, err := s.db.Exec(query, uuid.New().String(), username, passwordHash, toUnix(s.now()))
	if err != nil {
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check created user: %w", err)
	}
	return affected == 1, nil
}

// GetUser retrieves a user by username
func (s *SQLiteStore) GetUser(username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`

	var (
		user    models.User
		created int64
	)
	err := s.db.QueryRow(query, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt = fromUnix(created)
	return &user, nil
}
