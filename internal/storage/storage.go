// Package storage persists the tracked contest set between process restarts.
// It is a best-effort cache: the in-memory set stays authoritative and a
// failed write never rolls anything back.
//
// Two backends are provided. FileStore keeps the set as a JSON document
// written atomically (temp file + rename). SQLiteStore keeps the same JSON
// document as a blob in a SQLite database keyed by name.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rewired-gh/contest-countdown/internal/models"
)

const (
	// persistenceVersion is written into every saved document.
	persistenceVersion = "1.0"

	// FileName is the cache file used by FileStore under the app cache dir.
	FileName = "contest.json"
	// DBFileName is the database used by SQLiteStore under the app cache dir.
	DBFileName = "contest.db"

	defaultFilePermissions os.FileMode = 0o644
	defaultDirPermissions  os.FileMode = 0o755
)

// PersistenceFile represents the document structure for JSON persistence
type PersistenceFile struct {
	Version  string           `json:"version"`
	SavedAt  time.Time        `json:"saved_at"`
	Contests []models.Contest `json:"contests"`
}

// CacheDir returns <root>/<appID>. An empty root falls back to
// $XDG_CACHE_HOME, then $HOME/.cache.
func CacheDir(root, appID string) (string, error) {
	if strings.TrimSpace(appID) == "" {
		return "", fmt.Errorf("application identifier is required")
	}
	if strings.ContainsAny(appID, `/\`) {
		return "", fmt.Errorf("application identifier must not contain path separators: %q", appID)
	}
	if root == "" {
		root = os.Getenv("XDG_CACHE_HOME")
	}
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		root = filepath.Join(home, ".cache")
	}
	return filepath.Join(root, appID), nil
}

// FileStore keeps the contest set in a single JSON file
type FileStore struct {
	filePath        string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
}

// NewFileStore creates a FileStore writing to filePath
func NewFileStore(filePath string) *FileStore {
	return &FileStore{
		filePath:        filePath,
		filePermissions: defaultFilePermissions,
		dirPermissions:  defaultDirPermissions,
	}
}

// Save persists the contest set to file
func (s *FileStore) Save(contests []models.Contest) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	jsonData, err := encode(contests)
	if err != nil {
		return err
	}

	// Write to temporary file first (atomic write)
	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, s.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Load restores the contest set from file. A missing file yields an empty
// set and no error.
func (s *FileStore) Load() ([]models.Contest, error) {
	// Clean up any stale temp files from previous crashes
	tempPath := s.filePath + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	jsonData, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return decode(jsonData)
}

func encode(contests []models.Contest) ([]byte, error) {
	if contests == nil {
		contests = []models.Contest{}
	}
	data := PersistenceFile{
		Version:  persistenceVersion,
		SavedAt:  time.Now(),
		Contests: contests,
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contests: %w", err)
	}
	return jsonData, nil
}

func decode(jsonData []byte) ([]models.Contest, error) {
	var data PersistenceFile
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contests: %w", err)
	}
	if data.Version != "" && data.Version != persistenceVersion {
		return nil, fmt.Errorf("unsupported cache version %q", data.Version)
	}
	return data.Contests, nil
}
