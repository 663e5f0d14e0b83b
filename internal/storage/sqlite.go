package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rewired-gh/contest-countdown/internal/models"

	_ "modernc.org/sqlite"
)

// contestsKey is the blob key the contest set is stored under.
const contestsKey = "contests"

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	key      TEXT PRIMARY KEY,
	data     BLOB NOT NULL,
	saved_at INTEGER NOT NULL
)`

// SQLiteStore keeps the contest set as a JSON blob in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// Use ":memory:" for a throwaway store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), defaultDirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save persists the contest set, replacing the previous blob
func (s *SQLiteStore) Save(contests []models.Contest) error {
	jsonData, err := encode(contests)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO blobs (key, data, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		contestsKey, jsonData, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save contests: %w", err)
	}
	return nil
}

// Load restores the contest set. A missing blob yields an empty set.
func (s *SQLiteStore) Load() ([]models.Contest, error) {
	var jsonData []byte
	err := s.db.QueryRow(`SELECT data FROM blobs WHERE key = ?`, contestsKey).Scan(&jsonData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contests: %w", err)
	}
	return decode(jsonData)
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
