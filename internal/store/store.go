// Package store opens the SQLite database shared by the cache, outcome
// history and coordination log.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// #region store-struct
// Store wraps the shared SQLite handle.
type Store struct {
	db   *sql.DB
	path string
}
// #endregion store-struct

// #region constructor
// Open opens (or creates) the SQLite database at path. ":memory:" keeps a
// single connection so every caller sees the same database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if isMemory(path) {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	return &Store{db: db, path: path}, nil
}
// #endregion constructor

// #region accessors
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the packages that own tables in it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path is the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}
// #endregion accessors

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}
