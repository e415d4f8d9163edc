package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS segmentation_cache (
	query_hash   TEXT PRIMARY KEY,
	entry_id     TEXT NOT NULL,
	entry_json   TEXT NOT NULL,
	usage_count  INTEGER NOT NULL DEFAULT 0,
	expires_at   INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);
`
// #endregion schema

// #region sqlite-store

// SQLiteStore persists entries so segmentations survive restarts.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore ensures the table and returns the store.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("segmentation_cache schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// WithClock replaces the clock. Intended for tests.
func (s *SQLiteStore) WithClock(now func() time.Time) *SQLiteStore {
	s.now = now
	return s
}

// Load returns the unexpired entry for queryHash, ErrMiss when absent or
// expired, or a storage error.
func (s *SQLiteStore) Load(ctx context.Context, queryHash string) (Entry, error) {
	var raw string
	var usage int
	var expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT entry_json, usage_count, expires_at FROM segmentation_cache WHERE query_hash = ?`,
		queryHash,
	).Scan(&raw, &usage, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("load %s: %w", queryHash, err)
	}
	if !s.now().Before(time.UnixMilli(expires)) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM segmentation_cache WHERE query_hash = ?`, queryHash); err != nil {
			log.Printf("[CACHE] delete expired %s: %v", queryHash, err)
		}
		return Entry{}, ErrMiss
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, fmt.Errorf("decode %s: %w", queryHash, err)
	}
	e.UsageCount = usage + 1
	if _, err := s.db.ExecContext(ctx,
		`UPDATE segmentation_cache SET usage_count = usage_count + 1 WHERE query_hash = ?`, queryHash,
	); err != nil {
		log.Printf("[CACHE] usage count %s: %v", queryHash, err)
	}
	return e, nil
}

// Save upserts e with ttl.
func (s *SQLiteStore) Save(ctx context.Context, queryHash string, e Entry, ttl time.Duration) error {
	e = stamp(e, queryHash, s.now(), ttl)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", queryHash, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO segmentation_cache (query_hash, entry_id, entry_json, usage_count, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(query_hash) DO UPDATE SET
		   entry_id = excluded.entry_id,
		   entry_json = excluded.entry_json,
		   usage_count = excluded.usage_count,
		   expires_at = excluded.expires_at,
		   created_at = excluded.created_at`,
		queryHash, e.ID, string(raw), e.UsageCount, e.ExpiresAt.UnixMilli(), e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", queryHash, err)
	}
	return nil
}

// Get implements Cache. Storage errors are logged and reported as a miss.
func (s *SQLiteStore) Get(ctx context.Context, queryHash string) (Entry, bool) {
	e, err := s.Load(ctx, queryHash)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			log.Printf("[CACHE] sqlite get: %v", err)
		}
		return Entry{}, false
	}
	return e, true
}

// Put implements Cache. Storage errors are logged and dropped.
func (s *SQLiteStore) Put(ctx context.Context, queryHash string, e Entry, ttl time.Duration) {
	if err := s.Save(ctx, queryHash, e, ttl); err != nil {
		log.Printf("[CACHE] sqlite put: %v", err)
	}
}

// Purge deletes expired rows and returns how many went.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM segmentation_cache WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return res.RowsAffected()
}

// #endregion sqlite-store
