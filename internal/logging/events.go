package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS coordination_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	segment_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	stage       INTEGER NOT NULL,
	confidence  REAL,
	detail      TEXT,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coordination_log_run ON coordination_log(run_id);
`

// EnsureSchema creates the coordination_log table if needed.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("coordination_log schema: %w", err)
	}
	return nil
}
// #endregion schema

// #region log-event
// LogEvent writes one event to the coordination_log table.
func LogEvent(db *sql.DB, ev Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO coordination_log (run_id, segment_id, kind, stage, confidence, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID,
		ev.SegmentID,
		string(ev.Kind),
		ev.Stage,
		nullIfZero(ev.Confidence),
		nullIfEmpty(ev.Detail),
		ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}
// #endregion log-event

// #region sink
// Sink persists coordination events. It satisfies the coordinator's
// event sink interface.
type Sink struct {
	db *sql.DB
}

// NewSink ensures the schema and returns a sink writing to db.
func NewSink(db *sql.DB) (*Sink, error) {
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return &Sink{db: db}, nil
}

// Record writes ev.
func (s *Sink) Record(ev Event) error {
	return LogEvent(s.db, ev)
}
// #endregion sink

// #region queries
// RunEvents returns the events of one run in insertion order.
func RunEvents(db *sql.DB, runID string) ([]Event, error) {
	rows, err := db.Query(
		`SELECT run_id, segment_id, kind, stage, confidence, detail, created_at
		 FROM coordination_log WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("run events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var kind, createdStr string
		var conf sql.NullFloat64
		var detail sql.NullString
		if err := rows.Scan(&ev.RunID, &ev.SegmentID, &kind, &ev.Stage, &conf, &detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = EventKind(kind)
		ev.Confidence = conf.Float64
		ev.Detail = detail.String
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecentRuns summarizes the most recent runs, newest first.
func RecentRuns(db *sql.DB, limit int) ([]RunSummary, error) {
	rows, err := db.Query(
		`SELECT run_id,
		        SUM(CASE WHEN kind = 'started' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN kind = 'completed' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN kind = 'failed' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN kind = 'escalated' THEN 1 ELSE 0 END),
		        MIN(created_at), MAX(created_at)
		 FROM coordination_log
		 GROUP BY run_id
		 ORDER BY MAX(id) DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var rs RunSummary
		var first, last string
		if err := rows.Scan(&rs.RunID, &rs.Started, &rs.Completed, &rs.Failed, &rs.Escalated, &first, &last); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rs.FirstEvent, _ = time.Parse(time.RFC3339Nano, first)
		rs.LastEvent, _ = time.Parse(time.RFC3339Nano, last)
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}
// #endregion queries

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}
// #endregion helpers
