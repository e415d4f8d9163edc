package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// one connection so every query sees the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-event-tests
func TestLogEvent_Success(t *testing.T) {
	db := setupDB(t)

	ev := Event{
		RunID:      "run-1",
		SegmentID:  "seg-1",
		Kind:       EventCompleted,
		Stage:      0,
		Confidence: 0.85,
		Detail:     "structured",
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogEvent(db, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err := RunEvents(db, "run-1")
	if err != nil {
		t.Fatalf("run events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.Kind != EventCompleted || got.Confidence != 0.85 || got.Detail != "structured" {
		t.Errorf("unexpected event %+v", got)
	}
	if !got.CreatedAt.Equal(ev.CreatedAt) {
		t.Errorf("created_at: got %v", got.CreatedAt)
	}
}

func TestLogEvent_NullableFields(t *testing.T) {
	db := setupDB(t)

	if err := LogEvent(db, Event{RunID: "run-1", SegmentID: "seg-1", Kind: EventStarted}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var conf sql.NullFloat64
	var detail sql.NullString
	var created string
	db.QueryRow("SELECT confidence, detail, created_at FROM coordination_log").Scan(&conf, &detail, &created)
	if conf.Valid || detail.Valid {
		t.Error("zero confidence and empty detail should be stored as NULL")
	}
	if created == "" {
		t.Error("created_at should default to now")
	}
}

func TestLogEvent_MissingTable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := LogEvent(db, Event{RunID: "r", SegmentID: "s", Kind: EventStarted}); err == nil {
		t.Error("expected error without schema")
	}
}

// #endregion log-event-tests

// #region recent-runs-tests
func TestRecentRuns(t *testing.T) {
	db := setupDB(t)
	sink, err := NewSink(db)
	if err != nil {
		t.Fatal(err)
	}

	for _, ev := range []Event{
		{RunID: "run-a", SegmentID: "seg-1", Kind: EventStarted},
		{RunID: "run-a", SegmentID: "seg-1", Kind: EventFailed, Detail: "timeout"},
		{RunID: "run-b", SegmentID: "seg-1", Kind: EventStarted},
		{RunID: "run-b", SegmentID: "seg-1", Kind: EventCompleted, Confidence: 0.9},
		{RunID: "run-b", SegmentID: "seg-1", Kind: EventEscalated},
	} {
		if err := sink.Record(ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	runs, err := RecentRuns(db, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-b" {
		t.Errorf("newest run first: got %s", runs[0].RunID)
	}
	if runs[0].Completed != 1 || runs[0].Escalated != 1 || runs[1].Failed != 1 {
		t.Errorf("unexpected counts %+v", runs)
	}

	limited, err := RecentRuns(db, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit not applied: %d", len(limited))
	}
}

// #endregion recent-runs-tests
