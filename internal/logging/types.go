package logging

import "time"

// #region event-kind
// EventKind names a coordination lifecycle transition.
type EventKind string

const (
	EventStarted      EventKind = "started"
	EventCompleted    EventKind = "completed"
	EventFailed       EventKind = "failed"
	EventEscalated    EventKind = "escalated"
	EventSpawnedChild EventKind = "spawned_child"
	EventDropped      EventKind = "escalation_dropped"
	EventSuperseded   EventKind = "superseded"
)
// #endregion event-kind

// #region event
// Event is a single row in the coordination_log table and an entry in the
// in-memory log of a run.
type Event struct {
	RunID      string    `json:"run_id"`
	SegmentID  string    `json:"segment_id"`
	Kind       EventKind `json:"kind"`
	Stage      int       `json:"stage"`
	Confidence float64   `json:"confidence,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
// #endregion event

// #region run-summary
// RunSummary aggregates the logged events of one run for inspection.
type RunSummary struct {
	RunID      string
	Started    int
	Completed  int
	Failed     int
	Escalated  int
	FirstEvent time.Time
	LastEvent  time.Time
}
// #endregion run-summary
