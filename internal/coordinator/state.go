package coordinator

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/logging"
	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region state

// State is owned by one run. During Execute it is only touched through the
// synchronized methods below; once Execute returns it is read-only.
type State struct {
	mu sync.Mutex

	RunID string
	Plan  segment.ExecutionPlan

	// Segments holds the latest result per plan segment. An escalation child
	// replaces its parent's entry only when it is more confident.
	Segments map[string]segment.Result
	// Children holds escalation results keyed by parent ID.
	Children  map[string]segment.Result
	Global    GlobalContext
	Completed map[string]bool
	Failed    map[string]error
	Log       []logging.Event
	// Attempts holds every result in arrival order, superseded ones included.
	Attempts []segment.Result

	tokens  int
	sink    EventSink
	sinkMu  sync.Mutex     // serializes sink writes, never held with mu
	pending []logging.Event // logged under mu, not yet recorded to sink
}

func newState(runID string, plan segment.ExecutionPlan, sink EventSink) *State {
	return &State{
		RunID:     runID,
		Plan:      plan,
		Segments:  make(map[string]segment.Result),
		Children:  make(map[string]segment.Result),
		Global:    GlobalContext{Entities: make(map[string]string)},
		Completed: make(map[string]bool),
		Failed:    make(map[string]error),
		sink:      sink,
	}
}

// #endregion state

// #region merge

// snapshot copies the current results of ids for use as runner context.
func (s *State) snapshot(ids []string) map[string]segment.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]segment.Result, len(ids))
	for _, id := range ids {
		if r, ok := s.Segments[id]; ok {
			out[id] = r
		}
	}
	return out
}

// merge records a plan segment's result and folds its findings into the
// global context.
func (s *State) merge(stage int, res segment.Result) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Segments[res.SegmentID] = res
	s.Attempts = append(s.Attempts, res)
	s.tokens += res.TokensUsed
	if !res.Success {
		s.Failed[res.SegmentID] = res.Err
		s.logLocked(stage, res.SegmentID, logging.EventFailed, 0, res.Error())
		return
	}
	s.Completed[res.SegmentID] = true
	s.foldLocked(res)
	s.logLocked(stage, res.SegmentID, logging.EventCompleted, res.Confidence, string(res.ParseMode))
}

// mergeChild records an escalation result. It supersedes the parent only
// when it succeeded with higher confidence; only then do its findings join
// the global context.
func (s *State) mergeChild(stage int, parentID string, res segment.Result) bool {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Children[parentID] = res
	s.Attempts = append(s.Attempts, res)
	s.tokens += res.TokensUsed
	if !res.Success {
		s.logLocked(stage, res.SegmentID, logging.EventFailed, 0, res.Error())
		return false
	}
	s.logLocked(stage, res.SegmentID, logging.EventCompleted, res.Confidence, string(res.ParseMode))

	parent := s.Segments[parentID]
	if res.Confidence <= parent.Confidence {
		return false
	}
	s.Segments[parentID] = res
	s.foldLocked(res)
	s.logLocked(stage, parentID, logging.EventSuperseded, res.Confidence, "by "+res.SegmentID)
	return true
}

func (s *State) foldLocked(res segment.Result) {
	for name, desc := range res.Findings.Entities {
		s.Global.Entities[name] = desc
	}
	for _, fact := range res.Findings.Facts {
		s.Global.KeyFindings = append(s.Global.KeyFindings, KeyFinding{
			SegmentID:  res.SegmentID,
			Fact:       fact,
			Confidence: res.Confidence,
		})
	}
}

// fail records a plan segment that never produced a result.
func (s *State) fail(stage int, id string, err error) {
	s.merge(stage, segment.Result{SegmentID: id, Err: err, ParseMode: segment.ParseNone})
}

// #endregion merge

// #region log

func (s *State) log(stage int, id string, kind logging.EventKind, conf float64, detail string) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLocked(stage, id, kind, conf, detail)
}

func (s *State) logLocked(stage int, id string, kind logging.EventKind, conf float64, detail string) {
	ev := logging.Event{
		RunID:      s.RunID,
		SegmentID:  id,
		Kind:       kind,
		Stage:      stage,
		Confidence: conf,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	s.Log = append(s.Log, ev)
	if s.sink != nil {
		s.pending = append(s.pending, ev)
	}
}

// flush records pending events to the sink outside mu. When another
// goroutine is already writing it returns at once; that writer drains the
// queue before it stops.
func (s *State) flush() {
	if s.sink == nil || !s.sinkMu.TryLock() {
		return
	}
	for {
		s.drainLocked()
		s.sinkMu.Unlock()
		s.mu.Lock()
		more := len(s.pending) > 0
		s.mu.Unlock()
		if !more || !s.sinkMu.TryLock() {
			return
		}
	}
}

// flushAll blocks until every logged event has been offered to the sink.
func (s *State) flushAll() {
	if s.sink == nil {
		return
	}
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.drainLocked()
}

// drainLocked writes pending events in order. Caller holds sinkMu.
func (s *State) drainLocked() {
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			if err := s.sink.Record(ev); err != nil {
				log.Printf("[COORD] event sink: %v", err)
			}
		}
	}
}

// #endregion log

// #region queries

// CompletedResults returns the latest results of completed plan segments in
// plan order.
func (s *State) CompletedResults() []segment.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []segment.Result
	for _, st := range s.Plan.Stages {
		for _, id := range st.SegmentIDs {
			if s.Completed[id] {
				out = append(out, s.Segments[id])
			}
		}
	}
	return out
}

// FailedIDs returns failed plan segment IDs, sorted.
func (s *State) FailedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.Failed))
	for id := range s.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TotalSegments counts plan segments; escalation children are excluded.
func (s *State) TotalSegments() int {
	n := 0
	for _, st := range s.Plan.Stages {
		n += len(st.SegmentIDs)
	}
	return n
}

// FirstStageFailed reports whether every segment of the first stage failed.
func (s *State) FirstStageFailed() bool {
	if len(s.Plan.Stages) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.Plan.Stages[0].SegmentIDs {
		if _, failed := s.Failed[id]; !failed {
			return false
		}
	}
	return true
}

// TopFindings returns up to k key findings by descending confidence. Ties
// keep append order.
func (s *State) TopFindings(k int) []KeyFinding {
	s.mu.Lock()
	out := make([]KeyFinding, len(s.Global.KeyFindings))
	copy(out, s.Global.KeyFindings)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// TotalTokens sums tokens over every attempt, escalation children included.
func (s *State) TotalTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *State) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("run=%s completed=%d failed=%d children=%d findings=%d",
		s.RunID, len(s.Completed), len(s.Failed), len(s.Children), len(s.Global.KeyFindings))
}

// #endregion queries
