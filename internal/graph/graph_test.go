package graph

import (
	"errors"
	"testing"
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

func seg(id string, priority, tokens int, deps ...string) segment.Segment {
	return segment.Segment{
		ID: id, Text: id, Type: segment.TypeEntity, Priority: priority,
		Dependencies: deps, Complexity: segment.TierSmall, EstimatedTokens: tokens,
		Strategy: segment.StrategyComplex,
	}
}

// checkPlan asserts the structural invariants every plan must hold.
func checkPlan(t *testing.T, segs []segment.Segment, plan segment.ExecutionPlan) {
	t.Helper()
	if len(segs) > 0 && plan.TotalStages() < 1 {
		t.Fatal("non-empty input must produce at least one stage")
	}
	seen := make(map[string]int)
	for _, st := range plan.Stages {
		for _, id := range st.SegmentIDs {
			if _, dup := seen[id]; dup {
				t.Errorf("segment %s scheduled twice", id)
			}
			seen[id] = st.Index
		}
	}
	if len(seen) != len(segs) {
		t.Errorf("expected %d scheduled segments, got %d", len(segs), len(seen))
	}
	for _, s := range segs {
		for _, dep := range s.Dependencies {
			if seen[dep] >= seen[s.ID] {
				t.Errorf("dependency %s (stage %d) not before %s (stage %d)", dep, seen[dep], s.ID, seen[s.ID])
			}
		}
	}
}

// #region test-layering
func TestBuild_Layering(t *testing.T) {
	tests := []struct {
		name       string
		segs       []segment.Segment
		wantStages int
	}{
		{"single", []segment.Segment{seg("a", 0, 10)}, 1},
		{"parallel", []segment.Segment{seg("a", 0, 10), seg("b", 1, 10), seg("c", 2, 10)}, 1},
		{"fan-in", []segment.Segment{seg("a", 0, 10), seg("b", 1, 10), seg("s", 2, 10, "a", "b")}, 2},
		{"chain", []segment.Segment{seg("a", 0, 10), seg("b", 1, 10, "a"), seg("c", 2, 10, "b")}, 3},
		{"diamond", []segment.Segment{
			seg("i", 0, 10), seg("e1", 1, 10, "i"), seg("e2", 2, 10, "i"), seg("s", 3, 10, "i", "e1", "e2"),
		}, 3},
		{"out-of-order-input", []segment.Segment{seg("s", 0, 10, "a"), seg("a", 1, 10)}, 2},
	}

	b := NewBuilder(DefaultThroughput)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := b.Build(tt.segs)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if plan.TotalStages() != tt.wantStages {
				t.Errorf("expected %d stages, got %d", tt.wantStages, plan.TotalStages())
			}
			checkPlan(t, tt.segs, plan)
		})
	}
}

// #endregion test-layering

// #region test-ordering
func TestBuild_StageOrdering(t *testing.T) {
	segs := []segment.Segment{seg("low", 5, 1), seg("first", 1, 1), seg("tie-a", 3, 1), seg("tie-b", 3, 1)}
	plan, err := NewBuilder(0).Build(segs)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []string{"first", "tie-a", "tie-b", "low"}
	got := plan.Stages[0].SegmentIDs
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stage order: got %v, want %v", got, want)
		}
	}
}

// #endregion test-ordering

// #region test-cycles
func TestBuild_Cycle(t *testing.T) {
	tests := []struct {
		name string
		segs []segment.Segment
	}{
		{"self", []segment.Segment{seg("a", 0, 1, "a")}},
		{"pair", []segment.Segment{seg("a", 0, 1, "b"), seg("b", 1, 1, "a")}},
		{"behind-valid-root", []segment.Segment{seg("r", 0, 1), seg("a", 1, 1, "r", "c"), seg("b", 2, 1, "a"), seg("c", 3, 1, "b")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewBuilder(0).Build(tt.segs)
			if !errors.Is(err, segment.ErrCycle) {
				t.Fatalf("expected ErrCycle, got %v", err)
			}
			if plan.TotalStages() != 0 {
				t.Error("no plan should be produced on a cycle")
			}
		})
	}
}

func TestBuild_Malformed(t *testing.T) {
	_, err := NewBuilder(0).Build([]segment.Segment{seg("a", 0, 1, "missing")})
	if !errors.Is(err, segment.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
	_, err = NewBuilder(0).Build(nil)
	if !errors.Is(err, segment.ErrMalformed) {
		t.Errorf("empty input: expected ErrMalformed, got %v", err)
	}
}

// #endregion test-cycles

// #region test-timing
func TestBuild_Durations(t *testing.T) {
	// stage 0: max(100, 300) tokens; stage 1: 50 tokens; throughput 100 tok/s
	segs := []segment.Segment{seg("a", 0, 100), seg("b", 1, 300), seg("s", 2, 50, "a", "b")}
	plan, err := NewBuilder(100).Build(segs)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if plan.Stages[0].EstimatedDuration != 3*time.Second {
		t.Errorf("parallel stage should cost its max member: got %s", plan.Stages[0].EstimatedDuration)
	}
	if plan.Stages[1].EstimatedDuration != 500*time.Millisecond {
		t.Errorf("stage 1: got %s", plan.Stages[1].EstimatedDuration)
	}
	if plan.EstimatedTotal != 3500*time.Millisecond {
		t.Errorf("total should sum stage maxima: got %s", plan.EstimatedTotal)
	}
}

// #endregion test-timing
