package graph

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region types

// DefaultThroughput is the assumed model throughput used for time estimates.
const DefaultThroughput = 50.0 // tokens per second

// Builder converts a segment set into a staged ExecutionPlan.
// It is stateless and safe for concurrent use.
type Builder struct {
	throughput float64
}

// #endregion types

// #region constructor

// NewBuilder returns a Builder assuming tokensPerSecond model throughput.
// Non-positive values fall back to DefaultThroughput.
func NewBuilder(tokensPerSecond float64) *Builder {
	if tokensPerSecond <= 0 {
		tokensPerSecond = DefaultThroughput
	}
	return &Builder{throughput: tokensPerSecond}
}

// #endregion constructor

// #region build

// Build layers the segments Kahn-style: each pass collects every unscheduled
// segment whose dependencies were scheduled in earlier passes. Within a stage
// segments are ordered by ascending priority, then insertion order. A pass
// that schedules nothing while segments remain is a circular dependency.
func (b *Builder) Build(segs []segment.Segment) (segment.ExecutionPlan, error) {
	if err := segment.Validate(segs); err != nil {
		return segment.ExecutionPlan{}, fmt.Errorf("build plan: %w", err)
	}

	strategy := segs[0].Strategy
	plan := segment.ExecutionPlan{Strategy: strategy}
	scheduled := make(map[string]bool, len(segs))
	remaining := make([]int, len(segs))
	for i := range segs {
		remaining[i] = i
	}

	for len(remaining) > 0 {
		var ready, blocked []int
		for _, idx := range remaining {
			if allScheduled(segs[idx].Dependencies, scheduled) {
				ready = append(ready, idx)
			} else {
				blocked = append(blocked, idx)
			}
		}

		if len(ready) == 0 {
			ids := make([]string, len(blocked))
			for i, idx := range blocked {
				ids[i] = segs[idx].ID
			}
			return segment.ExecutionPlan{}, fmt.Errorf("build plan: strategy %s: %w among [%s]",
				strategy, segment.ErrCycle, strings.Join(ids, ", "))
		}

		// remaining is in insertion order, so a stable sort keeps it as the tie-break
		sort.SliceStable(ready, func(i, j int) bool {
			return segs[ready[i]].Priority < segs[ready[j]].Priority
		})

		stage := segment.Stage{Index: len(plan.Stages), SegmentIDs: make([]string, len(ready))}
		for i, idx := range ready {
			stage.SegmentIDs[i] = segs[idx].ID
			if d := b.duration(segs[idx].EstimatedTokens); d > stage.EstimatedDuration {
				stage.EstimatedDuration = d
			}
		}
		// mark after the pass so a stage never contains its own dependency
		for _, idx := range ready {
			scheduled[segs[idx].ID] = true
		}

		plan.Stages = append(plan.Stages, stage)
		plan.EstimatedTotal += stage.EstimatedDuration
		remaining = blocked
	}

	log.Printf("[PLAN] strategy=%s segments=%d stages=%d estimated=%s",
		strategy, len(segs), plan.TotalStages(), plan.EstimatedTotal)
	return plan, nil
}

// #endregion build

// #region helpers

func allScheduled(deps []string, scheduled map[string]bool) bool {
	for _, d := range deps {
		if !scheduled[d] {
			return false
		}
	}
	return true
}

func (b *Builder) duration(tokens int) time.Duration {
	if tokens <= 0 {
		return 0
	}
	return time.Duration(float64(tokens) / b.throughput * float64(time.Second))
}

// #endregion helpers
