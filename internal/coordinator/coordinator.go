// Package coordinator drives an execution plan stage by stage, merging each
// segment's findings into a run-scoped state as it completes.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/query-coordinator/internal/logging"
	"github.com/danielpatrickdp/query-coordinator/internal/metrics"
	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region coordinator

// SegmentRunner executes one segment. Implementations report failures in
// the returned result.
type SegmentRunner interface {
	Run(ctx context.Context, seg segment.Segment, deps map[string]segment.Result) segment.Result
}

// Coordinator is stateless between runs; every Execute gets a fresh State.
type Coordinator struct {
	runner  SegmentRunner
	cfg     Config
	sink    EventSink
	metrics *metrics.Collectors
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSink persists every logged event.
func WithSink(s EventSink) Option {
	return func(c *Coordinator) { c.sink = s }
}

// WithMetrics records stage and segment metrics.
func WithMetrics(m *metrics.Collectors) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New returns a Coordinator running segments through r.
func New(r SegmentRunner, cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{runner: r, cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// #endregion coordinator

// #region execute

type escalation struct {
	parentID string
	child    segment.Segment
}

// Execute runs plan to completion. Stages run strictly in order; members of
// a stage run concurrently and the stage waits for all of them. Failures
// never stop the run, except that a first stage with no survivors aborts the
// stages after it. Escalations queued during the plan run afterwards as
// one extra stage.
func (c *Coordinator) Execute(ctx context.Context, plan segment.ExecutionPlan, segs []segment.Segment) *State {
	st := newState(uuid.NewString(), plan, c.sink)

	byID := make(map[string]segment.Segment, len(segs))
	for _, s := range segs {
		byID[s.ID] = s
	}

	if timeout := c.queryTimeout(plan); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	queueSize := max(c.cfg.EscalationQueue, 0)
	queue := make(chan escalation, queueSize)

	log.Printf("[COORD] run=%s strategy=%s stages=%d segments=%d",
		st.RunID, plan.Strategy, plan.TotalStages(), st.TotalSegments())

	for i, stage := range plan.Stages {
		start := time.Now()
		c.runStage(ctx, st, stage, byID, queue)
		c.metrics.StageFinished(time.Since(start))

		if i == 0 && ctx.Err() == nil && st.FirstStageFailed() {
			log.Printf("[COORD] run=%s every first-stage segment failed, aborting", st.RunID)
			c.abort(st, plan.Stages[1:])
			break
		}
	}
	close(queue)

	c.runEscalations(ctx, st, plan.TotalStages(), queue)
	st.flushAll()

	log.Printf("[COORD] done %s", st)
	return st
}

// abort fails every segment of stages without running it.
func (c *Coordinator) abort(st *State, stages []segment.Stage) {
	for _, stage := range stages {
		for _, id := range stage.SegmentIDs {
			st.fail(stage.Index, id, fmt.Errorf("segment %s not started: %w", id, ErrAborted))
		}
	}
}

func (c *Coordinator) queryTimeout(plan segment.ExecutionPlan) time.Duration {
	if c.cfg.QueryTimeout > 0 {
		return c.cfg.QueryTimeout
	}
	if c.cfg.SegmentTimeout <= 0 {
		return 0
	}
	stages := plan.TotalStages()
	if c.cfg.EscalationQueue > 0 {
		stages++
	}
	return time.Duration(stages) * c.cfg.SegmentTimeout
}

// #endregion execute

// #region stage

func (c *Coordinator) runStage(ctx context.Context, st *State, stage segment.Stage, byID map[string]segment.Segment, queue chan<- escalation) {
	if len(stage.SegmentIDs) == 1 {
		c.runOne(ctx, st, stage.Index, stage.SegmentIDs[0], byID, queue)
		return
	}

	// goroutines always return nil, so the group never cancels siblings
	var g errgroup.Group
	if c.cfg.MaxParallel > 0 {
		g.SetLimit(c.cfg.MaxParallel)
	}
	for _, id := range stage.SegmentIDs {
		g.Go(func() error {
			c.runOne(ctx, st, stage.Index, id, byID, queue)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Coordinator) runOne(ctx context.Context, st *State, stage int, id string, byID map[string]segment.Segment, queue chan<- escalation) {
	seg, ok := byID[id]
	if !ok {
		st.fail(stage, id, fmt.Errorf("segment %s: %w: not in segment set", id, segment.ErrMalformed))
		return
	}
	if err := ctx.Err(); err != nil {
		st.fail(stage, id, fmt.Errorf("segment %s not started: %w", id, err))
		c.metrics.SegmentFinished(string(seg.Type), "", false, 0, 0)
		return
	}

	st.log(stage, id, logging.EventStarted, 0, string(seg.Type))
	res := c.runner.Run(ctx, seg, st.snapshot(seg.Dependencies))
	st.merge(stage, res)
	c.metrics.SegmentFinished(string(seg.Type), string(res.Tier), res.Success, res.ExecutionTime, res.TokensUsed)

	if res.Success && res.ShouldEscalate {
		c.enqueue(st, stage, seg, res, queue)
	}
}

// #endregion stage

// #region escalation

func (c *Coordinator) enqueue(st *State, stage int, seg segment.Segment, res segment.Result, queue chan<- escalation) {
	if c.cfg.EscalationQueue <= 0 || seg.Strategy == segment.StrategyEscalation {
		return
	}
	item := escalation{parentID: seg.ID, child: c.escalationChild(seg, res)}
	select {
	case queue <- item:
		st.log(stage, seg.ID, logging.EventEscalated, res.Confidence, string(res.EscalationReason))
		c.metrics.Escalated(string(res.EscalationReason))
	default:
		log.Printf("[COORD] escalation queue full, dropping %s (%s)", seg.ID, res.EscalationReason)
		st.log(stage, seg.ID, logging.EventDropped, res.Confidence, string(res.EscalationReason))
		c.metrics.EscalationDropped()
	}
}

// escalationChild re-targets seg one tier above the tier it just ran at.
func (c *Coordinator) escalationChild(seg segment.Segment, res segment.Result) segment.Segment {
	child := seg
	child.ID = seg.ID + ":esc"
	child.Text = c.cfg.EscalationPrefix + seg.Text
	child.Dependencies = append([]string(nil), seg.Dependencies...)
	child.RecommendedTier = res.Tier.Next()
	child.Strategy = segment.StrategyEscalation
	child.ParentID = seg.ID
	return child
}

func (c *Coordinator) runEscalations(ctx context.Context, st *State, stage int, queue <-chan escalation) {
	var items []escalation
	for it := range queue {
		items = append(items, it)
	}
	if len(items) == 0 {
		return
	}
	log.Printf("[COORD] escalation stage: %d children", len(items))

	var g errgroup.Group
	if c.cfg.MaxParallel > 0 {
		g.SetLimit(c.cfg.MaxParallel)
	}
	for _, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				st.log(stage, it.child.ID, logging.EventFailed, 0, "not started: "+err.Error())
				return nil
			}
			st.log(stage, it.parentID, logging.EventSpawnedChild, 0, it.child.ID)
			res := c.runner.Run(ctx, it.child, st.snapshot(it.child.Dependencies))
			superseded := st.mergeChild(stage, it.parentID, res)
			c.metrics.SegmentFinished(string(it.child.Type), string(res.Tier), res.Success, res.ExecutionTime, res.TokensUsed)
			log.Printf("[COORD] child %s conf=%.2f superseded=%v", it.child.ID, res.Confidence, superseded)
			return nil
		})
	}
	_ = g.Wait()
}

// #endregion escalation
