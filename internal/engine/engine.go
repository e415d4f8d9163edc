// Package engine is the in-process entry point: Segment a query, then
// Coordinate its execution.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/query-coordinator/internal/cache"
	"github.com/danielpatrickdp/query-coordinator/internal/config"
	"github.com/danielpatrickdp/query-coordinator/internal/coordinator"
	"github.com/danielpatrickdp/query-coordinator/internal/eval"
	"github.com/danielpatrickdp/query-coordinator/internal/graph"
	"github.com/danielpatrickdp/query-coordinator/internal/history"
	"github.com/danielpatrickdp/query-coordinator/internal/metrics"
	"github.com/danielpatrickdp/query-coordinator/internal/runner"
	"github.com/danielpatrickdp/query-coordinator/internal/segment"
	"github.com/danielpatrickdp/query-coordinator/internal/segmenter"
	"github.com/danielpatrickdp/query-coordinator/internal/synth"
)

// #region engine-struct

// Engine wires the pipeline. Everything it shares across queries (cache,
// history, metrics) is injected at construction.
type Engine struct {
	cfg         config.Config
	segmenter   *segmenter.Segmenter
	builder     *graph.Builder
	coordinator *coordinator.Coordinator
	synth       *synth.Synthesizer
	harness     *eval.EvalHarness
	cache       cache.Cache
	history     *history.OutcomeMemory
	metrics     *metrics.Collectors
}

type options struct {
	cache   cache.Cache
	history *history.OutcomeMemory
	metrics *metrics.Collectors
	sink    coordinator.EventSink
}

// Option configures an Engine.
type Option func(*options)

// WithCache replaces the default per-engine memory cache.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithHistory records outcomes and feeds learned tier advice to the segmenter.
func WithHistory(h *history.OutcomeMemory) Option {
	return func(o *options) { o.history = h }
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *metrics.Collectors) Option {
	return func(o *options) { o.metrics = m }
}

// WithEventSink persists coordination events.
func WithEventSink(s coordinator.EventSink) Option {
	return func(o *options) { o.sink = s }
}

// #endregion engine-struct

// #region constructor

// New validates cfg and builds an Engine calling client for every segment.
func New(cfg config.Config, client segment.ModelClient, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, errors.New("engine: nil model client")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = cache.NewMemory()
	}

	var advisor segmenter.TierAdvisor
	if o.history != nil {
		advisor = o.history
	}

	coordOpts := []coordinator.Option{coordinator.WithMetrics(o.metrics)}
	if o.sink != nil {
		coordOpts = append(coordOpts, coordinator.WithSink(o.sink))
	}

	return &Engine{
		cfg:         cfg,
		segmenter:   segmenter.New(cfg.Segmenter, advisor),
		builder:     graph.NewBuilder(cfg.Throughput),
		coordinator: coordinator.New(runner.New(client, cfg.Runner), cfg.Coordinator, coordOpts...),
		synth:       synth.New(cfg.Synth),
		harness:     eval.NewEvalHarness(cfg.Eval),
		cache:       o.cache,
		history:     o.history,
		metrics:     o.metrics,
	}, nil
}

// #endregion constructor

// #region segment

// Segment returns the segmentation for query, from cache when a fresh entry
// exists. Construction errors (cycles, malformed sets) are returned before
// anything executes.
func (e *Engine) Segment(ctx context.Context, query string) (SegmentationResult, error) {
	hash := cache.Key(query)
	if entry, ok := e.cache.Get(ctx, hash); ok {
		e.metrics.CacheLookup("hit")
		log.Printf("[ENGINE] cache hit %s uses=%d", hash[:12], entry.UsageCount)
		return fromEntry(entry, true), nil
	}
	e.metrics.CacheLookup("miss")

	segs, err := e.segmenter.Segment(query)
	if err != nil {
		return SegmentationResult{}, fmt.Errorf("segment: %w", err)
	}
	plan, err := e.builder.Build(segs)
	if err != nil {
		return SegmentationResult{}, fmt.Errorf("segment: %w", err)
	}
	e.metrics.PlanBuilt(plan.TotalStages())

	entry := cache.Entry{
		ID:        uuid.NewString(),
		QueryHash: hash,
		Query:     strings.TrimSpace(query),
		Segments:  segs,
		Plan:      plan,
	}
	e.cache.Put(ctx, hash, entry, e.cfg.Cache.TTL)
	return fromEntry(entry, false), nil
}

func fromEntry(entry cache.Entry, cached bool) SegmentationResult {
	tokens := 0
	for _, s := range entry.Segments {
		tokens += s.EstimatedTokens
	}
	return SegmentationResult{
		QueryHash:       entry.QueryHash,
		Query:           entry.Query,
		Strategy:        entry.Plan.Strategy,
		Segments:        entry.Segments,
		Plan:            entry.Plan,
		EstimatedTokens: tokens,
		EstimatedTime:   entry.Plan.EstimatedTotal,
		EstimatedTimeMs: entry.Plan.EstimatedTotal.Milliseconds(),
		Cached:          cached,
	}
}

// #endregion segment

// #region coordinate

// Coordinate executes a segmentation. Partial failure lowers quality but is
// not an error; when every first-stage segment fails the result is returned
// together with ErrAllFailed.
func (e *Engine) Coordinate(ctx context.Context, sr SegmentationResult) (CoordinatedSearchResult, error) {
	start := time.Now()
	st := e.coordinator.Execute(ctx, sr.Plan, sr.Segments)
	results, summary := e.synth.Synthesize(st)
	quality := e.harness.Assess(st.CompletedResults(), len(st.Failed))

	out := CoordinatedSearchResult{
		RunID:               st.RunID,
		Query:               sr.Query,
		FinalResults:        results,
		SynthesizedResponse: summary,
		TotalTokens:         st.TotalTokens(),
		TotalTime:           time.Since(start),
		SegmentBreakdown:    breakdown(st, sr.Segments),
		Quality:             quality,
		Escalations:         len(st.Children),
	}
	out.TotalTimeMs = out.TotalTime.Milliseconds()
	e.recordOutcomes(st, sr.Segments)

	log.Printf("[ENGINE] run=%s completeness=%.2f accuracy=%.2f overall=%.2f tokens=%d time=%s",
		st.RunID, quality.Completeness, quality.Accuracy, quality.Overall, out.TotalTokens, out.TotalTime)

	if st.FirstStageFailed() {
		e.metrics.QueryFinished("failed")
		out.SynthesizedResponse = "Query failed: every first-stage segment failed.\n" + summary
		return out, fmt.Errorf("run %s: %w", st.RunID, ErrAllFailed)
	}
	if len(st.Failed) > 0 {
		e.metrics.QueryFinished("partial")
	} else {
		e.metrics.QueryFinished("completed")
	}
	return out, nil
}

// Search segments and coordinates query in one call.
func (e *Engine) Search(ctx context.Context, query string) (SegmentationResult, CoordinatedSearchResult, error) {
	sr, err := e.Segment(ctx, query)
	if err != nil {
		return SegmentationResult{}, CoordinatedSearchResult{}, err
	}
	res, err := e.Coordinate(ctx, sr)
	return sr, res, err
}

// #endregion coordinate

// #region helpers

func breakdown(st *coordinator.State, segs []segment.Segment) []SegmentOutcome {
	byID := make(map[string]segment.Segment, len(segs))
	for _, s := range segs {
		byID[s.ID] = s
	}

	var out []SegmentOutcome
	for _, stage := range st.Plan.Stages {
		for _, id := range stage.SegmentIDs {
			res := st.Segments[id]
			row := SegmentOutcome{
				SegmentID:        id,
				Type:             byID[id].Type,
				Stage:            stage.Index,
				Success:          res.Success,
				Confidence:       res.Confidence,
				Tier:             res.Tier,
				ParseMode:        res.ParseMode,
				TokensUsed:       res.TokensUsed,
				ExecutionTimeMs:  res.ExecutionTimeMs(),
				Error:            res.Error(),
				EscalationReason: res.EscalationReason,
			}
			if res.SegmentID != id {
				row.SupersededBy = res.SegmentID
			}
			out = append(out, row)
		}
	}
	return out
}

// recordOutcomes feeds every attempt that reached the model into history.
func (e *Engine) recordOutcomes(st *coordinator.State, segs []segment.Segment) {
	if e.history == nil {
		return
	}
	types := make(map[string]segment.Type, len(segs))
	for _, s := range segs {
		types[s.ID] = s.Type
	}
	for _, res := range st.Attempts {
		if !res.Tier.Valid() {
			continue
		}
		rec := history.OutcomeRecord{
			RunID:      st.RunID,
			SegmentID:  res.SegmentID,
			Type:       types[strings.TrimSuffix(res.SegmentID, ":esc")],
			Tier:       res.Tier,
			Confidence: res.Confidence,
			Success:    res.Success,
			Escalated:  res.ShouldEscalate,
		}
		if err := e.history.RecordOutcome(rec); err != nil {
			log.Printf("[ENGINE] failed to record outcome: %v", err)
		}
	}
}

// #endregion helpers
