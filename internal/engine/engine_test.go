package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/query-coordinator/internal/cache"
	"github.com/danielpatrickdp/query-coordinator/internal/config"
	"github.com/danielpatrickdp/query-coordinator/internal/history"
	"github.com/danielpatrickdp/query-coordinator/internal/logging"
	"github.com/danielpatrickdp/query-coordinator/internal/metrics"
	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region fakes

// scriptedModel answers by segment type and records every prompt.
type scriptedModel struct {
	mu      sync.Mutex
	prompts []string
	fail    func(prompt string) bool
}

func (m *scriptedModel) Complete(_ context.Context, prompt string, _ segment.CompletionOptions) (string, int, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.fail != nil && m.fail(prompt) {
		return "", 0, errors.New("model unavailable")
	}
	task := prompt[strings.Index(prompt, "[Task: "):]
	line := strings.SplitN(task, "\n", 3)[1]
	return `{"entities": {"` + line + `": "subject"}, "facts": ["FACT<` + line + `>"], "sources": ["https://example.com/` + strings.ReplaceAll(line, " ", "-") + `"]}`, 25, nil
}

func (m *scriptedModel) promptFor(substr string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.prompts {
		if strings.Contains(p, substr) {
			return p
		}
	}
	return ""
}

func newEngine(t *testing.T, model segment.ModelClient, mutate func(*config.Config), opts ...Option) *Engine {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, model, opts...)
	require.NoError(t, err)
	return e
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// #endregion fakes

// #region segment-tests
func TestSegment_ComparisonPlan(t *testing.T) {
	e := newEngine(t, &scriptedModel{}, nil)
	sr, err := e.Segment(context.Background(), "Compare React and Vue performance")
	require.NoError(t, err)

	assert.Equal(t, segment.StrategyComparison, sr.Strategy)
	assert.Equal(t, 2, sr.Plan.TotalStages())
	assert.GreaterOrEqual(t, len(sr.Plan.Stages[0].SegmentIDs), 2)

	var synth []segment.Segment
	for _, s := range sr.Segments {
		if s.Type == segment.TypeSynthesis {
			synth = append(synth, s)
		}
	}
	require.Len(t, synth, 1)
	assert.Len(t, synth[0].Dependencies, len(sr.Segments)-1)
	assert.Positive(t, sr.EstimatedTokens)
	assert.Positive(t, sr.EstimatedTimeMs)
	assert.False(t, sr.Cached)
}

func TestSegment_SequentialPlanIsLinear(t *testing.T) {
	e := newEngine(t, &scriptedModel{}, nil)
	sr, err := e.Segment(context.Background(), "Research topic X then summarize findings")
	require.NoError(t, err)

	assert.Equal(t, len(sr.Segments), sr.Plan.TotalStages())
	for i, s := range sr.Segments {
		if i == 0 {
			assert.Empty(t, s.Dependencies)
			continue
		}
		assert.Equal(t, []string{sr.Segments[i-1].ID}, s.Dependencies)
	}
}

func TestSegment_CachedWithinTTL(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newEngine(t, &scriptedModel{}, nil, WithMetrics(metrics.New(reg)))
	ctx := context.Background()

	first, err := e.Segment(ctx, "Compare React and Vue performance")
	require.NoError(t, err)
	second, err := e.Segment(ctx, "  compare react and vue PERFORMANCE ")
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.QueryHash, second.QueryHash)
	assert.Equal(t, first.Segments, second.Segments)
	assert.Equal(t, first.Plan, second.Plan)
	assert.Equal(t, first.EstimatedTokens, second.EstimatedTokens)
}

func TestSegment_PersistentCacheSurvivesEngines(t *testing.T) {
	db := openDB(t)
	l2, err := cache.NewSQLiteStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	e1 := newEngine(t, &scriptedModel{}, nil, WithCache(cache.NewLayered(cache.NewMemory(), l2)))
	first, err := e1.Segment(ctx, "What is Go?")
	require.NoError(t, err)

	e2 := newEngine(t, &scriptedModel{}, nil, WithCache(cache.NewLayered(cache.NewMemory(), l2)))
	second, err := e2.Segment(ctx, "what is go?")
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Segments, second.Segments)
	assert.Equal(t, first.Plan, second.Plan)
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(config.Default(), nil)
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Throughput = 0
	_, err = New(cfg, &scriptedModel{})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

// #endregion segment-tests

// #region coordinate-tests
func TestCoordinate_Comparison(t *testing.T) {
	model := &scriptedModel{}
	e := newEngine(t, model, nil)
	sr, res, err := e.Search(context.Background(), "Compare React and Vue performance")
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1.0, res.Quality.Completeness)
	assert.InDelta(t, 0.85, res.Quality.Accuracy, 1e-9)
	assert.True(t, strings.HasPrefix(res.SynthesizedResponse, "3 of 3 segments completed"))
	assert.Equal(t, 75, res.TotalTokens)
	assert.Len(t, res.SegmentBreakdown, len(sr.Segments))
	assert.Len(t, res.FinalResults, 3)
	assert.Zero(t, res.Escalations)

	// the synthesis prompt carries facts from both entity segments
	synthPrompt := model.promptFor("[Task: synthesis]")
	assert.Contains(t, synthPrompt, "FACT<Research: React performance>")
	assert.Contains(t, synthPrompt, "FACT<Research: Vue performance>")
}

func TestCoordinate_LowConfidenceContextNeverPropagates(t *testing.T) {
	model := &scriptedModel{}
	e := newEngine(t, model, func(c *config.Config) { c.Runner.StructuredConfidence = 0.55 })
	_, res, err := e.Search(context.Background(), "Compare React and Vue performance")
	require.NoError(t, err)

	for _, row := range res.SegmentBreakdown {
		assert.InDelta(t, 0.55, row.Confidence, 1e-9)
	}
	synthPrompt := model.promptFor("[Task: synthesis]")
	require.NotEmpty(t, synthPrompt)
	assert.NotContains(t, synthPrompt, "FACT<")
	assert.NotContains(t, synthPrompt, "[Context")
}

func TestCoordinate_AllFailed(t *testing.T) {
	model := &scriptedModel{fail: func(string) bool { return true }}
	e := newEngine(t, model, func(c *config.Config) { c.Coordinator.EscalationQueue = 0 })
	_, res, err := e.Search(context.Background(), "Compare React and Vue performance")

	require.ErrorIs(t, err, ErrAllFailed)
	assert.Zero(t, res.Quality.Completeness)
	assert.Zero(t, res.Quality.Overall)
	assert.False(t, res.Quality.Passed)
	assert.True(t, strings.HasPrefix(res.SynthesizedResponse, "Query failed"))
	assert.Contains(t, res.SynthesizedResponse, "0 of 3 segments completed")
	assert.NotContains(t, res.SynthesizedResponse, "Key findings")
	for _, row := range res.SegmentBreakdown {
		assert.False(t, row.Success)
		assert.NotEmpty(t, row.Error)
	}
}

func TestCoordinate_FirstStageFailureAbortsRun(t *testing.T) {
	model := &scriptedModel{fail: func(p string) bool { return strings.Contains(p, "[Task: entity]") }}
	e := newEngine(t, model, nil)
	_, res, err := e.Search(context.Background(), "Compare React and Vue performance")

	require.ErrorIs(t, err, ErrAllFailed)
	assert.Zero(t, res.Quality.Completeness)
	assert.True(t, strings.HasPrefix(res.SynthesizedResponse, "Query failed"))
	assert.Empty(t, model.promptFor("[Task: synthesis]"), "synthesis never runs")
}

func TestCoordinate_PartialFailure(t *testing.T) {
	model := &scriptedModel{fail: func(p string) bool { return strings.Contains(p, "Research: Vue") }}
	e := newEngine(t, model, nil)
	_, res, err := e.Search(context.Background(), "Compare React and Vue performance")
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3, res.Quality.Completeness, 1e-9)
	assert.Contains(t, res.SynthesizedResponse, "2 of 3 segments completed")
	assert.Contains(t, res.SynthesizedResponse, "model unavailable")

	failed := 0
	for _, row := range res.SegmentBreakdown {
		if !row.Success {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

// #endregion coordinate-tests

// #region wiring-tests
func TestCoordinate_RecordsHistoryAndEvents(t *testing.T) {
	db := openDB(t)
	mem, err := history.NewOutcomeMemory(db)
	require.NoError(t, err)
	sink, err := logging.NewSink(db)
	require.NoError(t, err)

	e := newEngine(t, &scriptedModel{}, nil, WithHistory(mem), WithEventSink(sink))
	_, res, err := e.Search(context.Background(), "Compare React and Vue performance")
	require.NoError(t, err)

	stats, err := mem.Stats()
	require.NoError(t, err)
	total := 0
	for _, s := range stats {
		total += s.Samples
	}
	assert.Equal(t, 3, total)

	events, err := logging.RunEvents(db, res.RunID)
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	runs, err := logging.RecentRuns(db, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Completed)
}

func TestResultJSON_Milliseconds(t *testing.T) {
	e := newEngine(t, &scriptedModel{}, nil)
	sr, res, err := e.Search(context.Background(), "Compare React and Vue performance")
	require.NoError(t, err)
	assert.Equal(t, sr.EstimatedTime.Milliseconds(), sr.EstimatedTimeMs)
	assert.Equal(t, res.TotalTime.Milliseconds(), res.TotalTimeMs)

	var seg map[string]any
	b, err := json.Marshal(sr)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &seg))
	assert.EqualValues(t, sr.EstimatedTimeMs, seg["estimated_time_ms"])
	assert.NotContains(t, seg, "estimated_time")
	assert.NotContains(t, seg, "EstimatedTime")

	var run map[string]any
	b, err = json.Marshal(res)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &run))
	assert.Contains(t, run, "total_time_ms")
	assert.NotContains(t, run, "total_time")
}

// #endregion wiring-tests
