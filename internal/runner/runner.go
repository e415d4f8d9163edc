package runner

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region runner

// Runner executes one segment against a model. Business failures come back
// as a failed Result, never as an error.
type Runner struct {
	client segment.ModelClient
	cfg    Config
}

// New returns a Runner. It panics on a nil client since nothing can run.
func New(client segment.ModelClient, cfg Config) *Runner {
	if client == nil {
		panic("runner: nil ModelClient")
	}
	return &Runner{client: client, cfg: cfg}
}

// Config returns the thresholds the runner was built with.
func (r *Runner) Config() Config {
	return r.cfg
}

// #endregion runner

// #region run

type completion struct {
	text   string
	tokens int
	err    error
}

// Run executes seg. deps holds the latest results of seg's dependencies;
// entries for other segments are ignored. The call is bounded by the
// segment timeout and abandoned as soon as ctx is done.
func (r *Runner) Run(ctx context.Context, seg segment.Segment, deps map[string]segment.Result) segment.Result {
	start := time.Now()
	tier := r.TierFor(seg)
	prompt := r.BuildPrompt(seg, deps)

	if r.cfg.SegmentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SegmentTimeout)
		defer cancel()
	}

	opts := segment.CompletionOptions{
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
		Tier:        tier,
	}

	// buffered so an abandoned call never blocks its goroutine
	done := make(chan completion, 1)
	go func() {
		text, tokens, err := r.client.Complete(ctx, prompt, opts)
		done <- completion{text: text, tokens: tokens, err: err}
	}()

	var c completion
	select {
	case c = <-done:
	case <-ctx.Done():
		return r.failed(seg, tier, fmt.Errorf("segment %s: %w", seg.ID, ctx.Err()), start)
	}
	if c.err != nil {
		return r.failed(seg, tier, fmt.Errorf("segment %s: model call: %w", seg.ID, c.err), start)
	}

	parsed := ParseOutput(seg.ID, c.text)
	conf := r.cfg.Confidence(parsed)
	escalate, reason := r.cfg.Escalation(seg, tier, conf, parsed.Findings)

	tokens := c.tokens
	if tokens <= 0 {
		tokens = estimateTokens(prompt) + estimateTokens(c.text)
	}

	res := segment.Result{
		SegmentID:        seg.ID,
		Success:          true,
		Confidence:       conf,
		Findings:         parsed.Findings,
		SearchResults:    parsed.Results,
		TokensUsed:       tokens,
		ExecutionTime:    time.Since(start),
		RawOutput:        c.text,
		ParseMode:        parsed.Mode,
		Tier:             tier,
		ShouldEscalate:   escalate,
		EscalationReason: reason,
	}
	log.Printf("[RUN] seg=%s type=%s tier=%s mode=%s conf=%.2f facts=%d escalate=%v(%s) tokens=%d",
		seg.ID, seg.Type, tier, parsed.Mode, conf, len(parsed.Findings.Facts), escalate, reason, tokens)
	return res
}

func (r *Runner) failed(seg segment.Segment, tier segment.Tier, err error, start time.Time) segment.Result {
	log.Printf("[RUN] seg=%s failed: %v", seg.ID, err)
	return segment.Result{
		SegmentID:        seg.ID,
		Success:          false,
		Confidence:       0,
		ExecutionTime:    time.Since(start),
		Err:              err,
		ParseMode:        segment.ParseNone,
		Tier:             tier,
		EscalationReason: segment.EscalateNone,
	}
}

// #endregion run

// #region tier

// TierFor is the tier a segment runs at: its recommendation (or complexity
// when unset), capped at MaxTier.
func (r *Runner) TierFor(seg segment.Segment) segment.Tier {
	tier := seg.RecommendedTier
	if !tier.Valid() {
		tier = seg.Complexity
	}
	if !tier.Valid() {
		tier = segment.TierSmall
	}
	if r.cfg.MaxTier.Valid() {
		tier = segment.MinTier(tier, r.cfg.MaxTier)
	}
	return tier
}

// #endregion tier

// estimateTokens approximates usage at four characters per token when the
// provider does not report it.
func estimateTokens(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	return max(len(s)/4, 1)
}
