package engine

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/eval"
	"github.com/danielpatrickdp/query-coordinator/internal/segment"
	"github.com/danielpatrickdp/query-coordinator/internal/websearch"
)

// ErrAllFailed is returned by Coordinate when every first-stage segment
// failed. The result is still returned and says so explicitly.
var ErrAllFailed = errors.New("all first-stage segments failed")

// #region segmentation-result

// SegmentationResult is a query's segments and execution plan.
type SegmentationResult struct {
	QueryHash       string                `json:"query_hash"`
	Query           string                `json:"query"`
	Strategy        segment.Strategy      `json:"strategy"`
	Segments        []segment.Segment     `json:"segments"`
	Plan            segment.ExecutionPlan `json:"execution_graph"`
	EstimatedTokens int                   `json:"estimated_tokens"`
	EstimatedTime   time.Duration         `json:"-"`
	EstimatedTimeMs int64                 `json:"estimated_time_ms"`
	Cached          bool                  `json:"cached"`
}

// #endregion segmentation-result

// #region coordinated-result

// SegmentOutcome is one row of the per-segment breakdown.
type SegmentOutcome struct {
	SegmentID        string                   `json:"segment_id"`
	Type             segment.Type             `json:"type"`
	Stage            int                      `json:"stage"`
	Success          bool                     `json:"success"`
	Confidence       float64                  `json:"confidence"`
	Tier             segment.Tier             `json:"tier"`
	ParseMode        segment.ParseMode        `json:"parse_mode"`
	TokensUsed       int                      `json:"tokens_used"`
	ExecutionTimeMs  int64                    `json:"execution_time_ms"`
	Error            string                   `json:"error,omitempty"`
	EscalationReason segment.EscalationReason `json:"escalation_reason,omitempty"`
	SupersededBy     string                   `json:"superseded_by,omitempty"`
}

// CoordinatedSearchResult is the outcome of coordinating one segmentation.
type CoordinatedSearchResult struct {
	RunID               string             `json:"run_id"`
	Query               string             `json:"query"`
	FinalResults        []websearch.Result `json:"final_results"`
	SynthesizedResponse string             `json:"synthesized_response"`
	TotalTokens         int                `json:"total_tokens"`
	TotalTime           time.Duration      `json:"-"`
	TotalTimeMs         int64              `json:"total_time_ms"`
	SegmentBreakdown    []SegmentOutcome   `json:"segment_breakdown"`
	Quality             eval.Quality       `json:"quality"`
	Escalations         int                `json:"escalations"`
}

// #endregion coordinated-result
