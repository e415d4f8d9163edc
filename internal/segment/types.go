package segment

// #region imports
import (
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/websearch"
)

// #endregion

// #region type

// Type is the closed set of segment kinds. Downstream code switches on it.
type Type string

const (
	TypeEntity     Type = "entity"
	TypeRelation   Type = "relation"
	TypeConstraint Type = "constraint"
	TypeIntent     Type = "intent"
	TypeContext    Type = "context"
	TypeComparison Type = "comparison"
	TypeSynthesis  Type = "synthesis"
)

// Valid reports whether t is one of the known segment types.
func (t Type) Valid() bool {
	switch t {
	case TypeEntity, TypeRelation, TypeConstraint, TypeIntent,
		TypeContext, TypeComparison, TypeSynthesis:
		return true
	}
	return false
}

// #endregion

// #region tier

// Tier is a complexity / capability tier. On a Segment it is a hint only.
type Tier string

const (
	TierTiny   Tier = "tiny"
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

var tierOrder = []Tier{TierTiny, TierSmall, TierMedium, TierLarge}

// Valid reports whether t is one of the four tiers.
func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// Rank returns 0..3 for tiny..large, or -1 for an unknown tier.
func (t Tier) Rank() int {
	for i, v := range tierOrder {
		if v == t {
			return i
		}
	}
	return -1
}

// Next returns the tier one step up. Large stays large.
func (t Tier) Next() Tier {
	r := t.Rank()
	if r < 0 || r >= len(tierOrder)-1 {
		return TierLarge
	}
	return tierOrder[r+1]
}

// Below reports whether t ranks strictly lower than other.
func (t Tier) Below(other Tier) bool {
	return t.Rank() < other.Rank()
}

// MinTier returns the lower of a and b.
func MinTier(a, b Tier) Tier {
	if a.Below(b) {
		return a
	}
	return b
}

// #endregion

// #region strategy

// Strategy names the segmentation layout that produced a segment set.
type Strategy string

const (
	StrategySimple     Strategy = "simple"
	StrategyComparison Strategy = "comparison"
	StrategySequential Strategy = "sequential"
	StrategyComplex    Strategy = "complex"
	StrategyEscalation Strategy = "escalation"
)

// #endregion

// #region segment

// Segment is one independently executable sub-query. Segments are created by
// the segmenter and never mutated afterwards.
type Segment struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	Type            Type     `json:"type"`
	Priority        int      `json:"priority"`
	Dependencies    []string `json:"dependencies,omitempty"`
	Complexity      Tier     `json:"estimated_complexity"`
	RecommendedTier Tier     `json:"recommended_tier"`
	EstimatedTokens int      `json:"estimated_tokens"`
	Strategy        Strategy `json:"strategy"`
	ParentID        string   `json:"parent_id,omitempty"` // set on escalation children only
}

// DependsOn reports whether id is a declared dependency of s.
func (s Segment) DependsOn(id string) bool {
	for _, d := range s.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

// #endregion

// #region findings

// Findings is the normalized structured output of a segment.
type Findings struct {
	Entities       map[string]string `json:"entities"`
	Facts          []string          `json:"facts"`
	Sources        []string          `json:"sources"`
	Contradictions []string          `json:"contradictions,omitempty"`
}

// Empty reports whether nothing was extracted.
func (f Findings) Empty() bool {
	return len(f.Entities) == 0 && len(f.Facts) == 0 && len(f.Sources) == 0
}

// TopFacts returns up to n facts in their original order.
func (f Findings) TopFacts(n int) []string {
	if n <= 0 || len(f.Facts) == 0 {
		return nil
	}
	if len(f.Facts) < n {
		n = len(f.Facts)
	}
	out := make([]string, n)
	copy(out, f.Facts[:n])
	return out
}

// #endregion

// #region parse-mode

// ParseMode records which path turned the model reply into findings.
type ParseMode string

const (
	ParseStructured  ParseMode = "structured"
	ParseRawFallback ParseMode = "raw_fallback"
	ParseNone        ParseMode = "none" // model call failed, nothing parsed
)

// #endregion

// #region escalation-reason

// EscalationReason explains why a result asked for supplementary work.
type EscalationReason string

const (
	EscalateNone                  EscalationReason = "none"
	EscalateLowConfidence         EscalationReason = "low_confidence"
	EscalateNoFacts               EscalationReason = "no_facts"
	EscalateContradictions        EscalationReason = "contradictions"
	EscalateUnderpoweredSynthesis EscalationReason = "underpowered_synthesis"
)

// #endregion

// #region result

// Result is produced once per execution attempt. It is never mutated after
// the runner returns it; a later attempt supersedes it with a new value.
type Result struct {
	SegmentID        string             `json:"segment_id"`
	Success          bool               `json:"success"`
	Confidence       float64            `json:"confidence"`
	Findings         Findings           `json:"findings"`
	SearchResults    []websearch.Result `json:"search_results,omitempty"`
	TokensUsed       int                `json:"tokens_used"`
	ExecutionTime    time.Duration      `json:"execution_time"`
	RawOutput        string             `json:"raw_output,omitempty"`
	Err              error              `json:"-"`
	ParseMode        ParseMode          `json:"parse_mode"`
	Tier             Tier               `json:"tier"`
	ShouldEscalate   bool               `json:"should_escalate"`
	EscalationReason EscalationReason   `json:"escalation_reason"`
}

// ExecutionTimeMs is the execution time in whole milliseconds.
func (r Result) ExecutionTimeMs() int64 {
	return r.ExecutionTime.Milliseconds()
}

// Error returns the error text, or "" for a successful result.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// #endregion

// #region plan

// Stage is a set of segment IDs that may run concurrently.
type Stage struct {
	Index             int           `json:"index"`
	SegmentIDs        []string      `json:"segment_ids"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// ExecutionPlan is an ordered list of stages. Every segment ID appears in
// exactly one stage and all of its dependencies sit in earlier stages.
type ExecutionPlan struct {
	Strategy       Strategy      `json:"strategy"`
	Stages         []Stage       `json:"stages"`
	EstimatedTotal time.Duration `json:"estimated_total"`
}

// TotalStages is the plan length.
func (p ExecutionPlan) TotalStages() int {
	return len(p.Stages)
}

// StageOf returns the index of the stage holding id.
func (p ExecutionPlan) StageOf(id string) (int, bool) {
	for _, st := range p.Stages {
		for _, sid := range st.SegmentIDs {
			if sid == id {
				return st.Index, true
			}
		}
	}
	return 0, false
}

// #endregion
