package history

import (
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region outcome-record

// OutcomeRecord is one executed segment as remembered for tier advice.
type OutcomeRecord struct {
	RunID      string
	SegmentID  string
	Type       segment.Type
	Tier       segment.Tier
	Confidence float64
	Success    bool
	Escalated  bool
	CreatedAt  time.Time
}

// #endregion

// #region type-stats

// TypeStats summarizes outcomes for one (type, tier) pair.
type TypeStats struct {
	Type           segment.Type
	Tier           segment.Tier
	Samples        int
	MeanConfidence float64
	SuccessRate    float64
	EscalationRate float64
}

// #endregion
