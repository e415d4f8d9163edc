package runner

import (
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
	"github.com/danielpatrickdp/query-coordinator/internal/websearch"
)

// #region config

// Config holds the runner thresholds. Defaults match DefaultConfig.
type Config struct {
	ContextThreshold     float64       `yaml:"context_threshold"`     // dependency results must exceed this to feed a prompt
	EscalationThreshold  float64       `yaml:"escalation_threshold"`  // below this a result asks for escalation
	ConfidenceCap        float64       `yaml:"confidence_cap"`        // ceiling for relevance-derived confidence
	StructuredConfidence float64       `yaml:"structured_confidence"` // JSON reply without relevance signal
	FallbackConfidence   float64       `yaml:"fallback_confidence"`   // raw text reply
	RelevanceScale       float64       `yaml:"relevance_scale"`
	FactsPerDependency   int           `yaml:"facts_per_dependency"`
	SegmentTimeout       time.Duration `yaml:"segment_timeout"`
	Temperature          float64       `yaml:"temperature"`
	MaxTokens            int           `yaml:"max_tokens"`
	MaxTier              segment.Tier  `yaml:"max_tier"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		ContextThreshold:     0.6,
		EscalationThreshold:  0.5,
		ConfidenceCap:        0.95,
		StructuredConfidence: 0.85,
		FallbackConfidence:   0.6,
		RelevanceScale:       1.2,
		FactsPerDependency:   3,
		SegmentTimeout:       30 * time.Second,
		Temperature:          0.2,
		MaxTokens:            1024,
		MaxTier:              segment.TierLarge,
	}
}

// #endregion config

// #region parsed

// Parsed is the outcome of reading one model reply. Mode says which path
// produced it: a decoded JSON object, or the raw text kept as a single fact.
type Parsed struct {
	Mode     segment.ParseMode
	Findings segment.Findings
	Results  []websearch.Result
}

// #endregion parsed
