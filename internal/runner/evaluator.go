package runner

import "github.com/danielpatrickdp/query-coordinator/internal/segment"

// #region confidence

// Confidence scores a parsed reply. Search-style results give a relevance
// signal: their mean relevance, scaled and capped. Without one, the parse
// path decides, and the raw-text path always pays the fallback penalty.
func (c Config) Confidence(p Parsed) float64 {
	if len(p.Results) > 0 {
		var sum float64
		for _, r := range p.Results {
			sum += r.Score
		}
		conf := sum / float64(len(p.Results)) * c.RelevanceScale
		if conf > c.ConfidenceCap {
			conf = c.ConfidenceCap
		}
		return clamp01(conf)
	}

	switch p.Mode {
	case segment.ParseStructured:
		return clamp01(c.StructuredConfidence)
	case segment.ParseRawFallback:
		return clamp01(c.FallbackConfidence)
	default:
		return 0
	}
}

// #endregion confidence

// #region escalation

// Escalation reports whether a successful result should ask for supplementary
// work, and the first reason that applies. It is a signal only.
func (c Config) Escalation(seg segment.Segment, tier segment.Tier, conf float64, f segment.Findings) (bool, segment.EscalationReason) {
	switch {
	case conf < c.EscalationThreshold:
		return true, segment.EscalateLowConfidence
	case len(f.Facts) == 0:
		return true, segment.EscalateNoFacts
	case len(f.Contradictions) > 0:
		return true, segment.EscalateContradictions
	case seg.Type == segment.TypeSynthesis && tier.Below(segment.TierLarge):
		return true, segment.EscalateUnderpoweredSynthesis
	}
	return false, segment.EscalateNone
}

// #endregion escalation
