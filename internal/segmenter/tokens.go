package segmenter

import (
	"strings"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

const charsPerToken = 4

// outputBudget is the expected completion size per tier.
var outputBudget = map[segment.Tier]int{
	segment.TierTiny:   128,
	segment.TierSmall:  256,
	segment.TierMedium: 512,
	segment.TierLarge:  1024,
}

// estimateTokens is a character heuristic: prompt tokens plus the tier's
// output budget. Empty text estimates to zero.
func estimateTokens(text string, tier segment.Tier) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	tokens := len(text) / charsPerToken
	if tokens == 0 {
		tokens = 1
	}
	return tokens + outputBudget[tier]
}

// estimateComplexity maps segment text length onto a tier.
func estimateComplexity(text string, typ segment.Type) segment.Tier {
	words := len(strings.Fields(text))
	var tier segment.Tier
	switch {
	case words <= 3:
		tier = segment.TierTiny
	case words <= 10:
		tier = segment.TierSmall
	case words <= 25:
		tier = segment.TierMedium
	default:
		tier = segment.TierLarge
	}
	switch typ {
	case segment.TypeSynthesis, segment.TypeComparison:
		if tier.Below(segment.TierMedium) {
			tier = segment.TierMedium
		}
	case segment.TypeIntent:
		if tier.Below(segment.TierSmall) {
			tier = segment.TierSmall
		}
	}
	return tier
}
