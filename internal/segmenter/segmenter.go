package segmenter

// #region imports
import (
	"fmt"
	"log"
	"strings"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #endregion

// #region segmenter-struct

// Segmenter turns a raw query into a dependency-annotated segment set.
type Segmenter struct {
	cfg     Config
	advisor TierAdvisor // nil = no learned tier bumps
}

// New creates a Segmenter. advisor may be nil.
func New(cfg Config, advisor TierAdvisor) *Segmenter {
	if cfg.MaxEntities <= 0 {
		cfg.MaxEntities = DefaultConfig().MaxEntities
	}
	return &Segmenter{cfg: cfg, advisor: advisor}
}

// #endregion

// #region segment

// Segment classifies the query and emits its segments. An empty or
// unusable query degrades to one trivial entity segment; the only errors
// are construction errors from validating the emitted set.
func (s *Segmenter) Segment(query string) ([]segment.Segment, error) {
	query = strings.TrimSpace(query)
	class := Classify(query, s.cfg)

	var segs []segment.Segment
	switch class.Class {
	case ClassComparison:
		segs = s.comparison(query, class)
	case ClassSequential:
		segs = s.sequential(class)
	case ClassComplex:
		segs = s.complex(query, class.Entities)
	case ClassModerate:
		if len(class.Entities) >= 2 {
			segs = s.complex(query, class.Entities)
		} else {
			segs = s.simple(query)
		}
	default:
		segs = s.simple(query)
	}

	if err := segment.Validate(segs); err != nil {
		return nil, fmt.Errorf("segment %q: %w", query, err)
	}

	log.Printf("[SEG] classify: class=%s words=%d entities=%d → strategy=%s segments=%d",
		class.Class, class.WordCount, len(class.Entities), segs[0].Strategy, len(segs))
	return segs, nil
}

// #endregion

// #region strategies

func (s *Segmenter) simple(query string) []segment.Segment {
	return []segment.Segment{s.build(1, query, segment.TypeEntity, 0, nil, segment.StrategySimple)}
}

func (s *Segmenter) comparison(query string, class Classification) []segment.Segment {
	segs := make([]segment.Segment, 0, len(class.Entities)+1)
	deps := make([]string, 0, len(class.Entities))
	for i, name := range class.Entities {
		text := strings.TrimSpace(name + " " + class.Aspect)
		seg := s.build(i+1, text, segment.TypeEntity, i, nil, segment.StrategyComparison)
		segs = append(segs, seg)
		deps = append(deps, seg.ID)
	}
	n := len(segs)
	segs = append(segs, s.build(n+1, query, segment.TypeSynthesis, n, deps, segment.StrategyComparison))
	return segs
}

func (s *Segmenter) sequential(class Classification) []segment.Segment {
	segs := make([]segment.Segment, 0, len(class.Parts))
	for i, part := range class.Parts {
		typ := segment.TypeContext
		if i == len(class.Parts)-1 {
			typ = segment.TypeSynthesis
		}
		var deps []string
		if i > 0 {
			deps = []string{segs[i-1].ID}
		}
		segs = append(segs, s.build(i+1, part, typ, i, deps, segment.StrategySequential))
	}
	return segs
}

func (s *Segmenter) complex(query string, entities []string) []segment.Segment {
	intent := s.build(1, "Identify the core intent and constraints of: "+query,
		segment.TypeIntent, 0, nil, segment.StrategyComplex)
	segs := []segment.Segment{intent}
	synthDeps := []string{intent.ID}
	for i, name := range entities {
		seg := s.build(i+2, name+" in the context of: "+query,
			segment.TypeEntity, i+1, []string{intent.ID}, segment.StrategyComplex)
		segs = append(segs, seg)
		synthDeps = append(synthDeps, seg.ID)
	}
	n := len(segs)
	segs = append(segs, s.build(n+1, query, segment.TypeSynthesis, n, synthDeps, segment.StrategyComplex))
	return segs
}

// #endregion

// #region build

func (s *Segmenter) build(n int, text string, typ segment.Type, priority int, deps []string, strategy segment.Strategy) segment.Segment {
	complexity := estimateComplexity(text, typ)
	tier := s.recommendTier(typ, complexity)
	return segment.Segment{
		ID:              fmt.Sprintf("seg-%d", n),
		Text:            text,
		Type:            typ,
		Priority:        priority,
		Dependencies:    deps,
		Complexity:      complexity,
		RecommendedTier: tier,
		EstimatedTokens: estimateTokens(text, tier),
		Strategy:        strategy,
	}
}

// recommendTier suggests an execution tier. Synthesis always suggests large;
// otherwise the estimate, bumped one step when learned outcomes for this
// (type, tier) fall below the escalation threshold.
func (s *Segmenter) recommendTier(typ segment.Type, complexity segment.Tier) segment.Tier {
	if typ == segment.TypeSynthesis {
		return segment.TierLarge
	}
	if s.advisor == nil {
		return complexity
	}
	conf, ok := s.advisor.ExpectedConfidence(typ, complexity)
	if ok && conf < s.cfg.EscalationThreshold {
		log.Printf("[SEG] learned confidence %.2f for %s/%s below %.2f, recommending %s",
			conf, typ, complexity, s.cfg.EscalationThreshold, complexity.Next())
		return complexity.Next()
	}
	return complexity
}

// #endregion
