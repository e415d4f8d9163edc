package segmenter

import (
	"testing"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region helpers

type fakeAdvisor map[segment.Type]float64

func (f fakeAdvisor) ExpectedConfidence(t segment.Type, _ segment.Tier) (float64, bool) {
	c, ok := f[t]
	return c, ok
}

func mustSegment(t *testing.T, s *Segmenter, query string) []segment.Segment {
	t.Helper()
	segs, err := s.Segment(query)
	if err != nil {
		t.Fatalf("segment %q: %v", query, err)
	}
	return segs
}

// #endregion helpers

// #region strategy-tests

func TestSegment_Comparison(t *testing.T) {
	segs := mustSegment(t, New(DefaultConfig(), nil), "Compare React and Vue performance")

	var entities, synth []segment.Segment
	for _, s := range segs {
		switch s.Type {
		case segment.TypeEntity:
			entities = append(entities, s)
		case segment.TypeSynthesis:
			synth = append(synth, s)
		}
	}
	if len(entities) < 2 {
		t.Fatalf("expected >= 2 entity segments, got %d", len(entities))
	}
	for _, e := range entities {
		if len(e.Dependencies) != 0 {
			t.Errorf("entity %s should have no dependencies, got %v", e.ID, e.Dependencies)
		}
	}
	if len(synth) != 1 {
		t.Fatalf("expected exactly 1 synthesis segment, got %d", len(synth))
	}
	for _, e := range entities {
		if !synth[0].DependsOn(e.ID) {
			t.Errorf("synthesis should depend on %s", e.ID)
		}
	}
	if entities[0].Text != "React performance" {
		t.Errorf("entity text: got %q", entities[0].Text)
	}
	if synth[0].Strategy != segment.StrategyComparison {
		t.Errorf("strategy: got %q", synth[0].Strategy)
	}
}

func TestSegment_ComparisonPhrasings(t *testing.T) {
	tests := []struct {
		query     string
		wantTexts []string
	}{
		{"Compare React with Vue", []string{"React", "Vue"}},
		{"Compare the performance of React and Vue", []string{"React performance", "Vue performance"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			segs := mustSegment(t, New(DefaultConfig(), nil), tt.query)
			if len(segs) != len(tt.wantTexts)+1 {
				t.Fatalf("expected %d segments, got %d", len(tt.wantTexts)+1, len(segs))
			}
			for i, want := range tt.wantTexts {
				if segs[i].Type != segment.TypeEntity || segs[i].Text != want {
					t.Errorf("segment %d: got %s %q, want entity %q", i, segs[i].Type, segs[i].Text, want)
				}
			}
			last := segs[len(segs)-1]
			if last.Type != segment.TypeSynthesis || len(last.Dependencies) != len(tt.wantTexts) {
				t.Errorf("synthesis: got %+v", last)
			}
			for _, s := range segs {
				if s.Strategy != segment.StrategyComparison {
					t.Errorf("%s strategy: got %q", s.ID, s.Strategy)
				}
			}
		})
	}
}

func TestSegment_SequentialIsLinear(t *testing.T) {
	segs := mustSegment(t, New(DefaultConfig(), nil), "Research topic X then summarize findings")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if len(segs[0].Dependencies) != 0 || segs[0].Type != segment.TypeContext {
		t.Errorf("first segment: %+v", segs[0])
	}
	if len(segs[1].Dependencies) != 1 || segs[1].Dependencies[0] != segs[0].ID {
		t.Errorf("second segment should depend only on the first: %v", segs[1].Dependencies)
	}
	if segs[1].Type != segment.TypeSynthesis {
		t.Errorf("last segment should be synthesis, got %s", segs[1].Type)
	}
}

func TestSegment_Complex(t *testing.T) {
	segs := mustSegment(t, New(DefaultConfig(), nil), "Explain how Kubernetes, Docker and Terraform interact")
	// intent + 3 entities + synthesis
	if len(segs) != 5 {
		t.Fatalf("expected 5 segments, got %d", len(segs))
	}
	intent := segs[0]
	if intent.Type != segment.TypeIntent || len(intent.Dependencies) != 0 {
		t.Errorf("first segment should be a root intent: %+v", intent)
	}
	for _, s := range segs[1:4] {
		if s.Type != segment.TypeEntity || len(s.Dependencies) != 1 || s.Dependencies[0] != intent.ID {
			t.Errorf("entity should depend on intent only: %+v", s)
		}
	}
	last := segs[4]
	if last.Type != segment.TypeSynthesis || len(last.Dependencies) != 4 {
		t.Errorf("synthesis should depend on intent and all entities: %+v", last)
	}
}

func TestSegment_Simple(t *testing.T) {
	segs := mustSegment(t, New(DefaultConfig(), nil), "What is Go?")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Type != segment.TypeEntity || len(segs[0].Dependencies) != 0 {
		t.Errorf("unexpected simple segment: %+v", segs[0])
	}
}

func TestSegment_EmptyQueryDegrades(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		segs, err := New(DefaultConfig(), nil).Segment(q)
		if err != nil {
			t.Fatalf("empty query should not error: %v", err)
		}
		if len(segs) != 1 || segs[0].Type != segment.TypeEntity {
			t.Errorf("expected one trivial entity segment, got %+v", segs)
		}
		if segs[0].EstimatedTokens != 0 {
			t.Errorf("empty text should estimate 0 tokens, got %d", segs[0].EstimatedTokens)
		}
	}
}

// #endregion strategy-tests

// #region estimate-tests

func TestSegment_EstimatesAlwaysSet(t *testing.T) {
	queries := []string{
		"Compare React and Vue performance",
		"Research topic X then summarize findings",
		"Explain how Kubernetes, Docker and Terraform interact",
		"What is Go?",
		"",
	}
	s := New(DefaultConfig(), nil)
	for _, q := range queries {
		for _, seg := range mustSegment(t, s, q) {
			if seg.EstimatedTokens < 0 {
				t.Errorf("%q/%s: negative token estimate", q, seg.ID)
			}
			if !seg.Complexity.Valid() || !seg.RecommendedTier.Valid() {
				t.Errorf("%q/%s: invalid tiers %q/%q", q, seg.ID, seg.Complexity, seg.RecommendedTier)
			}
			if seg.Type == segment.TypeSynthesis && seg.RecommendedTier != segment.TierLarge {
				t.Errorf("%q/%s: synthesis should recommend large", q, seg.ID)
			}
		}
	}
}

func TestSegment_AdvisorBumpsTier(t *testing.T) {
	plain := mustSegment(t, New(DefaultConfig(), nil), "What is Go?")[0]
	bumped := mustSegment(t, New(DefaultConfig(), fakeAdvisor{segment.TypeEntity: 0.3}), "What is Go?")[0]
	if bumped.RecommendedTier != plain.RecommendedTier.Next() {
		t.Errorf("expected tier bump %s → %s, got %s", plain.RecommendedTier, plain.RecommendedTier.Next(), bumped.RecommendedTier)
	}
	if bumped.Complexity != plain.Complexity {
		t.Error("the complexity estimate itself should not change")
	}

	kept := mustSegment(t, New(DefaultConfig(), fakeAdvisor{segment.TypeEntity: 0.9}), "What is Go?")[0]
	if kept.RecommendedTier != plain.RecommendedTier {
		t.Errorf("confident history should keep tier %s, got %s", plain.RecommendedTier, kept.RecommendedTier)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := estimateTokens("", segment.TierLarge); got != 0 {
		t.Errorf("empty: got %d", got)
	}
	if got := estimateTokens("abc", segment.TierTiny); got != 1+128 {
		t.Errorf("short text should count at least 1 prompt token: got %d", got)
	}
	if got := estimateTokens("abcdefgh", segment.TierSmall); got != 2+256 {
		t.Errorf("got %d", got)
	}
}

// #endregion estimate-tests
