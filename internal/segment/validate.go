package segment

import "fmt"

// #region validate

// Validate checks a segment set once, at construction. It rejects empty
// sets, missing or duplicate IDs, unknown types or tiers, negative token
// estimates and dependencies on IDs outside the set. Cycles are left to the
// graph builder, which reports them as ErrCycle.
func Validate(segs []Segment) error {
	if len(segs) == 0 {
		return fmt.Errorf("%w: no segments", ErrMalformed)
	}

	ids := make(map[string]bool, len(segs))
	for i, s := range segs {
		if s.ID == "" {
			return fmt.Errorf("%w: segment %d has no id", ErrMalformed, i)
		}
		if ids[s.ID] {
			return fmt.Errorf("%w: duplicate segment id %q", ErrMalformed, s.ID)
		}
		ids[s.ID] = true

		if !s.Type.Valid() {
			return fmt.Errorf("%w: segment %s has unknown type %q", ErrMalformed, s.ID, s.Type)
		}
		if !s.Complexity.Valid() {
			return fmt.Errorf("%w: segment %s has unknown complexity %q", ErrMalformed, s.ID, s.Complexity)
		}
		if s.RecommendedTier != "" && !s.RecommendedTier.Valid() {
			return fmt.Errorf("%w: segment %s has unknown tier %q", ErrMalformed, s.ID, s.RecommendedTier)
		}
		if s.EstimatedTokens < 0 {
			return fmt.Errorf("%w: segment %s has negative token estimate", ErrMalformed, s.ID)
		}
	}

	for _, s := range segs {
		for _, dep := range s.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("%w: segment %s depends on unknown segment %q", ErrMalformed, s.ID, dep)
			}
		}
	}
	return nil
}

// #endregion
