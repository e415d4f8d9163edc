package runner

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

const formatInstruction = `Respond with a single JSON object and nothing else:
{"entities": {"name": "short description"}, "facts": ["..."], "sources": ["url or citation"], "contradictions": ["..."], "results": [{"title": "...", "url": "...", "snippet": "...", "relevance": 0.0}]}`

// #region context-filter

// usableContext returns the dependency results allowed to feed seg's prompt,
// in dependency order. Only successful results strictly above the context
// threshold survive.
func (r *Runner) usableContext(seg segment.Segment, deps map[string]segment.Result) []segment.Result {
	var out []segment.Result
	for _, id := range seg.Dependencies {
		res, ok := deps[id]
		if !ok || !res.Success || res.Confidence <= r.cfg.ContextThreshold {
			continue
		}
		out = append(out, res)
	}
	return out
}

// #endregion context-filter

// #region build-prompt

// BuildPrompt renders the model prompt for seg. Surviving dependency results
// contribute up to FactsPerDependency facts each.
func (r *Runner) BuildPrompt(seg segment.Segment, deps map[string]segment.Result) string {
	var b strings.Builder

	if ctxResults := r.usableContext(seg, deps); len(ctxResults) > 0 {
		b.WriteString("[Context from earlier segments]\n")
		for _, res := range ctxResults {
			for _, fact := range res.Findings.TopFacts(r.cfg.FactsPerDependency) {
				fmt.Fprintf(&b, "- (%s) %s\n", res.SegmentID, fact)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "[Task: %s]\n%s\n\n", seg.Type, taskText(seg))
	b.WriteString("[Format]\n")
	b.WriteString(formatInstruction)
	return b.String()
}

func taskText(seg segment.Segment) string {
	switch seg.Type {
	case segment.TypeSynthesis:
		return "Combine what is known into a complete answer to: " + seg.Text
	case segment.TypeComparison:
		return "Compare along the requested dimension: " + seg.Text
	case segment.TypeIntent:
		return seg.Text
	case segment.TypeEntity, segment.TypeRelation, segment.TypeConstraint, segment.TypeContext:
		return "Research: " + seg.Text
	}
	return seg.Text
}

// #endregion build-prompt
