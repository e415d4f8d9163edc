// Package synth turns a finished coordination state into ranked results and
// a summary.
package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/query-coordinator/internal/coordinator"
	"github.com/danielpatrickdp/query-coordinator/internal/segment"
	"github.com/danielpatrickdp/query-coordinator/internal/websearch"
)

// #region config

// Config caps the synthesized output.
type Config struct {
	TopResults  int `yaml:"top_results"`
	TopFindings int `yaml:"top_findings"`
}

// DefaultConfig returns the production caps.
func DefaultConfig() Config {
	return Config{TopResults: 10, TopFindings: 5}
}

// Synthesizer is stateless.
type Synthesizer struct {
	cfg Config
}

// New returns a Synthesizer.
func New(cfg Config) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// #endregion config

// #region synthesize

// Synthesize ranks the results of completed segments and writes the summary.
func (s *Synthesizer) Synthesize(st *coordinator.State) ([]websearch.Result, string) {
	completed := st.CompletedResults()
	return s.Rank(completed), s.Summary(st, len(completed))
}

// Rank merges search-style results from every completed segment. Results
// are deduplicated by source key keeping the higher score, sorted by
// descending score (first seen wins ties) and capped at TopResults. Sources
// a segment cited without a result entry are scored with its confidence.
func (s *Synthesizer) Rank(completed []segment.Result) []websearch.Result {
	var out []websearch.Result
	index := make(map[string]int)

	add := func(r websearch.Result) {
		key := websearch.Key(r.URL)
		if key == "" {
			key = websearch.Key(r.Title)
		}
		if key == "" {
			return
		}
		if i, ok := index[key]; ok {
			if r.Score > out[i].Score {
				out[i] = r
			}
			return
		}
		index[key] = len(out)
		out = append(out, r)
	}

	for _, res := range completed {
		cited := make(map[string]bool)
		for _, r := range res.SearchResults {
			cited[websearch.Key(r.URL)] = true
			add(r)
		}
		for _, src := range res.Findings.Sources {
			if cited[websearch.Key(src)] {
				continue
			}
			add(websearch.Result{Title: src, URL: src, Score: res.Confidence, SegmentID: res.SegmentID})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if s.cfg.TopResults > 0 && len(out) > s.cfg.TopResults {
		out = out[:s.cfg.TopResults]
	}
	return out
}

// #endregion synthesize

// #region summary

// Summary opens with "N of M segments completed", lists the top findings by
// confidence and names failed segments. With nothing completed it states
// the failure instead of presenting findings.
func (s *Synthesizer) Summary(st *coordinator.State, completed int) string {
	var b strings.Builder
	total := st.TotalSegments()
	fmt.Fprintf(&b, "%d of %d segments completed", completed, total)

	if completed == 0 {
		b.WriteString("\nThe query could not be answered: no segment completed successfully.")
		writeFailures(&b, st)
		return b.String()
	}

	if findings := st.TopFindings(s.cfg.TopFindings); len(findings) > 0 {
		b.WriteString("\n\nKey findings:")
		for i, f := range findings {
			fmt.Fprintf(&b, "\n%d. %s", i+1, f.Fact)
		}
	} else {
		b.WriteString("\n\nNo findings were extracted.")
	}
	writeFailures(&b, st)
	return b.String()
}

func writeFailures(b *strings.Builder, st *coordinator.State) {
	ids := st.FailedIDs()
	if len(ids) == 0 {
		return
	}
	b.WriteString("\n\nFailed segments:")
	for _, id := range ids {
		reason := "unknown error"
		if err := st.Failed[id]; err != nil {
			reason = err.Error()
		}
		fmt.Fprintf(b, "\n- %s: %s", id, reason)
	}
}

// #endregion summary
