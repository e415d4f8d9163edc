package runner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
	"github.com/danielpatrickdp/query-coordinator/internal/websearch"
)

// #region wire

type replyResult struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

type reply struct {
	Entities       json.RawMessage `json:"entities"`
	Facts          []string        `json:"facts"`
	Sources        []string        `json:"sources"`
	Contradictions []string        `json:"contradictions"`
	Results        []replyResult   `json:"results"`
}

// #endregion wire

// #region parse

// ParseOutput reads a model reply. A reply carrying a JSON object decodes on
// the structured path. Anything else falls back to a single fact holding the
// whole trimmed reply, with no entities or sources.
func ParseOutput(segmentID, text string) Parsed {
	if raw := extractJSON(text); raw != "" {
		var r reply
		if err := json.Unmarshal([]byte(raw), &r); err == nil {
			return structured(segmentID, r)
		}
	}

	p := Parsed{Mode: segment.ParseRawFallback}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		p.Findings.Facts = []string{trimmed}
	}
	return p
}

func structured(segmentID string, r reply) Parsed {
	p := Parsed{
		Mode: segment.ParseStructured,
		Findings: segment.Findings{
			Entities:       decodeEntities(r.Entities),
			Facts:          nonBlank(r.Facts),
			Sources:        nonBlank(r.Sources),
			Contradictions: nonBlank(r.Contradictions),
		},
	}
	for _, rr := range r.Results {
		if strings.TrimSpace(rr.Title) == "" && strings.TrimSpace(rr.URL) == "" {
			continue
		}
		p.Results = append(p.Results, websearch.Result{
			Title:     strings.TrimSpace(rr.Title),
			Snippet:   strings.TrimSpace(rr.Snippet),
			URL:       strings.TrimSpace(rr.URL),
			Score:     clamp01(rr.Relevance),
			SegmentID: segmentID,
		})
	}
	return p
}

// #endregion parse

// #region helpers

// decodeEntities accepts either {"name": description} or ["name", ...].
// Descriptions of any JSON type are kept: scalars as text, nested values as
// compact JSON, null as empty.
func decodeEntities(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string)
	var m map[string]any
	var names []any
	switch {
	case json.Unmarshal(raw, &m) == nil:
		for k, v := range m {
			if k = strings.TrimSpace(k); k != "" {
				out[k] = entityText(v)
			}
		}
	case json.Unmarshal(raw, &names) == nil:
		for _, n := range names {
			if k := strings.TrimSpace(entityText(n)); k != "" {
				out[k] = ""
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func entityText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
