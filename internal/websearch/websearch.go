package websearch

import (
	"fmt"
	"net/url"
	"strings"
)

// #region types

// Result is a single search-style result reported by a segment.
type Result struct {
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet,omitempty"`
	URL       string  `json:"url"`
	Score     float64 `json:"score"` // relevance / quality, 0..1
	SegmentID string  `json:"segment_id,omitempty"`
}

// #endregion types

// #region key

// Key returns the stable deduplication key for a result: the source URL with
// scheme and host lower-cased, fragment dropped and trailing slash trimmed.
// Values that do not parse as absolute URLs are lower-cased and trimmed.
func Key(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(s), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// #endregion key

// #region format

// Format renders results as a numbered list for display.
func Format(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[Results]\n")
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		fmt.Fprintf(&b, "%d. %s (%.2f)\n", i+1, title, r.Score)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
		if r.URL != "" && r.URL != title {
			fmt.Fprintf(&b, "   Source: %s\n", r.URL)
		}
	}
	return b.String()
}

// #endregion format
