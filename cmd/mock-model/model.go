package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region canned-model

// cannedModel answers every prompt with deterministic structured JSON derived
// from the prompt's task line. Replies at weakTier carry low-relevance results
// so the caller's escalation path can be exercised end to end.
type cannedModel struct {
	latency  time.Duration
	weakTier segment.Tier
	rawTypes map[string]bool // task types answered in plain text
}

type cannedResult struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

type cannedReply struct {
	Entities map[string]string `json:"entities"`
	Facts    []string          `json:"facts"`
	Sources  []string          `json:"sources"`
	Results  []cannedResult    `json:"results,omitempty"`
}

func (m *cannedModel) Complete(ctx context.Context, prompt string, opts segment.CompletionOptions) (string, int, error) {
	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-ctx.Done():
			return "", 0, ctx.Err()
		}
	}

	typ, task := parseTask(prompt)
	if m.rawTypes[typ] {
		text := fmt.Sprintf("Notes on %s: nothing structured to report.", task)
		return text, estimate(prompt, text), nil
	}

	slug := slugify(task)
	reply := cannedReply{
		Entities: map[string]string{task: typ},
		Facts: []string{
			fmt.Sprintf("%s was examined at tier %s", task, tierOr(opts.Tier)),
			fmt.Sprintf("%s has %d prior context lines", task, strings.Count(prompt, "\n- (")),
		},
		Sources: []string{"https://docs.example.com/" + slug},
	}
	if m.weakTier != "" && opts.Tier == m.weakTier {
		reply.Results = []cannedResult{{
			Title:     task,
			URL:       "https://search.example.com/" + slug,
			Snippet:   "Weak match for " + task,
			Relevance: 0.3,
		}}
	}

	b, err := json.Marshal(reply)
	if err != nil {
		return "", 0, fmt.Errorf("encode reply: %w", err)
	}
	return string(b), estimate(prompt, string(b)), nil
}

// #endregion canned-model

// #region helpers

// parseTask extracts the segment type and task text from a "[Task: type]"
// block. Prompts without one are treated as a bare entity task.
func parseTask(prompt string) (string, string) {
	const marker = "[Task: "
	i := strings.Index(prompt, marker)
	if i < 0 {
		return string(segment.TypeEntity), firstLine(prompt)
	}
	rest := prompt[i+len(marker):]
	end := strings.Index(rest, "]")
	if end < 0 {
		return string(segment.TypeEntity), firstLine(rest)
	}
	typ := rest[:end]
	task := firstLine(strings.TrimLeft(rest[end+1:], "\n"))
	if j := strings.Index(task, ": "); j >= 0 && j < 60 {
		task = task[j+2:]
	}
	return typ, task
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func tierOr(t segment.Tier) segment.Tier {
	if t == "" {
		return segment.TierSmall
	}
	return t
}

func estimate(prompt, reply string) int {
	return (len(prompt) + len(reply)) / 4
}

// #endregion helpers
