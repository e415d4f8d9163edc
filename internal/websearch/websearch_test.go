package websearch

import (
	"strings"
	"testing"
)

// #region format_tests

func TestFormat_MultipleResults(t *testing.T) {
	results := []Result{
		{Title: "Title A", Snippet: "Snippet A", URL: "https://a.com", Score: 0.9},
		{Title: "Title B", Snippet: "Snippet B", URL: "https://b.com", Score: 0.5},
	}
	out := Format(results)
	if !strings.Contains(out, "[Results]") {
		t.Error("missing header")
	}
	if !strings.Contains(out, "1. Title A (0.90)") {
		t.Errorf("missing result 1 in %q", out)
	}
	if !strings.Contains(out, "2. Title B (0.50)") {
		t.Error("missing result 2")
	}
	if !strings.Contains(out, "Source: https://a.com") {
		t.Error("missing source URL")
	}
}

func TestFormat_Empty(t *testing.T) {
	if out := Format(nil); out != "" {
		t.Errorf("expected empty string for nil results, got %q", out)
	}
}

func TestFormat_NoTitleUsesURL(t *testing.T) {
	out := Format([]Result{{URL: "https://c.com/x", Score: 0.3}})
	if !strings.Contains(out, "1. https://c.com/x") {
		t.Errorf("expected URL as title, got %q", out)
	}
	if strings.Contains(out, "Source:") {
		t.Error("should not repeat URL as Source line")
	}
}

// #endregion format_tests

// #region key_tests

func TestKey(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"https://Example.com/docs/", "https://example.com/docs", true},
		{"https://example.com/docs#intro", "https://example.com/docs", true},
		{"HTTPS://example.com/a", "https://example.com/a", true},
		{"https://example.com/a", "https://example.com/b", false},
		{"https://example.com/a?x=1", "https://example.com/a?x=2", false},
		{"React docs", "react docs", true},
	}
	for _, tt := range tests {
		t.Run(tt.a, func(t *testing.T) {
			if got := Key(tt.a) == Key(tt.b); got != tt.same {
				t.Errorf("Key(%q)=%q Key(%q)=%q same=%v want %v", tt.a, Key(tt.a), tt.b, Key(tt.b), got, tt.same)
			}
		})
	}
	if Key("   ") != "" {
		t.Error("blank input should produce empty key")
	}
}

// #endregion key_tests
