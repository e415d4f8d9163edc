package runner

import (
	"reflect"
	"testing"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region test-parse
func TestParseOutput(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantMode  segment.ParseMode
		wantFacts int
		wantEnts  int
		wantRes   int
	}{
		{"plain object", `{"entities": {"Vue": "framework"}, "facts": ["a", "b"], "sources": ["s"]}`, segment.ParseStructured, 2, 1, 0},
		{"fenced", "Here you go:\n```json\n{\"facts\": [\"a\"]}\n```", segment.ParseStructured, 1, 0, 0},
		{"entity list", `{"entities": ["Vue", "React", ""], "facts": ["a"]}`, segment.ParseStructured, 1, 2, 0},
		{"trailing comma and comment", "{\n\"facts\": [\"a\",], // note\n}", segment.ParseStructured, 1, 0, 0},
		{"results", `{"facts": ["a"], "results": [{"title": "Vue docs", "url": "https://vuejs.org", "relevance": 0.7}, {"title": "", "url": ""}]}`, segment.ParseStructured, 1, 0, 1},
		{"mixed entity values", `{"entities": {"Vue": "framework", "React": 18, "Svelte": null, "Solid": {"by": "Ryan"}}, "facts": ["a"]}`, segment.ParseStructured, 1, 4, 0},
		{"blank facts dropped", `{"facts": ["  ", "a"]}`, segment.ParseStructured, 1, 0, 0},
		{"prose", "Vue is a progressive framework.", segment.ParseRawFallback, 1, 0, 0},
		{"broken json", `{"facts": [unquoted]}`, segment.ParseRawFallback, 1, 0, 0},
		{"empty", "   ", segment.ParseRawFallback, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseOutput("seg-1", tt.text)
			if p.Mode != tt.wantMode {
				t.Errorf("mode: got %s, want %s", p.Mode, tt.wantMode)
			}
			if len(p.Findings.Facts) != tt.wantFacts {
				t.Errorf("facts: got %v", p.Findings.Facts)
			}
			if len(p.Findings.Entities) != tt.wantEnts {
				t.Errorf("entities: got %v", p.Findings.Entities)
			}
			if len(p.Results) != tt.wantRes {
				t.Errorf("results: got %v", p.Results)
			}
		})
	}
}

func TestParseOutput_EntityValues(t *testing.T) {
	p := ParseOutput("seg-1", `{"entities": {"Vue": " framework ", "React": 18, "Angular": true, "Svelte": null, "Solid": {"by": "Ryan"}, " ": "x"}}`)
	want := map[string]string{
		"Vue":     "framework",
		"React":   "18",
		"Angular": "true",
		"Svelte":  "",
		"Solid":   `{"by":"Ryan"}`,
	}
	if !reflect.DeepEqual(p.Findings.Entities, want) {
		t.Errorf("entities: got %v, want %v", p.Findings.Entities, want)
	}

	p = ParseOutput("seg-1", `{"entities": ["Vue", 42, null, ""]}`)
	if !reflect.DeepEqual(p.Findings.Entities, map[string]string{"Vue": "", "42": ""}) {
		t.Errorf("entity list: got %v", p.Findings.Entities)
	}
}

func TestParseOutput_ResultFields(t *testing.T) {
	p := ParseOutput("seg-3", `{"results": [{"title": " Vue ", "url": "https://vuejs.org", "snippet": "s", "relevance": 1.7}]}`)
	if len(p.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(p.Results))
	}
	r := p.Results[0]
	if r.Title != "Vue" || r.SegmentID != "seg-3" || r.Score != 1 {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestStripLineComment(t *testing.T) {
	tests := []struct{ in, want string }{
		{`"a": 1, // c`, `"a": 1,`},
		{`"url": "http://example.com"`, `"url": "http://example.com"`},
		{`"q": "say \"//\"" // c`, `"q": "say \"//\""`},
	}
	for _, tt := range tests {
		if got := stripLineComment(tt.in); got != tt.want {
			t.Errorf("stripLineComment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// #endregion test-parse
