package runner

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns for pulling a JSON object out of a model reply.
var (
	// jsonBlockPattern matches JSON inside markdown code fences.
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern is the greedy fallback for an unfenced object.
	jsonObjectPattern = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// extractJSON returns the first JSON object found in content, with line
// comments and trailing commas removed. Returns "" when none is present.
func extractJSON(content string) string {
	raw := ""
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else if m := jsonObjectPattern.FindString(content); m != "" {
		raw = m
	}
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment drops a trailing // comment that sits outside a string.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
