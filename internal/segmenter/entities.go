package segmenter

import (
	"regexp"
	"strings"
	"unicode"
)

// #region stopwords
// stopwords contains common English words that never name an entity.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "us": true,
	"them": true, "tell": true, "please": true,
}

// leadWords are imperative openers; capitalized only because they start the query.
var leadWords = map[string]bool{
	"compare": true, "research": true, "find": true, "explain": true,
	"describe": true, "list": true, "show": true, "summarize": true,
	"analyze": true, "analyse": true, "evaluate": true, "give": true,
	"search": true, "look": true, "get": true, "identify": true,
	"investigate": true, "review": true, "discuss": true, "outline": true,
}

// #endregion stopwords

// #region entities

var quotedPattern = regexp.MustCompile(`"([^"]+)"|'([^']{2,})'`)

// ExtractEntities returns distinct entity names from a query: quoted phrases
// first, then runs of capitalized words. Opening imperatives and stopwords
// are never entities. At most max names are returned (max <= 0: no limit).
func ExtractEntities(query string, max int) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) bool {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] || stopwords[key] || leadWords[key] {
			return true
		}
		seen[key] = true
		out = append(out, name)
		return max <= 0 || len(out) < max
	}

	for _, m := range quotedPattern.FindAllStringSubmatch(query, -1) {
		q := m[1]
		if q == "" {
			q = m[2]
		}
		if !add(q) {
			return out
		}
	}
	unquoted := quotedPattern.ReplaceAllString(query, " ")

	words := strings.Fields(unquoted)
	var run []string
	flush := func() bool {
		if len(run) == 0 {
			return true
		}
		name := strings.Join(run, " ")
		run = run[:0]
		return add(name)
	}
	for i, w := range words {
		c := cleanWord(w)
		lower := strings.ToLower(c)
		proper := isProperWord(w)
		if i == 0 && (leadWords[lower] || stopwords[lower]) {
			proper = false
		}
		if proper && !stopwords[lower] {
			run = append(run, c)
		} else if !flush() {
			return out
		}
		// punctuation after a word ends the run: "React, Vue"
		if strings.ContainsAny(w, ",;:?!.") && !flush() {
			return out
		}
	}
	flush()
	return out
}

// #endregion entities

// #region word-helpers

// cleanWord strips surrounding punctuation but keeps inner dots and dashes ("Node.js").
func cleanWord(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

// isProperWord reports whether w starts with an upper-case letter.
func isProperWord(w string) bool {
	c := cleanWord(w)
	if c == "" {
		return false
	}
	for _, r := range c {
		return unicode.IsUpper(r)
	}
	return false
}

// #endregion word-helpers
