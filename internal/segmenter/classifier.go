package segmenter

// #region imports
import (
	"regexp"
	"strings"
)

// #endregion

// #region markers

var comparisonWords = map[string]bool{
	"compare": true, "compared": true, "comparing": true, "comparison": true,
	"vs": true, "vs.": true, "versus": true,
}

// sequencePattern splits a query on ordering markers. "and then" and
// "after that" are consumed whole so no dangling conjunction is left behind.
var sequencePattern = regexp.MustCompile(`(?i)[,;]?\s*\b(?:and\s+)?(?:then|after\s+that|afterwards|after|next)\b[,:]?\s*`)

// comparisonSeparators splits the subject of a comparison into its sides.
var comparisonSeparators = regexp.MustCompile(`(?i)\s*(?:,|\bvs\b\.?|\bversus\b|\band\b|\bor\b|\bagainst\b|\bto\b|\bwith\b)\s*`)

var comparisonLead = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:compare|comparing|comparison\s+of|compared)\b\s*`)

// #endregion

// #region classify

// Classify classifies a query via surface heuristics. No model call.
func Classify(query string, cfg Config) Classification {
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)
	words := strings.Fields(lower)

	class := Classification{WordCount: len(words)}
	if len(words) == 0 {
		class.Class = ClassSimple
		return class
	}

	// Comparison before sequence: "compare A and B then pick one" is still a comparison.
	if hasComparisonMarker(words) {
		entities, aspect := comparisonSides(trimmed, cfg.MaxEntities)
		if len(entities) < 2 {
			// "Compare the performance of React and Vue": names sit behind the aspect
			entities = ExtractEntities(trimmed, cfg.MaxEntities)
			aspect = residualAspect(comparisonBody(trimmed), entities)
		}
		if len(entities) >= 2 {
			class.Class = ClassComparison
			class.Entities = entities
			class.Aspect = aspect
			return class
		}
	}

	if parts := splitSequence(trimmed); len(parts) >= 2 {
		class.Class = ClassSequential
		class.Parts = parts
		return class
	}

	class.Entities = ExtractEntities(trimmed, cfg.MaxEntities)
	class.Class = classifyComplexity(len(words), len(class.Entities), strings.Count(lower, "?"), cfg)
	return class
}

// #endregion

// #region markers-detection

func hasComparisonMarker(words []string) bool {
	for _, w := range words {
		if comparisonWords[strings.Trim(w, ",;:?!")] {
			return true
		}
	}
	return false
}

func splitSequence(query string) []string {
	raw := sequencePattern.Split(query, -1)
	var parts []string
	for _, p := range raw {
		p = strings.Trim(strings.TrimSpace(p), ",;:.")
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// #endregion

// #region comparison-sides

// comparisonSides returns the compared entities and any shared trailing
// aspect: "Compare React and Vue performance" → [React Vue], "performance".
func comparisonSides(query string, maxEntities int) ([]string, string) {
	body := comparisonBody(query)

	type side struct {
		name   string
		rest   string
		proper bool
	}
	var found []side
	anyProper := false
	for _, raw := range comparisonSeparators.Split(body, -1) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, rest, proper := leadingEntity(raw)
		if name == "" {
			continue
		}
		anyProper = anyProper || proper
		found = append(found, side{name, rest, proper})
	}

	var entities []string
	var aspect string
	seen := make(map[string]bool)
	for i, sd := range found {
		// Once any side names a proper noun, lower-case sides are aspect words.
		if anyProper && !sd.proper {
			continue
		}
		if i == len(found)-1 && sd.rest != "" {
			aspect = sd.rest
		}
		key := strings.ToLower(sd.name)
		if seen[key] {
			continue
		}
		seen[key] = true
		entities = append(entities, sd.name)
		if maxEntities > 0 && len(entities) >= maxEntities {
			break
		}
	}
	return entities, aspect
}

// comparisonBody drops the leading "compare" and trailing punctuation.
func comparisonBody(query string) string {
	body := comparisonLead.ReplaceAllString(query, "")
	return strings.TrimRight(strings.TrimSpace(body), "?.!")
}

// residualAspect is what remains of body once entity names, stopwords and
// separators are removed: "the performance of React and Vue" → "performance".
func residualAspect(body string, entities []string) string {
	names := make(map[string]bool)
	for _, e := range entities {
		for _, w := range strings.Fields(e) {
			names[strings.ToLower(w)] = true
		}
	}
	var rest []string
	for _, w := range strings.Fields(body) {
		c := cleanWord(w)
		lower := strings.ToLower(c)
		if c == "" || names[lower] || stopwords[lower] || comparisonWords[lower] || comparisonSeparators.MatchString(c) {
			continue
		}
		rest = append(rest, c)
	}
	return strings.Join(rest, " ")
}

// leadingEntity takes the entity name from the front of one comparison side.
// A run of capitalized words wins; otherwise the first non-stopword.
func leadingEntity(side string) (name, rest string, proper bool) {
	words := strings.Fields(side)
	n := 0
	for n < len(words) && isProperWord(words[n]) {
		n++
	}
	if n == 0 {
		for i, w := range words {
			if c := cleanWord(w); c != "" && !stopwords[strings.ToLower(c)] {
				return c, strings.Join(words[i+1:], " "), false
			}
		}
		return "", "", false
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = cleanWord(words[i])
	}
	return strings.Join(parts, " "), strings.Join(words[n:], " "), true
}

// #endregion

// #region classify-complexity

func classifyComplexity(wordCount, entityCount, questionMarks int, cfg Config) QueryClass {
	if wordCount >= cfg.ComplexMinWords || entityCount >= cfg.ComplexMinEntities || questionMarks >= 2 {
		return ClassComplex
	}
	if wordCount <= cfg.SimpleMaxWords && entityCount <= 1 {
		return ClassSimple
	}
	return ClassModerate
}

// #endregion
