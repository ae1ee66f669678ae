package search

import (
	"regexp"
	"strings"
)

// Intent is a parsed query modifier that changes result ordering.
type Intent string

const (
	IntentNone    Intent = ""
	IntentEarliest Intent = "earliest"
	IntentLatest  Intent = "latest"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "is": true, "are": true,
	"was": true, "were": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "and": true, "or": true, "do": true, "does": true, "did": true,
}

var conversationalPrefix = regexp.MustCompile(`(?i)^what\s+is\s+the\s+(.+?)\s+of\s+(.+)$`)

// ParsedQuery is the result of the searcher's parse step.
type ParsedQuery struct {
	Terms  []string
	Intent Intent
}

// ParseQuery lowercases raw, detects an earliest/latest intent marker,
// rewrites a "what is the X of Y" conversational prefix down to its
// trailing noun phrase, and strips stopwords from what remains.
func ParseQuery(raw string) ParsedQuery {
	lower := strings.ToLower(strings.TrimSpace(raw))

	intent := IntentNone
	switch {
	case strings.Contains(lower, "earliest"):
		intent = IntentEarliest
	case strings.Contains(lower, "latest"), strings.Contains(lower, "recent"):
		intent = IntentLatest
	}

	if m := conversationalPrefix.FindStringSubmatch(lower); m != nil {
		lower = m[1] + " " + m[2]
	}

	var terms []string
	for _, word := range strings.Fields(lower) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if word == "" || stopwords[word] || word == "earliest" || word == "latest" || word == "recent" {
			continue
		}
		terms = append(terms, word)
	}

	return ParsedQuery{Terms: terms, Intent: intent}
}

// FTSQuery builds an FTS5 MATCH expression: AND semantics (implicit,
// space-separated) when and is true, OR semantics otherwise.
func (p ParsedQuery) FTSQuery(and bool) string {
	if len(p.Terms) == 0 {
		return ""
	}
	if and {
		return strings.Join(p.Terms, " ")
	}
	return strings.Join(p.Terms, " OR ")
}
