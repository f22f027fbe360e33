// Package normalize implements the deterministic text normalization pipeline
// shared by all matchers. The same function feeds both embedding input and
// lexical overlap scoring, so every matcher sees identical token streams.
package normalize

import (
	"regexp"
	"strings"
)

// synonyms canonicalizes construction jargon onto single catalog terms.
// Lookup happens on the literal token first, then on its stemmed form.
var synonyms = map[string]string{
	"bricks":       "brick",
	"brickwork":    "brick",
	"blocks":       "brick",
	"blockwork":    "brick",
	"cement":       "concrete",
	"footing":      "foundation",
	"footings":     "foundation",
	"excavation":   "excavate",
	"excavations":  "excavate",
	"installation": "install",
	"installing":   "install",
	"demolition":   "demolish",
	"supply":       "provide",
	"supplies":     "provide",
}

// stopwords is the fixed closed set removed after canonicalization.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "in": {}, "for": {},
	"on": {}, "at": {}, "by": {}, "from": {}, "with": {}, "a": {},
	"an": {}, "be": {}, "is": {}, "are": {}, "as": {}, "it": {},
	"its": {}, "into": {}, "or": {},
}

// units are measurement tokens stripped when they directly follow a number.
var units = map[string]struct{}{
	"mm": {}, "cm": {}, "m": {}, "inch": {}, "in": {}, "ft": {},
}

// suffixes are tried in order; the first match is stripped from tokens
// longer than three characters.
var suffixes = []string{"ings", "ing", "ed", "es", "s"}

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)
	numericRe  = regexp.MustCompile(`^[0-9]+$`)
	tokenRe    = regexp.MustCompile(`\b[a-zA-Z0-9]+\b`)
)

// Normalize converts raw line-item text into the canonical token string.
// Deterministic and total: empty input yields an empty string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(text)
	cleaned := nonAlnumRe.ReplaceAllString(lowered, " ")

	raw := strings.Fields(cleaned)

	// Drop numeric tokens and unit tokens that directly follow a number.
	tokens := make([]string, 0, len(raw))
	prevNumeric := false
	for _, tok := range raw {
		if numericRe.MatchString(tok) {
			prevNumeric = true
			continue
		}
		if _, isUnit := units[tok]; isUnit && prevNumeric {
			prevNumeric = false
			continue
		}
		prevNumeric = false
		tokens = append(tokens, tok)
	}

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = canonicalize(tok)
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}

	return strings.Join(out, " ")
}

// Tokens returns the deduplicated token set of normalized text, preserving
// first-occurrence order. Used for Jaccard overlap scoring.
func Tokens(text string) []string {
	return SplitTokens(Normalize(text))
}

// SplitTokens extracts the deduplicated token set from already-normalized
// text without re-running the pipeline.
func SplitTokens(normalized string) []string {
	matches := tokenRe.FindAllString(normalized, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, tok := range matches {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// canonicalize maps a token through the synonym table, falling back to the
// stemmed form: literal lookup first, then stem, then lookup again.
func canonicalize(tok string) string {
	if canon, ok := synonyms[tok]; ok {
		return canon
	}
	stemmed := stem(tok)
	if canon, ok := synonyms[stemmed]; ok {
		return canon
	}
	return stemmed
}

// stem strips the first matching suffix from tokens longer than three chars.
func stem(tok string) string {
	if len(tok) <= 3 {
		return tok
	}
	for _, suf := range suffixes {
		if strings.HasSuffix(tok, suf) {
			return tok[:len(tok)-len(suf)]
		}
	}
	return tok
}
