// Package jsonhard hardens the JSON blobs posted by probe workers
// before they reach the query layer. Workers run untrusted-shaped
// third-party protocol libraries; their error paths sometimes embed a
// Debug-formatted transport error (unescaped quotes, braces) straight
// into a string field. The pipeline here never drops a row: a result
// that can't be repaired still becomes a minimal skeleton record.
package jsonhard

import (
	"encoding/json"
	"regexp"
	"strings"
)

// replacements are patterns known to appear inside worker error
// strings that break a strict JSON parse. Applied before the first
// parse attempt, in order.
var replacements = []struct {
	old, new string
}{
	{"UnsyncBoxBody", "Response body"},
	{"Response {", "Response("},
	{"Status {", "Status("},
	{"headers: {", "headers: ("},
	{"body: {", "body: ("},
}

// applyKnownPatterns substitutes known-problematic substrings. It is
// deliberately narrower than a general brace-balancer: it only touches
// text known to originate from a Debug-formatted error, not from
// legitimate JSON structure.
func applyKnownPatterns(input string) string {
	out := input
	for _, r := range replacements {
		out = strings.ReplaceAll(out, r.old, r.new)
	}
	return out
}

// escapeUnescapedQuotes walks the input tracking whether it's inside a
// JSON string and escapes any `"` that appears where an unescaped
// quote would otherwise terminate the string early.
func escapeUnescapedQuotes(input string) string {
	var b strings.Builder
	b.Grow(len(input) + 16)

	inString := false
	escaped := false
	runes := []rune(input)

	for i, ch := range runes {
		switch {
		case ch == '"' && !escaped:
			// A quote toggles string state only when it looks like a
			// field/value delimiter: preceded by one of `{,:[ ` or at
			// the start, or followed by one of `,:}] ` or at the end.
			// Anything else is an embedded quote to escape.
			prevOK := i == 0 || strings.ContainsRune(`{,:[ `+"\n", runes[i-1])
			nextOK := i == len(runes)-1 || strings.ContainsRune(`,:}] `+"\n", runes[i+1])
			if !inString && prevOK {
				inString = true
				b.WriteRune(ch)
			} else if inString && nextOK {
				inString = false
				b.WriteRune(ch)
			} else if inString {
				b.WriteString(`\"`)
			} else {
				b.WriteRune(ch)
			}
		case ch == '\\' && !escaped:
			escaped = true
			b.WriteRune(ch)
			continue
		default:
			b.WriteRune(ch)
		}
		escaped = false
	}

	return b.String()
}

// stripTrailingCommasAndJoinGaps removes commas immediately before a
// closing `]`/`}` and inserts a comma between adjacent `}{` / `][` /
// `}[` pairs that are missing one.
func stripTrailingCommasAndJoinGaps(input string) string {
	out := input
	for _, pair := range [][2]string{{",}", "}"}, {",]", "]"}, {",,", ","}} {
		out = strings.ReplaceAll(out, pair[0], pair[1])
	}
	out = strings.ReplaceAll(out, "}{", "},{")
	out = strings.ReplaceAll(out, "][", "],[")
	out = strings.ReplaceAll(out, "}[", "},[")
	return out
}

// extractBalancedSubstring returns the balanced `{...}` (tried first) or
// `[...]` span that starts at the first `{` (or `[`) of input, if that
// span parses as JSON. Spans starting at later opening characters are
// not tried.
func extractBalancedSubstring(input string) (string, bool) {
	if candidate, ok := extractBalanced(input, '{', '}'); ok {
		return candidate, true
	}
	if candidate, ok := extractBalanced(input, '[', ']'); ok {
		return candidate, true
	}
	return "", false
}

func extractBalanced(input string, open, closeRune rune) (string, bool) {
	start := strings.IndexRune(input, open)
	if start < 0 {
		return "", false
	}
	runes := []rune(input[start:])

	depth := 0
	inString := false
	escaped := false
	for i, ch := range runes {
		switch {
		case ch == '"' && !escaped:
			inString = !inString
		case ch == '\\' && !escaped:
			escaped = true
			continue
		case ch == open && !inString:
			depth++
		case ch == closeRune && !inString:
			depth--
			if depth == 0 {
				candidate := string(runes[:i+1])
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
		escaped = false
	}
	return "", false
}

var kvPattern = regexp.MustCompile(`"([^"]+)"\s*:\s*("([^"]*)"|([^,}\]]+))`)

// synthesizeMinimalObject regex-extracts `"key":"value"` (or bare
// value) pairs from input and builds a flat JSON object out of them.
// This is the last repair strategy tried before giving up.
func synthesizeMinimalObject(input string) (string, bool) {
	matches := kvPattern.FindAllStringSubmatch(input, -1)
	if len(matches) == 0 {
		return "", false
	}

	var pairs []string
	for _, m := range matches {
		key := m[1]
		var value string
		if strings.HasPrefix(m[2], `"`) {
			value = m[3]
		} else {
			value = strings.TrimSpace(m[4])
		}
		value = strings.ReplaceAll(value, `"`, `'`)
		pairs = append(pairs, `"`+key+`":"`+value+`"`)
	}
	if len(pairs) == 0 {
		return "", false
	}
	return "{" + strings.Join(pairs, ",") + "}", true
}

// skeletonRecord is the JSON emitted when every repair strategy fails.
// The row is never dropped — it's tagged as a parse error instead.
func skeletonRecord() []byte {
	return []byte(`{"status":"error","error_type":"parse_error","height":0}`)
}

// Repair attempts to turn a possibly-malformed JSON blob into valid
// JSON bytes, in the strategy order the query layer's input hardening
// requires: known-pattern substitution, strict parse, unescaped-quote
// repair, comma/brace gap fixes, balanced-substring extraction,
// key/value synthesis, and finally a parse-error skeleton. It never
// returns an error: the worst case is the skeleton record.
func Repair(input []byte) []byte {
	raw := string(input)
	if strings.TrimSpace(raw) == "" {
		return skeletonRecord()
	}

	if json.Valid(input) {
		return input
	}

	known := applyKnownPatterns(raw)
	if json.Valid([]byte(known)) {
		return []byte(known)
	}

	quoteFixed := escapeUnescapedQuotes(known)
	if json.Valid([]byte(quoteFixed)) {
		return []byte(quoteFixed)
	}

	gapFixed := stripTrailingCommasAndJoinGaps(quoteFixed)
	if json.Valid([]byte(gapFixed)) {
		return []byte(gapFixed)
	}

	if candidate, ok := extractBalancedSubstring(raw); ok {
		return []byte(candidate)
	}

	if synthesized, ok := synthesizeMinimalObject(raw); ok {
		return []byte(synthesized)
	}

	return skeletonRecord()
}
