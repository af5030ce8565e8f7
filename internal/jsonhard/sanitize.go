package jsonhard

import "strings"

// maxErrorMessageLen is the query layer's error-message truncation
// limit (spec §7).
const maxErrorMessageLen = 200

var errorMessageReplacer = strings.NewReplacer(
	`\n`, " ",
	`\r`, " ",
	`\t`, " ",
	`\"`, `"`,
	`\\`, `\`,
)

var jsonBreakingReplacer = strings.NewReplacer(
	`"`, "'",
	"{", "(",
	"}", ")",
	"[", "(",
	"]", ")",
)

// SanitizeErrorMessage normalizes a user-visible error string for
// embedding back into rendered HTML or JSON: it collapses escape
// sequences, replaces characters that would break JSON
// re-serialization, collapses repeated spaces, and truncates to 200
// characters.
func SanitizeErrorMessage(input string) string {
	if input == "" {
		return ""
	}

	cleaned := errorMessageReplacer.Replace(input)
	cleaned = jsonBreakingReplacer.Replace(cleaned)

	for strings.Contains(cleaned, "  ") {
		cleaned = strings.ReplaceAll(cleaned, "  ", " ")
	}
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) > maxErrorMessageLen {
		cleaned = string([]rune(cleaned)[:maxErrorMessageLen-3]) + "..."
	}

	return cleaned
}

// collapsePatterns maps a substring found in a raw transport error to
// the short, human phrase the query layer shows instead of the full
// Debug-formatted error.
var collapsePatterns = []struct {
	contains string
	phrase   string
}{
	{"TLS handshake", "TLS handshake failed — server may be offline"},
	{"tls: handshake failure", "TLS handshake failed — server may be offline"},
	{"connection refused", "Connection refused"},
	{"i/o timeout", "Connection timed out"},
	{"context deadline exceeded", "Connection timed out"},
	{"no route to host", "Host unreachable"},
	{"EOF", "Connection closed unexpectedly"},
}

// CollapseTransportError shortens a verbose transport error into one
// of a small set of human-readable phrases, falling back to a
// sanitized and truncated rendering of the original when no known
// pattern matches.
func CollapseTransportError(err string) string {
	for _, p := range collapsePatterns {
		if strings.Contains(err, p.contains) {
			return p.phrase
		}
	}
	return SanitizeErrorMessage(err)
}
