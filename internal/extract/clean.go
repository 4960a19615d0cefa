package extract

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

// #region patterns
var (
	undefinedFence = regexp.MustCompile("(?is)^```[a-z0-9_-]*\\s*undefined\\s*```")
	undefinedLine  = regexp.MustCompile(`(?i)^undefined[ \t]*(\r?\n|$)`)
	fenceOpener    = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \\t]*$")
)

// #endregion patterns

// #region clean
// CleanReasoning strips model debris from explanation text: a leading
// ```undefined``` block or bare "undefined" line, a leading JSON object or
// fenced JSON block, stray fence markers and leading punctuation, and
// anything from a later code block or JSON object onward. It runs to a
// fixpoint, so it is idempotent.
func CleanReasoning(s string) string {
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = strings.TrimLeftFunc(s, isLeadingJunk)
	s = undefinedFence.ReplaceAllString(s, "")
	s = stripLeadingFence(s)
	s = undefinedLine.ReplaceAllString(s, "")
	s = stripLeadingObject(s)
	s = cutTrailingDebris(s)
	return strings.TrimSpace(s)
}

// #endregion clean

// #region helpers
func isLeadingJunk(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ',', ';', ':', '.', ')', ']', '}', '>', '|', '-', '–', '—':
		return true
	}
	return false
}

// stripLeadingFence removes a fence marker at the start of s. A fenced block
// whose body is empty, "undefined" or a JSON object is removed whole.
func stripLeadingFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	line, rest, found := strings.Cut(s, "\n")
	if !fenceOpener.MatchString(strings.TrimRight(line, "\r")) {
		return s
	}
	if !found {
		return ""
	}
	closeAt := strings.Index(rest, "```")
	if closeAt < 0 {
		return rest
	}
	body := strings.TrimSpace(rest[:closeAt])
	if body == "" || strings.EqualFold(body, "undefined") || isJSONObject(body) {
		return rest[closeAt+3:]
	}
	return rest
}

func stripLeadingObject(s string) string {
	if !strings.HasPrefix(s, "{") {
		return s
	}
	end, ok := matchObject(s, 0)
	if !ok || !json.Valid([]byte(s[:end])) {
		return s
	}
	return s[end:]
}

// cutTrailingDebris drops everything from the first later fence marker or
// line-leading JSON object.
func cutTrailingDebris(s string) string {
	if i := strings.Index(s, "```"); i > 0 {
		s = s[:i]
	}
	for off := 0; off < len(s); {
		nl := strings.IndexByte(s[off:], '\n')
		if nl < 0 {
			break
		}
		lineStart := off + nl + 1
		trimmed := strings.TrimLeft(s[lineStart:], " \t")
		at := len(s) - len(trimmed)
		if strings.HasPrefix(trimmed, "{") {
			if end, ok := matchObject(s, at); ok && json.Valid([]byte(s[at:end])) {
				return s[:lineStart]
			}
		}
		off = lineStart
	}
	return s
}

func isJSONObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	end, ok := matchObject(s, 0)
	return ok && end == len(s) && json.Valid([]byte(s))
}

// #endregion helpers
