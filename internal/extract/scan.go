package extract

import "strings"

// #region span
// span is a half-open byte range [start, end) of a balanced {...} run.
type span struct {
	start, end int
}

// #endregion span

// #region scanner
// matchObject returns the end (exclusive) of the balanced object opening at
// text[start], tracking brace depth and skipping braces inside JSON string
// literals. ok is false when the braces never balance.
func matchObject(text string, start int) (end int, ok bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// nextCandidate finds the first balanced object opening at or after from.
// Unbalanced openers are skipped so a stray brace in prose does not hide a
// later object.
func nextCandidate(text string, from int) (span, bool) {
	for from < len(text) {
		rel := strings.IndexByte(text[from:], '{')
		if rel < 0 {
			return span{}, false
		}
		start := from + rel
		if end, ok := matchObject(text, start); ok {
			return span{start: start, end: end}, true
		}
		from = start + 1
	}
	return span{}, false
}

// #endregion scanner
