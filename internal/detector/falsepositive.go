package detector

import "strings"

// The false-positive filter is three ordered, cheap, local heuristics; the
// first that fires wins. None of them build a parse tree.

// singleLineCommentMarkers are prefixes that mark a whole line as commented
// out. Block comments are only recognized when they open and close on the
// match line itself; a match inside a block comment spanning multiple lines
// is not suppressed. Known limitation, kept deliberately.
var singleLineCommentMarkers = []string{"//", "#"}

// isCommentLine implements the in-comment check for one source line.
func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, marker := range singleLineCommentMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return true
		}
	}
	return strings.Contains(trimmed, "/*") && strings.Contains(trimmed, "*/")
}

// nearbySanitizerPresent scans a fixed window of lines around matchLine
// (1-based) for any of the given sanitization or escaping calls.
func nearbySanitizerPresent(lines []string, matchLine, window int, sanitizers []string) bool {
	lo := matchLine - 1 - window
	hi := matchLine - 1 + window
	if lo < 0 {
		lo = 0
	}
	if hi > len(lines)-1 {
		hi = len(lines) - 1
	}
	for i := lo; i <= hi; i++ {
		if containsAny(lines[i], sanitizers) {
			return true
		}
	}
	return false
}

// isQuotedLiteral reports whether the entire trimmed snippet is wrapped in a
// single pair of matching quotes, i.e. inert string data rather than code.
func isQuotedLiteral(snippet string) bool {
	s := strings.TrimSpace(snippet)
	if len(s) < 2 {
		return false
	}
	q := s[0]
	if q != '\'' && q != '"' {
		return false
	}
	return s[len(s)-1] == q
}

// isFalsePositive applies the three heuristics in order for a finding whose
// match sits on matchLine of content.
func isFalsePositive(content string, matchLine int, code string, window int, sanitizers []string) bool {
	lines := strings.Split(content, "\n")
	if matchLine < 1 || matchLine > len(lines) {
		return false
	}
	if isCommentLine(lines[matchLine-1]) {
		return true
	}
	if nearbySanitizerPresent(lines, matchLine, window, sanitizers) {
		return true
	}
	return isQuotedLiteral(code)
}
