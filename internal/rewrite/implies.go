package rewrite

import "strings"

const impliesToken = "==>"

// RewriteImplications eliminates the `==>` implication operator from an
// expression's source text before it is handed to the Go expression
// grammar, which has no such operator. `A ==> B` becomes `!(A) || (B)`,
// applied right-associatively: `A ==> B ==> C` becomes
// `!(A) || (!(B) || (C))`.
//
// The scan only splits on markers at nesting depth zero; markers inside
// parentheses, brackets or braces are handled by a separate scan of that
// group's content, and string, raw-string and rune literals are never
// scanned. Because this is a token-level rewrite, an implication whose
// consequent is a braced control-flow construct does not parse as intended
// unless the user adds explicit grouping.
func RewriteImplications(s string) string {
	if idx := topLevelImplies(s); idx >= 0 {
		left := strings.TrimSpace(s[:idx])
		right := strings.TrimSpace(s[idx+len(impliesToken):])
		return "!(" + rewriteGroups(left) + ") || (" + RewriteImplications(right) + ")"
	}
	return rewriteGroups(s)
}

// topLevelImplies returns the index of the leftmost `==>` at nesting depth
// zero outside literals, or -1.
func topLevelImplies(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\'', '`':
			i = skipLiteral(s, i)
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth == 0 && strings.HasPrefix(s[i:], impliesToken) {
				return i
			}
		}
	}
	return -1
}

// rewriteGroups rewrites implications contained in nested groups of s,
// leaving everything at the top level untouched.
func rewriteGroups(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\'', '`':
			j := skipLiteral(s, i)
			b.WriteString(s[i : j+1])
			i = j
		case '(', '[', '{':
			j := matchingDelim(s, i)
			if j < 0 {
				// Unbalanced group; leave it for the expression parser
				// to report.
				b.WriteString(s[i:])
				return b.String()
			}
			b.WriteByte(c)
			b.WriteString(RewriteImplications(s[i+1 : j]))
			b.WriteByte(s[j])
			i = j
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// skipLiteral returns the index of the closing quote of the literal that
// starts at i. Backslash escapes are honored except in raw strings.
func skipLiteral(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		c := s[j]
		if quote != '`' && c == '\\' {
			j++
			continue
		}
		if c == quote {
			return j
		}
	}
	return len(s) - 1
}

// matchingDelim returns the index of the delimiter closing the group that
// opens at index open, or -1 when the group is unbalanced.
func matchingDelim(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '"', '\'', '`':
			i = skipLiteral(s, i)
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
