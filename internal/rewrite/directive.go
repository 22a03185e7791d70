package rewrite

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
)

// traitKeyword marks contract-carrying interfaces and their implementations.
const traitKeyword = "contract_trait"

// Directive is the parsed form of a single contract comment.
type Directive struct {
	Keyword string // "pre", "debug_post", "contract_trait", ...
	Kind    Kind   // contract directives only
	Mode    Mode   // contract directives only
	Trait   bool   // true for contract_trait markers
	Iface   string // interface name of a contract_trait(Iface) impl marker
	Args    string // raw text between the argument parentheses
}

// ParseDirective extracts a Directive from a comment text. It returns
// (nil, nil) when the comment is not a directive at all, and an error when
// a recognized directive keyword has a malformed argument list.
func ParseDirective(text string) (*Directive, error) {
	s := stripComment(text)
	if !strings.HasPrefix(s, "@") {
		return nil, nil
	}
	s = s[1:]

	i := 0
	for i < len(s) && (s[i] == '_' || s[i] >= 'a' && s[i] <= 'z' || s[i] >= 'A' && s[i] <= 'Z') {
		i++
	}
	keyword, rest := s[:i], strings.TrimSpace(s[i:])

	if keyword == traitKeyword {
		d := &Directive{Keyword: keyword, Trait: true}
		if rest == "" {
			return d, nil
		}
		inner, err := parseArgGroup(rest)
		if err != nil {
			return nil, fmt.Errorf("@%s: %w", keyword, err)
		}
		d.Iface = strings.TrimSpace(inner)
		if d.Iface == "" || !isIdent(d.Iface) {
			return nil, fmt.Errorf("@%s: %q is not an interface name", keyword, inner)
		}
		return d, nil
	}

	spelling, ok := contractSpellings[keyword]
	if !ok {
		return nil, nil // some other @-comment, not ours
	}
	inner, err := parseArgGroup(rest)
	if err != nil {
		return nil, fmt.Errorf("@%s: %w", keyword, err)
	}
	return &Directive{
		Keyword: keyword,
		Kind:    spelling.Kind,
		Mode:    spelling.Mode,
		Args:    inner,
	}, nil
}

// Contract parses the directive's argument list into a Contract.
func (d *Directive) Contract() (Contract, error) {
	asserts, desc, err := parseAssertions(d.Args)
	if err != nil {
		return Contract{}, fmt.Errorf("@%s: %w", d.Keyword, err)
	}
	return Contract{Kind: d.Kind, Mode: d.Mode, Assertions: asserts, Desc: desc}, nil
}

// parseAssertions parses a directive argument list into an ordered sequence
// of boolean assertion expressions plus an optional trailing description.
// Only a string literal in the final position becomes the description; a
// non-trailing literal stays a real assertion.
func parseAssertions(raw string) ([]Assertion, string, error) {
	var asserts []Assertion
	for _, part := range splitTopLevel(raw) {
		expr, err := parser.ParseExpr(RewriteImplications(part))
		if err != nil {
			return nil, "", fmt.Errorf("invalid contract expression %q: %w", part, err)
		}
		asserts = append(asserts, Assertion{Source: part, Expr: expr})
	}

	desc := ""
	if n := len(asserts); n > 0 {
		if lit, ok := asserts[n-1].Expr.(*ast.BasicLit); ok && lit.Kind == token.STRING {
			if v, err := strconv.Unquote(lit.Value); err == nil {
				desc = v
				asserts = asserts[:n-1]
			}
		}
	}
	return asserts, desc, nil
}

// parseArgGroup extracts the inner text of the "(...)" argument group that
// must make up the whole rest of the directive.
func parseArgGroup(rest string) (string, error) {
	if rest == "" || rest[0] != '(' {
		return "", fmt.Errorf("expected argument list in parentheses, got %q", rest)
	}
	j := matchingDelim(rest, 0)
	if j < 0 {
		return "", fmt.Errorf("unbalanced parentheses in %q", rest)
	}
	if trailing := strings.TrimSpace(rest[j+1:]); trailing != "" {
		return "", fmt.Errorf("unexpected text %q after argument list", trailing)
	}
	return rest[1:j], nil
}

// stripComment removes Go comment delimiters and returns trimmed content.
func stripComment(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "//") {
		return strings.TrimSpace(s[2:])
	}
	if strings.HasPrefix(s, "/*") && strings.HasSuffix(s, "*/") {
		return strings.TrimSpace(s[2 : len(s)-2])
	}
	return ""
}

// splitTopLevel splits s by commas that are not inside parentheses,
// brackets, braces or literals. Empty segments (including one produced by a
// trailing comma) are dropped.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	flush := func(end int) {
		if part := strings.TrimSpace(s[start:end]); part != "" {
			parts = append(parts, part)
		}
		start = end + 1
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\'', '`':
			i = skipLiteral(s, i)
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
			}
		}
	}
	flush(len(s))
	return parts
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return len(s) > 0
}
