package rewrite

import (
	"fmt"
	"go/ast"
)

// renderContractDocs renders a contract list as documentation lines for the
// public wrapper of a contract-trait method.
func renderContractDocs(contracts []Contract) []string {
	if len(contracts) == 0 {
		return nil
	}
	lines := []string{"Contracts:"}
	for _, c := range contracts {
		qual := ""
		switch c.Mode {
		case ModeDebug:
			qual = " - debug"
		case ModeTest:
			qual = " - test"
		case ModeLogOnly:
			qual = " - log"
		}
		if c.Desc != "" {
			// group all assertions under the description
			lines = append(lines, fmt.Sprintf("%s%s: %s", c.Kind.MessageName(), qual, c.Desc))
			for _, a := range c.Assertions {
				lines = append(lines, "  - "+a.Source)
			}
		} else {
			// document each assertion on its own
			for _, a := range c.Assertions {
				lines = append(lines, fmt.Sprintf("%s%s: %s", c.Kind.MessageName(), qual, a.Source))
			}
		}
	}
	return lines
}

// docComment builds a //-style comment group from plain lines.
func docComment(lines []string) *ast.CommentGroup {
	if len(lines) == 0 {
		return nil
	}
	cg := &ast.CommentGroup{}
	for _, line := range lines {
		text := "// " + line
		if line == "" {
			text = "//"
		}
		cg.List = append(cg.List, &ast.Comment{Text: text})
	}
	return cg
}
