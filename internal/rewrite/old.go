package rewrite

import (
	"fmt"
	"go/ast"

	"golang.org/x/tools/go/ast/astutil"
)

// oldMarker is the name of the post-condition-only pseudo-function that
// evaluates its single argument before the function body runs.
const oldMarker = "old"

// oldBinderPrefix reserves a namespace for generated binders so they can
// never collide with user identifiers.
const oldBinderPrefix = "__contract_old_"

// OldBinding pairs a generated binder name with the expression to evaluate
// for it in pre-call state. The binding is emitted once, before the
// original body runs, and the rewritten post-conditions reference the
// binder in place of the original old(...) call.
type OldBinding struct {
	Name string
	Expr ast.Expr
}

// oldExtractor numbers binders sequentially from 0 within one function.
type oldExtractor struct {
	lastID int
	olds   []OldBinding
}

// extractOldCalls rewrites every one-argument call to the old marker in the
// given post-position assertions, replacing the call with a fresh binder
// identifier and recording the binding. Arguments are processed before the
// call itself, so nested old calls resolve inside-out. A call with zero or
// multiple arguments is treated as a normal function call and left alone.
func extractOldCalls(contracts []Contract) []OldBinding {
	ex := &oldExtractor{}
	for i := range contracts {
		for j := range contracts[i].Assertions {
			contracts[i].Assertions[j].Expr = ex.rewrite(contracts[i].Assertions[j].Expr)
		}
	}
	return ex.olds
}

func (x *oldExtractor) rewrite(expr ast.Expr) ast.Expr {
	// Post-order traversal: by the time a call is inspected its argument
	// has already been rewritten.
	return astutil.Apply(expr, nil, func(c *astutil.Cursor) bool {
		call, ok := c.Node().(*ast.CallExpr)
		if !ok {
			return true
		}
		fun, ok := call.Fun.(*ast.Ident)
		if !ok || fun.Name != oldMarker || len(call.Args) != 1 {
			return true
		}
		name := fmt.Sprintf("%s%d", oldBinderPrefix, x.lastID)
		x.lastID++
		x.olds = append(x.olds, OldBinding{Name: name, Expr: call.Args[0]})
		c.Replace(ast.NewIdent(name))
		return true
	}).(ast.Expr)
}
