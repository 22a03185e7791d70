package rewrite

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/astutil"
)

const (
	// postLabel is the jump target in front of the post-checks; rewritten
	// returns branch to it instead of leaving the frame.
	postLabel = "__contract_post"
	// retBinder names the result value visible to post-conditions. Extra
	// results are ret1, ret2, ...
	retBinder = "ret"

	checkPkgPath = "github.com/x52dev/contracts/check"
	slogPkgPath  = "log/slog"
)

// emitNeeds records which imports the synthesized statements rely on.
type emitNeeds struct {
	check bool // github.com/x52dev/contracts/check
	slog  bool // log/slog
}

func (n *emitNeeds) merge(o emitNeeds) {
	n.check = n.check || o.check
	n.slog = n.slog || o.slog
}

// synthesize replaces the body of fc.Decl with a new one that, in order,
// asserts all pre-conditions, evaluates the old-state bindings, runs the
// original body with every return translated into a branch to the
// post-check label, asserts all post-conditions against the result
// bindings, and yields the result. Contracts whose final mode is Disabled
// contribute nothing, not even their old-state bindings.
func synthesize(fc *FuncContracts, opts Options) (emitNeeds, error) {
	var needs emitNeeds
	decl := fc.Decl
	if decl.Body == nil {
		return needs, fmt.Errorf("function %s has no body", decl.Name.Name)
	}

	// Expand invariants into both positions. The post-position instance
	// gets its own expression trees, re-parsed from source, so that
	// old-extraction and result substitution never leak into the checks
	// emitted before the body.
	var pre, post []Contract
	for _, c := range fc.Contracts {
		if FinalMode(c.Mode, opts) == ModeDisabled {
			continue
		}
		switch c.Kind {
		case KindPre:
			pre = append(pre, applySelf(c))
		case KindPost:
			post = append(post, applySelf(c))
		case KindInvariant:
			pre = append(pre, applySelf(c))
			cp, err := reparseContract(c)
			if err != nil {
				return needs, fmt.Errorf("function %s: %w", decl.Name.Name, err)
			}
			post = append(post, applySelf(cp))
		}
	}

	olds := extractOldCalls(post)

	retNames, retDecls := resultBindings(decl.Type)
	if namedResults(decl.Type) {
		for i := range post {
			for j := range post[i].Assertions {
				post[i].Assertions[j].Expr = substituteRetIdents(post[i].Assertions[j].Expr, retNames)
			}
		}
	}

	branched := rewriteReturns(decl.Body, retNames)

	fnName := decl.Name.Name
	preStmts := buildChecks(pre, KindPre, fnName, opts, &needs)
	postStmts := buildChecks(post, KindPost, fnName, opts, &needs)

	stmts := make([]ast.Stmt, 0, len(preStmts)+len(olds)+len(retDecls)+len(postStmts)+3)
	stmts = append(stmts, preStmts...)
	for _, o := range olds {
		stmts = append(stmts, &ast.AssignStmt{
			Lhs: []ast.Expr{ast.NewIdent(o.Name)},
			Tok: token.DEFINE,
			Rhs: []ast.Expr{o.Expr},
		})
	}
	stmts = append(stmts, retDecls...)
	// The original statements keep their own scope so user declarations
	// can never shadow the bindings above or leak into the post-checks.
	stmts = append(stmts, &ast.BlockStmt{List: decl.Body.List})

	tail := postStmts
	if len(retNames) > 0 {
		results := make([]ast.Expr, len(retNames))
		for i, n := range retNames {
			results[i] = ast.NewIdent(n)
		}
		tail = append(tail, &ast.ReturnStmt{Results: results})
	}
	if branched {
		if len(tail) == 0 {
			tail = []ast.Stmt{&ast.EmptyStmt{}}
		}
		tail[0] = &ast.LabeledStmt{Label: ast.NewIdent(postLabel), Stmt: tail[0]}
	}
	stmts = append(stmts, tail...)

	decl.Body = &ast.BlockStmt{List: stmts}
	return needs, nil
}

// applySelf rebinds `self` in the contract's assertion expressions to the
// contract's configured receiver identifier. Sources are untouched, so
// violation messages keep the self spelling.
func applySelf(c Contract) Contract {
	if c.selfName == "" {
		return c
	}
	for j := range c.Assertions {
		c.Assertions[j].Expr = substituteIdent(c.Assertions[j].Expr, "self", c.selfName)
	}
	return c
}

// reparseContract clones a contract by re-parsing its assertion sources
// into fresh expression trees.
func reparseContract(c Contract) (Contract, error) {
	cp := c
	cp.Assertions = make([]Assertion, len(c.Assertions))
	for i, a := range c.Assertions {
		expr, err := parser.ParseExpr(RewriteImplications(a.Source))
		if err != nil {
			return cp, fmt.Errorf("invalid contract expression %q: %w", a.Source, err)
		}
		cp.Assertions[i] = Assertion{Source: a.Source, Expr: expr}
	}
	return cp, nil
}

// namedResults reports whether the function declares named results.
func namedResults(ft *ast.FuncType) bool {
	return ft.Results != nil && len(ft.Results.List) > 0 && len(ft.Results.List[0].Names) > 0
}

// resultBindings returns the identifiers the synthesized body assigns
// return values to, plus the declarations needed for them. For named
// results the declared names are the bindings (a blank name is renamed in
// place so it can be re-yielded); for unnamed results fresh ret bindings
// are declared.
func resultBindings(ft *ast.FuncType) (names []string, decls []ast.Stmt) {
	if ft.Results == nil || len(ft.Results.List) == 0 {
		return nil, nil
	}
	if namedResults(ft) {
		i := 0
		for _, field := range ft.Results.List {
			for _, name := range field.Names {
				if name.Name == "_" {
					name.Name = fmt.Sprintf("__contract_ret_%d", i)
				}
				names = append(names, name.Name)
				i++
			}
		}
		return names, nil
	}
	for i, field := range ft.Results.List {
		name := retBinder
		if i > 0 {
			name = retBinder + strconv.Itoa(i)
		}
		names = append(names, name)
		decls = append(decls, &ast.DeclStmt{Decl: &ast.GenDecl{
			Tok: token.VAR,
			Specs: []ast.Spec{&ast.ValueSpec{
				Names: []*ast.Ident{ast.NewIdent(name)},
				Type:  field.Type,
			}},
		}})
	}
	return names, decls
}

// substituteRetIdents maps the reserved ret/retN identifiers onto the
// function's named results so post-conditions can use either spelling.
func substituteRetIdents(expr ast.Expr, names []string) ast.Expr {
	return astutil.Apply(expr, nil, func(c *astutil.Cursor) bool {
		id, ok := c.Node().(*ast.Ident)
		if !ok {
			return true
		}
		if sel, ok := c.Parent().(*ast.SelectorExpr); ok && sel.Sel == id {
			return true // field or method name, not a variable reference
		}
		if i, ok := retIndex(id.Name); ok && i < len(names) {
			c.Replace(ast.NewIdent(names[i]))
		}
		return true
	}).(ast.Expr)
}

func retIndex(name string) (int, bool) {
	if name == retBinder {
		return 0, true
	}
	rest, ok := strings.CutPrefix(name, retBinder)
	if !ok || rest == "" {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 1 {
		return 0, false
	}
	return i, true
}

// rewriteReturns translates every return statement of the body (outside
// nested function literals) into assignments to the result bindings plus a
// goto to the post-check label, so that early returns still reach the
// post-checks in the same stack frame. It reports whether any return was
// rewritten.
func rewriteReturns(body *ast.BlockStmt, retNames []string) bool {
	branched := false
	astutil.Apply(body,
		func(c *astutil.Cursor) bool {
			_, isLit := c.Node().(*ast.FuncLit)
			return !isLit
		},
		func(c *astutil.Cursor) bool {
			ret, ok := c.Node().(*ast.ReturnStmt)
			if !ok {
				return true
			}
			branched = true
			var list []ast.Stmt
			if len(ret.Results) > 0 {
				lhs := make([]ast.Expr, len(retNames))
				for i, n := range retNames {
					lhs[i] = ast.NewIdent(n)
				}
				list = append(list, &ast.AssignStmt{Lhs: lhs, Tok: token.ASSIGN, Rhs: ret.Results})
			}
			list = append(list, &ast.BranchStmt{Tok: token.GOTO, Label: ast.NewIdent(postLabel)})
			c.Replace(&ast.BlockStmt{List: list})
			return true
		})
	return branched
}

// buildChecks emits one checkable statement per assertion, in contract
// declaration order, for the given position (KindPre or KindPost).
func buildChecks(contracts []Contract, position Kind, fnName string, opts Options, needs *emitNeeds) []ast.Stmt {
	var stmts []ast.Stmt
	for _, c := range contracts {
		kindName := c.Kind.MessageName()
		if c.Kind == KindInvariant {
			if position == KindPre {
				kindName += " (as pre-condition)"
			} else {
				kindName += " (as post-condition)"
			}
		}
		prefix := fmt.Sprintf("%s of %s violated", kindName, fnName)
		if c.Desc != "" {
			prefix += ": " + c.Desc
		}
		mode := FinalMode(c.Mode, opts)
		for _, a := range c.Assertions {
			msg := prefix + ": " + a.Source
			switch mode {
			case ModeAlways:
				stmts = append(stmts, makeIfPanicStmt(notExpr(a.Expr), msg))
			case ModeDebug:
				needs.check = true
				cond := &ast.BinaryExpr{
					X:  &ast.SelectorExpr{X: ast.NewIdent("check"), Sel: ast.NewIdent("Debug")},
					Op: token.LAND,
					Y:  notExpr(a.Expr),
				}
				stmts = append(stmts, makeIfPanicStmt(cond, msg))
			case ModeTest:
				needs.check = true
				cond := &ast.BinaryExpr{
					X: &ast.CallExpr{Fun: &ast.SelectorExpr{
						X: ast.NewIdent("check"), Sel: ast.NewIdent("Testing"),
					}},
					Op: token.LAND,
					Y:  notExpr(a.Expr),
				}
				stmts = append(stmts, makeIfPanicStmt(cond, msg))
			case ModeLogOnly:
				needs.slog = true
				stmts = append(stmts, &ast.IfStmt{
					Cond: notExpr(a.Expr),
					Body: &ast.BlockStmt{List: []ast.Stmt{makeSlogErrorStmt(msg)}},
				})
			case ModeDisabled:
				// nothing is emitted at all
			}
		}
	}
	return stmts
}

// --- AST construction helpers ---

func notExpr(cond ast.Expr) ast.Expr {
	return &ast.UnaryExpr{Op: token.NOT, X: &ast.ParenExpr{X: cond}}
}

// makeIfPanicStmt builds: if <cond> { panic("<msg>") }
func makeIfPanicStmt(cond ast.Expr, msg string) *ast.IfStmt {
	return &ast.IfStmt{
		Cond: cond,
		Body: &ast.BlockStmt{
			List: []ast.Stmt{
				&ast.ExprStmt{
					X: &ast.CallExpr{
						Fun:  ast.NewIdent("panic"),
						Args: []ast.Expr{&ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(msg)}},
					},
				},
			},
		},
	}
}

// makeSlogErrorStmt builds: slog.Error("<msg>")
func makeSlogErrorStmt(msg string) ast.Stmt {
	return &ast.ExprStmt{
		X: &ast.CallExpr{
			Fun: &ast.SelectorExpr{
				X:   ast.NewIdent("slog"),
				Sel: ast.NewIdent("Error"),
			},
			Args: []ast.Expr{
				&ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(msg)},
			},
		},
	}
}

// substituteIdent replaces every free occurrence of an identifier in expr.
func substituteIdent(expr ast.Expr, from, to string) ast.Expr {
	return astutil.Apply(expr, nil, func(c *astutil.Cursor) bool {
		id, ok := c.Node().(*ast.Ident)
		if !ok || id.Name != from {
			return true
		}
		if sel, ok := c.Parent().(*ast.SelectorExpr); ok && sel.Sel == id {
			return true
		}
		c.Replace(ast.NewIdent(to))
		return true
	}).(ast.Expr)
}
