package rewrite

import (
	"fmt"
	"go/ast"
	"go/token"
)

// slotPrefix reserves the name space for the internal, implementor-facing
// method slots of a contract trait. The prefix is exported-case so
// implementations in other packages can still satisfy the interface.
const slotPrefix = "ContractsImpl_"

// recvBinder names the wrapper receiver in generated methods.
const recvBinder = "__contract_recv"

func slotName(method string) string { return slotPrefix + method }

// transformContractIface rewrites a marked interface so every method is
// renamed to its internal slot, and generates the checked companion type
// `<Iface>Contract` that carries the public method names: each public
// method runs the contracts declared on the interface method and delegates
// to the implementation's slot. The companion type also forwards the slots
// themselves, so it satisfies the interface and wrappers compose.
//
// After the rewrite the public method name exists only on the companion
// type, so every concrete implementation is reachable only through the
// checked path.
func transformContractIface(ts *ast.TypeSpec, it *ast.InterfaceType, opts Options) ([]ast.Decl, emitNeeds, error) {
	var needs emitNeeds
	ifaceName := ts.Name.Name
	wrapperName := ifaceName + "Contract"

	decls := []ast.Decl{&ast.GenDecl{
		Tok: token.TYPE,
		Specs: []ast.Spec{&ast.TypeSpec{
			Name: ast.NewIdent(wrapperName),
			Type: &ast.StructType{Fields: &ast.FieldList{List: []*ast.Field{{
				Names: []*ast.Ident{ast.NewIdent("Impl")},
				Type:  ast.NewIdent(ifaceName),
			}}}},
		}},
	}}

	for _, field := range it.Methods.List {
		if len(field.Names) == 0 {
			return nil, needs, fmt.Errorf("interface %s embeds another interface; contract traits require explicit methods", ifaceName)
		}
		mname := field.Names[0].Name
		ftype, ok := field.Type.(*ast.FuncType)
		if !ok {
			return nil, needs, fmt.Errorf("interface %s: method %s has no function type", ifaceName, mname)
		}

		contracts, err := contractsFromDoc(field.Doc)
		if err != nil {
			return nil, needs, fmt.Errorf("interface %s, method %s: %w", ifaceName, mname, err)
		}

		// Contracts on interface methods address the receiver as self;
		// inside the wrapper that is the wrapper value, whose methods are
		// the checked ones.
		for i := range contracts {
			contracts[i].selfName = recvBinder
		}

		args := ensureParamNames(ftype)

		// Rename the interface method to the internal slot.
		field.Names[0] = ast.NewIdent(slotName(mname))

		wrapper := &ast.FuncDecl{
			Doc:  docComment(renderContractDocs(contracts)),
			Recv: wrapperRecv(wrapperName),
			Name: ast.NewIdent(mname),
			Type: ftype,
			Body: &ast.BlockStmt{List: []ast.Stmt{forwardStmt(ftype, mname, args)}},
		}
		n, err := synthesize(&FuncContracts{Decl: wrapper, Contracts: contracts}, opts)
		if err != nil {
			return nil, needs, fmt.Errorf("interface %s, method %s: %w", ifaceName, mname, err)
		}
		needs.merge(n)

		slot := &ast.FuncDecl{
			Recv: wrapperRecv(wrapperName),
			Name: ast.NewIdent(slotName(mname)),
			Type: ftype,
			Body: &ast.BlockStmt{List: []ast.Stmt{forwardStmt(ftype, mname, args)}},
		}

		decls = append(decls, wrapper, slot)
	}

	return decls, needs, nil
}

// ensureParamNames gives every parameter a usable name (synthesizing names
// for unnamed and blank parameters) and returns the argument expressions
// that forward them, in order.
func ensureParamNames(ft *ast.FuncType) []ast.Expr {
	var args []ast.Expr
	if ft.Params == nil {
		return nil
	}
	i := 0
	for _, field := range ft.Params.List {
		if len(field.Names) == 0 {
			field.Names = []*ast.Ident{ast.NewIdent(fmt.Sprintf("__contract_arg_%d", i))}
		}
		for k := range field.Names {
			if field.Names[k].Name == "_" {
				field.Names[k] = ast.NewIdent(fmt.Sprintf("__contract_arg_%d", i))
			}
			args = append(args, ast.NewIdent(field.Names[k].Name))
			i++
		}
	}
	return args
}

// forwardStmt builds the delegation statement
// `return __contract_recv.Impl.ContractsImpl_<m>(args...)`, dropping the
// return keyword for void methods and spreading a variadic final argument.
func forwardStmt(ft *ast.FuncType, method string, args []ast.Expr) ast.Stmt {
	call := &ast.CallExpr{
		Fun: &ast.SelectorExpr{
			X: &ast.SelectorExpr{
				X:   ast.NewIdent(recvBinder),
				Sel: ast.NewIdent("Impl"),
			},
			Sel: ast.NewIdent(slotName(method)),
		},
		Args: args,
	}
	if isVariadic(ft) {
		call.Ellipsis = token.Pos(1)
	}
	if ft.Results != nil && len(ft.Results.List) > 0 {
		return &ast.ReturnStmt{Results: []ast.Expr{call}}
	}
	return &ast.ExprStmt{X: call}
}

func isVariadic(ft *ast.FuncType) bool {
	if ft.Params == nil || len(ft.Params.List) == 0 {
		return false
	}
	last := ft.Params.List[len(ft.Params.List)-1]
	_, ok := last.Type.(*ast.Ellipsis)
	return ok
}

func wrapperRecv(wrapperName string) *ast.FieldList {
	return &ast.FieldList{List: []*ast.Field{{
		Names: []*ast.Ident{ast.NewIdent(recvBinder)},
		Type:  ast.NewIdent(wrapperName),
	}}}
}

// contractsFromDoc parses every contract directive of a doc comment, in
// source order. Trait markers are skipped; they are handled structurally.
func contractsFromDoc(doc *ast.CommentGroup) ([]Contract, error) {
	if doc == nil {
		return nil, nil
	}
	var out []Contract
	for _, c := range doc.List {
		d, err := ParseDirective(c.Text)
		if err != nil {
			return nil, err
		}
		if d == nil || d.Trait {
			continue
		}
		ct, err := d.Contract()
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}
