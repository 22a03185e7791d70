package rewrite

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/ast/astutil"
)

// CacheDirName is the directory, relative to the project root, where shadow
// files and the overlay mapping are written.
const CacheDirName = ".contracts_cache"

// OverlayName is the file name of the overlay mapping inside the cache.
const OverlayName = "overlay.json"

const generatedHeader = "// Code generated by contractsc. DO NOT EDIT."

// Overlay represents the go build -overlay JSON format.
type Overlay struct {
	Replace map[string]string `json:"Replace"`
}

// Engine is the core processor that scans Go source files, parses contract
// directives, rewrites annotated declarations into checked equivalents, and
// produces overlay mappings for `go build -overlay`.
type Engine struct {
	Root     string // project root directory
	CacheDir string // .contracts_cache directory path
	Overlay  Overlay
	Opts     Options

	pkgCache map[string]*packageCache
}

type packageCache struct {
	fset  *token.FileSet
	files map[string]*ast.File // abs path -> parsed file
	meta  *packageMeta
}

// packageMeta holds declaration-level directive information gathered across
// the whole package before any single file is transformed: marked
// interfaces with their original method sets, impl markers, and type
// invariants waiting to be propagated onto methods.
type packageMeta struct {
	ifaceMethods map[string]map[string]bool
	implIface    map[string]string
	invariants   map[string][]Contract
}

// NewEngine creates a new Engine rooted at the given directory.
func NewEngine(root string, opts Options) *Engine {
	return &Engine{
		Root:     root,
		CacheDir: filepath.Join(root, CacheDirName),
		Overlay:  Overlay{Replace: make(map[string]string)},
		Opts:     opts,
		pkgCache: make(map[string]*packageCache),
	}
}

// Run executes the full pipeline: scan -> parse -> transform -> write
// overlay. A failed expansion aborts only the file it occurred in; sibling
// files are still processed, and all failures are reported together.
func (e *Engine) Run() error {
	if err := e.Opts.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(e.CacheDir, 0o755); err != nil {
		return fmt.Errorf("contracts: create cache dir: %w", err)
	}

	var errs []error
	walkErr := walkGoFiles(e.Root, func(path string) error {
		if err := e.processFile(path); err != nil {
			slog.Error("expansion failed", "file", path, "err", err)
			errs = append(errs, err)
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	if err := e.writeOverlay(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// processFile transforms a single Go file. If any declaration changed, a
// shadow file is generated and registered in the overlay.
func (e *Engine) processFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("contracts: abs path %s: %w", path, err)
	}

	cache, err := e.loadPackage(filepath.Dir(absPath))
	if err != nil {
		return err
	}
	f := cache.files[absPath]
	if f == nil {
		return fmt.Errorf("contracts: file not found in package: %s", path)
	}

	changed, generated, needs, err := e.transformFile(f, cache)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if needs.check {
		astutil.AddImport(cache.fset, f, checkPkgPath)
	}
	if needs.slog {
		astutil.AddImport(cache.fset, f, slogPkgPath)
	}

	// Read original source lines for //line mapping.
	origLines, err := readLines(absPath)
	if err != nil {
		return fmt.Errorf("contracts: read original %s: %w", path, err)
	}

	// Strip all comments to prevent go/printer from displacing them into
	// injected code. The shadow file is for compilation only.
	f.Comments = nil

	var buf strings.Builder
	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, cache.fset, f); err != nil {
		return fmt.Errorf("contracts: print shadow for %s: %w", path, err)
	}
	// Generated declarations are printed individually so their doc
	// comments survive; file-level printing only emits comments from
	// f.Comments, which was just cleared.
	for _, decl := range generated {
		buf.WriteString("\n")
		if err := cfg.Fprint(&buf, cache.fset, decl); err != nil {
			return fmt.Errorf("contracts: print generated decl for %s: %w", path, err)
		}
		buf.WriteString("\n")
	}

	shadowContent := generatedHeader + "\n" + injectLineDirectives(buf.String(), origLines, absPath)

	hash := contentHash(shadowContent)
	base := strings.TrimSuffix(filepath.Base(path), ".go")
	shadowPath := filepath.Join(e.CacheDir, fmt.Sprintf("%s_%s.go", base, hash[:12]))

	if err := os.WriteFile(shadowPath, []byte(shadowContent), 0o644); err != nil {
		return fmt.Errorf("contracts: write shadow %s: %w", shadowPath, err)
	}

	e.Overlay.Replace[absPath] = shadowPath
	return nil
}

func (e *Engine) loadPackage(dir string) (*packageCache, error) {
	if cache, ok := e.pkgCache[dir]; ok {
		return cache, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("contracts: read dir %s: %w", dir, err)
	}

	fset := token.NewFileSet()
	files := make(map[string]*ast.File)
	var paths []string
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !goSourceRe.MatchString(name) || testFileRe.MatchString(name) {
			continue
		}
		path := filepath.Join(dir, name)
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("contracts: parse %s: %w", path, err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("contracts: abs path %s: %w", path, err)
		}
		files[abs] = f
		paths = append(paths, abs)
	}
	sort.Strings(paths)

	meta, err := buildPackageMeta(fset, files, paths)
	if err != nil {
		return nil, err
	}

	cache := &packageCache{fset: fset, files: files, meta: meta}
	e.pkgCache[dir] = cache
	return cache, nil
}

// buildPackageMeta scans every file of the package for declaration-level
// markers before any transformation, so the original interface method
// names and type invariants are known wherever the package's methods live.
func buildPackageMeta(fset *token.FileSet, files map[string]*ast.File, paths []string) (*packageMeta, error) {
	meta := &packageMeta{
		ifaceMethods: make(map[string]map[string]bool),
		implIface:    make(map[string]string),
		invariants:   make(map[string][]Contract),
	}
	for _, path := range paths {
		for _, decl := range files[path].Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				for _, d := range typeSpecDirectives(gd, ts) {
					dir, err := ParseDirective(d.Text)
					if err != nil {
						return nil, posErr(fset, d.Pos(), err)
					}
					if dir == nil {
						continue
					}
					if err := meta.add(ts, dir); err != nil {
						return nil, posErr(fset, d.Pos(), err)
					}
				}
			}
		}
	}
	return meta, nil
}

func (m *packageMeta) add(ts *ast.TypeSpec, dir *Directive) error {
	name := ts.Name.Name
	it, isIface := ts.Type.(*ast.InterfaceType)

	switch {
	case dir.Trait && dir.Iface != "":
		if isIface {
			return fmt.Errorf("@contract_trait(%s): the interface argument is only valid on implementation types", dir.Iface)
		}
		m.implIface[name] = dir.Iface
	case dir.Trait:
		if !isIface {
			return fmt.Errorf("@contract_trait can only be applied to interfaces and implementation type declarations, not type %s", name)
		}
		methods := make(map[string]bool)
		for _, field := range it.Methods.List {
			for _, n := range field.Names {
				methods[n.Name] = true
			}
		}
		m.ifaceMethods[name] = methods
	case dir.Kind == KindInvariant:
		if isIface {
			return fmt.Errorf("@%s cannot be applied to interface %s; attach invariants to method contracts instead", dir.Keyword, name)
		}
		ct, err := dir.Contract()
		if err != nil {
			return err
		}
		m.invariants[name] = append(m.invariants[name], ct)
	default:
		return fmt.Errorf("@%s can only be applied to functions and methods, not type %s", dir.Keyword, name)
	}
	return nil
}

// typeSpecDirectives returns the comments that may carry directives for a
// type spec: its own doc plus the enclosing declaration's doc when the
// declaration has a single spec.
func typeSpecDirectives(gd *ast.GenDecl, ts *ast.TypeSpec) []*ast.Comment {
	var list []*ast.Comment
	if len(gd.Specs) == 1 && gd.Doc != nil {
		list = append(list, gd.Doc.List...)
	}
	if ts.Doc != nil {
		list = append(list, ts.Doc.List...)
	}
	return list
}

// transformFile rewrites every annotated declaration of the file in place
// and returns the generated trait wrapper declarations, which the caller
// prints after the file body.
func (e *Engine) transformFile(f *ast.File, cache *packageCache) (bool, []ast.Decl, emitNeeds, error) {
	var changed bool
	var needs emitNeeds
	var generated []ast.Decl

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			ch, n, err := e.transformFunc(d, cache)
			if err != nil {
				return false, nil, needs, err
			}
			changed = changed || ch
			needs.merge(n)

		case *ast.GenDecl:
			extra, ch, n, err := e.transformGenDecl(d, cache)
			if err != nil {
				return false, nil, needs, err
			}
			changed = changed || ch
			needs.merge(n)
			generated = append(generated, extra...)
		}
	}

	return changed, generated, needs, nil
}

// transformFunc rewrites one function or method declaration: its own
// contracts, any invariants propagated from its receiver type, and the
// slot rename when the receiver type carries an impl marker.
func (e *Engine) transformFunc(d *ast.FuncDecl, cache *packageCache) (bool, emitNeeds, error) {
	var needs emitNeeds
	fname := d.Name.Name

	if traitDir := docTraitDirective(d.Doc); traitDir != nil {
		return false, needs, posErr(cache.fset, d.Pos(),
			fmt.Errorf("@contract_trait cannot be applied to function %s", fname))
	}

	contracts, err := contractsFromDoc(d.Doc)
	if err != nil {
		return false, needs, posErr(cache.fset, d.Pos(), fmt.Errorf("function %s: %w", fname, err))
	}

	recvType := receiverTypeName(d)
	if recvType != "" {
		if invs, ok := cache.meta.invariants[recvType]; ok {
			recvName := ensureReceiverName(d)
			for _, inv := range invs {
				cp, err := reparseContract(inv)
				if err != nil {
					return false, needs, posErr(cache.fset, d.Pos(), fmt.Errorf("invariant of %s: %w", recvType, err))
				}
				cp.selfName = recvName
				contracts = append(contracts, cp)
			}
		}
	}

	changed := false
	if len(contracts) > 0 {
		n, err := synthesize(&FuncContracts{Decl: d, Contracts: contracts}, e.Opts)
		if err != nil {
			return false, needs, posErr(cache.fset, d.Pos(), err)
		}
		needs.merge(n)
		changed = true
	}

	// Impl-side slot rename happens after synthesis so that violation
	// messages keep the user-facing method name.
	if recvType != "" {
		if iface, ok := cache.meta.implIface[recvType]; ok {
			methods, marked := cache.meta.ifaceMethods[iface]
			if !marked {
				return false, needs, posErr(cache.fset, d.Pos(),
					fmt.Errorf("type %s: @contract_trait(%s): no contract-trait interface named %s in this package", recvType, iface, iface))
			}
			if methods[fname] {
				d.Name = ast.NewIdent(slotName(fname))
				changed = true
			}
		}
	}

	return changed, needs, nil
}

// transformGenDecl handles type declarations carrying trait markers. Type
// invariants were already collected into the package meta; contract
// directives on anything else are an error.
func (e *Engine) transformGenDecl(gd *ast.GenDecl, cache *packageCache) ([]ast.Decl, bool, emitNeeds, error) {
	var needs emitNeeds
	if gd.Tok != token.TYPE {
		if err := rejectDirectives(gd.Doc, "declaration"); err != nil {
			return nil, false, needs, posErr(cache.fset, gd.Pos(), err)
		}
		return nil, false, needs, nil
	}

	var generated []ast.Decl
	changed := false
	for _, spec := range gd.Specs {
		ts := spec.(*ast.TypeSpec)
		for _, c := range typeSpecDirectives(gd, ts) {
			dir, err := ParseDirective(c.Text)
			if err != nil || dir == nil {
				// Malformed directives were already reported during the
				// package meta scan.
				continue
			}
			if dir.Trait && dir.Iface == "" {
				it := ts.Type.(*ast.InterfaceType) // meta scan validated this
				extra, n, err := transformContractIface(ts, it, e.Opts)
				if err != nil {
					return nil, false, needs, posErr(cache.fset, ts.Pos(), err)
				}
				needs.merge(n)
				generated = append(generated, extra...)
				changed = true
			}
			if dir.Trait && dir.Iface != "" {
				if _, ok := cache.meta.ifaceMethods[dir.Iface]; !ok {
					return nil, false, needs, posErr(cache.fset, ts.Pos(),
						fmt.Errorf("type %s: @contract_trait(%s): no contract-trait interface named %s in this package", ts.Name.Name, dir.Iface, dir.Iface))
				}
			}
		}
	}
	return generated, changed, needs, nil
}

// rejectDirectives errors when a doc comment on an unsupported construct
// carries contract directives.
func rejectDirectives(doc *ast.CommentGroup, what string) error {
	if doc == nil {
		return nil
	}
	for _, c := range doc.List {
		if d, err := ParseDirective(c.Text); err == nil && d != nil {
			return fmt.Errorf("@%s cannot be applied to this %s", d.Keyword, what)
		}
	}
	return nil
}

// docTraitDirective returns the trait marker of a doc comment, if present.
func docTraitDirective(doc *ast.CommentGroup) *Directive {
	if doc == nil {
		return nil
	}
	for _, c := range doc.List {
		if d, _ := ParseDirective(c.Text); d != nil && d.Trait {
			return d
		}
	}
	return nil
}

// receiverTypeName returns the name of a method's receiver type, unwrapping
// pointers and type parameters; "" for plain functions.
func receiverTypeName(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return ""
	}
	t := d.Recv.List[0].Type
	for {
		switch tt := t.(type) {
		case *ast.StarExpr:
			t = tt.X
		case *ast.IndexExpr:
			t = tt.X
		case *ast.IndexListExpr:
			t = tt.X
		case *ast.Ident:
			return tt.Name
		default:
			return ""
		}
	}
}

// ensureReceiverName makes sure the method's receiver is addressable by
// name so propagated invariants can reference it, and returns that name.
// Unnamed and blank receivers are renamed to "self" in the shadow output.
func ensureReceiverName(d *ast.FuncDecl) string {
	field := d.Recv.List[0]
	if len(field.Names) == 0 {
		field.Names = []*ast.Ident{ast.NewIdent("self")}
		return "self"
	}
	if field.Names[0].Name == "_" {
		field.Names[0] = ast.NewIdent("self")
		return "self"
	}
	return field.Names[0].Name
}

func posErr(fset *token.FileSet, pos token.Pos, err error) error {
	return fmt.Errorf("%s: %w", fset.Position(pos), err)
}

// writeOverlay writes the overlay.json file to the cache directory.
func (e *Engine) writeOverlay() error {
	if len(e.Overlay.Replace) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(e.Overlay, "", "  ")
	if err != nil {
		return fmt.Errorf("contracts: marshal overlay: %w", err)
	}

	path := filepath.Join(e.CacheDir, OverlayName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("contracts: write %s: %w", OverlayName, err)
	}

	slog.Info("overlay written", "path", path, "files", len(e.Overlay.Replace))
	return nil
}

// contentHash returns a hex-encoded SHA-256 hash of the content.
func contentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// readLines reads a file and returns its lines (without newlines).
func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// injectLineDirectives compares the shadow output with the original source
// lines and inserts `//line` directives after injected blocks to restore
// correct line mapping.
//
// Strategy: walk shadow lines and original lines together. When a shadow
// line matches the next expected original line, they are "in sync". When
// shadow lines don't match (i.e. they are injected code), we let them pass.
// Once we re-sync, we emit a `//line original.go:N` directive to snap the
// compiler's line counter back.
func injectLineDirectives(shadow string, origLines []string, absPath string) string {
	shadowLines := strings.Split(shadow, "\n")

	origIdx := 0 // pointer into original lines
	var result []string
	needsLineDirective := false

	for _, sLine := range shadowLines {
		trimmed := strings.TrimSpace(sLine)

		if origIdx < len(origLines) {
			origTrimmed := strings.TrimSpace(origLines[origIdx])

			if trimmed == origTrimmed {
				if needsLineDirective {
					// origIdx is 0-based, line numbers are 1-based.
					result = append(result, fmt.Sprintf("//line %s:%d", absPath, origIdx+1))
					needsLineDirective = false
				}
				result = append(result, sLine)
				origIdx++
				continue
			}

			// Skip consecutive comment lines in the original source; every
			// comment was stripped from the shadow output.
			skipped := false
			for origIdx < len(origLines) && strings.HasPrefix(strings.TrimSpace(origLines[origIdx]), "//") {
				origIdx++
				skipped = true
			}
			if skipped && origIdx < len(origLines) {
				origTrimmed = strings.TrimSpace(origLines[origIdx])
				if trimmed == origTrimmed {
					if needsLineDirective {
						result = append(result, fmt.Sprintf("//line %s:%d", absPath, origIdx+1))
						needsLineDirective = false
					}
					result = append(result, sLine)
					origIdx++
					continue
				}
			}
		}

		// This shadow line is injected or generated code.
		result = append(result, sLine)
		needsLineDirective = true
	}

	return strings.Join(result, "\n")
}
