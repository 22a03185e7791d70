// Package rewrite implements a compile-time contract injection engine.
//
// Directives are written in doc comments, in call form:
//
//	//@pre(x > 0, "x must be positive")
//	//@post(ret == old(x)+1)
//	//@invariant(self.count%2 == 0)
//	//@contract_trait
//
// The engine scans a project for annotated declarations, rewrites them
// into equivalents containing runtime-checked assertions, and produces
// overlay mappings for `go build -overlay`.
package rewrite

import "go/ast"

// ---------------------------------------------------------------------------
// Kind
// ---------------------------------------------------------------------------

// Kind distinguishes the three contract types.
type Kind int

const (
	KindPre       Kind = iota // checked before the body runs
	KindPost                  // checked after the body completed
	KindInvariant             // checked in both positions
)

var kindNames = map[Kind]string{
	KindPre:       "Pre-condition",
	KindPost:      "Post-condition",
	KindInvariant: "Invariant",
}

// MessageName returns the name used as a message prefix on violation.
func (k Kind) MessageName() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ---------------------------------------------------------------------------
// Mode
// ---------------------------------------------------------------------------

// Mode is the checking-mode of a contract.
type Mode int

const (
	// ModeAlways always checks the contract.
	ModeAlways Mode = iota
	// ModeDisabled never checks the contract.
	ModeDisabled
	// ModeDebug checks the contract only in builds tagged `contractsdebug`.
	ModeDebug
	// ModeTest checks the contract only inside test binaries.
	ModeTest
	// ModeLogOnly logs violations at error level but never aborts.
	ModeLogOnly
)

var modeNames = map[Mode]string{
	ModeAlways:   "always",
	ModeDisabled: "disabled",
	ModeDebug:    "debug",
	ModeTest:     "test",
	ModeLogOnly:  "log",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// FinalMode computes the effective mode from the declared mode and the
// build-time override flags. Disabled and Test contracts are immune to
// overrides; otherwise DisableAll wins, then ForceDebug (except LogOnly,
// which is weaker than Debug and stays LogOnly), then ForceLogOnly.
func FinalMode(declared Mode, opts Options) Mode {
	if declared == ModeDisabled || declared == ModeTest {
		return declared
	}
	switch {
	case opts.DisableAll:
		return ModeDisabled
	case opts.ForceDebug:
		if declared == ModeLogOnly {
			return ModeLogOnly
		}
		return ModeDebug
	case opts.ForceLogOnly:
		return ModeLogOnly
	default:
		return declared
	}
}

// contractSpellings maps directive keywords to their kind and declared mode.
var contractSpellings = map[string]struct {
	Kind Kind
	Mode Mode
}{
	"pre":             {KindPre, ModeAlways},
	"post":            {KindPost, ModeAlways},
	"invariant":       {KindInvariant, ModeAlways},
	"debug_pre":       {KindPre, ModeDebug},
	"debug_post":      {KindPost, ModeDebug},
	"debug_invariant": {KindInvariant, ModeDebug},
	"test_pre":        {KindPre, ModeTest},
	"test_post":       {KindPost, ModeTest},
	"test_invariant":  {KindInvariant, ModeTest},
	"log_pre":         {KindPre, ModeLogOnly},
	"log_post":        {KindPost, ModeLogOnly},
	"log_invariant":   {KindInvariant, ModeLogOnly},
}

// ---------------------------------------------------------------------------
// Contract
// ---------------------------------------------------------------------------

// Assertion is a single boolean condition of a contract. Source keeps the
// text as written by the user (before the old()/==> rewrites) for use in
// violation messages; Expr is the parsed, rewritten form that is emitted.
type Assertion struct {
	Source string
	Expr   ast.Expr
}

// Contract is one checkable clause group: the assertions of a single
// directive, in source order, plus an optional human description.
type Contract struct {
	Kind       Kind
	Mode       Mode
	Assertions []Assertion
	Desc       string // empty when absent

	// selfName, when set, is the identifier that occurrences of `self`
	// in the assertions resolve to. Propagated type invariants bind it
	// to the method receiver, trait contracts to the wrapper value. The
	// synthesizer applies the substitution itself so it also covers
	// re-parsed assertion copies.
	selfName string
}

// FuncContracts pairs one function declaration with all contracts attached
// to it, in source order. It is built once per annotated declaration and
// consumed exactly once by the synthesizer; the declaration is mutated in
// place.
type FuncContracts struct {
	Decl      *ast.FuncDecl
	Contracts []Contract
}
