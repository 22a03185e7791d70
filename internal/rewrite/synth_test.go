package rewrite

import (
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthesizeFunc parses the first function of src, attaches the contracts
// found in its doc comment and synthesizes its checked body. It returns
// the printed declaration.
func synthesizeFunc(t *testing.T, src string, opts Options) (string, emitNeeds) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "src.go", "package p\n\n"+src, parser.ParseComments)
	require.NoError(t, err)

	var decl *ast.FuncDecl
	for _, d := range f.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok {
			decl = fd
			break
		}
	}
	require.NotNil(t, decl)

	contracts, err := contractsFromDoc(decl.Doc)
	require.NoError(t, err)
	require.NotEmpty(t, contracts)

	needs, err := synthesize(&FuncContracts{Decl: decl, Contracts: contracts}, opts)
	require.NoError(t, err)

	decl.Doc = nil
	var b strings.Builder
	require.NoError(t, printer.Fprint(&b, fset, decl))
	return b.String(), needs
}

func TestSynthesize_PreCondition(t *testing.T) {
	out, needs := synthesizeFunc(t, `
//@pre(x > 0)
func Inc(x int) {
	_ = x
}
`, Options{})

	assert.Contains(t, out, "if !(x > 0) {")
	assert.Contains(t, out, `panic("Pre-condition of Inc violated: x > 0")`)
	assert.False(t, needs.check)
	assert.False(t, needs.slog)
}

func TestSynthesize_PreConditionWithDesc(t *testing.T) {
	out, _ := synthesizeFunc(t, `
//@pre(amount > 0, "amount must be positive")
func Withdraw(amount int) {
	_ = amount
}
`, Options{})

	assert.Contains(t, out, `panic("Pre-condition of Withdraw violated: amount must be positive: amount > 0")`)
}

func TestSynthesize_PostWithUnnamedResult(t *testing.T) {
	out, _ := synthesizeFunc(t, `
//@post(ret >= 0)
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
`, Options{})

	assert.Contains(t, out, "var ret int")
	assert.Contains(t, out, "goto __contract_post")
	assert.Contains(t, out, "__contract_post:")
	assert.Contains(t, out, "if !(ret >= 0) {")
	assert.Contains(t, out, "return ret")
	assert.Contains(t, out, `panic("Post-condition of Abs violated: ret >= 0")`)
}

func TestSynthesize_PostWithNamedResult(t *testing.T) {
	out, _ := synthesizeFunc(t, `
//@post(ret > 0)
func Next(x int) (n int) {
	n = x + 1
	return
}
`, Options{})

	// ret maps onto the declared result name, the message keeps the
	// user's spelling.
	assert.Contains(t, out, "if !(n > 0) {")
	assert.Contains(t, out, `panic("Post-condition of Next violated: ret > 0")`)
	assert.NotContains(t, out, "var ret")
}

func TestSynthesize_MultipleResults(t *testing.T) {
	out, _ := synthesizeFunc(t, `
//@post(ret <= ret1)
func MinMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
`, Options{})

	assert.Contains(t, out, "var ret int")
	assert.Contains(t, out, "var ret1 int")
	assert.Contains(t, out, "if !(ret <= ret1) {")
	assert.Contains(t, out, "return ret, ret1")
}

func TestSynthesize_BlankNamedResultRenamed(t *testing.T) {
	out, _ := synthesizeFunc(t, `
//@post(err == nil ==> ret > 0)
func Parse(s string) (_ int, err error) {
	return len(s), nil
}
`, Options{})

	assert.Contains(t, out, "__contract_ret_0")
	assert.Contains(t, out, "return __contract_ret_0, err")
}

func TestSynthesize_OldState(t *testing.T) {
	out, _ := synthesizeFunc(t, `
//@post(c.n == old(c.n) + 1)
func (c *Counter) Bump() {
	c.n++
}
`, Options{})

	assert.Contains(t, out, "__contract_old_0 := c.n")
	assert.Contains(t, out, "if !(c.n == __contract_old_0+1) {")
	// The violation message keeps the old() spelling.
	assert.Contains(t, out, `panic("Post-condition of Bump violated: c.n == old(c.n) + 1")`)
}

func TestSynthesize_InvariantBothPositions(t *testing.T) {
	out, _ := synthesizeFunc(t, `
//@invariant(x >= 0)
func Twice(x int) int {
	return x * 2
}
`, Options{})

	assert.Contains(t, out, `panic("Invariant (as pre-condition) of Twice violated: x >= 0")`)
	assert.Contains(t, out, `panic("Invariant (as post-condition) of Twice violated: x >= 0")`)
}

func TestSynthesize_DebugMode(t *testing.T) {
	out, needs := synthesizeFunc(t, `
//@debug_pre(x != 0)
func Div(a, x int) int {
	return a / x
}
`, Options{})

	assert.Contains(t, out, "if check.Debug && !(x != 0) {")
	assert.True(t, needs.check)
	assert.False(t, needs.slog)
}

func TestSynthesize_TestMode(t *testing.T) {
	out, needs := synthesizeFunc(t, `
//@test_pre(x != 0)
func Div(a, x int) int {
	return a / x
}
`, Options{})

	assert.Contains(t, out, "if check.Testing() && !(x != 0) {")
	assert.True(t, needs.check)
}

func TestSynthesize_LogMode(t *testing.T) {
	out, needs := synthesizeFunc(t, `
//@log_pre(x != 0)
func Div(a, x int) int {
	return a / x
}
`, Options{})

	assert.Contains(t, out, "if !(x != 0) {")
	assert.Contains(t, out, `slog.Error("Pre-condition of Div violated: x != 0")`)
	assert.NotContains(t, out, "panic(")
	assert.True(t, needs.slog)
	assert.False(t, needs.check)
}

func TestSynthesize_DisableAllDropsChecks(t *testing.T) {
	out, needs := synthesizeFunc(t, `
//@pre(x > 0)
//@post(ret > old(x))
func Inc(x int) int {
	return x + 1
}
`, Options{DisableAll: true})

	assert.NotContains(t, out, "panic(")
	// Disabled contracts contribute no old-state bindings either.
	assert.NotContains(t, out, "__contract_old_0")
	assert.False(t, needs.check)
	assert.False(t, needs.slog)
}

func TestSynthesize_ForceLogOnly(t *testing.T) {
	out, needs := synthesizeFunc(t, `
//@pre(x > 0)
func Inc(x int) int {
	return x + 1
}
`, Options{ForceLogOnly: true})

	assert.Contains(t, out, `slog.Error("Pre-condition of Inc violated: x > 0")`)
	assert.NotContains(t, out, "panic(")
	assert.True(t, needs.slog)
}

func TestSynthesize_FuncLitReturnsUntouched(t *testing.T) {
	out, _ := synthesizeFunc(t, `
//@pre(n > 0)
func Make(n int) func() int {
	return func() int {
		return n
	}
}
`, Options{})

	// The outer return branches to the post label; the literal's own
	// return must survive as a plain return.
	assert.Contains(t, out, "goto __contract_post")
	assert.Contains(t, out, "return n")
}

func TestSynthesize_CheckOrder(t *testing.T) {
	out, _ := synthesizeFunc(t, `
//@pre(a > 0)
//@pre(b > 0)
func Add(a, b int) int {
	return a + b
}
`, Options{})

	first := strings.Index(out, "a > 0")
	second := strings.Index(out, "b > 0")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}
