package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Directive
		wantErr bool
	}{
		{
			name:  "pre",
			input: "//@pre(x > 0)",
			want:  &Directive{Keyword: "pre", Kind: KindPre, Mode: ModeAlways, Args: "x > 0"},
		},
		{
			name:  "leading space",
			input: "// @post(ret >= 0)",
			want:  &Directive{Keyword: "post", Kind: KindPost, Mode: ModeAlways, Args: "ret >= 0"},
		},
		{
			name:  "debug spelling",
			input: "//@debug_pre(len(xs) > 0)",
			want:  &Directive{Keyword: "debug_pre", Kind: KindPre, Mode: ModeDebug, Args: "len(xs) > 0"},
		},
		{
			name:  "test spelling",
			input: "//@test_invariant(self.ok())",
			want:  &Directive{Keyword: "test_invariant", Kind: KindInvariant, Mode: ModeTest, Args: "self.ok()"},
		},
		{
			name:  "log spelling",
			input: "//@log_post(ret != nil)",
			want:  &Directive{Keyword: "log_post", Kind: KindPost, Mode: ModeLogOnly, Args: "ret != nil"},
		},
		{
			name:  "trait marker",
			input: "//@contract_trait",
			want:  &Directive{Keyword: "contract_trait", Trait: true},
		},
		{
			name:  "impl marker",
			input: "//@contract_trait(Adder)",
			want:  &Directive{Keyword: "contract_trait", Trait: true, Iface: "Adder"},
		},
		{
			name:  "not a directive",
			input: "// just a comment about @pre conditions",
			want:  nil,
		},
		{
			name:  "unknown keyword passes through",
			input: "//@deprecated(use Other)",
			want:  nil,
		},
		{
			name:    "missing parentheses",
			input:   "//@pre x > 0",
			wantErr: true,
		},
		{
			name:    "unbalanced parentheses",
			input:   "//@pre(f(x > 0)",
			wantErr: true,
		},
		{
			name:    "trailing junk",
			input:   "//@pre(x > 0) oops",
			wantErr: true,
		},
		{
			name:    "impl marker with non-identifier",
			input:   "//@contract_trait(a.B)",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDirective(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectiveContract(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantSources []string
		wantDesc    string
		wantErr     bool
	}{
		{
			name:        "single assertion",
			input:       "//@pre(x > 0)",
			wantSources: []string{"x > 0"},
		},
		{
			name:        "multiple assertions",
			input:       "//@pre(x > 0, y > 0, x < y)",
			wantSources: []string{"x > 0", "y > 0", "x < y"},
		},
		{
			name:        "trailing description",
			input:       `//@pre(x > 0, "x must be positive")`,
			wantSources: []string{"x > 0"},
			wantDesc:    "x must be positive",
		},
		{
			name:        "commas inside calls stay together",
			input:       "//@pre(min(a, b) <= max(a, b))",
			wantSources: []string{"min(a, b) <= max(a, b)"},
		},
		{
			name:        "commas inside string literals stay together",
			input:       `//@pre(strings.Contains(s, ",,"))`,
			wantSources: []string{`strings.Contains(s, ",,")`},
		},
		{
			name:        "empty argument list",
			input:       "//@post()",
			wantSources: nil,
		},
		{
			name:    "non-expression assertion",
			input:   "//@pre(x >)",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDirective(tt.input)
			require.NoError(t, err)
			require.NotNil(t, d)

			ct, err := d.Contract()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			var sources []string
			for _, a := range ct.Assertions {
				sources = append(sources, a.Source)
				require.NotNil(t, a.Expr)
			}
			assert.Equal(t, tt.wantSources, sources)
			assert.Equal(t, tt.wantDesc, ct.Desc)
		})
	}
}

func TestSplitTopLevel(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a, b", []string{"a", "b"}},
		{"f(a, b), c", []string{"f(a, b)", "c"}},
		{"m[k1, k2] > 0", []string{"m[k1, k2] > 0"}},
		{`"a,b", c`, []string{`"a,b"`, "c"}},
		{"a,", []string{"a"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitTopLevel(tt.input), "input %q", tt.input)
	}
}
