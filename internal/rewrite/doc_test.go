package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docContract(t *testing.T, directive string) Contract {
	t.Helper()
	d, err := ParseDirective(directive)
	require.NoError(t, err)
	ct, err := d.Contract()
	require.NoError(t, err)
	return ct
}

func TestRenderContractDocs(t *testing.T) {
	tests := []struct {
		name      string
		contracts []Contract
		want      []string
	}{
		{
			name: "no contracts",
		},
		{
			name:      "single assertion",
			contracts: []Contract{docContract(t, "//@pre(x > 0)")},
			want: []string{
				"Contracts:",
				"Pre-condition: x > 0",
			},
		},
		{
			name:      "assertions grouped under description",
			contracts: []Contract{docContract(t, `//@pre(x > 0, x < 100, "x in range")`)},
			want: []string{
				"Contracts:",
				"Pre-condition: x in range",
				"  - x > 0",
				"  - x < 100",
			},
		},
		{
			name:      "mode qualifier",
			contracts: []Contract{docContract(t, "//@debug_post(ret != nil)")},
			want: []string{
				"Contracts:",
				"Post-condition - debug: ret != nil",
			},
		},
		{
			name: "multiple contracts in order",
			contracts: []Contract{
				docContract(t, "//@pre(x > 0)"),
				docContract(t, "//@log_post(ret > x)"),
			},
			want: []string{
				"Contracts:",
				"Pre-condition: x > 0",
				"Post-condition - log: ret > x",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderContractDocs(tt.contracts))
		})
	}
}

func TestDocComment(t *testing.T) {
	assert.Nil(t, docComment(nil))

	cg := docComment([]string{"Contracts:", "Pre-condition: x > 0"})
	require.NotNil(t, cg)
	require.Len(t, cg.List, 2)
	assert.Equal(t, "// Contracts:", cg.List[0].Text)
	assert.Equal(t, "// Pre-condition: x > 0", cg.List[1].Text)
}
