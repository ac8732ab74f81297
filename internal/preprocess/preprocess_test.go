package preprocess

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasJinjaBlocks(t *testing.T) {
	require.True(t, HasJinjaBlocks("{% if x %}hi{% endif %}"))
	require.False(t, HasJinjaBlocks("just {{ x }} text"))
	require.False(t, HasJinjaBlocks("plain text"))
}

func TestStripJinjaBlocksPreservesExpressions(t *testing.T) {
	text := "name: {{ stack }}\n{% if flag %}\nextra: true\n{% endif %}\ndone: yes\n"
	stripped := StripJinjaBlocks(text)
	require.Contains(t, stripped, "name: {{ stack }}")
	require.Contains(t, stripped, "extra: true")
	require.NotContains(t, stripped, "{%")
}

func TestStripJinjaBlocksIdempotent(t *testing.T) {
	text := "a: 1\n{% if x %}\nb: 2\n{% endif %}\nc: 3\n"
	once := StripJinjaBlocks(text)
	twice := StripJinjaBlocks(once)
	require.Equal(t, once, twice)
}

func TestValidateJinjaBalanced(t *testing.T) {
	require.NoError(t, ValidateJinja("{% if x %}a{% endif %}", "f.yaml"))
}

func TestValidateJinjaUnbalanced(t *testing.T) {
	err := ValidateJinja("{% if x %}a", "f.yaml")
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, UnbalancedBlocks, perr.Code)
}

func TestPreprocessJinjaPassthroughWithoutTemplating(t *testing.T) {
	out, err := PreprocessJinja("name: test\nruntime: yaml\n", "f.yaml", Context{"unused": "x"})
	require.NoError(t, err)
	require.Equal(t, "name: test\nruntime: yaml\n", out)
}

func TestPreprocessJinjaExpression(t *testing.T) {
	out, err := PreprocessJinja("name: {{ stack }}\n", "f.yaml", Context{"stack": "prod"})
	require.NoError(t, err)
	require.Equal(t, "name: prod\n", out)
}

func TestPreprocessJinjaUnknownKey(t *testing.T) {
	_, err := PreprocessJinja("name: {{ missing }}\n", "f.yaml", Context{})
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, UnknownTemplateKey, perr.Code)
}

func TestPreprocessJinjaForRange(t *testing.T) {
	out, err := PreprocessJinja("{% for i in range(3) %}x{{ i }}\n{% endfor %}", "f.yaml", Context{})
	require.NoError(t, err)
	require.Equal(t, "x0\nx1\nx2\n", out)
}

func TestPreprocessJinjaForOverList(t *testing.T) {
	ctx := Context{"regions": []string{"us", "eu"}}
	out, err := PreprocessJinja("{% for r in regions %}{{ r }},{% endfor %}", "f.yaml", ctx)
	require.NoError(t, err)
	require.Equal(t, "us,eu,", out)
}

func TestPreprocessJinjaIf(t *testing.T) {
	out, err := PreprocessJinja("{% if flag %}on{% endif %}{% if not flag %}off{% endif %}", "f.yaml", Context{"flag": "yes"})
	require.NoError(t, err)
	require.Equal(t, "on", out)
}
