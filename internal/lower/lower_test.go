package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awsqed/yaml-iac-host/internal/ast"
	"github.com/awsqed/yaml-iac-host/internal/diag"
	"github.com/awsqed/yaml-iac-host/internal/parse"
)

func lowerYAML(t *testing.T, text string) ast.Expr {
	t.Helper()
	res := parse.Parse("value: "+text, "f.yaml")
	require.NotNil(t, res.Root)
	var diags diag.Diagnostics
	// "value" is the sole entry of the root mapping.
	return LowerExpr(res.Root.Content[1], "f.yaml", &diags)
}

func TestLowerLiterals(t *testing.T) {
	require.IsType(t, ast.Null{}, lowerYAML(t, "null"))
	require.Equal(t, ast.Bool{Value: true}, stripSpanBool(lowerYAML(t, "true")))
	require.Equal(t, int64(42), lowerYAML(t, "42").(ast.Number).IntVal)
	require.Equal(t, 3.5, lowerYAML(t, "3.5").(ast.Number).FltVal)
	require.Equal(t, "hello", lowerYAML(t, "hello").(ast.String).Value)
}

func stripSpanBool(e ast.Expr) ast.Bool {
	b := e.(ast.Bool)
	return ast.Bool{Value: b.Value}
}

func TestLowerInterpSimplifiesSingleExpr(t *testing.T) {
	e := lowerYAML(t, `"${bucket.name}"`)
	sym, ok := e.(ast.Sym)
	require.True(t, ok)
	require.Equal(t, "bucket", sym.SymBase)
	require.Equal(t, []ast.Accessor{{Kind: ast.AccessorField, Field: "name"}}, sym.Accessors)
}

func TestLowerInterpMixedText(t *testing.T) {
	e := lowerYAML(t, `"prefix-${name}-suffix"`)
	interp, ok := e.(ast.Interp)
	require.True(t, ok)
	require.Len(t, interp.Parts, 3)
	require.Equal(t, "prefix-", interp.Parts[0].Literal)
	require.NotNil(t, interp.Parts[1].Expr)
	require.Equal(t, "-suffix", interp.Parts[2].Literal)
}

func TestLowerSymWithIndexAccessor(t *testing.T) {
	e := lowerYAML(t, `"${items[2].id}"`)
	sym := e.(ast.Sym)
	require.Equal(t, "items", sym.SymBase)
	require.Equal(t, []ast.Accessor{
		{Kind: ast.AccessorIndex, Index: 2},
		{Kind: ast.AccessorField, Field: "id"},
	}, sym.Accessors)
}

func TestLowerBuiltinCall(t *testing.T) {
	e := lowerYAML(t, "{fn::toBase64: hello}")
	b, ok := e.(ast.Builtin)
	require.True(t, ok)
	require.Equal(t, "toBase64", b.Name)
	require.Equal(t, ast.Serialize(b), map[string]interface{}{
		"t":   "toBase64",
		"arg": map[string]interface{}{"t": "string", "v": "hello"},
	})
}

func TestLowerUnknownBuiltinDiagnostic(t *testing.T) {
	res := parse.Parse("value: {fn::bogus: 1}", "f.yaml")
	var diags diag.Diagnostics
	e := LowerExpr(res.Root.Content[1], "f.yaml", &diags)
	require.IsType(t, ast.Null{}, e)
	require.True(t, diags.HasErrors())
	require.Equal(t, diag.CodeUnknownBuiltin, diags[0].Code)
}

func TestLowerAssetConstructor(t *testing.T) {
	e := lowerYAML(t, "{fn::fileAsset: ./README.md}")
	a, ok := e.(ast.Asset)
	require.True(t, ok)
	require.Equal(t, ast.FileAsset, a.Kind)
}

func TestLowerInvoke(t *testing.T) {
	e := lowerYAML(t, "{fn::invoke: {function: aws:index:getAmi, arguments: {owners: [amazon]}}}")
	inv, ok := e.(ast.Invoke)
	require.True(t, ok)
	require.Equal(t, "aws:index:getAmi", inv.Token)
	require.NotNil(t, inv.Args)
}

func TestLowerSecretPreservesNesting(t *testing.T) {
	e := lowerYAML(t, "{fn::secret: {fn::secret: topsecret}}")
	outer, ok := e.(ast.Secret)
	require.True(t, ok)
	_, ok = outer.Inner.(ast.Secret)
	require.True(t, ok, "nested secret should not collapse")
}

func TestCanonicalizeResourceType(t *testing.T) {
	canon, ok := CanonicalizeResourceType("gcp:storage:Bucket")
	require.True(t, ok)
	require.Equal(t, "gcp:storage/bucket:Bucket", canon)

	canon, ok = CanonicalizeResourceType("aws:s3/bucket:Bucket")
	require.True(t, ok)
	require.Equal(t, "aws:s3/bucket:Bucket", canon)

	_, ok = CanonicalizeResourceType("not-a-valid-token")
	require.False(t, ok)
}
