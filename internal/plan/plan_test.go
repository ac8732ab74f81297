package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awsqed/yaml-iac-host/internal/ast"
	"github.com/awsqed/yaml-iac-host/internal/diag"
	"github.com/awsqed/yaml-iac-host/internal/lower"
	"github.com/awsqed/yaml-iac-host/internal/parse"
	"github.com/awsqed/yaml-iac-host/internal/project"
)

func buildProject(t *testing.T, text string) project.Project {
	t.Helper()
	res := parse.Parse(text, "Pulumi.yaml")
	require.NotNil(t, res.Root)
	raw := project.Merge([]project.ParsedFile{{Path: "Pulumi.yaml", Root: res.Root}})
	raw.Diagnostics.Extend(res.Diagnostics)
	return lower.Lower(raw)
}

// Seed scenario 2 (spec.md §8).
func TestPlanResourceTypeTokenAndProperties(t *testing.T) {
	p := buildProject(t, `
name: test
runtime: yaml
resources:
  bucket:
    type: gcp:storage:Bucket
    properties:
      name: my-bucket
      location: US
`)
	plan := Build(p)
	require.Len(t, plan.Nodes, 1)
	n := plan.Nodes[0]
	require.Equal(t, "gcp:storage/bucket:Bucket", n.TypeToken)
	require.Equal(t, []project.PropEntry{
		{Key: "name", Value: ast.NewString(ast.Span{}, "my-bucket")},
		{Key: "location", Value: ast.NewString(ast.Span{}, "US")},
	}, stripSpans(n.Properties))
}

func stripSpans(props []project.PropEntry) []project.PropEntry {
	out := make([]project.PropEntry, len(props))
	for i, p := range props {
		if s, ok := p.Value.(ast.String); ok {
			out[i] = project.PropEntry{Key: p.Key, Value: ast.NewString(ast.Span{}, s.Value)}
		} else {
			out[i] = p
		}
	}
	return out
}

// Seed scenario 3 (spec.md §8).
func TestPlanOutputDependsOnResource(t *testing.T) {
	p := buildProject(t, `
name: test
runtime: yaml
resources:
  bucket:
    type: gcp:storage:Bucket
    properties:
      name: my-bucket
outputs:
  bucketName: ${bucket.name}
`)
	pl := Build(p)
	require.Len(t, pl.Outputs, 1)
	sym, ok := pl.Outputs[0].Value.(ast.Sym)
	require.True(t, ok)
	require.Equal(t, "bucket", sym.SymBase)

	bucketLevel := levelOf(pl.Levels, "bucket")
	outputLevel := levelOf(pl.Levels, "bucketName")
	require.GreaterOrEqual(t, bucketLevel, 0)
	require.Greater(t, outputLevel, bucketLevel)
}

// Seed scenario 4 (spec.md §8).
func TestPlanDependsOnOption(t *testing.T) {
	p := buildProject(t, `
name: test
runtime: yaml
resources:
  bucketA:
    type: aws:s3:Bucket
  bucketB:
    type: aws:s3:Bucket
    options:
      dependsOn:
        - ${bucketA}
`)
	pl := Build(p)
	require.Equal(t, []string{"bucketA"}, pl.Levels[0])
	require.Equal(t, []string{"bucketB"}, pl.Levels[1])
}

// Seed scenario 6 (spec.md §8).
func TestPlanCycleDetection(t *testing.T) {
	p := buildProject(t, `
name: test
runtime: yaml
outputs:
  a: ${b}
  b: ${a}
`)
	pl := Build(p)
	require.Empty(t, pl.Levels)
	require.True(t, pl.Diagnostics.HasErrors())
	found := false
	for _, d := range pl.Diagnostics {
		if d.Code == diag.CodeCycleDetected {
			found = true
		}
	}
	require.True(t, found)
}

func TestPlanUnknownSymbolDoesNotCycle(t *testing.T) {
	p := buildProject(t, `
name: test
runtime: yaml
outputs:
  thing: ${doesNotExist}
`)
	pl := Build(p)
	require.True(t, pl.Diagnostics.HasErrors())
	hasUnknown := false
	for _, d := range pl.Diagnostics {
		if d.Code == diag.CodeUnknownSymbol {
			hasUnknown = true
		}
	}
	require.True(t, hasUnknown)
	require.Len(t, pl.Levels, 1)
	require.Equal(t, []string{"thing"}, pl.Levels[0])
}

func levelOf(levels [][]string, name string) int {
	for i, lvl := range levels {
		for _, s := range lvl {
			if s == name {
				return i
			}
		}
	}
	return -1
}
