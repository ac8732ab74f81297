package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awsqed/yaml-iac-host/internal/preprocess"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

// Seed scenario 1 (spec.md §8).
func TestParseTemplateEmptyProject(t *testing.T) {
	s := ParseTemplate("name: test\nruntime: yaml\n")
	require.Equal(t, "test", s.Name)
	require.Zero(t, s.ResourceCount)
	require.Zero(t, s.VariableCount)
	require.Zero(t, s.OutputCount)
	require.Zero(t, s.ConfigCount)
	require.False(t, s.HasErrors)
}

func TestCreateExecutionPlanMainOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Pulumi.yaml", `
name: demo
runtime: yaml
resources:
  bucket:
    type: gcp:storage:Bucket
    properties:
      name: my-bucket
      location: US
outputs:
  bucketName: ${bucket.name}
`)

	p, err := CreateExecutionPlan(dir, Options{})
	require.NoError(t, err)
	require.Equal(t, "demo", p.ProjectName)
	require.Len(t, p.Nodes, 1)
	require.Equal(t, "gcp:storage/bucket:Bucket", p.Nodes[0].TypeToken)
	require.Len(t, p.Outputs, 1)
	require.False(t, p.Diagnostics.HasErrors())
}

// Seed scenario 7 (spec.md §8).
func TestLoadProjectMultiFileSourceMap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Pulumi.yaml", "name: demo\nruntime: yaml\n")
	writeFile(t, dir, "Pulumi.storage.yaml", `
resources:
  storageBucket:
    type: aws:s3:Bucket
`)

	loaded, err := LoadProject(dir, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, loaded.FileCount)
	require.Contains(t, loaded.SourceMap["storageBucket"], "Pulumi.storage.yaml")
}

func TestCreateExecutionPlanMissingMainIsFatal(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateExecutionPlan(dir, Options{})
	require.Error(t, err)
}

func TestCreateExecutionPlanWithJinjaContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Pulumi.yaml", "name: {{ stackName }}\nruntime: yaml\n")

	p, err := CreateExecutionPlan(dir, Options{Context: preprocess.Context{"stackName": "prod"}})
	require.NoError(t, err)
	require.Equal(t, "prod", p.ProjectName)
}

func TestEvaluateBuiltinSelect(t *testing.T) {
	v, err := EvaluateBuiltin("select", []interface{}{int64(1), []interface{}{"a", "b", "c"}})
	require.NoError(t, err)
	require.Equal(t, "b", v)

	_, err = EvaluateBuiltin("select", []interface{}{int64(5), []interface{}{"a"}})
	require.Error(t, err)
}

func TestPreprocessPassthrough(t *testing.T) {
	out, err := PreprocessJinja("plain: text\n", "f.yaml", nil)
	require.NoError(t, err)
	require.Equal(t, "plain: text\n", out)
}
