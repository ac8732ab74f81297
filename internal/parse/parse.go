// Package parse is a thin wrapper over gopkg.in/yaml.v3 that turns a text
// blob into an untyped structural node with source-location anchors
// (spec.md §4.3), matching the teacher's own use of *yaml.Node as the
// structural tree it walks in-place (formatter/formatter.go's formatNode).
package parse

import (
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/awsqed/yaml-iac-host/internal/diag"
)

// Result is a single parsed file: the root mapping node (nil when parsing
// or schema validation failed) plus any diagnostics raised along the way.
type Result struct {
	Root        *yaml.Node
	Diagnostics diag.Diagnostics
}

var lineInErr = regexp.MustCompile(`line (\d+)`)

// Parse parses text as YAML and returns its root mapping node. A parse
// failure yields a SyntaxError diagnostic and a nil Root; a non-mapping
// root yields a SchemaError diagnostic ("top-level must be a mapping") and
// a nil Root (spec.md §4.3) — in both cases the file contributes no
// declarations to the merged project but the pipeline continues.
func Parse(text, filename string) Result {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		line := 0
		if m := lineInErr.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
		var diags diag.Diagnostics
		diags.Errorf(diag.CodeSyntaxError, filename, line, 0, "%s", err.Error())
		return Result{Diagnostics: diags}
	}

	if len(doc.Content) == 0 {
		// An empty document parses successfully but has no root; treat it
		// as an empty mapping so an all-comment or empty overlay file is
		// harmless rather than a schema error.
		return Result{Root: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		var diags diag.Diagnostics
		diags.Errorf(diag.CodeSchemaError, filename, root.Line, root.Column, "top-level must be a mapping")
		return Result{Diagnostics: diags}
	}

	return Result{Root: root}
}
