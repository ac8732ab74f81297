// Package project defines the merged-project data model (spec.md §3) and
// the merger stage (spec.md §4.4) that combines a primary manifest and its
// overlays into it. Merge produces a RawProject holding raw *yaml.Node
// values; internal/lower then builds a separate Project value from it,
// using the lowered structs below (ConfigDecl, VariableDecl, ResourceDecl,
// Output) with ast.Expr values, and folds components into Resources with
// Component set.
package project

import (
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/awsqed/yaml-iac-host/internal/ast"
	"github.com/awsqed/yaml-iac-host/internal/diag"
)

// ParsedFile is one project file after parsing, in discovery order
// (main file first, then overlays sorted lexicographically).
type ParsedFile struct {
	Path string
	Root *yaml.Node // nil if this file failed to parse (spec.md §4.3)
}

// RawEntry is one top-level declaration before lowering: its key, its raw
// YAML value node, and the file it came from.
type RawEntry struct {
	Key   string
	Value *yaml.Node
	File  string
}

// RawProject is the merger's output (spec.md §4.4): scalar fields taken
// from the main file, map sections union-merged across all files.
type RawProject struct {
	Name        string
	Runtime     string
	Description string

	Config     []RawEntry
	Variables  []RawEntry
	Resources  []RawEntry
	Components []RawEntry
	Outputs    []RawEntry

	SourceMap   map[string]string
	Diagnostics diag.Diagnostics
}

// mappingEntries returns the ordered (key, value) pairs of a mapping node,
// or nil if node is nil or not a mapping.
func mappingEntries(node *yaml.Node) []struct {
	Key   *yaml.Node
	Value *yaml.Node
} {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]struct {
		Key   *yaml.Node
		Value *yaml.Node
	}, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, struct {
			Key   *yaml.Node
			Value *yaml.Node
		}{Key: node.Content[i], Value: node.Content[i+1]})
	}
	return out
}

func scalarString(node *yaml.Node) string {
	if node == nil {
		return ""
	}
	return node.Value
}

func findTopLevel(root *yaml.Node, key string) *yaml.Node {
	for _, e := range mappingEntries(root) {
		if e.Key.Value == key {
			return e.Value
		}
	}
	return nil
}

// Merge combines the main file and its overlays into a RawProject
// (spec.md §4.4). files must be in discovery order: main file first.
func Merge(files []ParsedFile) RawProject {
	var diags diag.Diagnostics
	sourceMap := map[string]string{}
	// seenDecl tracks symbol uniqueness across config/variables/resources/
	// components (spec.md §3's "Symbol"); outputs are tracked separately
	// since output names are not part of that symbol space.
	seenDecl := map[string]bool{}
	seenOutput := map[string]bool{}

	rp := RawProject{SourceMap: sourceMap}

	for i, f := range files {
		if f.Root == nil {
			continue
		}
		if i == 0 {
			rp.Name = scalarString(findTopLevel(f.Root, "name"))
			rp.Runtime = scalarString(findTopLevel(f.Root, "runtime"))
			rp.Description = scalarString(findTopLevel(f.Root, "description"))
		}

		rp.Config = mergeSection(rp.Config, findTopLevel(f.Root, "config"), f.Path, seenDecl, sourceMap, &diags)
		rp.Variables = mergeSection(rp.Variables, findTopLevel(f.Root, "variables"), f.Path, seenDecl, sourceMap, &diags)
		rp.Resources = mergeSection(rp.Resources, findTopLevel(f.Root, "resources"), f.Path, seenDecl, sourceMap, &diags)
		rp.Components = mergeSection(rp.Components, findTopLevel(f.Root, "components"), f.Path, seenDecl, sourceMap, &diags)
		rp.Outputs = mergeSection(rp.Outputs, findTopLevel(f.Root, "outputs"), f.Path, seenOutput, sourceMap, &diags)
	}

	rp.Diagnostics = diags
	return rp
}

func mergeSection(into []RawEntry, section *yaml.Node, file string, seen map[string]bool, sourceMap map[string]string, diags *diag.Diagnostics) []RawEntry {
	for _, e := range mappingEntries(section) {
		name := e.Key.Value
		if seen[name] {
			diags.Errorf(diag.CodeDuplicateSymbol, file, e.Key.Line, e.Key.Column, "duplicate symbol %q (first declared in %s)", name, sourceMap[name])
			continue
		}
		seen[name] = true
		sourceMap[name] = file
		into = append(into, RawEntry{Key: name, Value: e.Value, File: file})
	}
	return into
}

// sortedSourceMapKeys returns every symbol recorded in the source map,
// sorted by name.
func (rp RawProject) sortedSourceMapKeys() []string {
	keys := make([]string, 0, len(rp.SourceMap))
	for k := range rp.SourceMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- Lowered model (spec.md §3) ---

// ConfigDecl is a lowered `config` declaration.
type ConfigDecl struct {
	Name    string
	Type    string
	Default ast.Expr
	Secret  bool
}

// VariableDecl is a lowered `variables` declaration.
type VariableDecl struct {
	Name  string
	Value ast.Expr
}

// PropEntry is one resource property, in authoring order (spec.md §4.7).
type PropEntry struct {
	Key   string
	Value ast.Expr
}

// ResourceOptions is the lowered form of a resource's `options` block
// (spec.md §3's Node bullet for resources).
type ResourceOptions struct {
	Protect             ast.Expr
	DependsOn           []ast.Expr
	Parent              ast.Expr
	Provider            ast.Expr
	Providers           []ast.Expr
	Aliases             []ast.Expr
	IgnoreChanges       []ast.Expr
	Version             ast.Expr
	PluginDownloadURL   ast.Expr
	RetainOnDelete      ast.Expr
	DeleteBeforeReplace ast.Expr
	CustomTimeouts      ast.Expr
	ImportID            ast.Expr
}

// ResourceGet is the lowered form of a resource's `get` block.
type ResourceGet struct {
	ID    ast.Expr
	State ast.Expr
}

// ResourceDecl is a lowered `resources` or `components` declaration; the
// two sections share this shape, distinguished only by Component (spec.md
// §4.7's kind-priority "config < variable < resource < component").
type ResourceDecl struct {
	Name      string
	TypeToken string
	Properties []PropEntry
	Options   *ResourceOptions
	Get       *ResourceGet
	Component bool
}

// Output is a lowered `outputs` declaration.
type Output struct {
	Name  string
	Value ast.Expr
}

// Project is the fully lowered project (spec.md §3).
type Project struct {
	Name        string
	Runtime     string
	Description string

	Config     []ConfigDecl
	Variables  []VariableDecl
	Resources  []ResourceDecl

	Outputs []Output

	SourceMap   map[string]string
	Diagnostics diag.Diagnostics
}

// HasErrors reports whether the project carries any error-severity
// diagnostic.
func (p Project) HasErrors() bool {
	return p.Diagnostics.HasErrors()
}
