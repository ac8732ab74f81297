// Package plan builds the dependency DAG across config, variables,
// resources, components, and outputs, detects cycles, computes topological
// levels, and assembles the final Plan value (spec.md §4.7). The walker and
// the serializer (internal/ast) are disjoint visitors over the same Expr
// variants; the built-in evaluator (internal/builtins) works on plain
// values, not Expr nodes, and the planner evaluates no built-in.
package plan

import "github.com/awsqed/yaml-iac-host/internal/ast"

// CollectSymbolRefs walks e and returns every symbol base referenced by a
// sym(...) node within it, in order of appearance (duplicates included;
// callers dedup as needed) (spec.md §4.7).
func CollectSymbolRefs(e ast.Expr) []string {
	var out []string
	walk(e, &out)
	return out
}

func walk(e ast.Expr, out *[]string) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case ast.Sym:
		*out = append(*out, n.SymBase)
	case ast.Interp:
		for _, p := range n.Parts {
			if p.Expr != nil {
				walk(p.Expr, out)
			}
		}
	case ast.List:
		for _, item := range n.Items {
			walk(item, out)
		}
	case ast.Object:
		for _, ent := range n.Entries {
			walk(ent.Value, out)
		}
	case ast.Builtin:
		walk(n.Arg, out)
	case ast.Invoke:
		walk(n.Args, out)
		walk(n.Options, out)
	case ast.Asset:
		walk(n.Arg, out)
	case ast.Secret:
		walk(n.Inner, out)
	}
}
