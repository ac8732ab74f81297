package plan

import (
	"sort"

	"github.com/awsqed/yaml-iac-host/internal/ast"
	"github.com/awsqed/yaml-iac-host/internal/diag"
	"github.com/awsqed/yaml-iac-host/internal/project"
)

// NodeKind is the discriminator of a Plan node (spec.md §3).
type NodeKind string

const (
	KindConfig    NodeKind = "config"
	KindVariable  NodeKind = "variable"
	KindResource  NodeKind = "resource"
	KindComponent NodeKind = "component"
)

// Node is one planner node (spec.md §3).
type Node struct {
	Kind NodeKind
	Name string

	// config
	ConfigType    string
	ConfigDefault ast.Expr
	ConfigSecret  bool

	// variable
	VariableValue ast.Expr

	// resource / component
	TypeToken  string
	Properties []project.PropEntry
	Options    *project.ResourceOptions
	Get        *project.ResourceGet
}

// Plan is the final topologically ordered, serializable output of the
// core (spec.md §3).
type Plan struct {
	ProjectName string
	Nodes       []Node
	Outputs     []project.Output
	SourceMap   map[string]string
	Diagnostics diag.Diagnostics
	Levels      [][]string
}

// graphKind extends NodeKind with an "output" member for the purposes of
// level assignment: outputs participate in the DAG (spec.md §8's seed
// scenario 3) even though they are not themselves Plan nodes.
type graphKind int

const (
	gConfig graphKind = iota
	gVariable
	gResource
	gComponent
	gOutput
)

func (k graphKind) priority() int { return int(k) }

type declNode struct {
	name string
	kind graphKind
	deps []string // deduped, valid (resolved) dependency symbols
}

// Build assembles the Plan from a lowered Project (spec.md §4.7).
func Build(p project.Project) Plan {
	diags := p.Diagnostics

	// symbolKind covers every graph node, including outputs: an output can
	// itself be referenced by another output (spec.md §8's seed scenario 6,
	// "cycle a refs b refs a via outputs"), even though output names are
	// outside the uniqueness domain of spec.md §3's "Symbol".
	symbolKind := map[string]graphKind{}
	for _, c := range p.Config {
		symbolKind[c.Name] = gConfig
	}
	for _, v := range p.Variables {
		symbolKind[v.Name] = gVariable
	}
	for _, r := range p.Resources {
		if r.Component {
			symbolKind[r.Name] = gComponent
		} else {
			symbolKind[r.Name] = gResource
		}
	}
	for _, o := range p.Outputs {
		if _, exists := symbolKind[o.Name]; !exists {
			symbolKind[o.Name] = gOutput
		}
	}

	var decls []declNode
	var nodes []Node

	for _, c := range p.Config {
		decls = append(decls, declNode{name: c.Name, kind: gConfig}) // no outgoing edges
		nodes = append(nodes, Node{
			Kind:          KindConfig,
			Name:          c.Name,
			ConfigType:    c.Type,
			ConfigDefault: c.Default,
			ConfigSecret:  c.Secret,
		})
	}
	for _, v := range p.Variables {
		refs := CollectSymbolRefs(v.Value)
		deps := resolveDeps(refs, symbolKind, v.Name, p.SourceMap, &diags)
		decls = append(decls, declNode{name: v.Name, kind: gVariable, deps: deps})
		nodes = append(nodes, Node{Kind: KindVariable, Name: v.Name, VariableValue: v.Value})
	}
	for _, r := range p.Resources {
		var refs []string
		for _, prop := range r.Properties {
			refs = append(refs, CollectSymbolRefs(prop.Value)...)
		}
		if r.Options != nil {
			refs = append(refs, CollectSymbolRefs(r.Options.Parent)...)
			refs = append(refs, CollectSymbolRefs(r.Options.Provider)...)
			for _, d := range r.Options.DependsOn {
				refs = append(refs, CollectSymbolRefs(d)...)
			}
			for _, d := range r.Options.Providers {
				refs = append(refs, CollectSymbolRefs(d)...)
			}
			for _, d := range r.Options.Aliases {
				refs = append(refs, CollectSymbolRefs(d)...)
			}
		}
		deps := resolveDeps(refs, symbolKind, r.Name, p.SourceMap, &diags)
		kind := gResource
		nodeKind := KindResource
		if r.Component {
			kind = gComponent
			nodeKind = KindComponent
		}
		decls = append(decls, declNode{name: r.Name, kind: kind, deps: deps})
		nodes = append(nodes, Node{
			Kind:       nodeKind,
			Name:       r.Name,
			TypeToken:  r.TypeToken,
			Properties: r.Properties,
			Options:    r.Options,
			Get:        r.Get,
		})
	}

	var outputDecls []declNode
	for _, o := range p.Outputs {
		refs := CollectSymbolRefs(o.Value)
		deps := resolveDeps(refs, symbolKind, o.Name, p.SourceMap, &diags)
		outputDecls = append(outputDecls, declNode{name: o.Name, kind: gOutput, deps: deps})
	}

	all := append(append([]declNode{}, decls...), outputDecls...)
	levels, cycleDiags := computeLevels(all)
	diags.Extend(cycleDiags)

	return Plan{
		ProjectName: p.Name,
		Nodes:       nodes,
		Outputs:     p.Outputs,
		SourceMap:   p.SourceMap,
		Diagnostics: diags,
		Levels:      levels,
	}
}

// resolveDeps resolves raw symbol references against symbolKind, emitting
// UnknownSymbol diagnostics for bases that name no declaration (spec.md
// §3's invariant: "sym bases not matching any declaration emit a
// diagnostic but do not cause cycles") and deduping the rest in
// first-seen order.
func resolveDeps(refs []string, symbolKind map[string]graphKind, ownerName string, sourceMap map[string]string, diags *diag.Diagnostics) []string {
	seen := map[string]bool{}
	var out []string
	for _, base := range refs {
		if _, ok := symbolKind[base]; !ok {
			diags.Errorf(diag.CodeUnknownSymbol, sourceMap[ownerName], 0, 0, "%q references unknown symbol %q", ownerName, base)
			continue
		}
		if base == ownerName || seen[base] {
			continue
		}
		seen[base] = true
		out = append(out, base)
	}
	return out
}

// computeLevels performs Kahn-style topological layering (spec.md §4.7):
// level 0 is every declaration with zero outstanding dependencies, sorted
// by (kind-priority, name); each subsequent level removes the previous
// level's members and repeats. Declarations left over after the process
// stalls are partitioned into strongly connected components; every SCC of
// size > 1 yields one CycleDetected diagnostic with members listed in
// sorted order, and all stalled declarations are omitted from levels.
func computeLevels(decls []declNode) ([][]string, diag.Diagnostics) {
	byName := make(map[string]declNode, len(decls))
	remaining := make(map[string]bool, len(decls))
	for _, d := range decls {
		byName[d.name] = d
		remaining[d.name] = true
	}

	assigned := map[string]bool{}
	var levels [][]string

	for len(remaining) > 0 {
		var ready []string
		for name := range remaining {
			d := byName[name]
			ok := true
			for _, dep := range d.deps {
				if !assigned[dep] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			break
		}
		sort.Slice(ready, func(i, j int) bool {
			ki, kj := byName[ready[i]].kind.priority(), byName[ready[j]].kind.priority()
			if ki != kj {
				return ki < kj
			}
			return ready[i] < ready[j]
		})
		levels = append(levels, ready)
		for _, name := range ready {
			assigned[name] = true
			delete(remaining, name)
		}
	}

	var diags diag.Diagnostics
	if len(remaining) > 0 {
		sccs := tarjanSCCs(remaining, byName)
		for _, scc := range sccs {
			if len(scc) <= 1 {
				continue
			}
			sort.Strings(scc)
			diags.Errorf(diag.CodeCycleDetected, "", 0, 0, "cycle detected among symbols: %v", scc)
		}
	}

	return levels, diags
}

// tarjanSCCs computes the strongly connected components of the subgraph
// induced by `remaining`, restricting each node's edges to deps that are
// also in `remaining`.
func tarjanSCCs(remaining map[string]bool, byName map[string]declNode) [][]string {
	index := 0
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var sccs [][]string

	names := make([]string, 0, len(remaining))
	for n := range remaining {
		names = append(names, n)
	}
	sort.Strings(names)

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range byName[v].deps {
			if !remaining[w] {
				continue
			}
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, n := range names {
		if _, seen := indices[n]; !seen {
			strongconnect(n)
		}
	}
	return sccs
}
