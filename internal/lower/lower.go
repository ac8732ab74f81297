// Package lower converts raw YAML value nodes into the typed expression AST
// (spec.md §3, §4.5): literals, string interpolation, symbol references,
// lists/objects, built-in and invoke calls, asset/archive constructors, and
// resource-type canonicalization. It is grounded on the teacher's own
// *yaml.Node tree-walk (awsqed-config-formatter/formatter/formatter.go's
// formatNode/sortMappingNode) generalized from "reformat this tree in
// place" to "project this tree into a typed AST."
package lower

import (
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/awsqed/yaml-iac-host/internal/ast"
	"github.com/awsqed/yaml-iac-host/internal/builtins"
	"github.com/awsqed/yaml-iac-host/internal/diag"
	"github.com/awsqed/yaml-iac-host/internal/project"
)

const fnPrefix = "fn::"

var assetKinds = map[string]ast.AssetKind{
	"stringAsset":   ast.StringAsset,
	"fileAsset":     ast.FileAsset,
	"remoteAsset":   ast.RemoteAsset,
	"fileArchive":   ast.FileArchive,
	"remoteArchive": ast.RemoteArchive,
	"assetArchive":  ast.AssetArchive,
}

// Lower converts a merged RawProject into its fully typed Project form
// (spec.md §4.5).
func Lower(raw project.RawProject) project.Project {
	diags := raw.Diagnostics

	p := project.Project{
		Name:        raw.Name,
		Runtime:     raw.Runtime,
		Description: raw.Description,
		SourceMap:   raw.SourceMap,
	}

	for _, e := range raw.Config {
		p.Config = append(p.Config, lowerConfig(e, &diags))
	}
	for _, e := range raw.Variables {
		p.Variables = append(p.Variables, project.VariableDecl{
			Name:  e.Key,
			Value: LowerExpr(e.Value, e.File, &diags),
		})
	}
	for _, e := range raw.Resources {
		p.Resources = append(p.Resources, lowerResource(e, false, &diags))
	}
	for _, e := range raw.Components {
		p.Resources = append(p.Resources, lowerResource(e, true, &diags))
	}
	for _, e := range raw.Outputs {
		p.Outputs = append(p.Outputs, project.Output{
			Name:  e.Key,
			Value: LowerExpr(e.Value, e.File, &diags),
		})
	}

	p.Diagnostics = diags
	return p
}

func lowerConfig(e project.RawEntry, diags *diag.Diagnostics) project.ConfigDecl {
	cd := project.ConfigDecl{Name: e.Key}
	v := e.Value
	if v == nil {
		return cd
	}
	if v.Kind == yaml.ScalarNode {
		cd.Type = v.Value
		return cd
	}
	for _, ent := range entries(v) {
		switch ent.Key.Value {
		case "type":
			cd.Type = ent.Value.Value
		case "default":
			cd.Default = LowerExpr(ent.Value, e.File, diags)
		case "secret":
			cd.Secret = ent.Value.Value == "true"
		default:
			diags.Warnf(diag.CodeSchemaWarning, e.File, ent.Key.Line, ent.Key.Column, "unknown config key %q", ent.Key.Value)
		}
	}
	return cd
}

func lowerResource(e project.RawEntry, component bool, diags *diag.Diagnostics) project.ResourceDecl {
	rd := project.ResourceDecl{Name: e.Key, Component: component}
	v := e.Value
	if v == nil || v.Kind != yaml.MappingNode {
		diags.Errorf(diag.CodeSchemaError, e.File, lineOf(v), colOf(v), "resource %q must be a mapping", e.Key)
		return rd
	}

	for _, ent := range entries(v) {
		key, val := ent.Key.Value, ent.Value
		switch key {
		case "type":
			token := val.Value
			canon, ok := CanonicalizeResourceType(token)
			if !ok {
				diags.Errorf(diag.CodeSchemaError, e.File, val.Line, val.Column, "malformed resource type token %q", token)
			}
			rd.TypeToken = canon
		case "properties":
			for _, p := range entries(val) {
				rd.Properties = append(rd.Properties, project.PropEntry{
					Key:   p.Key.Value,
					Value: LowerExpr(p.Value, e.File, diags),
				})
			}
		case "options":
			rd.Options = lowerOptions(val, e.File, diags)
		case "get":
			rd.Get = lowerGet(val, e.File, diags)
		case "component":
			rd.Component = val.Value == "true"
		default:
			diags.Warnf(diag.CodeSchemaWarning, e.File, ent.Key.Line, ent.Key.Column, "unknown resource key %q", key)
		}
	}

	if rd.TypeToken == "" {
		diags.Errorf(diag.CodeSchemaError, e.File, v.Line, v.Column, "resource %q is missing required key \"type\"", e.Key)
	}
	return rd
}

func lowerOptions(node *yaml.Node, file string, diags *diag.Diagnostics) *project.ResourceOptions {
	opts := &project.ResourceOptions{}
	for _, ent := range entries(node) {
		key, val := ent.Key.Value, ent.Value
		switch key {
		case "protect":
			opts.Protect = LowerExpr(val, file, diags)
		case "dependsOn":
			opts.DependsOn = lowerExprList(val, file, diags)
		case "parent":
			opts.Parent = LowerExpr(val, file, diags)
		case "provider":
			opts.Provider = LowerExpr(val, file, diags)
		case "providers":
			opts.Providers = lowerExprList(val, file, diags)
		case "aliases":
			opts.Aliases = lowerExprList(val, file, diags)
		case "ignoreChanges":
			opts.IgnoreChanges = lowerExprList(val, file, diags)
		case "version":
			opts.Version = LowerExpr(val, file, diags)
		case "pluginDownloadURL":
			opts.PluginDownloadURL = LowerExpr(val, file, diags)
		case "retainOnDelete":
			opts.RetainOnDelete = LowerExpr(val, file, diags)
		case "deleteBeforeReplace":
			opts.DeleteBeforeReplace = LowerExpr(val, file, diags)
		case "customTimeouts":
			opts.CustomTimeouts = LowerExpr(val, file, diags)
		case "importID":
			opts.ImportID = LowerExpr(val, file, diags)
		default:
			diags.Warnf(diag.CodeSchemaWarning, file, ent.Key.Line, ent.Key.Column, "unknown resource option %q", key)
		}
	}
	return opts
}

func lowerGet(node *yaml.Node, file string, diags *diag.Diagnostics) *project.ResourceGet {
	get := &project.ResourceGet{}
	for _, ent := range entries(node) {
		switch ent.Key.Value {
		case "id":
			get.ID = LowerExpr(ent.Value, file, diags)
		case "state":
			get.State = LowerExpr(ent.Value, file, diags)
		default:
			diags.Warnf(diag.CodeSchemaWarning, file, ent.Key.Line, ent.Key.Column, "unknown get key %q", ent.Key.Value)
		}
	}
	return get
}

func lowerExprList(node *yaml.Node, file string, diags *diag.Diagnostics) []ast.Expr {
	if node == nil || node.Kind != yaml.SequenceNode {
		if node != nil {
			return []ast.Expr{LowerExpr(node, file, diags)}
		}
		return nil
	}
	out := make([]ast.Expr, 0, len(node.Content))
	for _, item := range node.Content {
		out = append(out, LowerExpr(item, file, diags))
	}
	return out
}

// LowerExpr lowers a single YAML value node into an ast.Expr (spec.md §4.5).
func LowerExpr(node *yaml.Node, file string, diags *diag.Diagnostics) ast.Expr {
	if node == nil {
		return ast.Null{}
	}
	span := ast.Span{File: file, Line: node.Line, Column: node.Column}

	switch node.Kind {
	case yaml.ScalarNode:
		return lowerScalar(node, span, diags, file)
	case yaml.SequenceNode:
		items := make([]ast.Expr, 0, len(node.Content))
		for _, item := range node.Content {
			items = append(items, LowerExpr(item, file, diags))
		}
		return ast.NewList(span, items)
	case yaml.MappingNode:
		if fn, arg, ok := singleFnKey(node); ok {
			return lowerFnCall(fn, arg, span, file, diags)
		}
		entriesList := entries(node)
		out := make([]ast.ObjectEntry, 0, len(entriesList))
		for _, e := range entriesList {
			out = append(out, ast.ObjectEntry{Key: e.Key.Value, Value: LowerExpr(e.Value, file, diags)})
		}
		return ast.NewObject(span, out)
	default:
		return ast.NewNull(span)
	}
}

func lowerScalar(node *yaml.Node, span ast.Span, diags *diag.Diagnostics, file string) ast.Expr {
	switch node.Tag {
	case "!!null":
		return ast.NewNull(span)
	case "!!bool":
		b, _ := strconv.ParseBool(node.Value)
		return ast.NewBool(span, b)
	case "!!int":
		i, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return ast.NewString(span, node.Value)
		}
		return ast.NewNumberInt(span, i)
	case "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return ast.NewString(span, node.Value)
		}
		return ast.NewNumberFloat(span, f)
	default:
		return lowerStringOrInterp(node.Value, file, node.Line, node.Column, diags)
	}
}

// lowerStringOrInterp scans s for `${...}` interpolation segments
// (spec.md §4.5's "String interpolation"). An interp with exactly one
// empty literal and one embedded expression simplifies to that expression.
func lowerStringOrInterp(s, file string, line, col int, diags *diag.Diagnostics) ast.Expr {
	span := ast.Span{File: file, Line: line, Column: col}
	parts, hasInterp := scanInterp(s, file, line, col, diags)
	if !hasInterp {
		return ast.NewString(span, s)
	}
	if len(parts) == 2 && parts[0].Literal == "" && parts[0].Expr == nil && parts[1].Expr != nil {
		return parts[1].Expr
	}
	return ast.NewInterp(span, parts)
}

func scanInterp(s, file string, line, col int, diags *diag.Diagnostics) ([]ast.InterpPart, bool) {
	var parts []ast.InterpPart
	hasInterp := false
	i := 0
	var literal strings.Builder

	for i < len(s) {
		if i+1 < len(s) && s[i] == '$' && s[i+1] == '{' {
			depth := 1
			j := i + 2
			for j < len(s) && depth > 0 {
				switch s[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth == 0 {
					break
				}
				j++
			}
			if j >= len(s) {
				// Unbalanced; treat the rest as literal text.
				literal.WriteString(s[i:])
				i = len(s)
				break
			}
			hasInterp = true
			inner := s[i+2 : j]
			if literal.Len() > 0 {
				parts = append(parts, ast.InterpPart{Literal: literal.String()})
				literal.Reset()
			} else if len(parts) == 0 {
				parts = append(parts, ast.InterpPart{Literal: ""})
			}
			expr := parseSymExpr(inner, file, line, col, diags)
			parts = append(parts, ast.InterpPart{Expr: expr})
			i = j + 1
		} else {
			literal.WriteByte(s[i])
			i++
		}
	}
	if literal.Len() > 0 || len(parts) == 0 {
		parts = append(parts, ast.InterpPart{Literal: literal.String()})
	}
	return parts, hasInterp
}

// parseSymExpr parses `base.field[0].other` into a Sym expression
// (spec.md §4.5's "Symbol expressions").
func parseSymExpr(s, file string, line, col int, diags *diag.Diagnostics) ast.Expr {
	s = strings.TrimSpace(s)
	span := ast.Span{File: file, Line: line, Column: col}
	i := 0
	start := i
	for i < len(s) && isIdentChar(rune(s[i])) {
		i++
	}
	if i == start {
		diags.Errorf(diag.CodeSyntaxError, file, line, col, "malformed interpolation expression %q", s)
		return ast.NewString(span, s)
	}
	symBase := s[start:i]
	var accessors []ast.Accessor
	for i < len(s) {
		switch {
		case s[i] == '.':
			i++
			fstart := i
			for i < len(s) && isIdentChar(rune(s[i])) {
				i++
			}
			accessors = append(accessors, ast.Accessor{Kind: ast.AccessorField, Field: s[fstart:i]})
		case s[i] == '[':
			i++
			istart := i
			for i < len(s) && s[i] != ']' {
				i++
			}
			idx, _ := strconv.Atoi(s[istart:i])
			if i < len(s) {
				i++ // consume ']'
			}
			accessors = append(accessors, ast.Accessor{Kind: ast.AccessorIndex, Index: idx})
		default:
			i++
		}
	}
	return ast.NewSym(span, symBase, accessors)
}

func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// singleFnKey reports whether node is a single-key mapping whose key
// begins with `fn::`, returning the suffix and the value node.
func singleFnKey(node *yaml.Node) (string, *yaml.Node, bool) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return "", nil, false
	}
	key := node.Content[0].Value
	if !strings.HasPrefix(key, fnPrefix) {
		return "", nil, false
	}
	return strings.TrimPrefix(key, fnPrefix), node.Content[1], true
}

func lowerFnCall(name string, arg *yaml.Node, span ast.Span, file string, diags *diag.Diagnostics) ast.Expr {
	switch name {
	case "invoke":
		return lowerInvoke(arg, span, file, diags)
	case "secret":
		return ast.NewSecret(span, LowerExpr(arg, file, diags))
	}
	if kind, ok := assetKinds[name]; ok {
		return ast.NewAsset(span, kind, LowerExpr(arg, file, diags))
	}
	if builtins.Has(name) {
		return ast.NewBuiltin(span, name, LowerExpr(arg, file, diags))
	}
	diags.Errorf(diag.CodeUnknownBuiltin, file, span.Line, span.Column, "unknown fn:: builtin %q", name)
	return ast.Null{}
}

func lowerInvoke(arg *yaml.Node, span ast.Span, file string, diags *diag.Diagnostics) ast.Expr {
	var token string
	var args, options ast.Expr
	for _, e := range entries(arg) {
		switch e.Key.Value {
		case "function":
			token = e.Value.Value
		case "arguments":
			args = LowerExpr(e.Value, file, diags)
		case "options":
			options = LowerExpr(e.Value, file, diags)
		}
	}
	return ast.NewInvoke(span, token, args, options)
}

// CanonicalizeResourceType rewrites `ns:mod:Name` to `ns:mod/lower(Name):Name`
// (spec.md §4.5). A token already containing `/` is left as-is. Any other
// shape is reported via the bool return.
func CanonicalizeResourceType(token string) (string, bool) {
	if strings.Contains(token, "/") {
		return token, true
	}
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return token, false
	}
	ns, mod, name := parts[0], parts[1], parts[2]
	lowered := strings.ToLower(name[:1]) + name[1:]
	return ns + ":" + mod + "/" + lowered + ":" + name, true
}

type entry struct {
	Key   *yaml.Node
	Value *yaml.Node
}

func entries(node *yaml.Node) []entry {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, entry{Key: node.Content[i], Value: node.Content[i+1]})
	}
	return out
}

func lineOf(n *yaml.Node) int {
	if n == nil {
		return 0
	}
	return n.Line
}

func colOf(n *yaml.Node) int {
	if n == nil {
		return 0
	}
	return n.Column
}
