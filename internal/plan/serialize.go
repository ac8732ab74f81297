package plan

import (
	"github.com/awsqed/yaml-iac-host/internal/ast"
	"github.com/awsqed/yaml-iac-host/internal/project"
)

// Serialize projects a Plan into the language-neutral tagged form
// described by spec.md §3 and §6.
func Serialize(p Plan) ast.Value {
	nodes := make([]interface{}, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = serializeNode(n)
	}

	outputs := make([]interface{}, len(p.Outputs))
	for i, o := range p.Outputs {
		outputs[i] = ast.Value{"name": o.Name, "value": ast.Serialize(o.Value)}
	}

	diags := make([]interface{}, len(p.Diagnostics))
	for i, d := range p.Diagnostics {
		diags[i] = ast.Value{
			"severity": string(d.Severity),
			"code":     string(d.Code),
			"message":  d.Message,
			"file":     d.File,
			"line":     d.Line,
			"column":   d.Column,
		}
	}

	levels := make([]interface{}, len(p.Levels))
	for i, lvl := range p.Levels {
		items := make([]interface{}, len(lvl))
		for j, s := range lvl {
			items[j] = s
		}
		levels[i] = items
	}

	sourceMap := ast.Value{}
	for k, v := range p.SourceMap {
		sourceMap[k] = v
	}

	return ast.Value{
		"project_name": p.ProjectName,
		"nodes":        nodes,
		"outputs":      outputs,
		"source_map":   sourceMap,
		"diagnostics":  diags,
		"levels":       levels,
	}
}

func serializeNode(n Node) ast.Value {
	v := ast.Value{"kind": string(n.Kind), "name": n.Name}
	switch n.Kind {
	case KindConfig:
		if n.ConfigType != "" {
			v["type"] = n.ConfigType
		}
		if n.ConfigDefault != nil {
			v["default"] = ast.Serialize(n.ConfigDefault)
		}
		if n.ConfigSecret {
			v["secret"] = true
		}
	case KindVariable:
		v["value"] = ast.Serialize(n.VariableValue)
	case KindResource, KindComponent:
		v["type_token"] = n.TypeToken
		props := make([]interface{}, len(n.Properties))
		for i, p := range n.Properties {
			props[i] = ast.Value{"k": p.Key, "v": ast.Serialize(p.Value)}
		}
		v["properties"] = props
		if n.Options != nil {
			v["options"] = serializeOptions(n.Options)
		}
		if n.Get != nil {
			get := ast.Value{}
			if n.Get.ID != nil {
				get["id"] = ast.Serialize(n.Get.ID)
			}
			if n.Get.State != nil {
				get["state"] = ast.Serialize(n.Get.State)
			}
			v["get"] = get
		}
	}
	return v
}

func serializeOptions(o *project.ResourceOptions) ast.Value {
	v := ast.Value{}
	if o.Protect != nil {
		v["protect"] = ast.Serialize(o.Protect)
	}
	if len(o.DependsOn) > 0 {
		v["dependsOn"] = serializeExprList(o.DependsOn)
	}
	if o.Parent != nil {
		v["parent"] = ast.Serialize(o.Parent)
	}
	if o.Provider != nil {
		v["provider"] = ast.Serialize(o.Provider)
	}
	if len(o.Providers) > 0 {
		v["providers"] = serializeExprList(o.Providers)
	}
	if len(o.Aliases) > 0 {
		v["aliases"] = serializeExprList(o.Aliases)
	}
	if len(o.IgnoreChanges) > 0 {
		v["ignoreChanges"] = serializeExprList(o.IgnoreChanges)
	}
	if o.Version != nil {
		v["version"] = ast.Serialize(o.Version)
	}
	if o.PluginDownloadURL != nil {
		v["pluginDownloadURL"] = ast.Serialize(o.PluginDownloadURL)
	}
	if o.RetainOnDelete != nil {
		v["retainOnDelete"] = ast.Serialize(o.RetainOnDelete)
	}
	if o.DeleteBeforeReplace != nil {
		v["deleteBeforeReplace"] = ast.Serialize(o.DeleteBeforeReplace)
	}
	if o.CustomTimeouts != nil {
		v["customTimeouts"] = ast.Serialize(o.CustomTimeouts)
	}
	if o.ImportID != nil {
		v["importID"] = ast.Serialize(o.ImportID)
	}
	return v
}

func serializeExprList(exprs []ast.Expr) []interface{} {
	out := make([]interface{}, len(exprs))
	for i, e := range exprs {
		out[i] = ast.Serialize(e)
	}
	return out
}
