package ast

// Value is the language-neutral serialized form: a tree of maps, slices,
// and scalars, matching the stable key schema in spec.md §6. It is the
// analogue of the teacher's *yaml.Node tree, but produced by this package's
// own projection instead of round-tripping through yaml.v3, since the
// external schema (field names `t`, `v`, `arg`, ...) is part of the wire
// contract, not an artifact of any particular YAML library.
type Value = map[string]interface{}

// Serialize projects an Expr into its tagged Value form (spec.md §4.8).
func Serialize(e Expr) Value {
	if e == nil {
		return Value{"t": "null"}
	}
	switch n := e.(type) {
	case Null:
		return Value{"t": "null"}
	case Bool:
		return Value{"t": "bool", "v": n.Value}
	case Number:
		if n.Int {
			return Value{"t": "number", "v": n.IntVal}
		}
		return Value{"t": "number", "v": n.FltVal}
	case String:
		return Value{"t": "string", "v": n.Value}
	case Interp:
		parts := make([]interface{}, len(n.Parts))
		for i, p := range n.Parts {
			if p.Expr != nil {
				parts[i] = Serialize(p.Expr)
			} else {
				parts[i] = p.Literal
			}
		}
		return Value{"t": "interp", "parts": parts}
	case Sym:
		accessors := make([]interface{}, len(n.Accessors))
		for i, a := range n.Accessors {
			if a.Kind == AccessorField {
				accessors[i] = Value{"field": a.Field}
			} else {
				accessors[i] = Value{"index": a.Index}
			}
		}
		return Value{"t": "sym", "base": n.SymBase, "a": accessors}
	case List:
		items := make([]interface{}, len(n.Items))
		for i, it := range n.Items {
			items[i] = Serialize(it)
		}
		return Value{"t": "list", "items": items}
	case Object:
		entries := make([]interface{}, len(n.Entries))
		for i, ent := range n.Entries {
			entries[i] = []interface{}{ent.Key, Serialize(ent.Value)}
		}
		return Value{"t": "object", "entries": entries}
	case Builtin:
		return Value{"t": n.Name, "arg": Serialize(n.Arg)}
	case Invoke:
		v := Value{"t": "invoke", "tok": n.Token, "arg": Serialize(n.Args)}
		if n.Options != nil {
			v["options"] = Serialize(n.Options)
		}
		return v
	case Asset:
		return Value{"t": string(n.Kind), "arg": Serialize(n.Arg)}
	case Secret:
		return Value{"t": "secret", "arg": Serialize(n.Inner)}
	default:
		return Value{"t": "null"}
	}
}
