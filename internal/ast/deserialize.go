package ast

import "fmt"

// Deserialize reconstructs an Expr from its tagged Value form, the inverse
// of Serialize (spec.md §8 property 4: "deserialize(serialize(e)) == e up
// to node equivalence"). It does not reconstruct source spans, which are
// not part of the external wire schema (spec.md §6).
func Deserialize(v Value) (Expr, error) {
	t, _ := v["t"].(string)
	switch t {
	case "null":
		return Null{}, nil
	case "bool":
		b, _ := v["v"].(bool)
		return Bool{Value: b}, nil
	case "number":
		switch n := v["v"].(type) {
		case int64:
			return Number{Int: true, IntVal: n}, nil
		case int:
			return Number{Int: true, IntVal: int64(n)}, nil
		case float64:
			return Number{Int: false, FltVal: n}, nil
		default:
			return nil, fmt.Errorf("deserialize: number has unexpected value type %T", n)
		}
	case "string":
		s, _ := v["v"].(string)
		return String{Value: s}, nil
	case "interp":
		parts, ok := v["parts"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("deserialize: interp missing parts")
		}
		out := make([]InterpPart, 0, len(parts))
		for _, raw := range parts {
			if s, ok := raw.(string); ok {
				out = append(out, InterpPart{Literal: s})
				continue
			}
			sub, err := deserializeChild(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, InterpPart{Expr: sub})
		}
		return Interp{Parts: out}, nil
	case "sym":
		base, _ := v["base"].(string)
		accessorsRaw, _ := v["a"].([]interface{})
		accessors := make([]Accessor, 0, len(accessorsRaw))
		for _, raw := range accessorsRaw {
			am, ok := raw.(Value)
			if !ok {
				return nil, fmt.Errorf("deserialize: malformed accessor")
			}
			if f, ok := am["field"]; ok {
				accessors = append(accessors, Accessor{Kind: AccessorField, Field: f.(string)})
			} else if idx, ok := am["index"]; ok {
				accessors = append(accessors, Accessor{Kind: AccessorIndex, Index: toInt(idx)})
			}
		}
		return Sym{SymBase: base, Accessors: accessors}, nil
	case "list":
		items, _ := v["items"].([]interface{})
		out := make([]Expr, 0, len(items))
		for _, raw := range items {
			sub, err := deserializeChild(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, sub)
		}
		return List{Items: out}, nil
	case "object":
		entries, _ := v["entries"].([]interface{})
		out := make([]ObjectEntry, 0, len(entries))
		for _, raw := range entries {
			pair, ok := raw.([]interface{})
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("deserialize: malformed object entry")
			}
			key, _ := pair[0].(string)
			sub, err := deserializeChild(pair[1])
			if err != nil {
				return nil, err
			}
			out = append(out, ObjectEntry{Key: key, Value: sub})
		}
		return Object{Entries: out}, nil
	case "invoke":
		tok, _ := v["tok"].(string)
		args, err := deserializeChild(v["arg"])
		if err != nil {
			return nil, err
		}
		var opts Expr
		if o, ok := v["options"]; ok {
			opts, err = deserializeChild(o)
			if err != nil {
				return nil, err
			}
		}
		return Invoke{Token: tok, Args: args, Options: opts}, nil
	case "secret":
		inner, err := deserializeChild(v["arg"])
		if err != nil {
			return nil, err
		}
		return Secret{Inner: inner}, nil
	default:
		if isAssetKind(t) {
			arg, err := deserializeChild(v["arg"])
			if err != nil {
				return nil, err
			}
			return Asset{Kind: AssetKind(t), Arg: arg}, nil
		}
		// Any other tag is a built-in call by name (spec.md §3: the `t`
		// discriminator's last variant is "<builtin-name>").
		arg, err := deserializeChild(v["arg"])
		if err != nil {
			return nil, err
		}
		return Builtin{Name: t, Arg: arg}, nil
	}
}

func deserializeChild(raw interface{}) (Expr, error) {
	v, ok := raw.(Value)
	if !ok {
		return nil, fmt.Errorf("deserialize: expected a Value, got %T", raw)
	}
	return Deserialize(v)
}

func isAssetKind(t string) bool {
	switch AssetKind(t) {
	case StringAsset, FileAsset, RemoteAsset, FileArchive, RemoteArchive, AssetArchive:
		return true
	}
	return false
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
