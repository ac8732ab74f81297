// Package builtins implements the fixed registry of pure built-in
// functions (spec.md §4.6): arity/type validation plus evaluation, usable
// both inside the planner (as AST nodes the planner never pre-evaluates)
// and as the standalone evaluate_builtin entry point (spec.md §6).
package builtins

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Error is the error type evaluate_builtin returns on any validation or
// evaluation failure (spec.md §7: "it is the only API that distinguishes
// an error from a diagnostic").
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func typeError(format string, args ...interface{}) error {
	return &Error{Code: "TypeError", Message: fmt.Sprintf(format, args...)}
}

func indexError(format string, args ...interface{}) error {
	return &Error{Code: "IndexError", Message: fmt.Sprintf(format, args...)}
}

func decodeError(format string, args ...interface{}) error {
	return &Error{Code: "DecodeError", Message: fmt.Sprintf(format, args...)}
}

// evaluator is one registry entry's pure function: validate arg's shape and
// produce a value, per the boundary types in spec.md §4.6 (null, bool,
// int64, float64, string, list, map(string→value)).
type evaluator func(arg interface{}) (interface{}, error)

// Non-deterministic entries are never pre-evaluated by the planner
// (spec.md §4.6), but evaluate_builtin does evaluate them.
var nonDeterministic = map[string]bool{
	"uuid":         true,
	"randomString": true,
	"timeUtc":      true,
}

var registry = map[string]evaluator{
	"abs":          evalAbs,
	"floor":        evalFloor,
	"ceil":         evalCeil,
	"max":          evalMax,
	"min":          evalMin,
	"join":         evalJoin,
	"split":        evalSplit,
	"select":       evalSelect,
	"stringLen":    evalStringLen,
	"substring":    evalSubstring,
	"toJSON":       evalToJSON,
	"toBase64":     evalToBase64,
	"fromBase64":   evalFromBase64,
	"secret":       evalSecret,
	"uuid":         evalUUID,
	"randomString": evalRandomString,
	"timeUtc":      evalTimeUtc,
}

// Has reports whether name is a registered built-in (used by internal/lower
// to decide whether an `fn::name` key is a built-in call vs. UnknownBuiltin).
func Has(name string) bool {
	_, ok := registry[name]
	return ok
}

// IsNonDeterministic reports whether name draws on an implicit entropy or
// clock source (spec.md §4.6); the planner leaves these as AST nodes rather
// than pre-evaluating them.
func IsNonDeterministic(name string) bool {
	return nonDeterministic[name]
}

// Names returns every registered built-in name, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Evaluate runs the named built-in against arg (spec.md §4.6's
// evaluate_builtin, spec.md §6). Unknown names are reported as TypeError
// since there is no diagnostics list for the standalone entry point to
// carry an UnknownBuiltin into (spec.md §7).
func Evaluate(name string, arg interface{}) (interface{}, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, typeError("unknown built-in %q", name)
	}
	return fn(arg)
}

func asNumber(v interface{}) (float64, bool, int64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true, n, true
	case int:
		return float64(n), true, int64(n), true
	case float64:
		return n, false, int64(n), true
	}
	return 0, false, 0, false
}

func evalAbs(arg interface{}) (interface{}, error) {
	f, isInt, i, ok := asNumber(arg)
	if !ok {
		return nil, typeError("abs expects a number, got %T", arg)
	}
	if isInt {
		if i < 0 {
			i = -i
		}
		return i, nil
	}
	return math.Abs(f), nil
}

func evalFloor(arg interface{}) (interface{}, error) {
	f, _, _, ok := asNumber(arg)
	if !ok {
		return nil, typeError("floor expects a number, got %T", arg)
	}
	return int64(math.Floor(f)), nil
}

func evalCeil(arg interface{}) (interface{}, error) {
	f, _, _, ok := asNumber(arg)
	if !ok {
		return nil, typeError("ceil expects a number, got %T", arg)
	}
	return int64(math.Ceil(f)), nil
}

func asList(v interface{}) ([]interface{}, bool) {
	l, ok := v.([]interface{})
	return l, ok
}

func evalMax(arg interface{}) (interface{}, error) {
	return extremum(arg, "max", func(a, b float64) bool { return a > b })
}

func evalMin(arg interface{}) (interface{}, error) {
	return extremum(arg, "min", func(a, b float64) bool { return a < b })
}

func extremum(arg interface{}, name string, better func(a, b float64) bool) (interface{}, error) {
	list, ok := asList(arg)
	if !ok || len(list) == 0 {
		return nil, typeError("%s expects a non-empty list of numbers", name)
	}
	best := list[0]
	bestF, _, _, ok := asNumber(best)
	if !ok {
		return nil, typeError("%s expects a list of numbers", name)
	}
	for _, v := range list[1:] {
		f, _, _, ok := asNumber(v)
		if !ok {
			return nil, typeError("%s expects a list of numbers", name)
		}
		if better(f, bestF) {
			best, bestF = v, f
		}
	}
	return best, nil
}

func evalJoin(arg interface{}) (interface{}, error) {
	list, ok := asList(arg)
	if !ok || len(list) != 2 {
		return nil, typeError("join expects [separator, [string...]]")
	}
	sep, ok := list[0].(string)
	if !ok {
		return nil, typeError("join's separator must be a string")
	}
	items, ok := asList(list[1])
	if !ok {
		return nil, typeError("join's second argument must be a list of strings")
	}
	parts := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, typeError("join's list must contain only strings")
		}
		parts[i] = s
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out, nil
}

func evalSplit(arg interface{}) (interface{}, error) {
	list, ok := asList(arg)
	if !ok || len(list) != 2 {
		return nil, typeError("split expects [pattern, string]")
	}
	pattern, ok1 := list[0].(string)
	s, ok2 := list[1].(string)
	if !ok1 || !ok2 {
		return nil, typeError("split expects two strings")
	}
	parts := splitString(s, pattern)
	out := make([]interface{}, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func splitString(s, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out
	}
	var out []string
	for {
		idx := indexOf(s, sep)
		if idx < 0 {
			out = append(out, s)
			return out
		}
		out = append(out, s[:idx])
		s = s[idx+len(sep):]
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func evalSelect(arg interface{}) (interface{}, error) {
	list, ok := asList(arg)
	if !ok || len(list) != 2 {
		return nil, typeError("select expects [index, list]")
	}
	f, isInt, i, ok := asNumber(list[0])
	if !ok || !isInt {
		return nil, typeError("select's index must be an integer")
	}
	_ = f
	items, ok := asList(list[1])
	if !ok {
		return nil, typeError("select's second argument must be a list")
	}
	if i < 0 || int(i) >= len(items) {
		return nil, indexError("index %d out of range for list of length %d", i, len(items))
	}
	return items[i], nil
}

func evalStringLen(arg interface{}) (interface{}, error) {
	s, ok := arg.(string)
	if !ok {
		return nil, typeError("stringLen expects a string, got %T", arg)
	}
	return int64(utf8.RuneCountInString(s)), nil
}

func evalSubstring(arg interface{}) (interface{}, error) {
	list, ok := asList(arg)
	if !ok || len(list) != 3 {
		return nil, typeError("substring expects [string, start, length]")
	}
	s, ok := list[0].(string)
	if !ok {
		return nil, typeError("substring's first argument must be a string")
	}
	_, isIntStart, start, ok1 := asNumber(list[1])
	_, isIntLength, length, ok2 := asNumber(list[2])
	if !ok1 || !ok2 || !isIntStart || !isIntLength {
		return nil, typeError("substring's start/length must be integers")
	}
	runes := []rune(s)
	n := int64(len(runes))
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := start + length
	if length < 0 {
		end = start
	}
	if end > n {
		end = n
	}
	return string(runes[start:end]), nil
}

func evalToJSON(arg interface{}) (interface{}, error) {
	b, err := json.Marshal(toJSONCompatible(arg))
	if err != nil {
		return nil, typeError("toJSON failed: %v", err)
	}
	return string(b), nil
}

// toJSONCompatible recursively converts our boundary value shapes to ones
// encoding/json understands; ordered objects are passed in as orderedMap
// values (see NewOrderedMap), whose MarshalJSON writes keys in declaration
// order (spec.md §4.6: "objects in declaration order").
func toJSONCompatible(v interface{}) interface{} {
	switch t := v.(type) {
	case orderedMap:
		return t
	case map[string]interface{}:
		return t
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = toJSONCompatible(e)
		}
		return out
	default:
		return t
	}
}

// orderedMap preserves key declaration order through json.Marshal, since a
// plain Go map does not (spec.md §4.6's "objects in declaration order").
type orderedMap struct {
	Keys   []string
	Values map[string]interface{}
}

func (m orderedMap) MarshalJSON() ([]byte, error) {
	var buf []byte
	buf = append(buf, '{')
	for i, k := range m.Keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(toJSONCompatible(m.Values[k]))
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// NewOrderedMap builds the ordered-object boundary value from the same
// (key, value) pairs an ast.Object carries, for callers assembling toJSON
// input outside the AST evaluator.
func NewOrderedMap(keys []string, values map[string]interface{}) orderedMap {
	return orderedMap{Keys: keys, Values: values}
}

func evalToBase64(arg interface{}) (interface{}, error) {
	s, ok := arg.(string)
	if !ok {
		return nil, typeError("toBase64 expects a string, got %T", arg)
	}
	return base64.StdEncoding.EncodeToString([]byte(s)), nil
}

func evalFromBase64(arg interface{}) (interface{}, error) {
	s, ok := arg.(string)
	if !ok {
		return nil, typeError("fromBase64 expects a string, got %T", arg)
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, decodeError("invalid base64 input: %v", err)
	}
	return string(decoded), nil
}

func evalSecret(arg interface{}) (interface{}, error) {
	return map[string]interface{}{"__secret": true, "value": arg}, nil
}

func evalUUID(arg interface{}) (interface{}, error) {
	if s, ok := arg.(string); ok && s != "" {
		return nil, typeError("uuid expects no argument, got %q", s)
	}
	return uuid.New().String(), nil
}

func evalRandomString(arg interface{}) (interface{}, error) {
	_, isInt, n, ok := asNumber(arg)
	if !ok || !isInt || n <= 0 {
		return nil, typeError("randomString expects a positive integer length")
	}
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[secureRandomIndex(len(alphabet))]
	}
	return string(out), nil
}

func evalTimeUtc(arg interface{}) (interface{}, error) {
	layout, ok := arg.(string)
	if !ok || layout == "" {
		layout = "2006-01-02T15:04:05Z07:00"
	}
	return time.Now().UTC().Format(layout), nil
}
