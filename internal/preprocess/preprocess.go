// Package preprocess implements the two-level templating sublanguage that
// runs over raw project text before YAML parsing (spec.md §4.2): `{{ ... }}`
// expressions resolved against a caller-supplied context map, and
// `{% ... %}` for/if blocks interpreted by a small tree-walking
// interpreter, grounded on the `{% for %}`/`{% if %}` contract pinned down
// by `original_source/.../tests/test_jinja.py`.
package preprocess

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Context is the caller-supplied variable map. Values are either a string
// (the common case, spec.md §4.2's "string→string map") or a list
// ([]string or []interface{}), the only shapes a `{% for %}` loop may
// iterate besides a literal `range(n)`.
type Context map[string]interface{}

// ErrorCode classifies a preprocessor failure (spec.md §6's Diagnostics
// codes UnknownTemplateKey / UnbalancedBlocks).
type ErrorCode string

const (
	UnknownTemplateKey ErrorCode = "UnknownTemplateKey"
	UnbalancedBlocks    ErrorCode = "UnbalancedBlocks"
)

// Error is the error type returned by the jinja-lite operations.
type Error struct {
	Code     ErrorCode
	Filename string
	Message  string
}

func (e *Error) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Filename, e.Code, e.Message)
}

var tagPattern = regexp.MustCompile(`\{\%.*?\%\}|\{\{.*?\}\}`)
var blockTagPattern = regexp.MustCompile(`\{\%.*?\%\}`)

// HasJinjaBlocks reports whether text contains any `{% ... %}` block tag
// (spec.md §4.2).
func HasJinjaBlocks(text string) bool {
	return blockTagPattern.MatchString(text)
}

// StripJinjaBlocks removes every line containing a `{% ... %}` block tag
// while preserving lines carrying only `{{ ... }}` expressions, for
// analysis passes that must not render (spec.md §4.2, §8 property 7:
// idempotent on its own output).
func StripJinjaBlocks(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if blockTagPattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// ValidateJinja checks that every `{% for %}`/`{% endfor %}` and
// `{% if %}`/`{% endif %}` pair is balanced, without rendering (spec.md
// §4.2).
func ValidateJinja(text, filename string) error {
	_, err := parse(text, filename)
	return err
}

// PreprocessJinja fully renders text against ctx. Files with no templating
// are returned unchanged regardless of ctx (spec.md §4.2's "passes through
// untouched", and §8 property 7).
func PreprocessJinja(text, filename string, ctx Context) (string, error) {
	if !strings.Contains(text, "{{") && !strings.Contains(text, "{%") {
		return text, nil
	}
	nodes, err := parse(text, filename)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := renderNodes(nodes, ctx, filename, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// node is one parsed fragment of the template tree.
type node interface{ isNode() }

type textNode struct{ text string }

func (textNode) isNode() {}

type exprNode struct{ key string }

func (exprNode) isNode() {}

type forNode struct {
	varName string
	iterSrc string
	body    []node
}

func (forNode) isNode() {}

type ifNode struct {
	condSrc string
	body    []node
}

func (ifNode) isNode() {}

// parse tokenizes and parses text into a node tree, checking block balance.
func parse(text, filename string) ([]node, error) {
	toks := tokenize(text)
	nodes, rest, err := parseNodes(toks, filename, nil)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, &Error{Code: UnbalancedBlocks, Filename: filename, Message: "unexpected closing block with no matching opener"}
	}
	return nodes, nil
}

type token struct {
	text    string // literal text, when kind == "text"
	tagBody string // trimmed content inside {% %} or {{ }}
	kind    string // "text", "expr", "block"
}

func tokenize(text string) []token {
	var toks []token
	idx := 0
	matches := tagPattern.FindAllStringIndex(text, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > idx {
			toks = append(toks, token{kind: "text", text: text[idx:start]})
		}
		raw := text[start:end]
		if strings.HasPrefix(raw, "{{") {
			toks = append(toks, token{kind: "expr", tagBody: strings.TrimSpace(raw[2 : len(raw)-2])})
		} else {
			toks = append(toks, token{kind: "block", tagBody: strings.TrimSpace(raw[2 : len(raw)-2])})
		}
		idx = end
	}
	if idx < len(text) {
		toks = append(toks, token{kind: "text", text: text[idx:]})
	}
	return toks
}

// parseNodes consumes toks until it sees an "endfor"/"endif" terminator (or
// end of input, when terminators is nil) and returns the parsed body plus
// the unconsumed remainder.
func parseNodes(toks []token, filename string, terminators []string) ([]node, []token, error) {
	var out []node
	for len(toks) > 0 {
		t := toks[0]
		switch t.kind {
		case "text":
			out = append(out, textNode{text: t.text})
			toks = toks[1:]
		case "expr":
			out = append(out, exprNode{key: t.tagBody})
			toks = toks[1:]
		case "block":
			fields := strings.Fields(t.tagBody)
			if len(fields) == 0 {
				return nil, nil, &Error{Code: UnbalancedBlocks, Filename: filename, Message: "empty block tag"}
			}
			keyword := fields[0]
			for _, term := range terminators {
				if keyword == term {
					return out, toks, nil
				}
			}
			switch keyword {
			case "for":
				varName, iterSrc, err := parseForHeader(t.tagBody, filename)
				if err != nil {
					return nil, nil, err
				}
				body, rest, err := parseNodes(toks[1:], filename, []string{"endfor"})
				if err != nil {
					return nil, nil, err
				}
				if len(rest) == 0 || strings.Fields(rest[0].tagBody)[0] != "endfor" {
					return nil, nil, &Error{Code: UnbalancedBlocks, Filename: filename, Message: "unterminated {% for %}"}
				}
				out = append(out, forNode{varName: varName, iterSrc: iterSrc, body: body})
				toks = rest[1:]
			case "if":
				condSrc := strings.TrimSpace(strings.TrimPrefix(t.tagBody, "if"))
				body, rest, err := parseNodes(toks[1:], filename, []string{"endif"})
				if err != nil {
					return nil, nil, err
				}
				if len(rest) == 0 || strings.Fields(rest[0].tagBody)[0] != "endif" {
					return nil, nil, &Error{Code: UnbalancedBlocks, Filename: filename, Message: "unterminated {% if %}"}
				}
				out = append(out, ifNode{condSrc: condSrc, body: body})
				toks = rest[1:]
			case "endfor", "endif":
				return nil, nil, &Error{Code: UnbalancedBlocks, Filename: filename, Message: fmt.Sprintf("unexpected {%% %s %%} with no matching opener", keyword)}
			default:
				return nil, nil, &Error{Code: UnbalancedBlocks, Filename: filename, Message: fmt.Sprintf("unknown block tag %q", keyword)}
			}
		}
	}
	return out, nil, nil
}

var forHeaderPattern = regexp.MustCompile(`^for\s+(\w+)\s+in\s+(.+)$`)

func parseForHeader(body, filename string) (string, string, error) {
	m := forHeaderPattern.FindStringSubmatch(body)
	if m == nil {
		return "", "", &Error{Code: UnbalancedBlocks, Filename: filename, Message: fmt.Sprintf("malformed {%% %s %%}", body)}
	}
	return m[1], strings.TrimSpace(m[2]), nil
}

var rangeCallPattern = regexp.MustCompile(`^range\(\s*(\d+)\s*\)$`)

func renderNodes(nodes []node, ctx Context, filename string, buf *strings.Builder) error {
	return renderNodesWithLocals(nodes, ctx, nil, filename, buf)
}

func renderNodesWithLocals(nodes []node, ctx Context, locals map[string]interface{}, filename string, buf *strings.Builder) error {
	for _, n := range nodes {
		switch v := n.(type) {
		case textNode:
			buf.WriteString(v.text)
		case exprNode:
			val, err := lookup(v.key, ctx, locals, filename)
			if err != nil {
				return err
			}
			buf.WriteString(toDisplayString(val))
		case forNode:
			items, err := resolveIterable(v.iterSrc, ctx, locals, filename)
			if err != nil {
				return err
			}
			for _, item := range items {
				childLocals := cloneLocals(locals)
				childLocals[v.varName] = item
				if err := renderNodesWithLocals(v.body, ctx, childLocals, filename, buf); err != nil {
					return err
				}
			}
		case ifNode:
			truthy, err := evalCond(v.condSrc, ctx, locals, filename)
			if err != nil {
				return err
			}
			if truthy {
				if err := renderNodesWithLocals(v.body, ctx, locals, filename, buf); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func cloneLocals(locals map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(locals)+1)
	for k, v := range locals {
		out[k] = v
	}
	return out
}

func resolveIterable(src string, ctx Context, locals map[string]interface{}, filename string) ([]interface{}, error) {
	if m := rangeCallPattern.FindStringSubmatch(src); m != nil {
		n, _ := strconv.Atoi(m[1])
		items := make([]interface{}, n)
		for i := 0; i < n; i++ {
			items[i] = i
		}
		return items, nil
	}
	val, err := lookup(src, ctx, locals, filename)
	if err != nil {
		return nil, err
	}
	switch vs := val.(type) {
	case []string:
		items := make([]interface{}, len(vs))
		for i, s := range vs {
			items[i] = s
		}
		return items, nil
	case []interface{}:
		return vs, nil
	default:
		return nil, &Error{Code: UnbalancedBlocks, Filename: filename, Message: fmt.Sprintf("%q is not an iterable list", src)}
	}
}

func evalCond(src string, ctx Context, locals map[string]interface{}, filename string) (bool, error) {
	src = strings.TrimSpace(src)
	negate := false
	if strings.HasPrefix(src, "not ") {
		negate = true
		src = strings.TrimSpace(strings.TrimPrefix(src, "not "))
	}
	var result bool
	if idx := strings.Index(src, "=="); idx >= 0 {
		lhsKey := strings.TrimSpace(src[:idx])
		rhsLit := strings.Trim(strings.TrimSpace(src[idx+2:]), `"'`)
		lhs, err := lookup(lhsKey, ctx, locals, filename)
		if err != nil {
			return false, err
		}
		result = toDisplayString(lhs) == rhsLit
	} else {
		val, err := lookup(src, ctx, locals, filename)
		if err != nil {
			return false, err
		}
		result = truthy(val)
	}
	if negate {
		result = !result
	}
	return result, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []string:
		return len(t) > 0
	case []interface{}:
		return len(t) > 0
	case bool:
		return t
	default:
		return true
	}
}

func toDisplayString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// lookup resolves a dotted identifier against locals first, then ctx
// (spec.md §4.2's "identifier-or-dotted-key").
func lookup(key string, ctx Context, locals map[string]interface{}, filename string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if v, ok := locals[parts[0]]; ok {
		return resolvePath(v, parts[1:]), nil
	}
	if v, ok := ctx[parts[0]]; ok {
		return resolvePath(v, parts[1:]), nil
	}
	return nil, &Error{Code: UnknownTemplateKey, Filename: filename, Message: fmt.Sprintf("unknown template key %q", key)}
}

func resolvePath(v interface{}, rest []string) interface{} {
	cur := v
	for _, field := range rest {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return cur
		}
		cur = m[field]
	}
	return cur
}
