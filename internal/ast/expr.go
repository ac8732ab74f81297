// Package ast defines the typed expression tree that YAML value nodes are
// lowered into (spec.md §3), and its projection to the tagged,
// language-neutral serialized form (spec.md §4.8, §6).
//
// Expression is a tagged sum, not a polymorphic class hierarchy: every
// variant is a distinct Go type implementing Expr, and the serializer (this
// package) and the dependency walker (internal/plan) are disjoint type
// switches over the same variants. internal/builtins does not visit Expr
// nodes: it evaluates plain boundary values, and no code evaluates a
// Builtin node in place.
package ast

// Expr is any lowered expression node.
type Expr interface {
	// Tag is the `t` discriminator used in the serialized form.
	Tag() string
	// SourceSpan is the node's optional source location.
	SourceSpan() Span
}

// base carries the span shared by every node; embedded, never exported on
// its own.
type base struct {
	Span Span
}

func (b base) SourceSpan() Span { return b.Span }

// Null is the `null` literal.
type Null struct {
	base
}

func (Null) Tag() string { return "null" }

// Bool is a boolean literal.
type Bool struct {
	base
	Value bool
}

func (Bool) Tag() string { return "bool" }

// Number is a numeric literal; Int distinguishes integer from
// floating-point per spec.md §3.
type Number struct {
	base
	Int    bool
	IntVal int64
	FltVal float64
}

func (Number) Tag() string { return "number" }

// String is an uninterpolated string literal.
type String struct {
	base
	Value string
}

func (String) Tag() string { return "string" }

// InterpPart is one piece of an Interp: either literal text or an embedded
// expression.
type InterpPart struct {
	Literal string
	Expr    Expr // nil when this part is literal text
}

// Interp is a string with `${...}` segments; Parts alternate literal text
// and embedded expressions (spec.md §3).
type Interp struct {
	base
	Parts []InterpPart
}

func (Interp) Tag() string { return "interp" }

// AccessorKind distinguishes a `.field` step from a `[index]` step.
type AccessorKind int

const (
	AccessorField AccessorKind = iota
	AccessorIndex
)

// Accessor is one step (`.name` or `[i]`) applied to a symbol reference.
type Accessor struct {
	Kind  AccessorKind
	Field string
	Index int
}

// Sym is a reference whose Base names a top-level symbol and whose
// Accessors are a sequence of field/index steps (spec.md §3, §4.5).
type Sym struct {
	base
	SymBase   string
	Accessors []Accessor
}

func (Sym) Tag() string { return "sym" }

// List is an ordered list of expressions.
type List struct {
	base
	Items []Expr
}

func (List) Tag() string { return "list" }

// ObjectEntry is one (key, value) pair of an Object, in declaration order.
type ObjectEntry struct {
	Key   string
	Value Expr
}

// Object is an ordered mapping of string keys to expressions (spec.md §3).
type Object struct {
	base
	Entries []ObjectEntry
}

func (Object) Tag() string { return "object" }

// Builtin is a unary call to a registered built-in function by name
// (spec.md §3, §4.6).
type Builtin struct {
	base
	Name string
	Arg  Expr
}

func (b Builtin) Tag() string { return b.Name }

// Invoke is a named function call whose resolution is deferred to the
// deployment engine (spec.md §3, the GLOSSARY entry "Invoke").
type Invoke struct {
	base
	Token   string
	Args    Expr
	Options Expr // nil when absent
}

func (Invoke) Tag() string { return "invoke" }

// AssetKind enumerates the asset/archive constructor kinds (spec.md §3).
type AssetKind string

const (
	StringAsset   AssetKind = "stringAsset"
	FileAsset     AssetKind = "fileAsset"
	RemoteAsset   AssetKind = "remoteAsset"
	FileArchive   AssetKind = "fileArchive"
	RemoteArchive AssetKind = "remoteArchive"
	AssetArchive  AssetKind = "assetArchive"
)

// Asset is an asset/archive constructor call.
type Asset struct {
	base
	Kind AssetKind
	Arg  Expr
}

func (a Asset) Tag() string { return string(a.Kind) }

// Secret wraps an inner expression as sensitive (spec.md §3). Nesting is
// preserved unchanged per spec.md §9's open question.
type Secret struct {
	base
	Inner Expr
}

func (Secret) Tag() string { return "secret" }

// Constructors below are the only way other packages can attach a source
// Span to a node, since base is unexported: internal/lower builds every
// node that carries a span through these; its span-less placeholders are
// bare ast.Null{} values.

func NewNull(span Span) Null { return Null{base{span}} }

func NewBool(span Span, v bool) Bool { return Bool{base{span}, v} }

func NewNumberInt(span Span, v int64) Number { return Number{base{span}, true, v, 0} }

func NewNumberFloat(span Span, v float64) Number { return Number{base{span}, false, 0, v} }

func NewString(span Span, v string) String { return String{base{span}, v} }

func NewInterp(span Span, parts []InterpPart) Interp { return Interp{base{span}, parts} }

func NewSym(span Span, symBase string, accessors []Accessor) Sym {
	return Sym{base{span}, symBase, accessors}
}

func NewList(span Span, items []Expr) List { return List{base{span}, items} }

func NewObject(span Span, entries []ObjectEntry) Object { return Object{base{span}, entries} }

func NewBuiltin(span Span, name string, arg Expr) Builtin { return Builtin{base{span}, name, arg} }

func NewInvoke(span Span, token string, args, options Expr) Invoke {
	return Invoke{base{span}, token, args, options}
}

func NewAsset(span Span, kind AssetKind, arg Expr) Asset { return Asset{base{span}, kind, arg} }

func NewSecret(span Span, inner Expr) Secret { return Secret{base{span}, inner} }

