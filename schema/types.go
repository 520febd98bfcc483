package schema

import "strings"

// Kind discriminates the type descriptor variants.
type Kind uint8

const (
	KindAny Kind = iota
	KindNone
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindDict
	KindUnion
	KindOptional
	KindObject // opaque reference to a foreign object
)

var kindNames = [...]string{
	KindAny:      "any",
	KindNone:     "none",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindBytes:    "bytes",
	KindList:     "list",
	KindDict:     "dict",
	KindUnion:    "union",
	KindOptional: "optional",
	KindObject:   "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether the kind is a scalar wire type.
func (k Kind) IsPrimitive() bool {
	return k >= KindBool && k <= KindBytes
}

// Type is an immutable tagged-variant type descriptor, produced once per
// schema entry.
type Type struct {
	Kind     Kind
	Elem     *Type  // list element
	Key      *Type  // dict key
	Value    *Type  // dict value
	Variants []Type // union members
	Inner    *Type  // optional inner type
}

// Convenience constructors keep descriptor literals readable in loaders
// and tests.

func Any() Type           { return Type{Kind: KindAny} }
func None() Type          { return Type{Kind: KindNone} }
func Bool() Type          { return Type{Kind: KindBool} }
func Int() Type           { return Type{Kind: KindInt} }
func Float() Type         { return Type{Kind: KindFloat} }
func String() Type        { return Type{Kind: KindString} }
func Bytes() Type         { return Type{Kind: KindBytes} }
func Object() Type        { return Type{Kind: KindObject} }
func List(elem Type) Type { return Type{Kind: KindList, Elem: &elem} }

func Dict(key, value Type) Type {
	return Type{Kind: KindDict, Key: &key, Value: &value}
}

func Union(variants ...Type) Type {
	return Type{Kind: KindUnion, Variants: variants}
}

func Optional(inner Type) Type {
	return Type{Kind: KindOptional, Inner: &inner}
}

// String renders the descriptor in a compact foreign-facing notation,
// used in diagnostics and generated doc comments.
func (t Type) String() string {
	switch t.Kind {
	case KindList:
		if t.Elem != nil {
			return "list[" + t.Elem.String() + "]"
		}
		return "list"
	case KindDict:
		if t.Key != nil && t.Value != nil {
			return "dict[" + t.Key.String() + ", " + t.Value.String() + "]"
		}
		return "dict"
	case KindUnion:
		parts := make([]string, len(t.Variants))
		for i, v := range t.Variants {
			parts[i] = v.String()
		}
		return "union[" + strings.Join(parts, ", ") + "]"
	case KindOptional:
		if t.Inner != nil {
			return "optional[" + t.Inner.String() + "]"
		}
		return "optional"
	default:
		return t.Kind.String()
	}
}

// ParamKind classifies how a parameter binds at the foreign call site.
// The names mirror the foreign runtime's own parameter classification.
type ParamKind uint8

const (
	PositionalOnly ParamKind = iota
	PositionalOrKeyword
	VarPositional
	KeywordOnly
	VarKeyword
)

var paramKindNames = [...]string{
	PositionalOnly:      "positional_only",
	PositionalOrKeyword: "positional_or_keyword",
	VarPositional:       "var_positional",
	KeywordOnly:         "keyword_only",
	VarKeyword:          "var_keyword",
}

func (k ParamKind) String() string {
	if int(k) < len(paramKindNames) {
		return paramKindNames[k]
	}
	return "unknown"
}

// ParamKindFromName parses a foreign parameter kind name. Unknown names
// degrade to PositionalOrKeyword, the foreign runtime's own default.
func ParamKindFromName(name string) ParamKind {
	for k, n := range paramKindNames {
		if n == name {
			return ParamKind(k)
		}
	}
	return PositionalOrKeyword
}

// Parameter describes one parameter of a foreign callable. Order within a
// function is significant for positional kinds.
type Parameter struct {
	Name       string
	Type       Type
	Kind       ParamKind
	HasDefault bool
	Default    string // foreign-rendered default, documentation only
}

// Required reports whether the parameter must be supplied positionally by
// every caller: positional kinds without a default. Everything else rides
// in the options parameter of a generated binding.
func (p Parameter) Required() bool {
	if p.HasDefault {
		return false
	}
	return p.Kind == PositionalOnly || p.Kind == PositionalOrKeyword
}

// Function describes one foreign callable.
type Function struct {
	Name      string
	Path      string // fully-qualified foreign dotted path
	Params    []Parameter
	Returns   Type
	Doc       string // opaque, externally formatted
	Streaming bool
}

// RequiredParams returns the parameters that become fixed positional
// arguments of the generated binding, in declaration order.
func (f Function) RequiredParams() []Parameter {
	var out []Parameter
	for _, p := range f.Params {
		if p.Required() {
			out = append(out, p)
		}
	}
	return out
}

// HasVarPositional reports whether the foreign signature accepts
// positional overflow.
func (f Function) HasVarPositional() bool {
	for _, p := range f.Params {
		if p.Kind == VarPositional {
			return true
		}
	}
	return false
}

// Attribute describes a readable (and possibly writable) foreign
// object attribute.
type Attribute struct {
	Name     string
	Type     Type
	Writable bool
}

// Class describes one foreign class. The constructor parameter list is
// derived from the foreign initializer, never assumed.
type Class struct {
	Name        string
	Path        string
	Doc         string
	Constructor []Parameter
	Methods     []Function
	Attributes  []Attribute
}

// RequiredConstructorParams returns the constructor parameters that become
// fixed positional arguments of the generated constructor.
func (c Class) RequiredConstructorParams() []Parameter {
	ctor := Function{Params: c.Constructor}
	return ctor.RequiredParams()
}

// Library is the normalized schema for one foreign library or submodule.
// Submodules compose recursively; dotted paths are unique across the tree.
type Library struct {
	Name       string
	Version    string
	Functions  []Function
	Classes    []Class
	Submodules []Library
}

// Walk visits the library and every submodule depth-first.
func (l *Library) Walk(fn func(lib *Library)) {
	fn(l)
	for i := range l.Submodules {
		l.Submodules[i].Walk(fn)
	}
}
