// Package shape defines the classified-type representation used throughout
// typewire. A Shape is the normalized output of classifying one TypeScript
// type: a closed set of kinds, one per schema-construction rule, so the
// schema synthesizer can dispatch on the tag instead of re-querying the
// checker.
package shape

// Shape represents one classified type.
type Shape struct {
	// Kind identifies which construction rule applies.
	Kind Kind `json:"kind"`

	// Optional is true when undefined was stripped from this position
	// (a union member, a property type, a body slot). Callers that manage
	// optionality themselves clear it before schema conversion; anywhere
	// it survives it renders as nullable.
	Optional bool `json:"optional,omitempty"`

	// Name is the declared name for nominal types (interface, class,
	// type alias, enum). Empty for anonymous/structural types.
	Name string `json:"name,omitempty"`

	// Atomic holds the primitive name (string, number, boolean, bigint,
	// symbol). Only set when Kind == KindAtomic.
	Atomic string `json:"atomic,omitempty"`

	// LiteralValue holds the value for KindLiteral (string, float64 or bool).
	LiteralValue any `json:"literalValue,omitempty"`

	// Properties holds the own properties of an object type.
	Properties []Property `json:"properties,omitempty"`

	// IndexSignature is set when the object carries an index signature.
	IndexSignature *IndexSignature `json:"indexSignature,omitempty"`

	// Element is the array element type. Only set when Kind == KindArray.
	Element *Shape `json:"element,omitempty"`

	// Elements holds tuple member types in declaration order.
	Elements []TupleElement `json:"elements,omitempty"`

	// Members holds union or intersection member types; Kind distinguishes.
	Members []Shape `json:"members,omitempty"`

	// EnumValues holds the member values of a declared enum.
	EnumValues []any `json:"enumValues,omitempty"`

	// Native names a recognized built-in (Date, RegExp, Map, Set, Record).
	Native string `json:"native,omitempty"`

	// TypeArguments holds generic arguments for native types (Map<K,V>,
	// Set<T>, Record<K,V>).
	TypeArguments []Shape `json:"typeArguments,omitempty"`

	// Ref names a type that is (or is being) classified elsewhere;
	// self-referential types resolve to a Ref instead of recursing.
	Ref string `json:"$ref,omitempty"`
}

// Kind is the primary classification of a type.
type Kind string

const (
	KindNever        Kind = "never"
	KindAny          Kind = "any"
	KindUnknown      Kind = "unknown"
	KindVoid         Kind = "void"
	KindNull         Kind = "null"
	KindUndefined    Kind = "undefined"
	KindAtomic       Kind = "atomic"       // string, number, boolean, bigint, symbol
	KindLiteral      Kind = "literal"      // "x", 42, true
	KindObject       Kind = "object"       // interface or structural object
	KindArray        Kind = "array"        // T[]
	KindTuple        Kind = "tuple"        // [A, B, C]
	KindUnion        Kind = "union"        // A | B
	KindIntersection Kind = "intersection" // A & B
	KindEnum         Kind = "enum"         // declared enum
	KindNative       Kind = "native"       // Date, RegExp, Map, Set, Record
	KindRef          Kind = "ref"          // reference to a named shape
)

// Property is one own property of an object shape.
type Property struct {
	Name     string `json:"name"`
	Type     Shape  `json:"type"`
	Required bool   `json:"required"`
	Readonly bool   `json:"readonly,omitempty"`
}

// TupleElement is one member of a tuple shape.
type TupleElement struct {
	Type     Shape `json:"type"`
	Optional bool  `json:"optional,omitempty"`
	Rest     bool  `json:"rest,omitempty"`
}

// IndexSignature describes [key: K]: V on an object shape.
type IndexSignature struct {
	KeyType   Shape `json:"keyType"`
	ValueType Shape `json:"valueType"`
}

// Registry tracks named shapes so repeated classification of the same name
// yields one entry and self-references resolve to refs.
type Registry struct {
	Shapes map[string]*Shape
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{Shapes: make(map[string]*Shape)}
}

// Register adds a named shape.
func (r *Registry) Register(name string, s *Shape) {
	r.Shapes[name] = s
}

// Has reports whether a name is already registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Shapes[name]
	return ok
}

// Get returns the registered shape, or nil.
func (r *Registry) Get(name string) *Shape {
	return r.Shapes[name]
}

// Trivial reports whether s carries no usable constraint: the wildcard and
// empty kinds, a union made only of trivial members, or an object with no
// properties and no index signature. Refs resolve through the registry so
// a named empty interface counts the same as an inline one. Trivial request
// slots contribute nothing to an operation and do not trigger
// validation-error injection.
func (r *Registry) Trivial(s *Shape) bool {
	if s == nil {
		return true
	}
	switch s.Kind {
	case KindAny, KindUnknown, KindUndefined, KindVoid, KindNever:
		return true
	case KindUnion:
		for i := range s.Members {
			if !r.Trivial(&s.Members[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return len(s.Properties) == 0 && s.IndexSignature == nil
	case KindRef:
		if r == nil {
			return false
		}
		if target := r.Get(s.Ref); target != nil && target.Kind != KindRef {
			return r.Trivial(target)
		}
		return false
	}
	return false
}
