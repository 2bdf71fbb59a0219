// Package openapi turns classified shapes into an OpenAPI 3.1 document.
package openapi

import (
	"github.com/typewire/typewire/internal/shape"
)

// Schema is the JSON Schema subset typewire emits (OpenAPI 3.1 dialect).
type Schema struct {
	Ref                  string             `json:"$ref,omitempty"`
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Description          string             `json:"description,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitzero"`
	Items                *Schema            `json:"items,omitzero"`
	PrefixItems          []*Schema          `json:"prefixItems,omitempty"`
	MinItems             int                `json:"minItems,omitzero"`
	UniqueItems          bool               `json:"uniqueItems,omitzero"`
	OneOf                []*Schema          `json:"oneOf,omitempty"`
	AllOf                []*Schema          `json:"allOf,omitempty"`
	Not                  *Schema            `json:"not,omitzero"`
	Nullable             bool               `json:"nullable,omitzero"`
	ReadOnly             bool               `json:"readOnly,omitzero"`
}

// SchemaBuilder converts shapes into schema fragments, collecting named
// types into the document's component table. One builder serves one
// generation run; it is not safe to reuse across programs.
type SchemaBuilder struct {
	registry *shape.Registry
	schemas  map[string]*Schema
}

// NewSchemaBuilder creates a builder resolving refs through registry.
func NewSchemaBuilder(registry *shape.Registry) *SchemaBuilder {
	if registry == nil {
		registry = shape.NewRegistry()
	}
	return &SchemaBuilder{
		registry: registry,
		schemas:  make(map[string]*Schema),
	}
}

// Schemas returns the component table accumulated so far.
func (b *SchemaBuilder) Schemas() map[string]*Schema { return b.schemas }

// BuildAll converts every registered named shape so the component table is
// complete even for names nothing else referenced yet.
func (b *SchemaBuilder) BuildAll() {
	for name := range b.registry.Shapes {
		b.refSchema(name)
	}
}

// SchemaFor converts one classified shape into a schema fragment. A shape
// that had undefined stripped from it and was not consumed as optionality
// elsewhere renders as nullable.
func (b *SchemaBuilder) SchemaFor(s *shape.Shape) *Schema {
	schema := b.convert(s)
	if s != nil && s.Optional {
		schema.Nullable = true
	}
	return schema
}

// SchemaForAlternatives builds a schema for a set of alternative shapes:
// none is unconstrained, one is its own schema, several become a oneOf with
// each member's schema computed independently.
func (b *SchemaBuilder) SchemaForAlternatives(members []shape.Shape) *Schema {
	switch len(members) {
	case 0:
		return &Schema{}
	case 1:
		return b.SchemaFor(&members[0])
	}
	oneOf := make([]*Schema, 0, len(members))
	for i := range members {
		oneOf = append(oneOf, b.SchemaFor(&members[i]))
	}
	return &Schema{OneOf: oneOf}
}

func (b *SchemaBuilder) convert(s *shape.Shape) *Schema {
	if s == nil {
		return &Schema{}
	}
	switch s.Kind {
	case shape.KindRef:
		return b.refSchema(s.Ref)
	case shape.KindNever:
		return &Schema{Not: &Schema{}}
	case shape.KindAny, shape.KindUnknown:
		return &Schema{Description: "Any value"}
	case shape.KindVoid, shape.KindNull:
		return &Schema{Type: "null"}
	case shape.KindUndefined:
		return &Schema{}
	case shape.KindAtomic:
		return convertAtomic(s.Atomic)
	case shape.KindLiteral:
		return convertLiteral(s.LiteralValue)
	case shape.KindObject:
		return b.buildObjectSchema(s)
	case shape.KindArray:
		return b.convertArray(s)
	case shape.KindTuple:
		return b.convertTuple(s)
	case shape.KindUnion:
		return b.convertUnion(s)
	case shape.KindIntersection:
		return b.convertIntersection(s)
	case shape.KindEnum:
		return convertEnum(s)
	case shape.KindNative:
		return b.convertNative(s)
	}
	return &Schema{}
}

// refSchema returns a $ref to a named component, building the component on
// first use. The placeholder stored before building makes a self-referential
// type resolve to its own $ref instead of recursing forever.
func (b *SchemaBuilder) refSchema(name string) *Schema {
	if name == "" {
		return &Schema{}
	}
	if _, exists := b.schemas[name]; !exists {
		b.schemas[name] = &Schema{}
		if target := b.registry.Get(name); target != nil {
			b.schemas[name] = b.convert(target)
		}
	}
	return &Schema{Ref: "#/components/schemas/" + name}
}

func convertAtomic(name string) *Schema {
	switch name {
	case "string":
		return &Schema{Type: "string"}
	case "number":
		return &Schema{Type: "number"}
	case "boolean":
		return &Schema{Type: "boolean"}
	case "bigint":
		return &Schema{Type: "integer", Format: "int64"}
	case "symbol":
		return &Schema{Type: "string", Description: "Opaque symbol value"}
	}
	return &Schema{Type: "string"}
}

// convertLiteral renders a literal as its primitive type constrained to a
// single enum value.
func convertLiteral(v any) *Schema {
	schema := &Schema{Enum: []any{v}}
	switch v.(type) {
	case string:
		schema.Type = "string"
	case bool:
		schema.Type = "boolean"
	case float64, int:
		schema.Type = "number"
	}
	return schema
}

func (b *SchemaBuilder) buildObjectSchema(s *shape.Shape) *Schema {
	schema := &Schema{Type: "object"}
	if len(s.Properties) > 0 {
		schema.Properties = make(map[string]*Schema, len(s.Properties))
		var required []string
		for i := range s.Properties {
			p := &s.Properties[i]
			propSchema := b.SchemaFor(&p.Type)
			if p.Readonly {
				propSchema.ReadOnly = true
			}
			schema.Properties[p.Name] = propSchema
			if p.Required {
				required = append(required, p.Name)
			}
		}
		schema.Required = required
	}
	if s.IndexSignature != nil {
		schema.AdditionalProperties = b.SchemaFor(&s.IndexSignature.ValueType)
	}
	return schema
}

func (b *SchemaBuilder) convertArray(s *shape.Shape) *Schema {
	if s.Element == nil {
		return &Schema{Type: "array", Items: &Schema{}}
	}
	return &Schema{Type: "array", Items: b.SchemaFor(s.Element)}
}

func (b *SchemaBuilder) convertTuple(s *shape.Shape) *Schema {
	if len(s.Elements) == 0 {
		return &Schema{Type: "array"}
	}
	prefix := make([]*Schema, 0, len(s.Elements))
	for i := range s.Elements {
		prefix = append(prefix, b.SchemaFor(&s.Elements[i].Type))
	}
	return &Schema{Type: "array", PrefixItems: prefix, MinItems: len(prefix)}
}

// convertUnion renders literal-only unions as a single enum of their values;
// every other union becomes a oneOf of its members.
func (b *SchemaBuilder) convertUnion(s *shape.Shape) *Schema {
	if len(s.Members) == 0 {
		return &Schema{}
	}
	if values, ok := literalEnum(s.Members, "string"); ok {
		return &Schema{Type: "string", Enum: values}
	}
	if values, ok := literalEnum(s.Members, "number"); ok {
		return &Schema{Type: "number", Enum: values}
	}
	if booleanLiterals(s.Members) {
		// Boolean has only two values; the enum adds nothing.
		return &Schema{Type: "boolean"}
	}
	oneOf := make([]*Schema, 0, len(s.Members))
	for i := range s.Members {
		oneOf = append(oneOf, b.SchemaFor(&s.Members[i]))
	}
	return &Schema{OneOf: oneOf}
}

func booleanLiterals(members []shape.Shape) bool {
	for i := range members {
		if members[i].Kind != shape.KindLiteral {
			return false
		}
		if _, ok := members[i].LiteralValue.(bool); !ok {
			return false
		}
	}
	return true
}

// literalEnum collects the values of a union whose members are all literals
// of the given primitive.
func literalEnum(members []shape.Shape, primitive string) ([]any, bool) {
	values := make([]any, 0, len(members))
	for i := range members {
		if members[i].Kind != shape.KindLiteral {
			return nil, false
		}
		switch members[i].LiteralValue.(type) {
		case string:
			if primitive != "string" {
				return nil, false
			}
		case float64, int:
			if primitive != "number" {
				return nil, false
			}
		default:
			return nil, false
		}
		values = append(values, members[i].LiteralValue)
	}
	return values, true
}

func (b *SchemaBuilder) convertIntersection(s *shape.Shape) *Schema {
	if len(s.Members) == 0 {
		return &Schema{}
	}
	allOf := make([]*Schema, 0, len(s.Members))
	for i := range s.Members {
		allOf = append(allOf, b.SchemaFor(&s.Members[i]))
	}
	return &Schema{AllOf: allOf}
}

func convertEnum(s *shape.Shape) *Schema {
	return &Schema{Type: uniformEnumType(s.EnumValues), Enum: s.EnumValues}
}

// uniformEnumType returns the shared primitive type of enum values, or ""
// for heterogeneous enums.
func uniformEnumType(values []any) string {
	t := ""
	for _, v := range values {
		var vt string
		switch v.(type) {
		case string:
			vt = "string"
		case float64, int:
			vt = "number"
		default:
			return ""
		}
		if t == "" {
			t = vt
		} else if t != vt {
			return ""
		}
	}
	return t
}

func (b *SchemaBuilder) convertNative(s *shape.Shape) *Schema {
	switch s.Native {
	case "Date":
		return &Schema{Type: "string", Format: "date-time"}
	case "RegExp":
		return &Schema{Type: "string", Format: "regex"}
	case "Record", "Map":
		schema := &Schema{Type: "object", AdditionalProperties: &Schema{}}
		if len(s.TypeArguments) >= 2 {
			schema.AdditionalProperties = b.SchemaFor(&s.TypeArguments[1])
		}
		return schema
	case "Set":
		return &Schema{Type: "array", Items: &Schema{}, UniqueItems: true}
	}
	return &Schema{Type: "object"}
}
