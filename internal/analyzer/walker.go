// Package analyzer resolves application types through the tsgo checker:
// it walks route trees, extracts request/response types from handlers, and
// classifies arbitrary TypeScript types into shapes for schema generation.
package analyzer

import (
	"fmt"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	"github.com/typewire/typewire/internal/shape"
)

// maxWalkDepth is the maximum nesting depth for type walking.
// Prevents stack overflow from deeply recursive or infinitely expanding types.
const maxWalkDepth = 20

// maxTotalTypes is the maximum number of types walked in a single top-level
// classification. Prevents excessive memory usage from very wide type graphs.
const maxTotalTypes = 500

// ShapeWalker classifies TypeScript types into shapes using the tsgo checker.
// Classification is a fixed-order dispatch: unions and intersections split
// first, then the empty/wildcard kinds, literals and primitives; object types
// check recognized built-ins (views, Record, arrays, tuples, Date, Map, Set,
// Promise) before declared names, so lib types never register as components;
// everything left with a declared interface, class or alias name registers
// once and resolves to a ref.
type ShapeWalker struct {
	checker  *shimchecker.Checker
	registry *shape.Registry
	warnings *WarningCollector
	// visiting tracks types currently being classified so self-references
	// resolve to refs instead of recursing forever.
	visiting    map[shimchecker.TypeId]bool
	depth       int
	totalWalked int
}

// NewShapeWalker creates a walker bound to one checker and one run's registry.
func NewShapeWalker(checker *shimchecker.Checker, warnings *WarningCollector) *ShapeWalker {
	if warnings == nil {
		warnings = NewWarningCollector()
	}
	return &ShapeWalker{
		checker:  checker,
		registry: shape.NewRegistry(),
		warnings: warnings,
		visiting: make(map[shimchecker.TypeId]bool),
	}
}

// Registry returns the registry of named shapes discovered so far.
func (w *ShapeWalker) Registry() *shape.Registry {
	return w.registry
}

// Warnings returns the collector the walker reports absorbed issues to.
func (w *ShapeWalker) Warnings() *WarningCollector {
	return w.warnings
}

// WalkType classifies a checker type into a Shape.
func (w *ShapeWalker) WalkType(t *shimchecker.Type) shape.Shape {
	if t == nil {
		return shape.Shape{Kind: shape.KindAny}
	}

	if w.depth >= maxWalkDepth {
		w.warnings.Add("", WarnDepthLimit, "type nesting exceeds depth limit; emitting unconstrained schema")
		return shape.Shape{Kind: shape.KindAny, Name: "depth-exceeded"}
	}
	// The breadth limit applies per top-level classification (one body, one
	// header shape, one response), not across the whole run.
	if w.depth == 0 {
		w.totalWalked = 0
	}
	w.depth++
	defer func() { w.depth-- }()

	w.totalWalked++
	if w.totalWalked > maxTotalTypes {
		w.warnings.Add("", WarnBreadthLimit, "type graph exceeds breadth limit; emitting unconstrained schema")
		return shape.Shape{Kind: shape.KindAny, Name: "breadth-exceeded"}
	}

	flags := t.Flags()

	// Unions and intersections first: they may carry undefined members and
	// alias names that the per-member walks must not see in isolation.
	if flags&shimchecker.TypeFlagsUnion != 0 {
		return w.walkUnion(t)
	}
	if flags&shimchecker.TypeFlagsIntersection != 0 {
		return w.walkIntersection(t)
	}

	return w.walkSingleType(t)
}

// walkSingleType handles a non-union, non-intersection type.
func (w *ShapeWalker) walkSingleType(t *shimchecker.Type) shape.Shape {
	flags := t.Flags()

	if flags&shimchecker.TypeFlagsAny != 0 {
		return shape.Shape{Kind: shape.KindAny}
	}
	if flags&shimchecker.TypeFlagsUnknown != 0 {
		return shape.Shape{Kind: shape.KindUnknown}
	}
	if flags&shimchecker.TypeFlagsNever != 0 {
		return shape.Shape{Kind: shape.KindNever}
	}
	if flags&shimchecker.TypeFlagsVoid != 0 {
		return shape.Shape{Kind: shape.KindVoid}
	}
	if flags&shimchecker.TypeFlagsNull != 0 {
		return shape.Shape{Kind: shape.KindNull}
	}
	if flags&shimchecker.TypeFlagsUndefined != 0 {
		return shape.Shape{Kind: shape.KindUndefined}
	}

	if flags&shimchecker.TypeFlagsStringLiteral != 0 {
		lit := t.AsLiteralType()
		return shape.Shape{Kind: shape.KindLiteral, LiteralValue: lit.Value()}
	}
	if flags&shimchecker.TypeFlagsNumberLiteral != 0 {
		lit := t.AsLiteralType()
		return shape.Shape{Kind: shape.KindLiteral, LiteralValue: normalizeLiteralValue(lit.Value())}
	}
	if flags&shimchecker.TypeFlagsBooleanLiteral != 0 {
		lit := t.AsLiteralType()
		if lit != nil {
			if boolVal, ok := lit.Value().(bool); ok {
				return shape.Shape{Kind: shape.KindLiteral, LiteralValue: boolVal}
			}
		}
		return shape.Shape{Kind: shape.KindAtomic, Atomic: "boolean"}
	}
	if flags&shimchecker.TypeFlagsBigIntLiteral != 0 {
		// Bigint literals have no JSON representation; classify as the
		// bigint primitive (a 64-bit integer in the document).
		return shape.Shape{Kind: shape.KindAtomic, Atomic: "bigint"}
	}

	if flags&shimchecker.TypeFlagsString != 0 {
		return shape.Shape{Kind: shape.KindAtomic, Atomic: "string"}
	}
	if flags&shimchecker.TypeFlagsNumber != 0 {
		return shape.Shape{Kind: shape.KindAtomic, Atomic: "number"}
	}
	if flags&shimchecker.TypeFlagsBoolean != 0 {
		return shape.Shape{Kind: shape.KindAtomic, Atomic: "boolean"}
	}
	if flags&shimchecker.TypeFlagsBigInt != 0 {
		return shape.Shape{Kind: shape.KindAtomic, Atomic: "bigint"}
	}
	if flags&shimchecker.TypeFlagsESSymbol != 0 {
		return shape.Shape{Kind: shape.KindAtomic, Atomic: "symbol"}
	}

	if flags&shimchecker.TypeFlagsEnumLiteral != 0 {
		lit := t.AsLiteralType()
		if lit != nil {
			return shape.Shape{Kind: shape.KindLiteral, LiteralValue: normalizeLiteralValue(lit.Value())}
		}
		return shape.Shape{Kind: shape.KindEnum}
	}

	// Template literal strings carry no JSON-schema structure beyond string.
	if flags&shimchecker.TypeFlagsTemplateLiteral != 0 {
		return shape.Shape{Kind: shape.KindAtomic, Atomic: "string"}
	}

	if flags&shimchecker.TypeFlagsObject != 0 {
		return w.walkObjectType(t)
	}

	// Unresolved constructs (type parameters, conditionals, indexed access):
	// classify the base constraint when one exists.
	if flags&(shimchecker.TypeFlagsTypeParameter|shimchecker.TypeFlagsConditional|shimchecker.TypeFlagsIndexedAccess|shimchecker.TypeFlagsIndex) != 0 {
		constraint := shimchecker.Checker_getBaseConstraintOfType(w.checker, t)
		if constraint != nil && constraint != t {
			return w.WalkType(constraint)
		}
	}

	w.warnings.Add("", WarnUnsupportedType, "type matched no classification rule; emitting unconstrained schema")
	return shape.Shape{Kind: shape.KindAny, Name: "unsupported"}
}

// walkUnion handles union types (A | B | C). Undefined members are stripped
// into the Optional flag; null members stay. A declared enum becomes
// KindEnum; an aliased multi-member union registers under its alias name.
func (w *ShapeWalker) walkUnion(t *shimchecker.Type) shape.Shape {
	types := t.Types()
	if len(types) == 0 {
		return shape.Shape{Kind: shape.KindNever}
	}

	name := w.unionName(t)
	if name != "" {
		if w.visiting[t.Id()] || w.registry.Has(name) {
			return shape.Shape{Kind: shape.KindRef, Ref: name}
		}
		w.visiting[t.Id()] = true
		defer delete(w.visiting, t.Id())
	}

	var members []shape.Shape
	optional := false

	for _, member := range types {
		flags := member.Flags()
		if flags&shimchecker.TypeFlagsUndefined != 0 {
			optional = true
			continue
		}
		// boolean is represented as true | false; collapse the pair back
		// into the boolean primitive instead of two literal members.
		if flags&shimchecker.TypeFlagsBooleanLiteral != 0 && hasOtherBooleanLiteral(types, member) {
			if !containsAtomic(members, "boolean") {
				members = append(members, shape.Shape{Kind: shape.KindAtomic, Atomic: "boolean"})
			}
			continue
		}
		members = append(members, w.WalkType(member))
	}

	if len(members) == 0 {
		// The union was undefined (possibly repeated); nothing to describe.
		return shape.Shape{Kind: shape.KindUndefined, Optional: optional}
	}
	if len(members) == 1 {
		result := members[0]
		if optional {
			result.Optional = true
		}
		return result
	}

	result := shape.Shape{
		Kind:     shape.KindUnion,
		Optional: optional,
		Members:  members,
	}

	if name != "" {
		// Declared enums collapse to their value list; aliased unions
		// register as named components.
		if isDeclaredEnum(t, types) && allLiterals(members) {
			values := make([]any, len(members))
			for i := range members {
				values[i] = members[i].LiteralValue
			}
			enum := shape.Shape{Kind: shape.KindEnum, Name: name, EnumValues: values}
			w.registry.Register(name, &enum)
		} else {
			registered := result
			registered.Name = name
			registered.Optional = false
			w.registry.Register(name, &registered)
		}
		return shape.Shape{Kind: shape.KindRef, Ref: name, Optional: optional}
	}

	return result
}

func hasOtherBooleanLiteral(types []*shimchecker.Type, member *shimchecker.Type) bool {
	for _, other := range types {
		if other != member && other.Flags()&shimchecker.TypeFlagsBooleanLiteral != 0 {
			return true
		}
	}
	return false
}

func containsAtomic(members []shape.Shape, atomic string) bool {
	for _, m := range members {
		if m.Kind == shape.KindAtomic && m.Atomic == atomic {
			return true
		}
	}
	return false
}

func allLiterals(members []shape.Shape) bool {
	for i := range members {
		if members[i].Kind != shape.KindLiteral {
			return false
		}
	}
	return true
}

// unionName extracts the declared name of a union type: the alias symbol for
// `type Status = "a" | "b"` style declarations, or the type symbol for actual
// enum declarations. Empty when the union is anonymous.
func (w *ShapeWalker) unionName(t *shimchecker.Type) string {
	alias := shimchecker.Type_alias(t)
	if alias != nil {
		if sym := alias.Symbol(); sym != nil && declarableName(sym.Name) {
			return sym.Name
		}
	}
	if sym := t.Symbol(); sym != nil && declarableName(sym.Name) {
		return sym.Name
	}
	return ""
}

// isDeclaredEnum reports whether the union is an actual enum declaration:
// named by its own symbol (not an alias) with every member an enum literal.
func isDeclaredEnum(t *shimchecker.Type, members []*shimchecker.Type) bool {
	if alias := shimchecker.Type_alias(t); alias != nil {
		if sym := alias.Symbol(); sym != nil && declarableName(sym.Name) {
			return false
		}
	}
	if sym := t.Symbol(); sym == nil || !declarableName(sym.Name) {
		return false
	}
	for _, m := range members {
		if m.Flags()&shimchecker.TypeFlagsEnumLiteral == 0 {
			return false
		}
	}
	return true
}

// walkIntersection handles intersection types (A & B): each member is
// classified independently and the members render as allOf.
func (w *ShapeWalker) walkIntersection(t *shimchecker.Type) shape.Shape {
	types := t.Types()
	if len(types) == 0 {
		return shape.Shape{Kind: shape.KindAny}
	}

	name := ""
	if alias := shimchecker.Type_alias(t); alias != nil {
		if sym := alias.Symbol(); sym != nil && declarableName(sym.Name) {
			name = sym.Name
		}
	}
	if name != "" {
		if w.visiting[t.Id()] || w.registry.Has(name) {
			return shape.Shape{Kind: shape.KindRef, Ref: name}
		}
		w.visiting[t.Id()] = true
		defer delete(w.visiting, t.Id())
	}

	var members []shape.Shape
	for _, member := range types {
		members = append(members, w.WalkType(member))
	}
	if len(members) == 1 {
		return members[0]
	}

	result := shape.Shape{Kind: shape.KindIntersection, Members: members}
	if name != "" {
		result.Name = name
		w.registry.Register(name, &result)
		return shape.Shape{Kind: shape.KindRef, Ref: name}
	}
	return result
}

// viewAliases are transformation aliases whose schema is the schema of their
// first type argument; the transformed property set is never materialized.
var viewAliases = map[string]bool{
	"Partial":  true,
	"Required": true,
	"Readonly": true,
	"Pick":     true,
	"Omit":     true,
}

// walkObjectType handles object types: arrays, tuples, recognized built-ins,
// named interfaces/classes, and anonymous structural objects.
func (w *ShapeWalker) walkObjectType(t *shimchecker.Type) shape.Shape {
	// View and key-value aliases are recognized before anything else; their
	// structural expansion must never win over the delegation rule.
	if alias := shimchecker.Type_alias(t); alias != nil {
		if sym := alias.Symbol(); sym != nil {
			if viewAliases[sym.Name] {
				args := alias.TypeArguments()
				if len(args) > 0 {
					return w.WalkType(args[0])
				}
				return shape.Shape{Kind: shape.KindAny}
			}
			if sym.Name == "Record" {
				return w.walkRecordAlias(alias.TypeArguments())
			}
		}
	}

	if shimchecker.Checker_isArrayType(w.checker, t) {
		typeArgs := shimchecker.Checker_getTypeArguments(w.checker, t)
		if len(typeArgs) > 0 {
			elem := w.WalkType(typeArgs[0])
			return shape.Shape{Kind: shape.KindArray, Element: &elem}
		}
		return shape.Shape{Kind: shape.KindArray}
	}

	if shimchecker.IsTupleType(t) {
		return w.walkTupleType(t)
	}

	sym := t.Symbol()
	if sym != nil {
		switch sym.Name {
		case "Date":
			return shape.Shape{Kind: shape.KindNative, Native: "Date"}
		case "RegExp":
			return shape.Shape{Kind: shape.KindNative, Native: "RegExp"}
		case "Map":
			return w.walkGenericNative(t, "Map")
		case "Set":
			return w.walkGenericNative(t, "Set")
		case "Promise":
			typeArgs := shimchecker.Checker_getTypeArguments(w.checker, t)
			if len(typeArgs) > 0 {
				return w.WalkType(typeArgs[0])
			}
			return shape.Shape{Kind: shape.KindAny}
		}
	}

	callSigs := shimchecker.Checker_getSignaturesOfType(w.checker, t, shimchecker.SignatureKindCall)
	props := shimchecker.Checker_getPropertiesOfType(w.checker, t)
	if len(callSigs) > 0 && len(props) == 0 {
		w.warnings.Add("", WarnUnsupportedType, "function type has no schema representation; emitting unconstrained schema")
		return shape.Shape{Kind: shape.KindAny, Name: "function"}
	}

	typeName := w.typeName(t)
	if typeName != "" {
		if w.visiting[t.Id()] {
			return shape.Shape{Kind: shape.KindRef, Ref: typeName}
		}
		if w.registry.Has(typeName) {
			return shape.Shape{Kind: shape.KindRef, Ref: typeName}
		}

		w.visiting[t.Id()] = true
		result := w.objectProperties(t, typeName)
		delete(w.visiting, t.Id())
		w.registry.Register(typeName, &result)
		return shape.Shape{Kind: shape.KindRef, Ref: typeName}
	}

	return w.objectProperties(t, "")
}

// walkRecordAlias handles Record<K, V> instantiations.
func (w *ShapeWalker) walkRecordAlias(args []*shimchecker.Type) shape.Shape {
	var walked []shape.Shape
	for _, arg := range args {
		walked = append(walked, w.WalkType(arg))
	}
	return shape.Shape{Kind: shape.KindNative, Native: "Record", TypeArguments: walked}
}

// objectProperties extracts the own properties and the string index
// signature of an object type.
func (w *ShapeWalker) objectProperties(t *shimchecker.Type, name string) shape.Shape {
	props := shimchecker.Checker_getPropertiesOfType(w.checker, t)
	var properties []shape.Property

	for _, prop := range props {
		cleaned := cleanPropertyName(prop.Name)
		if cleaned == "" {
			continue
		}

		propType := shimchecker.Checker_getTypeOfSymbol(w.checker, prop)
		propShape := w.WalkType(propType)

		// Optionality belongs to the property record: either the declaration
		// carries ? or the type union carried undefined. The shape itself is
		// the undefined-free remainder.
		optional := propShape.Optional || prop.Flags&ast.SymbolFlagsOptional != 0
		propShape.Optional = false

		properties = append(properties, shape.Property{
			Name:     cleaned,
			Type:     propShape,
			Required: !optional,
			Readonly: shimchecker.Checker_isReadonlySymbol(w.checker, prop),
		})
	}

	result := shape.Shape{
		Kind:       shape.KindObject,
		Name:       name,
		Properties: properties,
	}

	for _, info := range shimchecker.Checker_getIndexInfosOfType(w.checker, t) {
		keyType := shimchecker.IndexInfo_keyType(info)
		if keyType == nil || keyType.Flags()&shimchecker.TypeFlagsString == 0 {
			continue
		}
		key := w.WalkType(keyType)
		value := w.WalkType(shimchecker.IndexInfo_valueType(info))
		result.IndexSignature = &shape.IndexSignature{KeyType: key, ValueType: value}
		break
	}

	return result
}

// walkTupleType handles tuple types like [string, number].
func (w *ShapeWalker) walkTupleType(t *shimchecker.Type) shape.Shape {
	typeArgs := shimchecker.Checker_getTypeArguments(w.checker, t)
	tupleType := t.TargetTupleType()

	var elementInfos []shimchecker.TupleElementInfo
	if tupleType != nil {
		elementInfos = shimchecker.TupleType_elementInfos(tupleType)
	}

	var elements []shape.TupleElement
	for i, arg := range typeArgs {
		elem := shape.TupleElement{Type: w.WalkType(arg)}
		if elementInfos != nil && i < len(elementInfos) {
			info := elementInfos[i]
			elem.Optional = info.TupleElementFlags()&shimchecker.ElementFlagsOptional != 0
			elem.Rest = info.TupleElementFlags()&shimchecker.ElementFlagsRest != 0
		}
		elements = append(elements, elem)
	}

	return shape.Shape{Kind: shape.KindTuple, Elements: elements}
}

// walkGenericNative handles generic built-ins like Map<K,V> and Set<T>.
func (w *ShapeWalker) walkGenericNative(t *shimchecker.Type, name string) shape.Shape {
	typeArgs := shimchecker.Checker_getTypeArguments(w.checker, t)
	var args []shape.Shape
	for _, arg := range typeArgs {
		args = append(args, w.WalkType(arg))
	}
	return shape.Shape{Kind: shape.KindNative, Native: name, TypeArguments: args}
}

// normalizeLiteralValue converts tsgo literal values (e.g., jsnum.Number) to
// plain Go values for consistent handling downstream.
func normalizeLiteralValue(v any) any {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		return val
	case bool:
		return val
	default:
		// jsnum.Number is a defined float64 type; convert through its string
		// form rather than importing the internal package.
		str := fmt.Sprintf("%v", v)
		var f float64
		if _, err := fmt.Sscanf(str, "%g", &f); err == nil {
			return f
		}
		return v
	}
}

// typeName returns the declared name of a type, or empty for anonymous and
// synthetic types. An alias name wins over the structural symbol, so
// `type Point = { ... }` and `type StringBox = Box<string>` register under
// the alias the author wrote.
func (w *ShapeWalker) typeName(t *shimchecker.Type) string {
	if alias := shimchecker.Type_alias(t); alias != nil {
		if sym := alias.Symbol(); sym != nil && declarableName(sym.Name) {
			return sym.Name
		}
	}
	if shimchecker.Type_objectFlags(t)&shimchecker.ObjectFlagsAnonymous != 0 {
		return ""
	}

	sym := t.Symbol()
	if sym == nil {
		return ""
	}
	if !declarableName(sym.Name) {
		return ""
	}
	return sym.Name
}

// declarableName filters out TypeScript-internal symbol names ("__type",
// "__object", and the \xfe-prefixed names minted for mapped types).
func declarableName(name string) bool {
	if name == "" || name == "__type" || name == "__object" || name == "__function" {
		return false
	}
	if name[0] == '\xfe' {
		return false
	}
	return true
}

// cleanPropertyName filters internal property names; empty means skip.
func cleanPropertyName(name string) string {
	if name == "" || name[0] == '\xfe' {
		return ""
	}
	return name
}
