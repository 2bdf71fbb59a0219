package analyzer

import (
	"fmt"
	"strings"

	shimchecker "github.com/microsoft/typescript-go/shim/checker"
)

// RouteOperation is one handler discovered in the route tree.
type RouteOperation struct {
	Method    string // lowercase HTTP method
	Path      string // joined route path in :param form
	Responses []ResponseShape
	Request   RequestShape
}

// WalkRoutes traverses the route tree depth-first in declaration order and
// returns one operation per handler.
func (aw *AppWalker) WalkRoutes(routes *shimchecker.Type) ([]RouteOperation, error) {
	var ops []RouteOperation
	if err := aw.walkNode(routes, "", &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func (aw *AppWalker) walkNode(node *shimchecker.Type, base string, ops *[]RouteOperation) error {
	node = stripUndefined(node)
	if node == nil {
		return nil
	}
	path := JoinPaths(base, aw.pathSegment(node))
	if methods := aw.propertyType(node, "methods"); methods != nil {
		for _, m := range shimchecker.Checker_getPropertiesOfType(aw.checker, methods) {
			handler := shimchecker.Checker_getTypeOfSymbol(aw.checker, m)
			op, err := aw.buildOperation(path, m.Name, handler)
			if err != nil {
				return err
			}
			*ops = append(*ops, op)
		}
	}
	for _, child := range aw.childNodes(aw.propertyType(node, "children")) {
		if err := aw.walkNode(child, path, ops); err != nil {
			return err
		}
	}
	return nil
}

func (aw *AppWalker) buildOperation(path, method string, handler *shimchecker.Type) (RouteOperation, error) {
	args := aw.typeArgsOf(handler)
	if len(args) < 2 {
		return RouteOperation{}, fmt.Errorf("handler for %s %s does not carry response and request type arguments", strings.ToUpper(method), path)
	}
	op := RouteOperation{
		Method:    strings.ToLower(method),
		Path:      path,
		Responses: aw.extractResponses(args[0]),
	}
	op.Request = aw.extractRequest(args[1], path)
	return op, nil
}

// pathSegment reads the node's path property; anything but a string literal
// falls back to "/".
func (aw *AppWalker) pathSegment(node *shimchecker.Type) string {
	t := aw.propertyType(node, "path")
	if t == nil || t.Flags()&shimchecker.TypeFlagsStringLiteral == 0 {
		return "/"
	}
	if v, ok := normalizeLiteralValue(t.AsLiteralType().Value()).(string); ok {
		return v
	}
	return "/"
}

// childNodes expands a children property into individual route nodes.
// Tuples, arrays and unions fan out to their members; a lone object is one
// child; undefined and never members drop out.
func (aw *AppWalker) childNodes(t *shimchecker.Type) []*shimchecker.Type {
	if t == nil {
		return nil
	}
	if t.Flags()&shimchecker.TypeFlagsUnion != 0 {
		var nodes []*shimchecker.Type
		for _, m := range t.Types() {
			nodes = append(nodes, aw.childNodes(m)...)
		}
		return nodes
	}
	if t.Flags()&shimchecker.TypeFlagsObject == 0 {
		return nil
	}
	if shimchecker.IsTupleType(t) {
		var nodes []*shimchecker.Type
		for _, m := range shimchecker.Checker_getTypeArguments(aw.checker, t) {
			nodes = append(nodes, aw.childNodes(m)...)
		}
		return nodes
	}
	if shimchecker.Checker_isArrayType(aw.checker, t) {
		args := shimchecker.Checker_getTypeArguments(aw.checker, t)
		if len(args) == 0 {
			return nil
		}
		return aw.childNodes(args[0])
	}
	return []*shimchecker.Type{t}
}

// propertyType resolves a named property of a route node and unwraps the
// undefined added by optional properties.
func (aw *AppWalker) propertyType(node *shimchecker.Type, name string) *shimchecker.Type {
	sym := shimchecker.Checker_getPropertyOfType(aw.checker, node, name)
	if sym == nil {
		return nil
	}
	return stripUndefined(shimchecker.Checker_getTypeOfSymbol(aw.checker, sym))
}

// stripUndefined drops undefined and never union members, returning the sole
// remaining member, nil when nothing remains, or the original union when
// several do.
func stripUndefined(t *shimchecker.Type) *shimchecker.Type {
	if t == nil || t.Flags()&shimchecker.TypeFlagsUnion == 0 {
		return t
	}
	var kept []*shimchecker.Type
	for _, m := range t.Types() {
		if m.Flags()&(shimchecker.TypeFlagsUndefined|shimchecker.TypeFlagsNever) != 0 {
			continue
		}
		kept = append(kept, m)
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return t
	}
}
